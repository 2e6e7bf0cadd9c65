package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&pgconn.PgError{Code: "40001"}, true},
		{&pgconn.PgError{Code: "40P01"}, true},
		{fmt.Errorf("tx: %w", &pgconn.PgError{Code: "55P03"}), true},
		{&pgconn.PgError{Code: "23505"}, false},
		{errors.New("boom"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%v): expected %v, got %v", tt.err, tt.want, got)
		}
	}
}

func TestIsDuplicate(t *testing.T) {
	if !IsDuplicate(gorm.ErrDuplicatedKey) {
		t.Error("Expected gorm.ErrDuplicatedKey to be a duplicate")
	}
	if !IsDuplicate(&pgconn.PgError{Code: "23505"}) {
		t.Error("Expected 23505 to be a duplicate")
	}
	if IsDuplicate(errors.New("x")) {
		t.Error("Expected plain error not to be a duplicate")
	}
}

func TestWithTxRetry_RetriesDeadlocks(t *testing.T) {
	db := openSQLite(t)

	calls := 0
	err := WithTxRetry(context.Background(), db, 3, func(tx *gorm.DB) error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: "40P01"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
}

func TestWithTxRetry_StopsOnPermanentError(t *testing.T) {
	db := openSQLite(t)

	calls := 0
	perm := errors.New("permanent")
	err := WithTxRetry(context.Background(), db, 5, func(tx *gorm.DB) error {
		calls++
		return perm
	})
	if !errors.Is(err, perm) {
		t.Fatalf("Expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected a single attempt, got %d", calls)
	}
}
