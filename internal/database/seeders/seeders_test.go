package seeders_test

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"geethika.lk/app/internal/config"
	"geethika.lk/app/internal/database/dbtest"
	"geethika.lk/app/internal/database/seeders"
	"geethika.lk/app/internal/modules/categories"
	"geethika.lk/app/internal/modules/studio"
	"geethika.lk/app/internal/modules/users"
)

// createdCount reads the "created" field of the latest msg entry.
func createdCount(t *testing.T, logs *observer.ObservedLogs, msg string) int64 {
	t.Helper()
	entries := logs.FilterMessage(msg).All()
	if len(entries) == 0 {
		t.Fatalf("Expected a %q entry", msg)
	}
	return entries[len(entries)-1].ContextMap()["created"].(int64)
}

func TestRunIsIdempotent(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)
	boot := config.BootstrapConfig{SuperAdminEmail: "owner@geethika.lk", SuperAdminPassword: "change-me-now", SuperAdminName: "Owner"}

	if err := seeders.Run(ctx, db, boot, log); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := createdCount(t, logs, "categories seeded"); n != 5 {
		t.Errorf("Expected 5 categories created, got %d", n)
	}
	if n := createdCount(t, logs, "studio services seeded"); n != 5 {
		t.Errorf("Expected 5 services created, got %d", n)
	}
	if logs.FilterMessage("super admin created").Len() != 1 {
		t.Errorf("Expected the super admin to be created")
	}

	if err := seeders.Run(ctx, db, boot, log); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if n := createdCount(t, logs, "categories seeded"); n != 0 {
		t.Errorf("Expected nothing new on rerun, got %d", n)
	}
	if n := createdCount(t, logs, "studio services seeded"); n != 0 {
		t.Errorf("Expected nothing new on rerun, got %d", n)
	}

	var cats, svcs int64
	db.Model(&categories.Category{}).Count(&cats)
	db.Model(&studio.StudioService{}).Count(&svcs)
	if cats != 5 || svcs != 5 {
		t.Errorf("Expected 5 of each, got %d categories and %d services", cats, svcs)
	}

	u, err := users.NewRepo(db).FindByEmail(ctx, "owner@geethika.lk")
	if err != nil || u.Role != users.RoleSuperAdmin {
		t.Errorf("Expected a super admin, got %+v, %v", u, err)
	}
}

func TestSeedSuperAdminPromotesExisting(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	if _, err := users.NewService(db).Register(ctx, users.RegisterInput{Email: "owner@geethika.lk", Password: "customer-pass", FullName: "Owner"}); err != nil {
		t.Fatal(err)
	}

	if err := seeders.SeedSuperAdmin(ctx, db, config.BootstrapConfig{SuperAdminEmail: "owner@geethika.lk"}, zap.NewNop()); err != nil {
		t.Fatalf("SeedSuperAdmin: %v", err)
	}
	u, _ := users.NewRepo(db).FindByEmail(ctx, "owner@geethika.lk")
	if u.Role != users.RoleSuperAdmin {
		t.Errorf("Expected promotion, got role %q", u.Role)
	}

	// no password means a missing account is only reported
	if err := seeders.SeedSuperAdmin(ctx, db, config.BootstrapConfig{SuperAdminEmail: "ghost@geethika.lk"}, zap.NewNop()); err != nil {
		t.Errorf("Expected no error without a password, got %v", err)
	}
	if _, err := users.NewRepo(db).FindByEmail(ctx, "ghost@geethika.lk"); err == nil {
		t.Errorf("Expected no account to be created")
	}
}
