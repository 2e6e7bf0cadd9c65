package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"geethika.lk/app/internal/modules/email"
)

const passwordResetTTL = time.Hour

type PasswordResetService struct {
	db         *gorm.DB
	outbox     *email.Outbox
	sessions   *SessionStore
	appBaseURL string
}

func NewPasswordResetService(db *gorm.DB, outbox *email.Outbox, sessions *SessionStore, appBaseURL string) *PasswordResetService {
	return &PasswordResetService{
		db:         db,
		outbox:     outbox,
		sessions:   sessions,
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
	}
}

// Start issues a reset token and queues the email. Unknown addresses are a
// silent no-op; the response never reveals whether an account exists.
func (s *PasswordResetService) Start(ctx context.Context, addr string) error {
	var u User
	err := s.db.WithContext(ctx).First(&u, "email = ?", NormalizeEmail(addr)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		raw, err := randomToken(32)
		if err != nil {
			return err
		}

		if err := tx.Where("user_id = ? AND used_at IS NULL", u.ID).Delete(&PasswordReset{}).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := tx.Create(&PasswordReset{
			ID:        uuid.NewString(),
			UserID:    u.ID,
			TokenHash: hashToken(raw),
			ExpiresAt: now.Add(passwordResetTTL),
			CreatedAt: now,
		}).Error; err != nil {
			return err
		}

		return s.outbox.EnqueueTx(ctx, tx, email.Job{
			To:       u.Email,
			Template: email.TplPasswordReset,
			Payload: map[string]any{
				"Name":      u.FullName,
				"ResetURL":  s.appBaseURL + "/reset-password?token=" + raw,
				"ExpiresIn": "1 hour",
			},
		})
	})
}

// Confirm sets the new password and signs the user out everywhere. The token
// arrived by email, so the address counts as verified too.
func (s *PasswordResetService) Confirm(ctx context.Context, rawToken, newPassword string) error {
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		var pr PasswordReset
		err := tx.Where("token_hash = ? AND used_at IS NULL AND expires_at > ?", hashToken(rawToken), now).
			First(&pr).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidToken
		}
		if err != nil {
			return err
		}

		// guard against a concurrent confirm of the same token
		res := tx.Model(&PasswordReset{}).Where("id = ? AND used_at IS NULL", pr.ID).Update("used_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrInvalidToken
		}

		if err := tx.Model(&User{}).Where("id = ?", pr.UserID).
			Updates(map[string]any{
				"password_hash":     hash,
				"updated_at":        now,
				"email_verified_at": gorm.Expr("COALESCE(email_verified_at, ?)", now),
			}).Error; err != nil {
			return err
		}
		return s.sessions.DeleteAllForUser(ctx, tx, pr.UserID)
	})
}
