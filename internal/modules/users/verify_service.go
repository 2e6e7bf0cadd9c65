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

const emailVerificationTTL = 24 * time.Hour

var ErrAlreadyVerified = errors.New("email already verified")

type VerifyService struct {
	db         *gorm.DB
	outbox     *email.Outbox
	appBaseURL string
}

func NewVerifyService(db *gorm.DB, outbox *email.Outbox, appBaseURL string) *VerifyService {
	return &VerifyService{db: db, outbox: outbox, appBaseURL: strings.TrimRight(appBaseURL, "/")}
}

// Start replaces any open verification for the user and queues the link.
func (s *VerifyService) Start(ctx context.Context, userID string) error {
	var u User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if u.EmailVerifiedAt != nil {
		return ErrAlreadyVerified
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		raw, err := randomToken(32)
		if err != nil {
			return err
		}
		if err := tx.Where("user_id = ? AND used_at IS NULL", u.ID).Delete(&EmailVerification{}).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := tx.Create(&EmailVerification{
			ID:        uuid.NewString(),
			UserID:    u.ID,
			TokenHash: hashToken(raw),
			ExpiresAt: now.Add(emailVerificationTTL),
			CreatedAt: now,
		}).Error; err != nil {
			return err
		}

		return s.outbox.EnqueueTx(ctx, tx, email.Job{
			To:       u.Email,
			Template: email.TplVerifyEmail,
			Payload: map[string]any{
				"Name":      u.FullName,
				"VerifyURL": s.appBaseURL + "/verify-email?token=" + raw,
				"ExpiresIn": "24 hours",
			},
		})
	})
}

// Confirm marks the address verified. From then on guest orders placed with
// it are listed under the account.
func (s *VerifyService) Confirm(ctx context.Context, rawToken string) (User, error) {
	var out User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		var ev EmailVerification
		err := tx.Where("token_hash = ? AND used_at IS NULL AND expires_at > ?", hashToken(rawToken), now).
			First(&ev).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidToken
		}
		if err != nil {
			return err
		}

		res := tx.Model(&EmailVerification{}).Where("id = ? AND used_at IS NULL", ev.ID).Update("used_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrInvalidToken
		}

		if err := tx.Model(&User{}).Where("id = ? AND email_verified_at IS NULL", ev.UserID).
			Updates(map[string]any{"email_verified_at": now, "updated_at": now}).Error; err != nil {
			return err
		}
		return tx.First(&out, "id = ?", ev.UserID).Error
	})
	return out, err
}
