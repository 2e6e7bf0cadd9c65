package email

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	JobPending = "pending"
	JobSent    = "sent"
	JobFailed  = "failed"
)

type EmailJob struct {
	ID            string         `gorm:"type:uuid;primaryKey"`
	To            string         `gorm:"column:to_addr;type:varchar(255);not null"`
	Template      string         `gorm:"type:varchar(64);not null"`
	Payload       datatypes.JSON `gorm:"type:jsonb;not null"`
	Status        string         `gorm:"type:varchar(16);not null;index:ix_email_jobs_due,priority:1"`
	Attempts      int            `gorm:"not null;default:0"`
	NextAttemptAt time.Time      `gorm:"not null;index:ix_email_jobs_due,priority:2"`
	LastError     *string        `gorm:"type:varchar(500)"`
	SentAt        *time.Time
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (EmailJob) TableName() string { return "email_jobs" }

type Job struct {
	To       string
	Template string
	Payload  map[string]any
}

var ErrInvalidJob = errors.New("invalid email job")

// Outbox persists email jobs; the Dispatcher delivers them.
type Outbox struct {
	db *gorm.DB
}

func NewOutbox(db *gorm.DB) *Outbox { return &Outbox{db: db} }

func (o *Outbox) Enqueue(ctx context.Context, j Job) error {
	return o.EnqueueTx(ctx, o.db, j)
}

// EnqueueTx inserts the job inside the caller's transaction so the email is
// only sent when the business change commits.
func (o *Outbox) EnqueueTx(ctx context.Context, tx *gorm.DB, j Job) error {
	to := strings.TrimSpace(j.To)
	if to == "" || j.Template == "" {
		return ErrInvalidJob
	}
	payload, err := json.Marshal(j.Payload)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return tx.WithContext(ctx).Create(&EmailJob{
		ID:            uuid.NewString(),
		To:            to,
		Template:      j.Template,
		Payload:       datatypes.JSON(payload),
		Status:        JobPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}).Error
}
