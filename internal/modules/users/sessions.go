package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"geethika.lk/app/internal/shared/textutil"
)

// SessionUser is the identity resolved from a session token.
type SessionUser struct {
	SessionID string
	ID        string
	Email     string
	FullName  string
	Role      string
}

type SessionStore struct {
	db  *gorm.DB
	ttl time.Duration
}

func NewSessionStore(db *gorm.DB, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &SessionStore{db: db, ttl: ttl}
}

func (s *SessionStore) TTL() time.Duration { return s.ttl }

type SessionMeta struct {
	UserAgent string
	IP        string
}

// Create issues a new session and returns the raw token; only its hash is stored.
func (s *SessionStore) Create(ctx context.Context, userID string, meta SessionMeta) (string, Session, error) {
	raw, err := randomToken(32)
	if err != nil {
		return "", Session{}, err
	}
	now := time.Now().UTC()
	sess := Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		TokenHash:  hashToken(raw),
		ExpiresAt:  now.Add(s.ttl),
		LastSeenAt: now,
		UserAgent:  textutil.Truncate(meta.UserAgent, 255),
		IP:         textutil.Truncate(meta.IP, 64),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.db.WithContext(ctx).Create(&sess).Error; err != nil {
		return "", Session{}, err
	}
	return raw, sess, nil
}

func (s *SessionStore) Resolve(ctx context.Context, rawToken string) (SessionUser, error) {
	if rawToken == "" {
		return SessionUser{}, ErrSessionNotFound
	}
	var sess Session
	err := s.db.WithContext(ctx).
		Where("token_hash = ? AND expires_at > ?", hashToken(rawToken), time.Now().UTC()).
		First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SessionUser{}, ErrSessionNotFound
	}
	if err != nil {
		return SessionUser{}, err
	}

	var u User
	if err := s.db.WithContext(ctx).Select("id", "email", "full_name", "role").First(&u, "id = ?", sess.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SessionUser{}, ErrSessionNotFound
		}
		return SessionUser{}, err
	}

	// Throttle last_seen writes to once a minute.
	if now := time.Now().UTC(); now.Sub(sess.LastSeenAt) > time.Minute {
		_ = s.db.WithContext(ctx).Model(&Session{}).Where("id = ?", sess.ID).
			UpdateColumn("last_seen_at", now).Error
	}

	return SessionUser{SessionID: sess.ID, ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role}, nil
}

func (s *SessionStore) Delete(ctx context.Context, rawToken string) error {
	return s.db.WithContext(ctx).Where("token_hash = ?", hashToken(rawToken)).Delete(&Session{}).Error
}

func (s *SessionStore) DeleteAllForUser(ctx context.Context, tx *gorm.DB, userID string) error {
	return tx.WithContext(ctx).Where("user_id = ?", userID).Delete(&Session{}).Error
}

// PurgeExpired removes expired sessions and returns how many were deleted.
func (s *SessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", time.Now().UTC()).Delete(&Session{})
	return res.RowsAffected, res.Error
}
