package users

import "time"

const (
	RoleCustomer   = "customer"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

type User struct {
	ID              string     `gorm:"type:uuid;primaryKey" json:"id"`
	Email           string     `gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email" json:"email"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	PasswordHash    string     `gorm:"type:varchar(100);not null" json:"-"`
	FullName        string     `gorm:"type:varchar(120);not null" json:"full_name"`
	Phone           *string    `gorm:"type:varchar(20)" json:"phone,omitempty"`
	Address         *string    `gorm:"type:text" json:"address,omitempty"`
	Role            string     `gorm:"type:varchar(20);not null;default:customer;index:ix_users_role" json:"role"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	CreatedAt       time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u User) IsAdmin() bool { return IsAdminRole(u.Role) }

func IsAdminRole(role string) bool { return role == RoleAdmin || role == RoleSuperAdmin }

func ValidRole(role string) bool {
	switch role {
	case RoleCustomer, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Session is a database-backed login session. Only the sha256 of the
// token is stored.
type Session struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	UserID     string    `gorm:"type:uuid;not null;index:ix_sessions_user_id"`
	TokenHash  string    `gorm:"type:char(64);not null;uniqueIndex:ux_sessions_token_hash"`
	ExpiresAt  time.Time `gorm:"not null;index:ix_sessions_expires_at"`
	LastSeenAt time.Time `gorm:"not null"`
	UserAgent  string    `gorm:"type:varchar(255)"`
	IP         string    `gorm:"type:varchar(64)"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (Session) TableName() string { return "sessions" }

type PasswordReset struct {
	ID        string     `gorm:"type:uuid;primaryKey"`
	UserID    string     `gorm:"type:uuid;not null;index:ix_password_resets_user_id"`
	TokenHash string     `gorm:"type:char(64);not null;uniqueIndex:ux_password_resets_token_hash"`
	ExpiresAt time.Time  `gorm:"not null"`
	UsedAt    *time.Time
	CreatedAt time.Time `gorm:"not null"`
}

func (PasswordReset) TableName() string { return "password_resets" }

// EmailVerification proves the account holder controls the address. Only
// the sha256 of the emailed token is stored.
type EmailVerification struct {
	ID        string     `gorm:"type:uuid;primaryKey"`
	UserID    string     `gorm:"type:uuid;not null;index:ix_email_verifications_user_id"`
	TokenHash string     `gorm:"type:char(64);not null;uniqueIndex:ux_email_verifications_token_hash"`
	ExpiresAt time.Time  `gorm:"not null"`
	UsedAt    *time.Time
	CreatedAt time.Time `gorm:"not null"`
}

func (EmailVerification) TableName() string { return "email_verifications" }
