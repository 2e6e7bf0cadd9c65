package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"geethika.lk/app/internal/modules/users"
	"geethika.lk/app/internal/shared/apperr"
)

const ctxKeyUser = "current_user"

// SessionResolver maps a raw session token to its user.
type SessionResolver interface {
	Resolve(ctx context.Context, rawToken string) (users.SessionUser, error)
}

type SessionCfg struct {
	Sessions   SessionResolver
	CookieName string
	Secure     bool
	TTL        time.Duration
}

// ContextUser is the authenticated caller.
type ContextUser struct {
	ID        string
	SessionID string
	Email     string
	FullName  string
	Role      string
}

func (u ContextUser) IsAdmin() bool      { return users.IsAdminRole(u.Role) }
func (u ContextUser) IsSuperAdmin() bool { return u.Role == users.RoleSuperAdmin }

// Session resolves the session cookie, or an Authorization bearer token when
// no cookie is present. Unknown or expired cookies are cleared.
func Session(cfg SessionCfg) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, fromCookie := SessionToken(c, cfg.CookieName)
		if raw == "" {
			c.Next()
			return
		}

		su, err := cfg.Sessions.Resolve(c.Request.Context(), raw)
		if errors.Is(err, users.ErrSessionNotFound) {
			if fromCookie {
				ClearSessionCookie(c, cfg)
			}
			c.Next()
			return
		}
		if err != nil {
			Fail(c, apperr.Wrap(err))
			return
		}

		c.Set(ctxKeyUser, ContextUser{
			ID:        su.ID,
			SessionID: su.SessionID,
			Email:     su.Email,
			FullName:  su.FullName,
			Role:      su.Role,
		})
		c.Next()
	}
}

// SessionToken returns the raw token and whether it came from the cookie.
func SessionToken(c *gin.Context, cookieName string) (string, bool) {
	if v, err := c.Cookie(cookieName); err == nil && v != "" {
		return v, true
	}
	h := c.GetHeader("Authorization")
	if scheme, tok, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(tok), false
	}
	return "", false
}

func SetSessionCookie(c *gin.Context, cfg SessionCfg, rawToken string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.CookieName, rawToken, int(cfg.TTL.Seconds()), "/", "", cfg.Secure, true)
}

func ClearSessionCookie(c *gin.Context, cfg SessionCfg) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.CookieName, "", -1, "/", "", cfg.Secure, true)
}

// CurrentUser returns the authenticated caller, if any.
func CurrentUser(c *gin.Context) (ContextUser, bool) {
	v, ok := c.Get(ctxKeyUser)
	if !ok {
		return ContextUser{}, false
	}
	u, ok := v.(ContextUser)
	return u, ok && u.ID != ""
}
