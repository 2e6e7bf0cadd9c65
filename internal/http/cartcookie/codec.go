// Package cartcookie keeps a guest's cart id in an HMAC-signed cookie. SPA
// clients that cannot use cookies send the same signed value in X-Cart-Token.
package cartcookie

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const HeaderToken = "X-Cart-Token"

var ErrInvalid = errors.New("invalid cart cookie")

type Codec struct {
	Secret     []byte
	CookieName string
	Secure     bool
	MaxAge     time.Duration
}

func New(secret []byte, name string, secure bool) *Codec {
	return &Codec{Secret: secret, CookieName: name, Secure: secure, MaxAge: 30 * 24 * time.Hour}
}

// Encode returns "cartID.base64url(hmac(cartID))".
func (c *Codec) Encode(cartID string) string {
	return cartID + "." + sign(c.Secret, cartID)
}

func (c *Codec) Decode(v string) (string, error) {
	id, sig, ok := strings.Cut(v, ".")
	if !ok || id == "" || strings.Contains(sig, ".") {
		return "", ErrInvalid
	}
	if !hmac.Equal([]byte(sign(c.Secret, id)), []byte(sig)) {
		return "", ErrInvalid
	}
	return id, nil
}

// GetCartID reads the cookie first, then the header. A tampered cookie is
// cleared.
func (c *Codec) GetCartID(ctx *gin.Context) (string, bool) {
	if v, err := ctx.Cookie(c.CookieName); err == nil && v != "" {
		if id, err := c.Decode(v); err == nil {
			return id, true
		}
		c.Clear(ctx)
	}
	if v := strings.TrimSpace(ctx.GetHeader(HeaderToken)); v != "" {
		if id, err := c.Decode(v); err == nil {
			return id, true
		}
	}
	return "", false
}

// Set writes the cookie and echoes the signed token for header-based clients.
func (c *Codec) Set(ctx *gin.Context, cartID string) string {
	val := c.Encode(cartID)
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(c.CookieName, val, int(c.MaxAge.Seconds()), "/", "", c.Secure, true)
	ctx.Header(HeaderToken, val)
	return val
}

func (c *Codec) Clear(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(c.CookieName, "", -1, "/", "", c.Secure, true)
}

func sign(secret []byte, payload string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
