package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"geethika.lk/app/internal/http/cartcookie"
	"geethika.lk/app/internal/http/middleware"
	"geethika.lk/app/internal/modules/cart"
	"geethika.lk/app/internal/modules/users"
	"geethika.lk/app/internal/shared/apperr"
)

type AuthHandler struct {
	Users    *users.Service
	Sessions *users.SessionStore
	Resets   *users.PasswordResetService
	Verify   *users.VerifyService
	Carts    *cart.Service
	CK       *cartcookie.Codec
	SessCfg  middleware.SessionCfg
	Logger   *slog.Logger
}

type registerReq struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	FullName string `json:"full_name" binding:"required,max=120"`
	Phone    string `json:"phone" binding:"omitempty,lkphone"`
}

type loginReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type sessionResp struct {
	Token     string            `json:"token"`
	ExpiresAt string            `json:"expires_at"`
	User      users.User        `json:"user"`
	CartMerge *cart.MergeResult `json:"cart_merge,omitempty"`
}

// POST /api/auth/register signs the new customer in straight away and mails a
// verification link.
func (h *AuthHandler) Register(c *gin.Context) {
	var in registerReq
	if !BindJSON(c, &in) {
		return
	}
	u, err := h.Users.Register(c.Request.Context(), users.RegisterInput{
		Email:    in.Email,
		Password: in.Password,
		FullName: in.FullName,
		Phone:    in.Phone,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	if err := h.Verify.Start(c.Request.Context(), u.ID); err != nil {
		h.Logger.WarnContext(c.Request.Context(), "email_verification_start_failed",
			slog.String("user_id", u.ID), slog.Any("err", err))
	}
	h.startSession(c, http.StatusCreated, u)
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var in loginReq
	if !BindJSON(c, &in) {
		return
	}
	u, err := h.Users.Authenticate(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		Fail(c, err)
		return
	}
	h.startSession(c, http.StatusOK, u)
}

func (h *AuthHandler) startSession(c *gin.Context, status int, u users.User) {
	ctx := c.Request.Context()
	raw, sess, err := h.Sessions.Create(ctx, u.ID, users.SessionMeta{
		UserAgent: c.Request.UserAgent(),
		IP:        c.ClientIP(),
	})
	if err != nil {
		Fail(c, err)
		return
	}
	middleware.SetSessionCookie(c, h.SessCfg, raw)

	resp := sessionResp{Token: raw, ExpiresAt: sess.ExpiresAt.UTC().Format(time.RFC3339), User: u}

	// A guest cart follows the shopper into their account.
	if guestID, ok := h.CK.GetCartID(c); ok {
		res, err := h.Carts.MergeGuestCart(ctx, guestID, u.ID)
		switch {
		case err == nil:
			resp.CartMerge = &res
		case errors.Is(err, cart.ErrCartNotFound):
		default:
			h.Logger.WarnContext(ctx, "guest_cart_merge_failed",
				slog.String("user_id", u.ID), slog.String("cart_id", guestID), slog.Any("err", err))
		}
		h.CK.Clear(c)
	}
	c.JSON(status, resp)
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if raw, _ := middleware.SessionToken(c, h.SessCfg.CookieName); raw != "" {
		if err := h.Sessions.Delete(c.Request.Context(), raw); err != nil {
			Fail(c, err)
			return
		}
	}
	middleware.ClearSessionCookie(c, h.SessCfg)
	c.Status(http.StatusNoContent)
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	u, err := h.Users.Repo().FindByID(c.Request.Context(), MustUser(c).ID)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

type profileReq struct {
	FullName string `json:"full_name" binding:"required,max=120"`
	Phone    string `json:"phone" binding:"omitempty,lkphone"`
	Address  string `json:"address" binding:"max=1000"`
}

// PUT /api/account/profile
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var in profileReq
	if !BindJSON(c, &in) {
		return
	}
	u, err := h.Users.UpdateProfile(c.Request.Context(), MustUser(c).ID, users.ProfileInput{
		FullName: in.FullName,
		Phone:    in.Phone,
		Address:  in.Address,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

type changePasswordReq struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
}

// POST /api/account/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var in changePasswordReq
	if !BindJSON(c, &in) {
		return
	}
	err := h.Users.ChangePassword(c.Request.Context(), MustUser(c).ID, in.CurrentPassword, in.NewPassword)
	if errors.Is(err, users.ErrInvalidCredentials) {
		Fail(c, apperr.InvalidErr("Current password is incorrect.", map[string]string{"current_password": "Current password is incorrect."}))
		return
	}
	if err != nil {
		Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type resetStartReq struct {
	Email string `json:"email" binding:"required,email"`
}

// POST /api/auth/password-reset answers 202 whether or not the account exists.
func (h *AuthHandler) ResetStart(c *gin.Context) {
	var in resetStartReq
	if !BindJSON(c, &in) {
		return
	}
	if err := h.Resets.Start(c.Request.Context(), in.Email); err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "If that email has an account, a reset link is on its way."})
}

type resetConfirmReq struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// POST /api/auth/password-reset/confirm
func (h *AuthHandler) ResetConfirm(c *gin.Context) {
	var in resetConfirmReq
	if !BindJSON(c, &in) {
		return
	}
	if err := h.Resets.Confirm(c.Request.Context(), in.Token, in.Password); err != nil {
		Fail(c, err)
		return
	}
	middleware.ClearSessionCookie(c, h.SessCfg)
	c.Status(http.StatusNoContent)
}

// POST /api/auth/verify-email resends the verification link.
func (h *AuthHandler) VerifyResend(c *gin.Context) {
	u, _ := middleware.CurrentUser(c)
	if err := h.Verify.Start(c.Request.Context(), u.ID); err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "A verification link is on its way."})
}

type verifyConfirmReq struct {
	Token string `json:"token" binding:"required,max=128"`
}

// POST /api/auth/verify-email/confirm
func (h *AuthHandler) VerifyConfirm(c *gin.Context) {
	var in verifyConfirmReq
	if !BindJSON(c, &in) {
		return
	}
	u, err := h.Verify.Confirm(c.Request.Context(), in.Token)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}
