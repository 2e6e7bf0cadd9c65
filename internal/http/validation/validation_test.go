package validation_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"geethika.lk/app/internal/http/validation"
)

type signup struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Phone    string `json:"phone" binding:"omitempty,lkphone"`
	Slug     string `json:"slug" binding:"slug"`
}

func bind(t *testing.T, body string) validation.FieldErrors {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	var in signup
	if err := c.ShouldBindJSON(&in); err != nil {
		return validation.FromBindError(err)
	}
	return nil
}

func TestFromBindError(t *testing.T) {
	if err := validation.Register(); err != nil {
		t.Fatalf("Register: %v", err)
	}

	errs := bind(t, `{"email":"nope","password":"short","phone":"12345","slug":"Bad Slug"}`)
	want := map[string]string{
		"email":    "Enter a valid email address.",
		"password": "Must be at least 8.",
		"phone":    "Enter a Sri Lankan mobile number (07XXXXXXXX).",
		"slug":     "Use lowercase letters, digits and dashes.",
	}
	for k, v := range want {
		if errs[k] != v {
			t.Errorf("Expected %s => %q, got %q", k, v, errs[k])
		}
	}

	if errs := bind(t, `{"email":"ok@example.com","password":"long-enough","phone":"077 123 4567","slug":"photo-mugs"}`); errs != nil {
		t.Errorf("Expected valid input, got %v", errs)
	}
	if errs := bind(t, `{"email":`); errs["_"] == "" {
		t.Errorf("Expected a body error, got %v", errs)
	}
}

func TestValidPhone(t *testing.T) {
	for _, ok := range []string{"0771234567", "+94771234567", "077-123-4567"} {
		if !validation.ValidPhone(ok) {
			t.Errorf("Expected %q to be valid", ok)
		}
	}
	for _, bad := range []string{"", "0112345678", "+9477123456", "771234567"} {
		if validation.ValidPhone(bad) {
			t.Errorf("Expected %q to be rejected", bad)
		}
	}
}
