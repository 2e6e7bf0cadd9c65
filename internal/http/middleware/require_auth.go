package middleware

import (
	"github.com/gin-gonic/gin"

	"geethika.lk/app/internal/shared/apperr"
)

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			Fail(c, apperr.UnauthorizedErr("Please sign in to continue."))
			return
		}
		c.Next()
	}
}

// RequireAdmin admits admins and super admins.
func RequireAdmin() gin.HandlerFunc {
	return requireRole(func(u ContextUser) bool { return u.IsAdmin() })
}

func RequireSuperAdmin() gin.HandlerFunc {
	return requireRole(func(u ContextUser) bool { return u.IsSuperAdmin() })
}

func requireRole(allowed func(ContextUser) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			Fail(c, apperr.UnauthorizedErr("Please sign in to continue."))
			return
		}
		if !allowed(u) {
			Fail(c, apperr.ForbiddenErr("You do not have access to this resource."))
			return
		}
		c.Next()
	}
}
