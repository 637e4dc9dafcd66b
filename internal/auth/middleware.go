package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"equipment-tracker-backend/internal/model"
)

// CookieName is the session cookie set at login.
const CookieName = "eqtrack_session"

const principalKey = "auth.principal"

// RequireLogin rejects requests without a valid session cookie or bearer token.
func RequireLogin(tm *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "login required")
			return
		}

		p, err := tm.Verify(token)
		if err != nil {
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired session")
			return
		}

		c.Set(principalKey, p)
		c.Set("username", p.Username)
		c.Next()
	}
}

// RequireRole allows the request only when the caller's role grants every perm.
// It must run after RequireLogin.
func RequireRole(perms ...model.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "login required")
			return
		}
		for _, perm := range perms {
			if !p.Role.Can(perm) {
				abort(c, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}
		}
		c.Next()
	}
}

// CurrentPrincipal returns the caller authenticated by RequireLogin.
func CurrentPrincipal(c *gin.Context) (*Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*Principal)
	return p, ok
}

func tokenFromRequest(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := c.Cookie(CookieName); err == nil {
		return cookie
	}
	return ""
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}
