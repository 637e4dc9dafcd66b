package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"equipment-tracker-backend/internal/apperr"
	"equipment-tracker-backend/internal/auth"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks credentials and sets the session cookie. The token is also
// returned for clients that send it as a bearer header.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username and password are required")
		return
	}

	user, err := h.store.FindUserByUsername(c.Request.Context(), strings.TrimSpace(req.Username))
	if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
		fail(c, err, "failed to log in")
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"code": "UNAUTHORIZED", "message": "invalid username or password"},
		})
		return
	}

	token, expires, err := h.tokens.Issue(user)
	if err != nil {
		fail(c, err, "failed to log in")
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, token, int(h.tokens.TTL().Seconds()), "/", "", h.cookieSecure, true)
	c.Set("username", user.Username)

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"token":      token,
		"expires_at": expires,
		"user":       user,
	})
}

// Logout clears the session cookie.
func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, "", -1, "/", "", h.cookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Me returns the logged in user.
func (h *Handler) Me(c *gin.Context) {
	p, _ := auth.CurrentPrincipal(c)
	user, err := h.store.GetUser(c.Request.Context(), p.UserID)
	if err != nil {
		fail(c, err, "failed to load user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
