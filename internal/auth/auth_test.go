package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equipment-tracker-backend/internal/model"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))

	_, err = HashPassword("short")
	assert.Error(t, err)
}

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	token, expires, err := tm.Issue(&model.User{ID: 7, Username: "alice", Role: model.RoleOperator})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	p, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, &Principal{UserID: 7, Username: "alice", Role: model.RoleOperator}, p)
}

func TestTokenManager_Rejects(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	token, _, err := tm.Issue(&model.User{ID: 1, Username: "bob", Role: model.RoleUser})
	require.NoError(t, err)

	_, err = NewTokenManager("other-secret", time.Hour).Verify(token)
	assert.Error(t, err, "wrong secret")

	expired := NewTokenManager("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.Verify(token)
	assert.Error(t, err, "expired")

	_, err = tm.Verify("not-a-token")
	assert.Error(t, err)
}

func setupAuthRouter(tm *TokenManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	ok := func(c *gin.Context) {
		p, _ := CurrentPrincipal(c)
		c.JSON(http.StatusOK, gin.H{"username": p.Username})
	}
	r.GET("/me", RequireLogin(tm), ok)
	r.POST("/reset", RequireLogin(tm), RequireRole(model.PermResetSystem), ok)
	return r
}

func TestMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	router := setupAuthRouter(tm)

	operator, _, err := tm.Issue(&model.User{ID: 2, Username: "op", Role: model.RoleOperator})
	require.NoError(t, err)
	super, _, err := tm.Issue(&model.User{ID: 1, Username: "root", Role: model.RoleSuperuser})
	require.NoError(t, err)

	testCases := []struct {
		name     string
		method   string
		path     string
		cookie   string
		bearer   string
		expected int
	}{
		{"no session", http.MethodGet, "/me", "", "", http.StatusUnauthorized},
		{"cookie session", http.MethodGet, "/me", operator, "", http.StatusOK},
		{"bearer session", http.MethodGet, "/me", "", operator, http.StatusOK},
		{"garbage cookie", http.MethodGet, "/me", "garbage", "", http.StatusUnauthorized},
		{"operator cannot reset", http.MethodPost, "/reset", operator, "", http.StatusForbidden},
		{"superuser can reset", http.MethodPost, "/reset", super, "", http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(tc.method, tc.path, nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tc.cookie})
			}
			if tc.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tc.bearer)
			}
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.expected, w.Code)
		})
	}
}
