package api

import (
	"net/http"
	"strconv"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"equipment-tracker-backend/internal/apperr"
	"equipment-tracker-backend/internal/auth"
	"equipment-tracker-backend/internal/logging"
	"equipment-tracker-backend/internal/registry"
	"equipment-tracker-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store        store.Store
	registry     *registry.Service
	tokens       *auth.TokenManager
	webpush      *webpush.Options
	cookieSecure bool
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, reg *registry.Service, tokens *auth.TokenManager, webpushOptions *webpush.Options, cookieSecure bool) *Handler {
	return &Handler{
		store:        s,
		registry:     reg,
		tokens:       tokens,
		webpush:      webpushOptions,
		cookieSecure: cookieSecure,
	}
}

// Index answers the API root.
func (h *Handler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Equipment Tracker API"})
}

// Healthz reports whether the database answers.
func (h *Handler) Healthz(c *gin.Context) {
	sqlDB, err := h.store.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// fail writes err as a JSON error body. Internal errors are logged and masked.
func fail(c *gin.Context, err error, fallback string) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).Error(fallback, zap.Error(err))
		_ = c.Error(err)
	}
	code, message := apperr.Public(err, fallback)
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}

func badRequest(c *gin.Context, message string) {
	fail(c, apperr.Validation("%s", message), message)
}

func int64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// optionalInt64 parses a form or query value that may be empty.
func optionalInt64(raw, name string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperr.Validation("%s must be an integer", name)
	}
	return &v, nil
}
