package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"equipment-tracker-backend/config"
	"equipment-tracker-backend/internal/auth"
	"equipment-tracker-backend/internal/logging"
	"equipment-tracker-backend/internal/metrics"
	"equipment-tracker-backend/internal/model"
	"equipment-tracker-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, responseCache *mw.ResponseCache, cfg config.ServerConfig, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.GinMiddleware(log), metrics.GinMiddleware())

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", metrics.Handler())

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)
	caching := responseCache.Middleware()
	requireLogin := auth.RequireLogin(h.tokens)
	maxBody := mw.MaxBodySize(cfg.MaxUploadMB << 20)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/", h.Index)
		api.POST("/login", h.Login)
		api.POST("/logout", h.Logout)

		session := api.Group("")
		session.Use(requireLogin)
		{
			session.GET("/me", h.Me)

			session.POST("/locations", h.CreateLocation)
			session.POST("/location", h.CreateLocation)

			canUpload := auth.RequireRole(model.PermUploadFiles)
			session.POST("/uploads", canUpload, maxBody, h.CreateUpload)
			session.POST("/equipment/upload", canUpload, maxBody, h.CreateUpload)
			session.POST("/equipment/:id/feedback", auth.RequireRole(model.PermSubmitFeedback), maxBody, h.SubmitEquipmentFeedback)

			session.GET("/tree", caching, h.GetTree)
			session.GET("/equipment-types", caching, h.GetEquipmentTypes)
			session.GET("/case-scenes/:id", caching, h.GetCaseScene)
			session.GET("/case-scenes/:id/rooms/:room_id/equipment", caching, h.GetRoomEquipment)
			session.GET("/case-scenes/:id/rooms/:room_id/report", caching, h.GetRoomReport)
			session.GET("/equipment/:id/records", caching, h.GetEquipmentRecords)
			session.GET("/reports/:filename", caching, h.GetReport)
			session.GET("/files/:category/:filename", h.DownloadFile)

			session.GET("/subscriptions", h.GetSubscription)
			session.PUT("/subscriptions", h.PutSubscription)
			session.DELETE("/subscriptions", h.DeleteSubscription)
			session.GET("/vapid_public_key", h.GetVAPIDPublicKey)
		}

		admin := api.Group("/admin")
		admin.Use(requireLogin)
		{
			admin.GET("/users", auth.RequireRole(model.PermManageUsers), h.ListUsers)
			admin.POST("/users", auth.RequireRole(model.PermManageUsers), h.CreateUser)
			admin.DELETE("/users/:id", auth.RequireRole(model.PermDeleteUsers), h.DeleteUser)
			admin.POST("/reset", auth.RequireRole(model.PermResetSystem), h.ResetSystem)
		}
	}

	return r
}
