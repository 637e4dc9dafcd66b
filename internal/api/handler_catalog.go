package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"equipment-tracker-backend/internal/store"
	"equipment-tracker-backend/internal/upload"
)

// GetTree handles GET /api/tree.
func (h *Handler) GetTree(c *gin.Context) {
	tree, err := h.registry.Tree(c.Request.Context())
	if err != nil {
		fail(c, err, "failed to load locations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"countries": tree})
}

// GetEquipmentTypes handles GET /api/equipment-types.
func (h *Handler) GetEquipmentTypes(c *gin.Context) {
	types, err := h.store.ListEquipmentTypes(c.Request.Context())
	if err != nil {
		fail(c, err, "failed to load equipment types")
		return
	}
	c.JSON(http.StatusOK, types)
}

// GetCaseScene handles GET /api/case-scenes/:id.
func (h *Handler) GetCaseScene(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	cs, err := h.store.GetCaseScene(c.Request.Context(), id)
	if err != nil {
		fail(c, err, "failed to load case scene")
		return
	}
	c.JSON(http.StatusOK, gin.H{"case_scene": cs, "key": cs.Key(), "rooms": cs.Rooms})
}

// GetRoomEquipment handles GET /api/case-scenes/:id/rooms/:room_id/equipment.
func (h *Handler) GetRoomEquipment(c *gin.Context) {
	caseID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	roomID, ok := int64Param(c, "room_id")
	if !ok {
		return
	}
	typeID, err := optionalInt64(c.Query("type_id"), "type_id")
	if err != nil {
		fail(c, err, "invalid type_id")
		return
	}

	view, err := h.registry.RoomEquipment(c.Request.Context(), caseID, roomID, store.EquipmentFilter{
		Query:  strings.TrimSpace(c.Query("q")),
		TypeID: typeID,
	})
	if err != nil {
		fail(c, err, "failed to load equipment")
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetRoomReport handles GET /api/case-scenes/:id/rooms/:room_id/report.
func (h *Handler) GetRoomReport(c *gin.Context) {
	caseID, ok := int64Param(c, "id")
	if !ok {
		return
	}
	roomID, ok := int64Param(c, "room_id")
	if !ok {
		return
	}

	report, err := h.registry.LatestRoomReport(c.Request.Context(), caseID, roomID)
	if err != nil {
		fail(c, err, "failed to load room report")
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetEquipmentRecords handles GET /api/equipment/:id/records.
func (h *Handler) GetEquipmentRecords(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	eq, err := h.store.GetEquipment(ctx, id)
	if err != nil {
		fail(c, err, "failed to load equipment")
		return
	}
	records, err := h.store.ListManagementRecords(ctx, id)
	if err != nil {
		fail(c, err, "failed to load management records")
		return
	}
	c.JSON(http.StatusOK, gin.H{"equipment": eq, "records": records})
}

// GetReport handles GET /api/reports/:filename.
func (h *Handler) GetReport(c *gin.Context) {
	view, err := h.registry.Report(c.Request.Context(), c.Param("filename"))
	if err != nil {
		fail(c, err, "failed to read report")
		return
	}
	c.JSON(http.StatusOK, view)
}

// DownloadFile handles GET /api/files/:category/:filename for inspection and log files.
func (h *Handler) DownloadFile(c *gin.Context) {
	category, ok := upload.ParseCategory(c.Param("category"))
	if !ok || (category != upload.CategoryInspection && category != upload.CategoryLogs) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error": gin.H{"code": "NOT_FOUND", "message": "unknown file category"},
		})
		return
	}

	path, _, found := h.registry.Locate(c.Param("filename"), category)
	if !found {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error": gin.H{"code": "NOT_FOUND", "message": "file not found"},
		})
		return
	}
	c.FileAttachment(path, upload.SanitizeFilename(c.Param("filename")))
}
