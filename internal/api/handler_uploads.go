package api

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"equipment-tracker-backend/internal/registry"
	"equipment-tracker-backend/internal/upload"
)

type locationRequest struct {
	Country string `json:"country" form:"country"`
	Room    string `json:"room" form:"room"`
}

// CreateLocation handles POST /api/locations.
func (h *Handler) CreateLocation(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	loc, err := h.registry.CreateLocation(c.Request.Context(), req.Country, req.Room)
	if err != nil {
		fail(c, err, "failed to create location")
		return
	}

	resp := gin.H{
		"success":    true,
		"country":    loc.CaseScene.Key(),
		"country_id": loc.CaseScene.ID,
		"room":       "",
		"room_id":    nil,
	}
	if loc.Room != nil {
		resp["room"] = loc.Room.RoomName
		resp["room_id"] = loc.Room.ID
	}
	c.JSON(http.StatusCreated, resp)
}

// CreateUpload handles POST /api/uploads (multipart).
func (h *Handler) CreateUpload(c *gin.Context) {
	fh, ok := formFile(c, "file")
	if !ok {
		return
	}
	typeID, err := optionalInt64(c.PostForm("equipment_type_id"), "equipment_type_id")
	if err != nil {
		fail(c, err, "invalid equipment_type_id")
		return
	}
	equipmentID, err := optionalInt64(c.PostForm("equipment_id"), "equipment_id")
	if err != nil {
		fail(c, err, "invalid equipment_id")
		return
	}

	res, err := h.registry.CreateUpload(c.Request.Context(), registry.UploadRequest{
		Category:        c.PostForm("file_category"),
		File:            upload.FromMultipart(fh),
		FeedbackText:    c.PostForm("feedback_text"),
		Country:         c.PostForm("country"),
		Room:            c.PostForm("room"),
		EquipmentTypeID: typeID,
		EquipmentID:     equipmentID,
	})
	if err != nil {
		fail(c, err, "upload failed")
		return
	}

	resp := gin.H{
		"success":  true,
		"filename": res.Filename,
		"category": res.Category,
		"country":  res.CaseKey,
		"room":     res.Room,
	}
	if reg := res.Registration; reg != nil {
		if reg.Equipment != nil {
			resp["equipment_id"] = reg.Equipment.ID
		}
		if reg.Record != nil {
			resp["record_id"] = reg.Record.ID
		}
	}
	c.JSON(http.StatusCreated, resp)
}

// SubmitEquipmentFeedback handles POST /api/equipment/:id/feedback (multipart).
func (h *Handler) SubmitEquipmentFeedback(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	before, ok := formFile(c, "before_photo")
	if !ok {
		return
	}
	after, ok := formFile(c, "after_photo")
	if !ok {
		return
	}

	rec, err := h.registry.SubmitEquipmentFeedback(c.Request.Context(), registry.EquipmentFeedback{
		EquipmentID: id,
		Text:        c.PostForm("feedback"),
		BeforePhoto: upload.FromMultipart(before),
		AfterPhoto:  upload.FromMultipart(after),
	})
	if err != nil {
		fail(c, err, "failed to save feedback")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "record": rec})
}

// formFile returns the named multipart file, or nil when the field is absent.
// It answers the request itself and returns false when the body is unreadable.
func formFile(c *gin.Context, field string) (*multipart.FileHeader, bool) {
	fh, err := c.FormFile(field)
	if err == nil {
		return fh, true
	}
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": gin.H{"code": "PAYLOAD_TOO_LARGE", "message": "upload exceeds the size limit"},
		})
		return nil, false
	}
	badRequest(c, "invalid multipart form")
	return nil, false
}
