package registry

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"equipment-tracker-backend/internal/apperr"
	"equipment-tracker-backend/internal/logging"
	"equipment-tracker-backend/internal/metrics"
	"equipment-tracker-backend/internal/model"
	"equipment-tracker-backend/internal/parse"
	"equipment-tracker-backend/internal/store"
	"equipment-tracker-backend/internal/upload"
)

// UploadInput is one file to register against a case scene and room.
type UploadInput struct {
	File            upload.File
	CountryRaw      string
	RoomRaw         string
	ChangesText     string
	EquipmentTypeID *int64
	CategoryHint    string
	EquipmentID     *int64
}

// Registration describes what RegisterUpload stored and wrote.
type Registration struct {
	CaseScene  *model.CaseScene
	Room       *model.Room
	Category   upload.Category
	StoredPath string
	Filename   string
	Equipment  *model.Equipment
	Record     *model.ManagementRecord
}

// RegisterUpload stores an uploaded file and registers it inside tx.
//
// The file is written before any equipment or record rows are staged. Every
// failure after the write removes the file again, so a rolled back transaction
// never leaves an orphan behind. Committing tx and updating the side-index are
// left to the caller.
func (s *Service) RegisterUpload(ctx context.Context, tx store.Store, in UploadInput) (_ *Registration, err error) {
	if in.File == nil || strings.TrimSpace(in.File.Filename()) == "" {
		return nil, apperr.Validation("no file selected")
	}

	cs, room, err := tx.ParseAndEnsure(ctx, in.CountryRaw, in.RoomRaw)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, apperr.Validation("room is required")
	}

	filename := upload.SanitizeFilename(in.File.Filename())
	if _, err := upload.ValidateExt(filename); err != nil {
		return nil, err
	}
	category := upload.Classify(filename, in.CategoryHint)

	src, err := in.File.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %q: %w", filename, err)
	}
	storedPath, storedName, err := s.storage.Save(category, filename, src)
	src.Close()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			s.removeOrphan(storedPath)
		}
	}()
	if info, statErr := os.Stat(storedPath); statErr == nil {
		metrics.UploadBytes.WithLabelValues(string(category)).Add(float64(info.Size()))
	}

	reg := &Registration{
		CaseScene:  cs,
		Room:       room,
		Category:   category,
		StoredPath: storedPath,
		Filename:   storedName,
	}

	switch category {
	case upload.CategoryInspection:
		reg.Equipment, err = s.upsertFromReport(ctx, tx, storedPath, room, in.EquipmentTypeID)
	case upload.CategoryLogs:
		reg.Equipment, err = bindLogs(ctx, tx, in.EquipmentID)
	}
	if err != nil {
		return nil, err
	}

	if reg.Equipment != nil {
		rec := &model.ManagementRecord{
			EquipmentID: reg.Equipment.ID,
			RoomID:      room.ID,
			ChangesText: optionalText(in.ChangesText),
		}
		if err = tx.CreateManagementRecord(ctx, rec); err != nil {
			return nil, err
		}
		reg.Record = rec
		metrics.ManagementRecords.WithLabelValues(string(category)).Inc()
	}

	fields := []zap.Field{
		zap.Int64("case_scene_id", cs.ID),
		zap.Int64("room_id", room.ID),
		zap.String("category", string(category)),
		zap.String("file", storedName),
	}
	if reg.Equipment != nil {
		fields = append(fields, zap.Int64("equipment_id", reg.Equipment.ID))
	}
	logging.FromContext(ctx).Info("upload registered", fields...)
	return reg, nil
}

// upsertFromReport parses a stored inspection report and creates or updates the
// equipment it describes. Equipment is matched by OEM serial, then vendor serial.
func (s *Service) upsertFromReport(ctx context.Context, tx store.Store, path string, room *model.Room, typeID *int64) (*model.Equipment, error) {
	report := parse.ParseReportFile(path, s.reportMaxLines)

	oemSerial := strings.TrimSpace(report.SerialNumber)
	vendorSerial := strings.TrimSpace(report.VendorSN)
	firmware := strings.TrimSpace(report.Firmware)
	switch {
	case oemSerial == "":
		return nil, apperr.Validation("inspection file is missing Serial Number (oem_serial)")
	case vendorSerial == "":
		return nil, apperr.Validation("inspection file is missing Vendor SN (vendor_serial)")
	case firmware == "":
		return nil, apperr.Validation("inspection file is missing firmware (system_software/control_firmware)")
	}

	if typeID != nil {
		if _, err := tx.GetEquipmentType(ctx, *typeID); err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				return nil, apperr.Validation("unknown equipment type %d", *typeID)
			}
			return nil, err
		}
	}

	eq, err := tx.FindEquipmentBySerials(ctx, oemSerial, vendorSerial)
	if err != nil {
		return nil, err
	}

	action := "updated"
	if eq == nil {
		action = "created"
		eq = &model.Equipment{
			OEMSerial:       oemSerial,
			VendorSerial:    vendorSerial,
			EquipmentTypeID: typeID,
		}
	} else if typeID != nil {
		eq.EquipmentTypeID = typeID
	}
	eq.Firmware = firmware
	eq.RoomID = &room.ID

	if err := tx.SaveEquipment(ctx, eq); err != nil {
		return nil, err
	}
	metrics.EquipmentUpserts.WithLabelValues(action).Inc()
	return eq, nil
}

// bindLogs resolves the equipment a log file belongs to. Logs never create equipment.
func bindLogs(ctx context.Context, tx store.Store, equipmentID *int64) (*model.Equipment, error) {
	if equipmentID == nil || *equipmentID <= 0 {
		return nil, apperr.Validation("logs require equipment_id; upload an inspection for the device first")
	}
	eq, err := tx.GetEquipment(ctx, *equipmentID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.Validation("equipment %d not found; upload an inspection for the device first", *equipmentID)
		}
		return nil, err
	}
	return eq, nil
}

func optionalText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// UploadRequest is the form submitted to the upload endpoint.
type UploadRequest struct {
	Category        string
	File            upload.File
	FeedbackText    string
	Country         string
	Room            string
	EquipmentTypeID *int64
	EquipmentID     *int64
}

// UploadResult is returned once an upload is committed.
type UploadResult struct {
	Filename     string
	Category     upload.Category
	CaseKey      string
	Room         string
	Registration *Registration
}

// CreateUpload validates an upload form, registers it in its own transaction and,
// after the commit, records the stored file in the side-index.
func (s *Service) CreateUpload(ctx context.Context, req UploadRequest) (res *UploadResult, err error) {
	categoryHint := strings.ToLower(strings.TrimSpace(req.Category))
	if categoryHint == "" {
		categoryHint = string(upload.CategoryInspection)
	}
	defer func() {
		metrics.Uploads.WithLabelValues(categoryHint, outcome(err)).Inc()
	}()

	country := strings.TrimSpace(req.Country)
	room := parse.NormalizeSpace(req.Room)
	if country == "" {
		return nil, apperr.Validation("country is required")
	}
	if room == "" {
		return nil, apperr.Validation("room is required")
	}
	c, loc, err := parse.ParseSite(country)
	if err != nil {
		return nil, err
	}
	caseKey := model.CaseScene{Country: c, Location: loc}.Key()

	if categoryHint == string(upload.CategoryLogs) && req.EquipmentID == nil {
		return nil, apperr.Validation("logs require equipment_id")
	}

	if categoryHint == string(upload.CategoryFeedback) {
		name, err := s.SubmitFeedback(ctx, caseKey, room, req.FeedbackText)
		if err != nil {
			return nil, err
		}
		s.appendIndex(caseKey, room, name)
		s.afterCommit()
		return &UploadResult{Filename: name, Category: upload.CategoryFeedback, CaseKey: caseKey, Room: room}, nil
	}

	if req.File == nil || strings.TrimSpace(req.File.Filename()) == "" {
		return nil, apperr.Validation("no file selected")
	}
	if _, err := upload.ValidateExt(upload.SanitizeFilename(req.File.Filename())); err != nil {
		return nil, err
	}

	var reg *Registration
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		r, err := s.RegisterUpload(ctx, tx, UploadInput{
			File:            req.File,
			CountryRaw:      caseKey,
			RoomRaw:         room,
			ChangesText:     req.FeedbackText,
			EquipmentTypeID: req.EquipmentTypeID,
			CategoryHint:    categoryHint,
			EquipmentID:     req.EquipmentID,
		})
		if err != nil {
			return err
		}
		reg = r
		return nil
	})
	if err != nil {
		if reg != nil {
			// RegisterUpload succeeded but the commit did not.
			s.removeOrphan(reg.StoredPath)
		}
		return nil, err
	}

	s.appendIndex(reg.CaseScene.Key(), reg.Room.RoomName, reg.Filename)
	var recordIDs []int64
	if reg.Record != nil {
		recordIDs = append(recordIDs, reg.Record.ID)
	}
	s.afterCommit(recordIDs...)

	return &UploadResult{
		Filename:     reg.Filename,
		Category:     reg.Category,
		CaseKey:      reg.CaseScene.Key(),
		Room:         reg.Room.RoomName,
		Registration: reg,
	}, nil
}

// SubmitFeedback writes a free-text feedback blob for a case scene and room and
// returns the stored filename. Equipment is not touched.
func (s *Service) SubmitFeedback(ctx context.Context, caseKey, room, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperr.Validation("feedback text must not be empty")
	}
	name, err := s.storage.SaveFeedbackText(caseKey, room, text)
	if err != nil {
		return "", err
	}
	logging.FromContext(ctx).Info("feedback stored",
		zap.String("case", caseKey), zap.String("room", room), zap.String("file", name))
	return name, nil
}
