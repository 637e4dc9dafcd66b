package registry

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"equipment-tracker-backend/internal/apperr"
	"equipment-tracker-backend/internal/logging"
	"equipment-tracker-backend/internal/metrics"
	"equipment-tracker-backend/internal/model"
	"equipment-tracker-backend/internal/store"
	"equipment-tracker-backend/internal/upload"
)

// EquipmentFeedback is operator feedback on one equipment unit with optional photos.
type EquipmentFeedback struct {
	EquipmentID int64
	Text        string
	BeforePhoto upload.File
	AfterPhoto  upload.File
}

// SubmitEquipmentFeedback stores the photos and appends a management record in
// the equipment's current room. Photos written by a failed submission are removed.
func (s *Service) SubmitEquipmentFeedback(ctx context.Context, fb EquipmentFeedback) (*model.ManagementRecord, error) {
	text := strings.TrimSpace(fb.Text)
	before := presentFile(fb.BeforePhoto)
	after := presentFile(fb.AfterPhoto)
	if text == "" && before == nil && after == nil {
		return nil, apperr.Validation("feedback text or a photo is required")
	}

	var (
		written []string
		rec     *model.ManagementRecord
	)
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		eq, err := tx.GetEquipment(ctx, fb.EquipmentID)
		if err != nil {
			return err
		}
		if eq.RoomID == nil {
			return apperr.Validation("equipment %d is not assigned to a room", eq.ID)
		}

		ts := s.storage.Timestamp()
		lines := []string{text}
		for _, p := range []struct {
			tag  string
			file upload.File
		}{{"before", before}, {"after", after}} {
			if p.file == nil {
				continue
			}
			path, name, err := s.storage.SaveFeedbackPhoto(eq.ID, p.tag, ts, p.file)
			if err != nil {
				return err
			}
			written = append(written, path)
			lines = append(lines, p.tag+"_photo="+name)
		}

		changes := strings.TrimSpace(strings.Join(lines, "\n"))
		rec = &model.ManagementRecord{EquipmentID: eq.ID, RoomID: *eq.RoomID, ChangesText: &changes}
		return tx.CreateManagementRecord(ctx, rec)
	})
	if err != nil {
		for _, p := range written {
			s.removeOrphan(p)
		}
		return nil, err
	}

	metrics.ManagementRecords.WithLabelValues("feedback").Inc()
	logging.FromContext(ctx).Info("equipment feedback recorded",
		zap.Int64("equipment_id", fb.EquipmentID),
		zap.Int64("record_id", rec.ID),
		zap.Int("photos", len(written)),
	)
	s.afterCommit(rec.ID)
	return rec, nil
}

func presentFile(f upload.File) upload.File {
	if f == nil || strings.TrimSpace(f.Filename()) == "" {
		return nil
	}
	return f
}
