package registry

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"equipment-tracker-backend/internal/apperr"
	"equipment-tracker-backend/internal/metrics"
	"equipment-tracker-backend/internal/model"
	"equipment-tracker-backend/internal/store"
)

// Location is a case scene and, when one was named, a room inside it.
type Location struct {
	CaseScene *model.CaseScene
	Room      *model.Room
}

// CreateLocation ensures the case scene named by country (in "Country(Location)"
// form) and the optional room exist, then adds them to the side-index.
func (s *Service) CreateLocation(ctx context.Context, country, room string) (*Location, error) {
	if strings.TrimSpace(country) == "" {
		return nil, apperr.Validation("country is required")
	}

	var loc Location
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		cs, r, err := tx.ParseAndEnsure(ctx, country, room)
		if err != nil {
			return err
		}
		loc = Location{CaseScene: cs, Room: r}
		return nil
	})
	if err != nil {
		return nil, err
	}

	roomName := ""
	if loc.Room != nil {
		roomName = loc.Room.RoomName
	}
	if err := s.index.Touch(loc.CaseScene.Key(), roomName); err != nil {
		metrics.SideIndexErrors.WithLabelValues("touch").Inc()
		s.log.Error("failed to update side-index", zap.String("case", loc.CaseScene.Key()), zap.Error(err))
	}
	s.afterCommit()
	return &loc, nil
}
