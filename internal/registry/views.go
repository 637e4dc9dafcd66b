package registry

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"

	"equipment-tracker-backend/internal/apperr"
	"equipment-tracker-backend/internal/metrics"
	"equipment-tracker-backend/internal/model"
	"equipment-tracker-backend/internal/parse"
	"equipment-tracker-backend/internal/store"
	"equipment-tracker-backend/internal/upload"
)

// TreeRoom is a room node of the site tree. Rooms known only from the
// side-index have ID 0.
type TreeRoom struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TreeCase is a case scene node of the site tree.
type TreeCase struct {
	ID    int64      `json:"id"`
	Name  string     `json:"name"`
	Rooms []TreeRoom `json:"rooms"`
}

// Tree lists every case scene with its rooms. Database rows come first, in id
// order; room names that only the side-index knows are appended after them.
func (s *Service) Tree(ctx context.Context) ([]TreeCase, error) {
	scenes, err := s.store.ListCaseScenes(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.index.Load(); err != nil {
		metrics.SideIndexErrors.WithLabelValues("load").Inc()
		s.log.Warn("side-index unreadable, tree uses database rooms only", zap.Error(err))
	}

	tree := make([]TreeCase, 0, len(scenes))
	for _, cs := range scenes {
		node := TreeCase{ID: cs.ID, Name: cs.Key(), Rooms: make([]TreeRoom, 0, len(cs.Rooms))}
		known := make(map[string]bool, len(cs.Rooms))
		for _, r := range cs.Rooms {
			node.Rooms = append(node.Rooms, TreeRoom{ID: r.ID, Name: r.RoomName})
			known[r.RoomName] = true
		}
		for _, name := range s.index.Rooms(cs.Key()) {
			if !known[name] {
				node.Rooms = append(node.Rooms, TreeRoom{ID: 0, Name: name})
			}
		}
		tree = append(tree, node)
	}
	return tree, nil
}

// ReportView is a parsed inspection or log file with the equipment it matches.
type ReportView struct {
	Filename  string              `json:"filename"`
	Category  upload.Category     `json:"category"`
	Info      map[string]string   `json:"info"`
	Fields    []parse.ReportField `json:"fields"`
	Equipment *model.Equipment    `json:"equipment"`
}

// Report parses a stored file from Inspection/, falling back to Logs/.
func (s *Service) Report(ctx context.Context, filename string) (*ReportView, error) {
	path, category, ok := s.storage.Locate(filename, upload.CategoryInspection, upload.CategoryLogs)
	if !ok {
		return nil, apperr.NotFound("file %q not found", filename)
	}

	report := parse.ParseReportFile(path, s.reportMaxLines)
	eq, err := s.store.FindEquipmentBySerials(ctx, strings.TrimSpace(report.SerialNumber), strings.TrimSpace(report.VendorSN))
	if err != nil {
		return nil, err
	}

	return &ReportView{
		Filename:  upload.SanitizeFilename(filename),
		Category:  category,
		Info:      report.Map(),
		Fields:    report.Fields(),
		Equipment: eq,
	}, nil
}

// RoomView is a room with its equipment and the files uploaded for it.
type RoomView struct {
	CaseScene *model.CaseScene  `json:"case_scene"`
	CaseKey   string            `json:"case_key"`
	Room      *model.Room       `json:"room"`
	Equipment []model.Equipment `json:"equipment"`
	Files     []string          `json:"files"`
}

// RoomEquipment lists the equipment of a room, filtered by q and type.
func (s *Service) RoomEquipment(ctx context.Context, caseSceneID, roomID int64, filter store.EquipmentFilter) (*RoomView, error) {
	room, err := s.store.GetRoom(ctx, caseSceneID, roomID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListEquipment(ctx, room.ID, filter)
	if err != nil {
		return nil, err
	}

	key := room.CaseScene.Key()
	files := s.index.Files(key, room.RoomName)
	if files == nil {
		files = []string{}
	}
	return &RoomView{CaseScene: room.CaseScene, CaseKey: key, Room: room, Equipment: items, Files: files}, nil
}

// RoomReport is the newest inspection report uploaded for a room.
type RoomReport struct {
	RoomView
	ReportFilename string      `json:"report_filename"`
	Report         *ReportView `json:"report"`
}

// LatestRoomReport picks the most recently modified inspection file listed for
// the room and parses it. Report is nil when the room has none.
func (s *Service) LatestRoomReport(ctx context.Context, caseSceneID, roomID int64) (*RoomReport, error) {
	view, err := s.RoomEquipment(ctx, caseSceneID, roomID, store.EquipmentFilter{})
	if err != nil {
		return nil, err
	}

	out := &RoomReport{RoomView: *view}
	latest := s.pickLatestInspection(view.Files)
	if latest == "" {
		return out, nil
	}

	report, err := s.Report(ctx, latest)
	if err != nil {
		return nil, err
	}
	out.ReportFilename = latest
	out.Report = report
	return out, nil
}

func (s *Service) pickLatestInspection(files []string) string {
	var (
		latest  string
		latestT int64 = -1
	)
	for _, name := range files {
		lower := strings.ToLower(name)
		if !strings.Contains(lower, "inspection") && !strings.HasSuffix(lower, ".csv") && !strings.HasSuffix(lower, ".txt") {
			continue
		}
		path, _, ok := s.storage.Locate(name, upload.CategoryInspection)
		if !ok {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if mt := info.ModTime().UnixNano(); mt > latestT {
			latestT = mt
			latest = name
		}
	}
	return latest
}

// Reset wipes the catalog, every stored file and the side-index.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return err
	}
	s.afterCommit()

	if err := s.storage.Wipe(); err != nil {
		s.log.Error("failed to wipe upload storage", zap.Error(err))
		return apperr.Internal(err, "database was reset but some files could not be removed")
	}
	if err := s.index.Reset(); err != nil {
		metrics.SideIndexErrors.WithLabelValues("reset").Inc()
		return apperr.Internal(err, "database was reset but the side-index could not be cleared")
	}
	return nil
}

// Locate finds a stored file by its client supplied name.
func (s *Service) Locate(filename string, cats ...upload.Category) (string, upload.Category, bool) {
	return s.storage.Locate(filename, cats...)
}
