// Package registry runs the upload and registration pipeline: it stores uploaded
// files, resolves case scenes and rooms, upserts equipment from inspection
// reports, appends management records and keeps the side-index in step.
package registry

import (
	"go.uber.org/zap"

	"equipment-tracker-backend/internal/apperr"
	"equipment-tracker-backend/internal/metrics"
	"equipment-tracker-backend/internal/parse"
	"equipment-tracker-backend/internal/sideindex"
	"equipment-tracker-backend/internal/store"
	"equipment-tracker-backend/internal/upload"
)

// CacheFlusher drops cached read responses after a committed mutation.
type CacheFlusher interface {
	Flush()
}

// Notifier is told about management records once they are committed.
type Notifier interface {
	Dispatch(recordID int64)
}

// Service coordinates the database, file storage and side-index.
type Service struct {
	store          store.Store
	storage        *upload.Storage
	index          *sideindex.Index
	cache          CacheFlusher
	notifier       Notifier
	log            *zap.Logger
	reportMaxLines int
}

// Option configures a Service.
type Option func(*Service)

// WithCache flushes c after every committed mutation.
func WithCache(c CacheFlusher) Option {
	return func(s *Service) { s.cache = c }
}

// WithNotifier dispatches committed management records to n.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithReportMaxLines bounds how many lines of an inspection report are parsed.
func WithReportMaxLines(n int) Option {
	return func(s *Service) { s.reportMaxLines = n }
}

// NewService creates a Service.
func NewService(s store.Store, storage *upload.Storage, index *sideindex.Index, log *zap.Logger, opts ...Option) *Service {
	svc := &Service{
		store:          s,
		storage:        storage,
		index:          index,
		log:            log.With(zap.String("component", "registry")),
		reportMaxLines: parse.DefaultReportMaxLines,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// afterCommit runs the side effects that must only follow a successful commit.
func (s *Service) afterCommit(recordIDs ...int64) {
	if s.cache != nil {
		s.cache.Flush()
	}
	if s.notifier != nil {
		for _, id := range recordIDs {
			s.notifier.Dispatch(id)
		}
	}
}

// appendIndex records a stored file in the side-index. Failures are logged only:
// the database already holds the committed state.
func (s *Service) appendIndex(caseKey, room, filename string) {
	if err := s.index.Append(caseKey, room, filename); err != nil {
		metrics.SideIndexErrors.WithLabelValues("append").Inc()
		s.log.Error("failed to update side-index",
			zap.String("case", caseKey), zap.String("room", room), zap.String("file", filename), zap.Error(err))
	}
}

// removeOrphan deletes a file written by an operation that did not commit.
func (s *Service) removeOrphan(path string) {
	if path == "" {
		return
	}
	if err := s.storage.Remove(path); err != nil {
		s.log.Error("failed to remove orphaned upload", zap.String("path", path), zap.Error(err))
		return
	}
	metrics.OrphanFilesRemoved.Inc()
	s.log.Warn("removed upload after failed registration", zap.String("path", path))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case apperr.KindOf(err) == apperr.KindInternal:
		return metrics.OutcomeError
	default:
		return metrics.OutcomeInvalid
	}
}
