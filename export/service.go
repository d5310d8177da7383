package export

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Service coordinates exports across the exporter, tracker, and store.
type Service interface {
	Export(ctx context.Context, surface Surface, req ExportRequest) (ExportResult, error)
	Status(ctx context.Context, exportID string) (ExportRecord, error)
	History(ctx context.Context, filter HistoryFilter) ([]ExportRecord, error)
	Download(ctx context.Context, exportID string) (io.ReadCloser, ArtifactMeta, error)
}

// ServiceConfig supplies dependencies for Service.
type ServiceConfig struct {
	Exporter *Exporter
	Tracker  Tracker
	Store    ArtifactStore
	// FileNamePattern is used when a request has no file name.
	FileNamePattern string
	Logger          Logger
	Now             func() time.Time
	IDGenerator     func() string
}

type service struct {
	exporter        *Exporter
	tracker         Tracker
	store           ArtifactStore
	fileNamePattern string
	logger          Logger
	now             func() time.Time
	idGenerator     func() string

	mu     sync.Mutex
	active map[Surface]string
}

// NewService creates a Service with the provided configuration.
func NewService(cfg ServiceConfig) Service {
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	idGen := cfg.IDGenerator
	if idGen == nil {
		idGen = uuid.NewString
	}
	logger := cfg.Logger
	if logger == nil {
		logger = NopLogger{}
	}

	exporter := cfg.Exporter
	if exporter == nil {
		exporter = NewExporter(nil, nil)
	}
	if exporter.Logger == nil {
		exporter.Logger = logger
	}
	if exporter.Now == nil {
		exporter.Now = nowFn
	}
	if cfg.Store != nil && exporter.Store == nil {
		exporter.Store = cfg.Store
	}
	exporter.applyDefaults()
	store := cfg.Store
	if store == nil {
		store = exporter.Store
	}

	return &service{
		exporter:        exporter,
		tracker:         cfg.Tracker,
		store:           store,
		fileNamePattern: cfg.FileNamePattern,
		logger:          logger,
		now:             nowFn,
		idGenerator:     idGen,
		active:          make(map[Surface]string),
	}
}

// Export runs one export against surface. A second export on a surface that is
// already exporting is rejected with a busy error instead of being queued.
func (s *service) Export(ctx context.Context, surface Surface, req ExportRequest) (ExportResult, error) {
	if s == nil {
		return ExportResult{}, AsGoError(NewError(KindInternal, "service is nil", nil))
	}
	if surface == nil {
		return ExportResult{}, AsGoError(NewError(KindSurfaceUnavailable, "surface not accessible", nil))
	}

	exportID := req.ID
	if exportID == "" {
		exportID = s.idGenerator()
	}

	release, err := s.acquire(surface, exportID)
	if err != nil {
		return ExportResult{}, AsGoError(err)
	}
	defer release()

	req.ID = exportID
	req.Format = NormalizeFormat(req.Format)
	if req.FileName == "" {
		name, err := RenderFileName(s.fileNamePattern, req.Format, s.now())
		if err != nil {
			return ExportResult{}, AsGoError(err)
		}
		req.FileName = name
	}
	req.FileName = EnsurePDFExtension(req.FileName)

	if s.tracker != nil {
		id, err := s.tracker.Start(ctx, ExportRecord{
			ID:        exportID,
			FileName:  req.FileName,
			Format:    req.Format,
			State:     StateIdle,
			CreatedAt: s.now(),
		})
		if err != nil {
			return ExportResult{}, AsGoError(err)
		}
		if id != "" {
			exportID = id
			req.ID = id
		}
		_ = s.tracker.SetState(ctx, exportID, StateRunning)
	}

	result, err := s.exporter.Export(ctx, surface, req)
	if err != nil {
		if s.tracker != nil {
			if trackErr := s.tracker.Fail(context.WithoutCancel(ctx), exportID, err); trackErr != nil {
				s.logger.Errorf("export %s: record failure: %v", exportID, trackErr)
			}
		}
		return ExportResult{}, AsGoError(err)
	}

	result.ID = exportID
	if s.tracker != nil {
		if err := s.tracker.Complete(ctx, exportID, result); err != nil {
			s.logger.Errorf("export %s: record completion: %v", exportID, err)
		}
	}
	return result, nil
}

// Status returns the history record for an export.
func (s *service) Status(ctx context.Context, exportID string) (ExportRecord, error) {
	if s == nil {
		return ExportRecord{}, AsGoError(NewError(KindInternal, "service is nil", nil))
	}
	if exportID == "" {
		return ExportRecord{}, AsGoError(NewError(KindValidation, "export ID is required", nil))
	}
	if s.tracker == nil {
		return ExportRecord{}, AsGoError(NewError(KindNotImpl, "tracker not configured", nil))
	}
	record, err := s.tracker.Status(ctx, exportID)
	if err != nil {
		return ExportRecord{}, AsGoError(err)
	}
	return record, nil
}

// History lists export records.
func (s *service) History(ctx context.Context, filter HistoryFilter) ([]ExportRecord, error) {
	if s == nil {
		return nil, AsGoError(NewError(KindInternal, "service is nil", nil))
	}
	if s.tracker == nil {
		return nil, AsGoError(NewError(KindNotImpl, "tracker not configured", nil))
	}
	if filter.Limit < 0 {
		return nil, AsGoError(NewError(KindValidation, "limit must not be negative", nil))
	}
	records, err := s.tracker.List(ctx, filter)
	if err != nil {
		return nil, AsGoError(err)
	}
	return records, nil
}

// Download opens the stored PDF of a completed export.
func (s *service) Download(ctx context.Context, exportID string) (io.ReadCloser, ArtifactMeta, error) {
	if s == nil {
		return nil, ArtifactMeta{}, AsGoError(NewError(KindInternal, "service is nil", nil))
	}
	if s.store == nil {
		return nil, ArtifactMeta{}, AsGoError(NewError(KindNotImpl, "artifact store not configured", nil))
	}
	record, err := s.Status(ctx, exportID)
	if err != nil {
		return nil, ArtifactMeta{}, err
	}
	if record.State != StateCompleted || record.Artifact.Key == "" {
		return nil, ArtifactMeta{}, AsGoError(NewError(KindNotFound, fmt.Sprintf("export %q has no artifact", exportID), nil))
	}
	reader, meta, err := s.store.Open(ctx, record.Artifact.Key)
	if err != nil {
		return nil, ArtifactMeta{}, AsGoError(err)
	}
	return reader, meta, nil
}

// acquire claims surface for one export. Surfaces are keyed by identity, so
// implementations must be comparable (typically pointers).
func (s *service) acquire(surface Surface, exportID string) (func(), error) {
	if !reflect.TypeOf(surface).Comparable() {
		return nil, NewError(KindValidation, fmt.Sprintf("surface type %T is not comparable", surface), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if running, ok := s.active[surface]; ok {
		return nil, NewError(KindBusy, fmt.Sprintf("export %s already running on this surface", running), nil)
	}
	s.active[surface] = exportID
	return func() {
		s.mu.Lock()
		delete(s.active, surface)
		s.mu.Unlock()
	}, nil
}
