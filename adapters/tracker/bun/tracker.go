package trackerbun

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-pdflow/export"
	"github.com/uptrace/bun"
)

// Tracker stores export history in a Bun-backed database.
type Tracker struct {
	DB  *bun.DB
	Now func() time.Time
}

var _ export.Tracker = (*Tracker)(nil)

// NewTracker creates a Bun-backed tracker.
func NewTracker(db *bun.DB) *Tracker {
	return &Tracker{DB: db, Now: time.Now}
}

// EnsureSchema creates the history table when it does not exist.
func (t *Tracker) EnsureSchema(ctx context.Context) error {
	if t == nil || t.DB == nil {
		return export.NewError(export.KindNotImpl, "tracker database not configured", nil)
	}
	if _, err := t.DB.NewCreateTable().Model((*recordModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return export.NewError(export.KindInternal, "create export history table", err)
	}
	_, err := t.DB.NewCreateIndex().
		Model((*recordModel)(nil)).
		Index("pdflow_exports_created_at_idx").
		IfNotExists().
		Column("created_at").
		Exec(ctx)
	if err != nil {
		return export.NewError(export.KindInternal, "create export history index", err)
	}
	return nil
}

// Start creates a new export record.
func (t *Tracker) Start(ctx context.Context, record export.ExportRecord) (string, error) {
	if t == nil || t.DB == nil {
		return "", export.NewError(export.KindNotImpl, "tracker database not configured", nil)
	}
	if record.ID == "" {
		return "", export.NewError(export.KindValidation, "export ID is required", nil)
	}
	if record.State == "" {
		record.State = export.StateIdle
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = t.now()
	}

	model := modelFromRecord(record)
	if _, err := t.DB.NewInsert().Model(&model).Exec(ctx); err != nil {
		return "", export.NewError(export.KindInternal, "insert export record", err)
	}
	return record.ID, nil
}

// SetState updates the export state.
func (t *Tracker) SetState(ctx context.Context, id string, state export.ExportState) error {
	query, err := t.update(id)
	if err != nil {
		return err
	}
	query = query.Set("state = ?", string(state))
	if state == export.StateRunning {
		query = query.Set("started_at = COALESCE(started_at, ?)", t.now())
	}
	return t.exec(ctx, id, query)
}

// Fail marks the export as failed and records the error kind.
func (t *Tracker) Fail(ctx context.Context, id string, cause error) error {
	query, err := t.update(id)
	if err != nil {
		return err
	}
	query = query.
		Set("state = ?", string(export.StateFailed)).
		Set("completed_at = COALESCE(completed_at, ?)", t.now())
	if cause != nil {
		query = query.
			Set("error = ?", cause.Error()).
			Set("error_kind = ?", string(export.KindFromError(cause)))
	}
	return t.exec(ctx, id, query)
}

// Complete marks the export as completed.
func (t *Tracker) Complete(ctx context.Context, id string, result export.ExportResult) error {
	query, err := t.update(id)
	if err != nil {
		return err
	}
	query = query.
		Set("state = ?", string(export.StateCompleted)).
		Set("completed_at = COALESCE(completed_at, ?)", t.now()).
		Set("pages = ?", result.Pages).
		Set("bytes = ?", result.Bytes)
	if result.FileName != "" {
		query = query.Set("file_name = ?", result.FileName)
	}
	if result.Artifact != nil {
		query = query.
			Set("artifact_key = ?", result.Artifact.Key).
			Set("artifact_content_type = ?", result.Artifact.Meta.ContentType)
	}
	return t.exec(ctx, id, query)
}

// Status returns a record by ID.
func (t *Tracker) Status(ctx context.Context, id string) (export.ExportRecord, error) {
	if t == nil || t.DB == nil {
		return export.ExportRecord{}, export.NewError(export.KindNotImpl, "tracker database not configured", nil)
	}
	if id == "" {
		return export.ExportRecord{}, export.NewError(export.KindValidation, "export ID is required", nil)
	}

	model := new(recordModel)
	err := t.DB.NewSelect().Model(model).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return export.ExportRecord{}, export.NewError(export.KindNotFound, fmt.Sprintf("export %q not found", id), nil)
		}
		return export.ExportRecord{}, export.NewError(export.KindInternal, "load export record", err)
	}
	return model.toRecord(), nil
}

// List returns records matching a filter, newest first.
func (t *Tracker) List(ctx context.Context, filter export.HistoryFilter) ([]export.ExportRecord, error) {
	if t == nil || t.DB == nil {
		return nil, export.NewError(export.KindNotImpl, "tracker database not configured", nil)
	}

	models := make([]recordModel, 0)
	query := t.DB.NewSelect().Model(&models)
	if filter.State != "" {
		query = query.Where("state = ?", string(filter.State))
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		query = query.Where("created_at <= ?", filter.Until)
	}
	query = query.Order("created_at DESC", "id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, export.NewError(export.KindInternal, "list export records", err)
	}

	records := make([]export.ExportRecord, 0, len(models))
	for _, model := range models {
		records = append(records, model.toRecord())
	}
	return records, nil
}

func (t *Tracker) update(id string) (*bun.UpdateQuery, error) {
	if t == nil || t.DB == nil {
		return nil, export.NewError(export.KindNotImpl, "tracker database not configured", nil)
	}
	if id == "" {
		return nil, export.NewError(export.KindValidation, "export ID is required", nil)
	}
	return t.DB.NewUpdate().Model((*recordModel)(nil)).Where("id = ?", id), nil
}

func (t *Tracker) exec(ctx context.Context, id string, query *bun.UpdateQuery) error {
	res, err := query.Exec(ctx)
	if err != nil {
		return export.NewError(export.KindInternal, "update export record", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return export.NewError(export.KindNotFound, fmt.Sprintf("export %q not found", id), nil)
	}
	return nil
}

type recordModel struct {
	bun.BaseModel `bun:"table:pdflow_exports,alias:pdflow_exports"`

	ID                  string    `bun:",pk"`
	FileName            string    `bun:"file_name,notnull"`
	PaperSize           string    `bun:"paper_size,notnull"`
	Orientation         string    `bun:"orientation,notnull"`
	MarginMM            float64   `bun:"margin_mm"`
	State               string    `bun:"state,notnull"`
	Pages               int       `bun:"pages"`
	Bytes               int64     `bun:"bytes"`
	Error               string    `bun:"error"`
	ErrorKind           string    `bun:"error_kind"`
	ArtifactKey         string    `bun:"artifact_key"`
	ArtifactContentType string    `bun:"artifact_content_type"`
	CreatedAt           time.Time `bun:"created_at,notnull"`
	StartedAt           time.Time `bun:"started_at,nullzero"`
	CompletedAt         time.Time `bun:"completed_at,nullzero"`
}

func modelFromRecord(record export.ExportRecord) recordModel {
	return recordModel{
		ID:                  record.ID,
		FileName:            record.FileName,
		PaperSize:           string(record.Format.PaperSize),
		Orientation:         string(record.Format.Orientation),
		MarginMM:            record.Format.MarginMM,
		State:               string(record.State),
		Pages:               record.Pages,
		Bytes:               record.Bytes,
		Error:               record.Error,
		ErrorKind:           string(record.ErrorKind),
		ArtifactKey:         record.Artifact.Key,
		ArtifactContentType: record.Artifact.Meta.ContentType,
		CreatedAt:           record.CreatedAt,
		StartedAt:           record.StartedAt,
		CompletedAt:         record.CompletedAt,
	}
}

func (m recordModel) toRecord() export.ExportRecord {
	return export.ExportRecord{
		ID:       m.ID,
		FileName: m.FileName,
		Format: export.PageFormatConfig{
			PaperSize:   export.PaperSize(m.PaperSize),
			Orientation: export.Orientation(m.Orientation),
			MarginMM:    m.MarginMM,
		},
		State:     export.ExportState(m.State),
		Pages:     m.Pages,
		Bytes:     m.Bytes,
		Error:     m.Error,
		ErrorKind: export.ErrorKind(m.ErrorKind),
		Artifact: export.ArtifactRef{
			Key: m.ArtifactKey,
			Meta: export.ArtifactMeta{
				ContentType: m.ArtifactContentType,
				Size:        m.Bytes,
				Filename:    m.FileName,
				Pages:       m.Pages,
				CreatedAt:   m.CompletedAt,
			},
		},
		CreatedAt:   m.CreatedAt,
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
	}
}

func (t *Tracker) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}
