package trackerbun

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-pdflow/export"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func TestTracker_StartStatusList(t *testing.T) {
	ctx := context.Background()
	tracker := newTestTracker(t)

	created := time.Date(2024, 5, 6, 7, 0, 0, 0, time.UTC)
	recordID, err := tracker.Start(ctx, export.ExportRecord{
		ID:       "exp-1",
		FileName: "invoice.pdf",
		Format: export.PageFormatConfig{
			PaperSize:   export.PaperLetter,
			Orientation: export.OrientationLandscape,
			MarginMM:    5,
		},
		CreatedAt: created,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if recordID != "exp-1" {
		t.Fatalf("expected exp-1, got %q", recordID)
	}

	got, err := tracker.Status(ctx, recordID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got.State != export.StateIdle {
		t.Fatalf("expected idle default state, got %q", got.State)
	}
	if got.Format.PaperSize != export.PaperLetter || got.Format.Orientation != export.OrientationLandscape || got.Format.MarginMM != 5 {
		t.Fatalf("unexpected format %+v", got.Format)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("expected created_at %v, got %v", created, got.CreatedAt)
	}

	list, err := tracker.List(ctx, export.HistoryFilter{State: export.StateIdle})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != "exp-1" {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestTracker_LifecycleCompletion(t *testing.T) {
	ctx := context.Background()
	tracker := newTestTracker(t)

	if _, err := tracker.Start(ctx, export.ExportRecord{ID: "exp-2", FileName: "report.pdf"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := tracker.SetState(ctx, "exp-2", export.StateRunning); err != nil {
		t.Fatalf("set state: %v", err)
	}
	err := tracker.Complete(ctx, "exp-2", export.ExportResult{
		FileName: "report.pdf",
		Pages:    3,
		Bytes:    2048,
		Artifact: &export.ArtifactRef{
			Key:  "exp-2/report.pdf",
			Meta: export.ArtifactMeta{ContentType: "application/pdf"},
		},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, err := tracker.Status(ctx, "exp-2")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got.State != export.StateCompleted {
		t.Fatalf("expected completed, got %q", got.State)
	}
	if got.Pages != 3 || got.Bytes != 2048 {
		t.Fatalf("unexpected counts %+v", got)
	}
	if got.Artifact.Key != "exp-2/report.pdf" || got.Artifact.Meta.ContentType != "application/pdf" {
		t.Fatalf("unexpected artifact %+v", got.Artifact)
	}
	if got.StartedAt.IsZero() || got.CompletedAt.IsZero() {
		t.Fatalf("expected timestamps, got started=%v completed=%v", got.StartedAt, got.CompletedAt)
	}
}

func TestTracker_FailRecordsKind(t *testing.T) {
	ctx := context.Background()
	tracker := newTestTracker(t)

	if _, err := tracker.Start(ctx, export.ExportRecord{ID: "exp-3", FileName: "broken.pdf"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	cause := export.NewError(export.KindCapture, "capture surface", errors.New("tainted canvas"))
	if err := tracker.Fail(ctx, "exp-3", cause); err != nil {
		t.Fatalf("fail: %v", err)
	}

	got, err := tracker.Status(ctx, "exp-3")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got.State != export.StateFailed || got.ErrorKind != export.KindCapture {
		t.Fatalf("unexpected failure record %+v", got)
	}
	if got.Error == "" {
		t.Fatalf("expected error message")
	}
}

func TestTracker_ListFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	tracker := newTestTracker(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if _, err := tracker.Start(ctx, export.ExportRecord{
			ID:        id,
			FileName:  id + ".pdf",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}); err != nil {
			t.Fatalf("start %s: %v", id, err)
		}
	}
	if err := tracker.Fail(ctx, "b", errors.New("boom")); err != nil {
		t.Fatalf("fail: %v", err)
	}

	all, err := tracker.List(ctx, export.HistoryFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != "c" || all[2].ID != "a" {
		t.Fatalf("expected newest first, got %+v", ids(all))
	}

	failed, err := tracker.List(ctx, export.HistoryFilter{State: export.StateFailed})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != "b" || failed[0].ErrorKind != export.KindInternal {
		t.Fatalf("unexpected failed list %+v", failed)
	}

	window, err := tracker.List(ctx, export.HistoryFilter{Since: base.Add(30 * time.Minute), Limit: 1})
	if err != nil {
		t.Fatalf("list window: %v", err)
	}
	if len(window) != 1 || window[0].ID != "c" {
		t.Fatalf("unexpected window %+v", ids(window))
	}
}

func TestTracker_NotFound(t *testing.T) {
	ctx := context.Background()
	tracker := newTestTracker(t)

	if _, err := tracker.Status(ctx, "missing"); export.KindFromError(err) != export.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := tracker.SetState(ctx, "missing", export.StateRunning); export.KindFromError(err) != export.KindNotFound {
		t.Fatalf("expected not found on update, got %v", err)
	}
	if _, err := tracker.Start(ctx, export.ExportRecord{}); export.KindFromError(err) != export.KindValidation {
		t.Fatalf("expected validation for missing id, got %v", err)
	}
}

func TestTracker_NilDB(t *testing.T) {
	var tracker *Tracker
	if _, err := tracker.Status(context.Background(), "x"); export.KindFromError(err) != export.KindNotImpl {
		t.Fatalf("expected not implemented, got %v", err)
	}
}

func ids(records []export.ExportRecord) []string {
	out := make([]string, 0, len(records))
	for _, record := range records {
		out = append(out, record.ID)
	}
	return out
}

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	tracker := NewTracker(newTestDB(t))
	tracker.Now = func() time.Time { return time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC) }
	if err := tracker.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return tracker
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+t.Name()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}
