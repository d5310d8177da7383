package storefs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/goliatone/go-pdflow/export"
)

const (
	pdfContentType = "application/pdf"
	metaSuffix     = ".meta.json"
)

// Store provides filesystem-backed PDF storage. Writes go to a temp file in the
// target directory and are renamed into place, so readers never observe a
// partial artifact.
type Store struct {
	Root string
	Now  func() time.Time
}

var _ export.ArtifactStore = (*Store)(nil)

// NewStore creates a filesystem-backed artifact store.
func NewStore(root string) *Store {
	return &Store{Root: root, Now: time.Now}
}

type sidecar struct {
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Filename    string    `json:"filename"`
	Pages       int       `json:"pages"`
	CreatedAt   time.Time `json:"created_at"`
}

// Put stores an artifact on disk.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, meta export.ArtifactMeta) (export.ArtifactRef, error) {
	pathOnDisk, err := s.prepare(ctx, key)
	if err != nil {
		return export.ArtifactRef{}, err
	}

	dir := filepath.Dir(pathOnDisk)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return export.ArtifactRef{}, export.NewError(export.KindWrite, "create artifact directory", err)
	}

	tmp, err := os.CreateTemp(dir, ".pdflow-*")
	if err != nil {
		return export.ArtifactRef{}, export.NewError(export.KindWrite, "create temp file", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	size, err := io.Copy(tmp, r)
	if err != nil {
		return export.ArtifactRef{}, export.NewError(export.KindWrite, "write artifact", err)
	}
	if err := tmp.Sync(); err != nil {
		return export.ArtifactRef{}, export.NewError(export.KindWrite, "sync artifact", err)
	}
	if err := tmp.Close(); err != nil {
		return export.ArtifactRef{}, export.NewError(export.KindWrite, "close artifact", err)
	}

	meta.Size = size
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = s.now()
	}
	if meta.ContentType == "" {
		meta.ContentType = pdfContentType
	}
	if meta.Filename == "" {
		meta.Filename = filepath.Base(pathOnDisk)
	}

	if err := writeMeta(pathOnDisk, meta); err != nil {
		return export.ArtifactRef{}, export.NewError(export.KindWrite, "write artifact metadata", err)
	}
	if err := os.Rename(tmp.Name(), pathOnDisk); err != nil {
		_ = os.Remove(metaPath(pathOnDisk))
		return export.ArtifactRef{}, export.NewError(export.KindWrite, "commit artifact", err)
	}

	return export.ArtifactRef{Key: key, Meta: meta}, nil
}

// Open reads an artifact from disk.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, export.ArtifactMeta, error) {
	pathOnDisk, err := s.prepare(ctx, key)
	if err != nil {
		return nil, export.ArtifactMeta{}, err
	}

	file, err := os.Open(pathOnDisk)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, export.ArtifactMeta{}, export.NewError(export.KindNotFound, fmt.Sprintf("artifact %q not found", key), err)
		}
		return nil, export.ArtifactMeta{}, export.NewError(export.KindInternal, "open artifact", err)
	}

	meta := readMeta(pathOnDisk)
	if meta.ContentType == "" {
		meta.ContentType = pdfContentType
	}
	if meta.Size == 0 {
		if info, err := file.Stat(); err == nil {
			meta.Size = info.Size()
			if meta.CreatedAt.IsZero() {
				meta.CreatedAt = info.ModTime()
			}
		}
	}

	return file, meta, nil
}

// Delete removes an artifact from disk. Missing artifacts are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	pathOnDisk, err := s.prepare(ctx, key)
	if err != nil {
		return err
	}
	if err := os.Remove(pathOnDisk); err != nil && !os.IsNotExist(err) {
		return export.NewError(export.KindInternal, "delete artifact", err)
	}
	_ = os.Remove(metaPath(pathOnDisk))
	return nil
}

// Prune deletes artifacts created before cutoff and reports how many were
// removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	root, err := filepath.Abs(s.Root)
	if err != nil {
		return 0, export.NewError(export.KindInternal, "resolve store root", err)
	}

	removed := 0
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || strings.HasSuffix(p, metaSuffix) || strings.HasPrefix(d.Name(), ".pdflow-") {
			return nil
		}
		created := readMeta(p).CreatedAt
		if created.IsZero() {
			info, err := d.Info()
			if err != nil {
				return nil
			}
			created = info.ModTime()
		}
		if !created.Before(cutoff) {
			return nil
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
		_ = os.Remove(metaPath(p))
		removed++
		return nil
	})
	if err != nil {
		return removed, export.NewError(export.KindInternal, "prune artifacts", err)
	}
	return removed, nil
}

func (s *Store) check(ctx context.Context) error {
	if s == nil {
		return export.NewError(export.KindInternal, "store is nil", nil)
	}
	if s.Root == "" {
		return export.NewError(export.KindValidation, "store root is required", nil)
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return export.NewError(export.KindCanceled, "store operation canceled", err)
		}
	}
	return nil
}

func (s *Store) prepare(ctx context.Context, key string) (string, error) {
	if err := s.check(ctx); err != nil {
		return "", err
	}
	if key == "" {
		return "", export.NewError(export.KindValidation, "artifact key is required", nil)
	}
	return s.resolvePath(key)
}

func (s *Store) resolvePath(key string) (string, error) {
	clean := path.Clean("/" + key)
	rel := strings.TrimPrefix(clean, "/")
	if rel == "" || rel == "." {
		return "", export.NewError(export.KindValidation, "invalid artifact key", nil)
	}
	if strings.HasSuffix(rel, metaSuffix) {
		return "", export.NewError(export.KindValidation, "artifact key uses a reserved suffix", nil)
	}

	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", export.NewError(export.KindInternal, "resolve store root", err)
	}
	target := filepath.Join(root, filepath.FromSlash(rel))
	if !strings.HasPrefix(target, root+string(os.PathSeparator)) && target != root {
		return "", export.NewError(export.KindValidation, "artifact key escapes root", nil)
	}
	return target, nil
}

func writeMeta(pathOnDisk string, meta export.ArtifactMeta) error {
	payload, err := json.Marshal(sidecar{
		ContentType: meta.ContentType,
		Size:        meta.Size,
		Filename:    meta.Filename,
		Pages:       meta.Pages,
		CreatedAt:   meta.CreatedAt,
	})
	if err != nil {
		return err
	}
	dir := filepath.Dir(pathOnDisk)
	tmp, err := os.CreateTemp(dir, ".pdflow-meta-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(payload); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), metaPath(pathOnDisk))
}

func readMeta(pathOnDisk string) export.ArtifactMeta {
	data, err := os.ReadFile(metaPath(pathOnDisk))
	if err != nil {
		return export.ArtifactMeta{}
	}
	var meta sidecar
	if err := json.Unmarshal(data, &meta); err != nil {
		return export.ArtifactMeta{}
	}
	return export.ArtifactMeta{
		ContentType: meta.ContentType,
		Size:        meta.Size,
		Filename:    meta.Filename,
		Pages:       meta.Pages,
		CreatedAt:   meta.CreatedAt,
	}
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func metaPath(pathOnDisk string) string {
	return pathOnDisk + metaSuffix
}
