// Package file loads HTML documents from disk.
package file

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-pdflow/export"
)

// DefaultMaxBytes caps uploaded documents at 10 MiB.
const DefaultMaxBytes int64 = 10 << 20

var allowedExtensions = map[string]bool{
	".html": true,
	".htm":  true,
}

// Source reads HTML documents with a size cap.
type Source struct {
	MaxBytes int64
}

// NewSource creates a file source with the default cap.
func NewSource() *Source {
	return &Source{MaxBytes: DefaultMaxBytes}
}

// Load reads an .html or .htm file.
func (s *Source) Load(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", export.NewError(export.KindCanceled, "load canceled", err)
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return "", export.NewError(export.KindValidation, "file path is required", nil)
	}
	if !allowedExtensions[strings.ToLower(filepath.Ext(path))] {
		return "", export.NewError(export.KindValidation, fmt.Sprintf("unsupported file type %q, expected .html or .htm", filepath.Ext(path)), nil)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", export.NewError(export.KindNotFound, fmt.Sprintf("file %q not found", path), err)
		}
		return "", export.NewError(export.KindInternal, "open file", err)
	}
	defer f.Close()

	return s.Read(f)
}

// Read reads an HTML document from r, enforcing the byte cap.
func (s *Source) Read(r io.Reader) (string, error) {
	if r == nil {
		return "", export.NewError(export.KindValidation, "reader is required", nil)
	}
	limit := DefaultMaxBytes
	if s != nil && s.MaxBytes > 0 {
		limit = s.MaxBytes
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", export.NewError(export.KindInternal, "read document", err)
	}
	if int64(len(data)) > limit {
		return "", export.NewError(export.KindValidation, fmt.Sprintf("document exceeds %d bytes", limit), nil)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", export.NewError(export.KindValidation, "document is not valid UTF-8 text", nil)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", export.NewError(export.KindValidation, "document is empty", nil)
	}
	return string(data), nil
}
