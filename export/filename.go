package export

import (
	"bytes"
	"path"
	"strings"
	"text/template"
	"time"
)

// DefaultFileName is used when a request carries no file name.
const DefaultFileName = "pdflow-export.pdf"

type filenameData struct {
	Paper       string
	Orientation string
	Timestamp   string
	Date        string
}

// RenderFileName expands a file name pattern such as
// "report_{{.Paper}}_{{.Date}}" and forces a .pdf extension.
func RenderFileName(pattern string, format PageFormatConfig, now time.Time) (string, error) {
	if strings.TrimSpace(pattern) == "" {
		return DefaultFileName, nil
	}

	format = NormalizeFormat(format)
	data := filenameData{
		Paper:       string(format.PaperSize),
		Orientation: string(format.Orientation),
		Timestamp:   now.UTC().Format("20060102T150405Z"),
		Date:        now.UTC().Format("20060102"),
	}

	tmpl, err := template.New("filename").Option("missingkey=error").Parse(pattern)
	if err != nil {
		return "", NewError(KindValidation, "invalid file name pattern", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", NewError(KindValidation, "invalid file name pattern", err)
	}

	result := strings.TrimSpace(buf.String())
	if result == "" {
		return "", NewError(KindValidation, "empty file name", nil)
	}
	return EnsurePDFExtension(result), nil
}

// EnsurePDFExtension strips directory components and appends .pdf when missing.
func EnsurePDFExtension(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	name = path.Base(name)
	if name == "" || name == "." || name == "/" || name == ".." {
		return DefaultFileName
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name
}
