package exportpdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/goliatone/go-pdflow/export"
)

// DefaultCreator is written into the PDF document information dictionary.
const DefaultCreator = "go-pdflow"

// Writer implements export.DocumentWriter on fpdf. Pages have zero margins and
// no automatic page breaks, so every placement lands exactly where the
// exporter put it. Page geometry is always passed as width by height with a
// portrait flag; fpdf would otherwise swap landscape dimensions a second time.
type Writer struct {
	Creator string
	// Clip wraps each placement in a page-sized clipping path.
	Clip     bool
	Compress bool
	Now      func() time.Time
}

var _ export.DocumentWriter = (*Writer)(nil)

// NewWriter creates a writer with compression enabled.
func NewWriter() *Writer {
	return &Writer{
		Creator:  DefaultCreator,
		Compress: true,
		Now:      time.Now,
	}
}

// ClipsToPage implements export.DocumentWriter.
func (w *Writer) ClipsToPage() bool {
	return w != nil && w.Clip
}

// Write implements export.DocumentWriter.
func (w *Writer) Write(ctx context.Context, out io.Writer, doc export.PageDocument) error {
	if w == nil {
		return export.NewError(export.KindInternal, "pdf writer is nil", nil)
	}
	if out == nil {
		return export.NewError(export.KindValidation, "output writer is required", nil)
	}
	if doc.Size.WidthMM <= 0 || doc.Size.HeightMM <= 0 {
		return export.NewError(export.KindValidation, "page size must be positive", nil)
	}
	if len(doc.Pages) == 0 {
		return export.NewError(export.KindValidation, "document has no pages", nil)
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: doc.Size.WidthMM, Ht: doc.Size.HeightMM},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(w.Compress)

	creator := w.Creator
	if creator == "" {
		creator = DefaultCreator
	}
	pdf.SetCreator(creator, true)
	pdf.SetProducer(creator, true)
	if doc.Title != "" {
		pdf.SetTitle(doc.Title, true)
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	stamp := now()
	pdf.SetCreationDate(stamp)
	pdf.SetModificationDate(stamp)

	registered := map[*export.EncodedImage]string{}
	for i, page := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		pdf.AddPage()
		for _, placement := range page.Placements {
			name, err := w.register(pdf, registered, placement.Image)
			if err != nil {
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			if w.Clip {
				pdf.ClipRect(0, 0, doc.Size.WidthMM, doc.Size.HeightMM, false)
			}
			pdf.ImageOptions(name, placement.X, placement.Y, placement.WidthMM, placement.HeightMM, false, imageOptions(placement.Image), 0, "")
			if w.Clip {
				pdf.ClipEnd()
			}
		}
		if pdf.Err() {
			return export.NewError(export.KindWrite, fmt.Sprintf("render page %d", i+1), pdf.Error())
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return export.NewError(export.KindWrite, "serialize pdf", err)
	}
	if _, err := out.Write(buf.Bytes()); err != nil {
		return export.NewError(export.KindWrite, "write pdf", err)
	}
	return nil
}

// register embeds img once per document and returns its resource name.
func (w *Writer) register(pdf *fpdf.Fpdf, registered map[*export.EncodedImage]string, img *export.EncodedImage) (string, error) {
	if img == nil || len(img.Data) == 0 {
		return "", export.NewError(export.KindEncoding, "placement has no image data", nil)
	}
	if name, ok := registered[img]; ok {
		return name, nil
	}
	name := img.Name
	if name == "" {
		name = "image"
	}
	name = fmt.Sprintf("%s-%d", name, len(registered)+1)

	pdf.RegisterImageOptionsReader(name, imageOptions(img), bytes.NewReader(img.Data))
	if pdf.Err() {
		return "", export.NewError(export.KindEncoding, fmt.Sprintf("embed image %q", img.Name), pdf.Error())
	}
	registered[img] = name
	return name, nil
}

func imageOptions(img *export.EncodedImage) fpdf.ImageOptions {
	imageType := "JPG"
	if img != nil && img.Type != "" {
		imageType = img.Type
	}
	return fpdf.ImageOptions{
		ImageType:             imageType,
		AllowNegativePosition: true,
	}
}
