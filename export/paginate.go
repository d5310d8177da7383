package export

import (
	"fmt"
	"math"
)

// sliceToleranceMM absorbs floating point noise when content ends exactly on a
// page boundary, so it does not produce a trailing blank page.
const sliceToleranceMM = 1e-6

// PageSlice maps one page to a band of the capture bitmap.
type PageSlice struct {
	Index int
	// OffsetMM is the vertical position of the full bitmap on this page when it
	// is re-placed rather than cropped. It is zero or negative.
	OffsetMM float64
	// TopPx and BottomPx bound the bitmap rows shown on this page, [TopPx, BottomPx).
	TopPx    int
	BottomPx int
	// HeightMM is the height of the cropped band on the page.
	HeightMM float64
}

// PagePlan is the page geometry derived from a capture bitmap.
type PagePlan struct {
	Page           PageSize
	BitmapWidthPx  int
	BitmapHeightPx int
	ImageHeightMM  float64
	Slices         []PageSlice
}

// BitmapHeightMM scales a bitmap height into page units, preserving the aspect
// ratio against the page width.
func BitmapHeightMM(bitmapWidthPx, bitmapHeightPx int, pageWidthMM float64) float64 {
	if bitmapWidthPx <= 0 {
		return 0
	}
	return float64(bitmapHeightPx) * pageWidthMM / float64(bitmapWidthPx)
}

// PlanPages slices a bitmap into page-height bands. The first page shows the
// bitmap at offset zero; each following page shifts it up by one page height
// until the whole height is covered. The result always has at least one page.
func PlanPages(page PageSize, bitmapWidthPx, bitmapHeightPx int) (PagePlan, error) {
	if bitmapWidthPx <= 0 || bitmapHeightPx < 0 {
		return PagePlan{}, NewError(KindCapture, fmt.Sprintf("invalid bitmap size %dx%d", bitmapWidthPx, bitmapHeightPx), nil)
	}
	if page.WidthMM <= 0 || page.HeightMM <= 0 {
		return PagePlan{}, NewError(KindValidation, "page size must be positive", nil)
	}

	plan := PagePlan{
		Page:           page,
		BitmapWidthPx:  bitmapWidthPx,
		BitmapHeightPx: bitmapHeightPx,
		ImageHeightMM:  BitmapHeightMM(bitmapWidthPx, bitmapHeightPx, page.WidthMM),
	}
	pxPerMM := float64(bitmapWidthPx) / page.WidthMM

	index := 0
	for {
		top := bandEdge(index, page.HeightMM, pxPerMM, bitmapHeightPx)
		bottom := bandEdge(index+1, page.HeightMM, pxPerMM, bitmapHeightPx)
		plan.Slices = append(plan.Slices, PageSlice{
			Index:    index,
			OffsetMM: -float64(index) * page.HeightMM,
			TopPx:    top,
			BottomPx: bottom,
			HeightMM: float64(bottom-top) / pxPerMM,
		})
		index++

		remaining := plan.ImageHeightMM - float64(index)*page.HeightMM
		if remaining <= sliceToleranceMM {
			break
		}
	}
	return plan, nil
}

// bandEdge returns the bitmap row at the top of page index. Adjacent pages share
// an edge, so rows are never duplicated or skipped.
func bandEdge(index int, pageHeightMM, pxPerMM float64, limit int) int {
	edge := int(math.Round(float64(index) * pageHeightMM * pxPerMM))
	if edge > limit {
		return limit
	}
	return edge
}
