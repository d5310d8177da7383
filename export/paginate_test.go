package export

import (
	"math"
	"testing"
)

var a4Portrait = PageSize{WidthMM: 210, HeightMM: 297}

func TestPlanPages_PageCounts(t *testing.T) {
	tests := []struct {
		name   string
		height int
		pages  int
	}{
		{name: "empty document", height: 0, pages: 1},
		{name: "shorter than a page", height: 1000, pages: 1},
		{name: "exactly one page", height: 2970, pages: 1},
		{name: "exactly two pages", height: 5940, pages: 2},
		{name: "exactly five pages", height: 14850, pages: 5},
		{name: "one row past two pages", height: 5941, pages: 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := PlanPages(a4Portrait, 2100, tc.height)
			if err != nil {
				t.Fatalf("plan pages: %v", err)
			}
			if len(plan.Slices) != tc.pages {
				t.Fatalf("expected %d pages, got %d", tc.pages, len(plan.Slices))
			}
		})
	}
}

func TestPlanPages_ExactMultipleOfNonIntegralPageHeight(t *testing.T) {
	// Letter at 1600px wide: the page height is not a whole number of pixels.
	letter := PageSize{WidthMM: 215.9, HeightMM: 279.4}
	for n := 1; n <= 6; n++ {
		heightMM := float64(n) * letter.HeightMM
		heightPx := int(math.Floor(heightMM * 1600 / letter.WidthMM))
		plan, err := PlanPages(letter, 1600, heightPx)
		if err != nil {
			t.Fatalf("plan pages: %v", err)
		}
		if len(plan.Slices) != n {
			t.Fatalf("n=%d: expected %d pages, got %d", n, n, len(plan.Slices))
		}
	}
}

func TestPlanPages_OffsetsAndImageHeight(t *testing.T) {
	plan, err := PlanPages(a4Portrait, 1588, 6000)
	if err != nil {
		t.Fatalf("plan pages: %v", err)
	}

	wantHeight := 6000 * 210.0 / 1588
	if math.Abs(plan.ImageHeightMM-wantHeight) > 1e-9 {
		t.Fatalf("expected image height %f, got %f", wantHeight, plan.ImageHeightMM)
	}
	for i, slice := range plan.Slices {
		if slice.Index != i {
			t.Fatalf("slice %d has index %d", i, slice.Index)
		}
		if want := -float64(i) * 297; slice.OffsetMM != want {
			t.Fatalf("slice %d: expected offset %f, got %f", i, want, slice.OffsetMM)
		}
	}
	if total := float64(len(plan.Slices)) * 297; total < plan.ImageHeightMM {
		t.Fatalf("pages cover %fmm, less than image height %fmm", total, plan.ImageHeightMM)
	}
}

func TestPlanPages_BandsTileBitmap(t *testing.T) {
	plan, err := PlanPages(a4Portrait, 1588, 9001)
	if err != nil {
		t.Fatalf("plan pages: %v", err)
	}

	next := 0
	for _, slice := range plan.Slices {
		if slice.TopPx != next {
			t.Fatalf("slice %d starts at row %d, expected %d", slice.Index, slice.TopPx, next)
		}
		if slice.BottomPx < slice.TopPx {
			t.Fatalf("slice %d has negative height", slice.Index)
		}
		if slice.HeightMM > 297+210.0/1588 {
			t.Fatalf("slice %d band %fmm is more than a row taller than the page", slice.Index, slice.HeightMM)
		}
		next = slice.BottomPx
	}
	if next != 9001 {
		t.Fatalf("bands end at row %d, expected 9001", next)
	}
}

func TestPlanPages_RejectsInvalidInput(t *testing.T) {
	if _, err := PlanPages(a4Portrait, 0, 10); KindFromError(err) != KindCapture {
		t.Fatalf("expected capture error for zero-width bitmap, got %v", err)
	}
	if _, err := PlanPages(PageSize{}, 10, 10); KindFromError(err) != KindValidation {
		t.Fatalf("expected validation error for empty page, got %v", err)
	}
}
