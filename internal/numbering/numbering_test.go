package numbering

import (
	"testing"

	"github.com/dgallion1/binder/internal/inventory"
)

func entries(counts ...int) []inventory.SourceEntry {
	out := make([]inventory.SourceEntry, len(counts))
	for i, n := range counts {
		out[i] = inventory.SourceEntry{Title: string(rune('A' + i)), PageCount: n}
	}
	return out
}

func TestBodyRanges_Scenario(t *testing.T) {
	ranges, err := BodyRanges(entries(2, 1, 3))
	if err != nil {
		t.Fatal(err)
	}
	want := [][2]int{{1, 2}, {3, 3}, {4, 6}}
	for i, w := range want {
		if ranges[i].StartBody != w[0] || ranges[i].EndBody != w[1] {
			t.Errorf("range %d: expected (%d,%d), got (%d,%d)", i, w[0], w[1], ranges[i].StartBody, ranges[i].EndBody)
		}
	}

	maps, err := Absolute(ranges, 1)
	if err != nil {
		t.Fatal(err)
	}
	wantAbs := [][2]int{{2, 3}, {4, 4}, {5, 7}}
	for i, w := range wantAbs {
		if maps[i].StartAbs != w[0] || maps[i].EndAbs != w[1] {
			t.Errorf("map %d: expected abs (%d,%d), got (%d,%d)", i, w[0], w[1], maps[i].StartAbs, maps[i].EndAbs)
		}
		if maps[i].Title != ranges[i].Title {
			t.Errorf("map %d: expected title %q, got %q", i, ranges[i].Title, maps[i].Title)
		}
	}
}

func TestBodyRanges_Contiguous(t *testing.T) {
	counts := []int{5, 1, 1, 12, 3, 40, 2}
	ranges, err := BodyRanges(entries(counts...))
	if err != nil {
		t.Fatal(err)
	}
	if ranges[0].StartBody != 1 {
		t.Errorf("expected first range to start at 1, got %d", ranges[0].StartBody)
	}
	sum := 0
	for i, r := range ranges {
		sum += counts[i]
		if r.Pages() != counts[i] {
			t.Errorf("range %d: expected %d pages, got %d", i, counts[i], r.Pages())
		}
		if i > 0 && r.StartBody != ranges[i-1].EndBody+1 {
			t.Errorf("range %d: expected start %d, got %d", i, ranges[i-1].EndBody+1, r.StartBody)
		}
	}
	if TotalBodyPages(ranges) != sum {
		t.Errorf("expected %d total pages, got %d", sum, TotalBodyPages(ranges))
	}
}

func TestAbsolute_PreservesLength(t *testing.T) {
	ranges, err := BodyRanges(entries(3, 7, 1))
	if err != nil {
		t.Fatal(err)
	}
	for _, idx := range []int{1, 2, 9} {
		maps, err := Absolute(ranges, idx)
		if err != nil {
			t.Fatal(err)
		}
		for i, m := range maps {
			if m.EndAbs-m.StartAbs != ranges[i].EndBody-ranges[i].StartBody {
				t.Errorf("index %d map %d: length changed", idx, i)
			}
			if m.StartAbs != idx+ranges[i].StartBody {
				t.Errorf("index %d map %d: expected start %d, got %d", idx, i, idx+ranges[i].StartBody, m.StartAbs)
			}
		}
	}
}

func TestBodyRanges_RejectsEmptySource(t *testing.T) {
	if _, err := BodyRanges(entries(2, 0)); err == nil {
		t.Error("expected error for zero page count")
	}
}

func TestAbsolute_RejectsMissingIndex(t *testing.T) {
	if _, err := Absolute(nil, 0); err == nil {
		t.Error("expected error for zero index pages")
	}
}

func TestBodyRanges_Empty(t *testing.T) {
	ranges, err := BodyRanges(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(ranges) != 0 {
		t.Errorf("expected no ranges, got %d", len(ranges))
	}
}
