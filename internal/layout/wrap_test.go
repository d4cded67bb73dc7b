package layout

import (
	"reflect"
	"testing"
	"unicode/utf8"
)

func runeWidth(s string) float64 { return float64(utf8.RuneCountInString(s)) }

func TestWrap(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width float64
		want  []string
	}{
		{"fits", "hello world", 11, []string{"hello world"}},
		{"greedy", "aa bb cc dd", 5, []string{"aa bb", "cc dd"}},
		{"collapses whitespace", "  aa\t\tbb  ", 10, []string{"aa bb"}},
		{"hard split", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"hard split then join", "abcdefg hi", 4, []string{"abcd", "efg", "hi"}},
		{"split tail joins next word", "abcde f", 4, []string{"abcd", "e f"}},
		{"multibyte", "ééééé", 2, []string{"éé", "éé", "é"}},
		{"empty", "   ", 10, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(runeWidth, tt.in, tt.width)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestWrap_NoLineExceedsWidth(t *testing.T) {
	in := "The quick brown fox jumps over the lazy dog supercalifragilisticexpialidocious end"
	for width := 3.0; width < 30; width++ {
		for _, line := range Wrap(runeWidth, in, width) {
			if runeWidth(line) > width {
				t.Errorf("width %.0f: line %q is %.0f wide", width, line, runeWidth(line))
			}
		}
	}
}
