package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		// empty -> default
		{"", 10, 10},
		// valid ints
		{"42", 0, 42},
		{"-13", 1, -13},
		{"0012", 99, 12},
		// invalid -> default (no trim)
		{"x", 5, 5},
		{" 42", 7, 7},
		// overflow -> default
		{"999999999999999999999999", -1, -1},
	}

	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}

func TestNewPage_Clamps(t *testing.T) {
	cases := []struct {
		number, size int
		want         Page
	}{
		{0, 0, Page{1, DefaultPageSize}},
		{-3, 5, Page{1, 5}},
		{2, 500, Page{2, MaxPageSize}},
		{4, 10, Page{4, 10}},
	}
	for _, tc := range cases {
		if got := NewPage(tc.number, tc.size); got != tc.want {
			t.Fatalf("NewPage(%d, %d) = %+v; want %+v", tc.number, tc.size, got, tc.want)
		}
	}
}

func TestPage_OffsetAndTotals(t *testing.T) {
	p := NewPage(3, 10)
	if p.Offset() != 20 {
		t.Fatalf("Offset = %d", p.Offset())
	}
	if got := p.TotalPages(41); got != 5 {
		t.Fatalf("TotalPages(41) = %d", got)
	}
	if !p.HasNext(41) || p.HasNext(30) {
		t.Fatalf("HasNext wrong")
	}
	if (Page{}).TotalPages(10) != 0 {
		t.Fatalf("zero page size must yield 0 pages")
	}
}
