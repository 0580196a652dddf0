package gui

import "testing"

func TestParseAnchor(t *testing.T) {
	tests := []struct {
		in   string
		want Anchor
	}{
		{"", Anchor{"top", "center"}},
		{"top center", Anchor{"top", "center"}},
		{"Bottom Right", Anchor{"bottom", "right"}},
		{"left bottom", Anchor{"bottom", "left"}},
		{"center", Anchor{"center", "center"}},
		{"top left", Anchor{"top", "left"}},
		{"left center", Anchor{"center", "left"}},
		{"sideways", Anchor{"top", "center"}},
	}
	for _, tt := range tests {
		if got := ParseAnchor(tt.in); got != tt.want {
			t.Errorf("ParseAnchor(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestPlace(t *testing.T) {
	tests := []struct {
		pos  string
		x, y int
	}{
		{"top center", 860, 20},
		{"bottom center", 860, 1000},
		{"top left", 20, 20},
		{"bottom right", 1700, 1000},
		{"center", 860, 510},
	}
	for _, tt := range tests {
		x, y := ParseAnchor(tt.pos).Place(0, 0, 1920, 1080, 200, 60)
		if x != tt.x || y != tt.y {
			t.Errorf("%s: got (%d,%d), want (%d,%d)", tt.pos, x, y, tt.x, tt.y)
		}
	}

	x, y := ParseAnchor("top left").Place(1920, 30, 1280, 1024, 200, 60)
	if x != 1940 || y != 50 {
		t.Errorf("offset work area: got (%d,%d)", x, y)
	}
}
