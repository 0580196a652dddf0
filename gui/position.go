// Package gui shows a small always-on-top overlay with the pipeline state.
// Everything touching fyne builds only with the gui tag.
package gui

import "strings"

const margin = 20

// Anchor is a parsed overlay_position such as "top center" or
// "bottom right".
type Anchor struct {
	Vertical   string // top, center, bottom
	Horizontal string // left, center, right
}

// ParseAnchor accepts either word order and defaults missing or unknown
// parts to top and center.
func ParseAnchor(s string) Anchor {
	a := Anchor{Vertical: "top", Horizontal: "center"}
	vertical, centered := false, false
	for _, f := range strings.Fields(strings.ToLower(s)) {
		switch f {
		case "top", "bottom":
			a.Vertical = f
			vertical = true
		case "left", "right":
			a.Horizontal = f
		case "center", "middle":
			centered = true
		}
	}
	if centered && !vertical {
		a.Vertical = "center"
	}
	return a
}

// Place returns the window origin for a w×h window inside the work area.
func (a Anchor) Place(areaX, areaY, areaW, areaH, w, h int) (x, y int) {
	switch a.Horizontal {
	case "left":
		x = areaX + margin
	case "right":
		x = areaX + areaW - w - margin
	default:
		x = areaX + (areaW-w)/2
	}
	switch a.Vertical {
	case "bottom":
		y = areaY + areaH - h - margin
	case "center":
		y = areaY + (areaH-h)/2
	default:
		y = areaY + margin
	}
	return x, y
}
