//go:build gui

package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// overlayTheme is a dark, compact theme for the status pill.
type overlayTheme struct{}

func (overlayTheme) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameBackground:
		return color.RGBA{24, 24, 24, 230}
	case theme.ColorNameForeground:
		return color.RGBA{235, 235, 235, 255}
	}
	return theme.DefaultTheme().Color(name, theme.VariantDark)
}

func (overlayTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (overlayTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (overlayTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNamePadding:
		return 6
	case theme.SizeNameText:
		return 15
	}
	return theme.DefaultTheme().Size(name)
}
