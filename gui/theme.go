//go:build gui

package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// Palette shared with the sphere: cyan accent for Validate, red while
// recording.
var (
	colorBackground = color.NRGBA{R: 10, G: 14, B: 22, A: 255}
	colorForeground = color.NRGBA{R: 214, G: 226, B: 240, A: 255}
	colorAccent     = color.NRGBA{R: 0, G: 188, B: 212, A: 255}
	colorRecording  = color.NRGBA{R: 229, G: 57, B: 53, A: 255}
)

type verifyTheme struct{}

func (verifyTheme) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameBackground:
		return colorBackground
	case theme.ColorNameForeground:
		return colorForeground
	case theme.ColorNamePrimary, theme.ColorNameFocus:
		return colorAccent
	case theme.ColorNameError:
		return colorRecording
	}
	return theme.DefaultTheme().Color(name, theme.VariantDark)
}

func (verifyTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (verifyTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (verifyTheme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNameText {
		return theme.DefaultTheme().Size(name) + 1
	}
	return theme.DefaultTheme().Size(name)
}
