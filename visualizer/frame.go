package visualizer

import (
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Color is a palette entry: an xterm-256 code for the terminal and RGB
// for the desktop window.
type Color struct {
	ANSI    string
	R, G, B uint8
}

// Frame is a palette-indexed pixel grid. Index 0 is transparent.
type Frame struct {
	W, H    int
	Pix     []uint8
	Palette []Color
}

func NewFrame(w, h int, palette []Color) *Frame {
	return &Frame{W: w, H: h, Pix: make([]uint8, w*h), Palette: palette}
}

func (f *Frame) Set(x, y int, c uint8) {
	if x < 0 || y < 0 || x >= f.W || y >= f.H {
		return
	}
	f.Pix[y*f.W+x] = c
}

func (f *Frame) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= f.W || y >= f.H {
		return 0
	}
	return f.Pix[y*f.W+x]
}

func (f *Frame) Clear() { clear(f.Pix) }

// Lit counts non-transparent pixels.
func (f *Frame) Lit() int {
	n := 0
	for _, p := range f.Pix {
		if p != 0 {
			n++
		}
	}
	return n
}

type stylePair struct{ fg, bg string }

var styleCache sync.Map // stylePair -> lipgloss.Style

func cachedStyle(fg, bg string) lipgloss.Style {
	key := stylePair{fg, bg}
	if s, ok := styleCache.Load(key); ok {
		return s.(lipgloss.Style)
	}
	s := lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
	if bg != "" {
		s = s.Background(lipgloss.Color(bg))
	}
	styleCache.Store(key, s)
	return s
}

func (f *Frame) color(idx uint8) string {
	if idx == 0 || int(idx) >= len(f.Palette) {
		return ""
	}
	return f.Palette[idx].ANSI
}

// ANSI renders two pixel rows per text line with half blocks.
func (f *Frame) ANSI() string {
	var b strings.Builder
	for cy := 0; cy < (f.H+1)/2; cy++ {
		for x := 0; x < f.W; x++ {
			top := f.color(f.At(x, cy*2))
			bot := f.color(f.At(x, cy*2+1))
			switch {
			case top == "" && bot == "":
				b.WriteString(" ")
			case top == bot:
				b.WriteString(cachedStyle(top, "").Render("█"))
			case bot == "":
				b.WriteString(cachedStyle(top, "").Render("▀"))
			case top == "":
				b.WriteString(cachedStyle(bot, "").Render("▄"))
			default:
				b.WriteString(cachedStyle(top, bot).Render("▀"))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
