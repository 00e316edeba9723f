//go:build gui

package gui

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	"fyne.io/fyne/v2"
)

// appIcon draws the tray and window icon: concentric blue rings around a
// bright core, the pulse visualizer at rest.
func appIcon() fyne.Resource {
	const size = 22
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	center := float64(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx := float64(x) - center + 0.5
			dy := float64(y) - center + 0.5
			dist := math.Sqrt(dx*dx + dy*dy)

			switch {
			case dist < 4:
				img.Set(x, y, color.RGBA{225, 245, 255, 255})
			case dist < 7:
				t := (dist - 4) / 3
				img.Set(x, y, color.RGBA{uint8(80 - t*40), uint8(180 - t*60), 255, 255})
			case dist < 9:
				img.Set(x, y, color.RGBA{20, 60, 120, 255})
			case dist < 10:
				img.Set(x, y, color.RGBA{10, 30, 60, 255})
			}
		}
	}

	var buf bytes.Buffer
	png.Encode(&buf, img)
	return fyne.NewStaticResource("voxverify.png", buf.Bytes())
}
