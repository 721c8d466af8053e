package graphics

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const textPadding = 4

// RasterizeText draws lines of text with the built-in 7x13 face onto a
// translucent background. The result is ready for Device.CreateTexture.
func RasterizeText(lines []string, fg, bg color.RGBA) *image.RGBA {
	face := basicfont.Face7x13
	metrics := face.Metrics()
	lineH := (metrics.Ascent + metrics.Descent).Ceil()

	width := 0
	for _, l := range lines {
		if w := font.MeasureString(face, l).Ceil(); w > width {
			width = w
		}
	}
	if width == 0 || len(lines) == 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}

	img := image.NewRGBA(image.Rect(0, 0, width+2*textPadding, lineH*len(lines)+2*textPadding))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	d := &font.Drawer{Dst: img, Src: image.NewUniform(fg), Face: face}
	for i, l := range lines {
		d.Dot = fixed.P(textPadding, textPadding+i*lineH+metrics.Ascent.Ceil())
		d.DrawString(l)
	}
	return img
}
