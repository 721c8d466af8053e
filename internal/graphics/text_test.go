package graphics

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRasterizeText(t *testing.T) {
	fg := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	bg := color.RGBA{A: 128}

	one := RasterizeText([]string{"frame 1"}, fg, bg)
	two := RasterizeText([]string{"frame 1", "a longer second line"}, fg, bg)
	assert.Greater(t, two.Bounds().Dy(), one.Bounds().Dy())
	assert.Greater(t, two.Bounds().Dx(), one.Bounds().Dx())
	assert.Equal(t, bg, one.RGBAAt(0, 0), "padding keeps the background")

	empty := RasterizeText(nil, fg, bg)
	assert.Equal(t, 1, empty.Bounds().Dx())
}
