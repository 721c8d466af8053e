package renderer

import (
	"fmt"
	"image/color"
	"strings"

	"gfxcore/internal/config"
	"gfxcore/internal/graphics"
	"gfxcore/internal/graphics/primitives"
	"gfxcore/internal/profiling"
)

const (
	statsMargin   = 8
	maxCachedText = 32
)

var (
	white    = color.RGBA{255, 255, 255, 255}
	textBack = color.RGBA{0, 0, 0, 140}
)

type sprite struct {
	texture    graphics.Texture
	x, y, w, h float32
	color      color.RGBA
}

type textSprite struct {
	lines []string
	x, y  float32
}

type cachedText struct {
	texture  graphics.Texture
	lastUsed int
}

// SpritePass draws queued screen space quads in pixel coordinates after
// everything else. The queue is emptied every frame.
type SpritePass struct {
	PassBase

	// ShowStats adds the frame statistics overlay in the top left corner.
	ShowStats bool

	material *graphics.ScreenMaterial
	batch    *primitives.DynamicPrimitive
	sprites  []sprite
	texts    []textSprite
	cache    map[string]*cachedText
	frame    int
}

func NewSpritePass() *SpritePass {
	m := graphics.NewScreenMaterial()
	m.Pixels = true
	b := primitives.NewDynamicPrimitive()
	b.DepthBias = 0
	return &SpritePass{
		PassBase: PassBase{Name: "sprites"},
		material: m,
		batch:    b,
		cache:    make(map[string]*cachedText),
	}
}

func (p *SpritePass) configure(s config.PrimitiveSettings) {
	p.batch.InitialBufferCapacity = s.InitialBufferCapacity
	p.batch.MaxBufferSizePerPrimitive = s.MaxBufferSizePerPrimitive
}

// DrawTexture queues tex stretched over the rectangle at (x, y).
func (p *SpritePass) DrawTexture(tex graphics.Texture, x, y, w, h float32, c color.RGBA) {
	p.sprites = append(p.sprites, sprite{texture: tex, x: x, y: y, w: w, h: h, color: c})
}

// DrawText queues lines of text with their top left corner at (x, y).
func (p *SpritePass) DrawText(lines []string, x, y float32) {
	if len(lines) == 0 {
		return
	}
	p.texts = append(p.texts, textSprite{lines: lines, x: x, y: y})
}

// Queued returns the number of sprites and texts waiting for the next frame.
func (p *SpritePass) Queued() int { return len(p.sprites) + len(p.texts) }

func (p *SpritePass) Draw(ctx *DrawingContext, _ []graphics.Drawable) error {
	p.frame = ctx.CurrentFrame()
	if p.ShowStats {
		p.DrawText(ctx.StatsLines(), statsMargin, statsMargin)
	}
	defer p.reset()
	if p.Queued() == 0 {
		return nil
	}

	for _, t := range p.texts {
		tex, err := p.textTexture(ctx.Device(), t.lines)
		if err != nil {
			return err
		}
		p.sprites = append(p.sprites, sprite{
			texture: tex, x: t.x, y: t.y,
			w: float32(tex.Width()), h: float32(tex.Height()),
			color: white,
		})
	}

	p.batch.Clear()
	for _, s := range p.sprites {
		if err := p.batch.AddQuad(s.x, s.y, s.w, s.h, s.texture, s.color); err != nil {
			return fmt.Errorf("sprite: %w", err)
		}
	}
	p.evictText()

	ctx.useMaterial(p.material)
	return p.batch.Draw(ctx, p.material)
}

func (p *SpritePass) reset() {
	clear(p.sprites)
	clear(p.texts)
	p.sprites, p.texts = p.sprites[:0], p.texts[:0]
}

func (p *SpritePass) textTexture(dev graphics.Device, lines []string) (graphics.Texture, error) {
	key := strings.Join(lines, "\n")
	if e, ok := p.cache[key]; ok {
		e.lastUsed = p.frame
		return e.texture, nil
	}
	tex, err := dev.CreateTexture(graphics.RasterizeText(lines, white, textBack))
	if err != nil {
		return nil, fmt.Errorf("text texture: %w", err)
	}
	p.cache[key] = &cachedText{texture: tex, lastUsed: p.frame}
	return tex, nil
}

// evictText drops cached text not drawn this frame once the cache is full.
func (p *SpritePass) evictText() {
	if len(p.cache) <= maxCachedText {
		return
	}
	for key, e := range p.cache {
		if e.lastUsed != p.frame {
			disposeTexture(e.texture)
			delete(p.cache, key)
		}
	}
}

// Dispose releases the batch buffers and cached text textures.
func (p *SpritePass) Dispose() {
	p.batch.Dispose()
	for _, e := range p.cache {
		disposeTexture(e.texture)
	}
	clear(p.cache)
}

func disposeTexture(tex graphics.Texture) {
	if d, ok := tex.(interface{ Dispose() }); ok {
		d.Dispose()
	}
}

// StatsLines formats the statistics of the frame being drawn, followed by
// the slowest profiled sections.
func (c *DrawingContext) StatsLines() []string {
	s := c.stats
	lines := []string{
		fmt.Sprintf("frame %d  %.1fms", s.Frame, float64(s.Elapsed.Microseconds())/1000),
		fmt.Sprintf("drawables %d  passes %d  targets %d", s.DrawablesInView, s.Passes, c.pool.Len()),
	}
	return append(lines, profiling.Summary(5)...)
}
