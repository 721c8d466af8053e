package renderer

import (
	"fmt"
	"log/slog"

	"gfxcore/internal/graphics"
)

// RenderTargetDesc is the shape of a pooled render target.
type RenderTargetDesc struct {
	Width, Height int
	Format        graphics.SurfaceFormat
	Depth         graphics.DepthFormat
	Mipmap        bool
	MultiSample   int
}

type pooledTarget struct {
	target   graphics.RenderTarget
	desc     RenderTargetDesc
	refs     int
	lastUsed int
	// stale entries lost their content while locked. They are never handed
	// out again and are disposed when the last lock is released.
	stale bool
}

// RenderTargetPool recycles intermediate render targets between post effect
// stages and across frames. A locked target is never handed out again until
// every lock is released.
type RenderTargetPool struct {
	device  graphics.Device
	logger  *slog.Logger
	entries []*pooledTarget
	frame   int
}

func NewRenderTargetPool(dev graphics.Device, logger *slog.Logger) *RenderTargetPool {
	if logger == nil {
		logger = slog.Default()
	}
	return &RenderTargetPool{device: dev, logger: logger}
}

// SetFrame sets the frame number recorded as last use by Get and Lock.
func (p *RenderTargetPool) SetFrame(frame int) { p.frame = frame }

// Len returns the number of pooled targets.
func (p *RenderTargetPool) Len() int { return len(p.entries) }

// Get returns an unlocked target matching desc, creating one if needed.
// The caller should Lock it for as long as its content is needed.
func (p *RenderTargetPool) Get(desc RenderTargetDesc) (graphics.RenderTarget, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("render target %dx%d: invalid size", desc.Width, desc.Height)
	}
	p.prune()
	for _, e := range p.entries {
		if e.refs == 0 && !e.stale && e.desc == desc {
			e.lastUsed = p.frame
			return e.target, nil
		}
	}

	rt, err := p.device.CreateRenderTarget(desc.Width, desc.Height, desc.Mipmap, desc.Format, desc.Depth, desc.MultiSample)
	if err != nil {
		return nil, fmt.Errorf("render target %dx%d: %w", desc.Width, desc.Height, err)
	}
	p.entries = append(p.entries, &pooledTarget{target: rt, desc: desc, lastUsed: p.frame})
	p.logger.Debug("render target allocated", "width", desc.Width, "height", desc.Height, "pooled", len(p.entries))
	return rt, nil
}

func (p *RenderTargetPool) find(rt graphics.RenderTarget) *pooledTarget {
	if rt == nil {
		return nil
	}
	for _, e := range p.entries {
		if e.target == rt {
			return e
		}
	}
	return nil
}

// Lock adds a reference to rt. Targets not owned by the pool are ignored.
func (p *RenderTargetPool) Lock(rt graphics.RenderTarget) {
	if e := p.find(rt); e != nil {
		e.refs++
		e.lastUsed = p.frame
	}
}

// Unlock drops a reference to rt. Targets not owned by the pool are ignored.
// A stale target is dropped once its last lock is released.
func (p *RenderTargetPool) Unlock(rt graphics.RenderTarget) {
	e := p.find(rt)
	if e == nil || e.refs == 0 {
		return
	}
	e.refs--
	if e.refs == 0 && e.stale {
		p.prune()
	}
}

// unlockTexture releases tex when it is a pooled render target.
func (p *RenderTargetPool) unlockTexture(tex graphics.Texture) {
	if rt, ok := tex.(graphics.RenderTarget); ok {
		p.Unlock(rt)
	}
}

func (p *RenderTargetPool) lockTexture(tex graphics.Texture) {
	if rt, ok := tex.(graphics.RenderTarget); ok {
		p.Lock(rt)
	}
}

// RefCount returns the lock count of rt, or -1 when the pool does not own it.
func (p *RenderTargetPool) RefCount(rt graphics.RenderTarget) int {
	if e := p.find(rt); e != nil {
		return e.refs
	}
	return -1
}

// prune drops unlocked targets whose content was lost or that were disposed
// elsewhere. Locked ones stay in use and are only marked stale.
func (p *RenderTargetPool) prune() {
	kept := p.entries[:0]
	for _, e := range p.entries {
		lost := e.stale || e.target.Disposed() || e.target.ContentLost()
		if lost && e.refs > 0 {
			if !e.stale {
				p.logger.Debug("locked render target lost", "width", e.desc.Width, "height", e.desc.Height, "refs", e.refs)
			}
			e.stale = true
			kept = append(kept, e)
			continue
		}
		if lost {
			if !e.target.Disposed() {
				e.target.Dispose()
			}
			p.logger.Warn("render target dropped", "width", e.desc.Width, "height", e.desc.Height)
			continue
		}
		kept = append(kept, e)
	}
	clear(p.entries[len(kept):])
	p.entries = kept
}

// Evict disposes unlocked targets not used for more than maxIdle frames
// and returns how many were released.
func (p *RenderTargetPool) Evict(frame, maxIdle int) int {
	p.frame = frame
	kept := p.entries[:0]
	evicted := 0
	for _, e := range p.entries {
		if e.refs == 0 && frame-e.lastUsed > maxIdle {
			e.target.Dispose()
			evicted++
			continue
		}
		kept = append(kept, e)
	}
	clear(p.entries[len(kept):])
	p.entries = kept
	return evicted
}

// Close disposes every pooled target.
func (p *RenderTargetPool) Close() {
	for _, e := range p.entries {
		e.target.Dispose()
	}
	clear(p.entries)
	p.entries = p.entries[:0]
}
