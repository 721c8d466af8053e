package lights

import (
	"cmp"
	"errors"
	"fmt"
	"iter"
	"slices"
)

var (
	ErrIndexOutOfRange = errors.New("lights: index out of range")
	ErrNilLight        = errors.New("lights: nil light")
	ErrNotDirectional  = errors.New("lights: light is not directional")
	ErrNotLocal        = errors.New("lights: light is not a point or spot light")
)

// defaultLight is returned for reads past the end of a collection.
var defaultLight = &Light{
	Kind:      Directional,
	Direction: worldUp.Mul(-1),
}

// DefaultLight returns the shared disabled light. Treat it as read only.
func DefaultLight() *Light { return defaultLight }

// DirectionalLightCollection keeps directional lights sorted by Order.
// Every mutation re-sorts and bumps Version, so indices are not stable
// across mutations.
type DirectionalLightCollection struct {
	lights  []*Light
	version int
}

func NewDirectionalLightCollection() *DirectionalLightCollection {
	return &DirectionalLightCollection{lights: make([]*Light, 0, 4)}
}

func (c *DirectionalLightCollection) Len() int { return len(c.lights) }

// Version increases with every mutation.
func (c *DirectionalLightCollection) Version() int { return c.version }

// At returns the light at i, or the shared disabled default light when i is past the end.
func (c *DirectionalLightCollection) At(i int) *Light {
	if i < 0 || i >= len(c.lights) {
		return defaultLight
	}
	return c.lights[i]
}

// All yields the lights in order.
func (c *DirectionalLightCollection) All() iter.Seq2[int, *Light] {
	return func(yield func(int, *Light) bool) {
		for i, l := range c.lights {
			if !yield(i, l) {
				return
			}
		}
	}
}

func (c *DirectionalLightCollection) Add(l *Light) error {
	return c.Insert(len(c.lights), l)
}

func (c *DirectionalLightCollection) Insert(i int, l *Light) error {
	if err := checkLight(l); err != nil {
		return err
	}
	if i < 0 || i > len(c.lights) {
		return fmt.Errorf("insert at %d of %d: %w", i, len(c.lights), ErrIndexOutOfRange)
	}
	c.grow()
	c.lights = slices.Insert(c.lights, i, l)
	c.changed()
	return nil
}

func (c *DirectionalLightCollection) RemoveAt(i int) error {
	if i < 0 || i >= len(c.lights) {
		return fmt.Errorf("remove at %d of %d: %w", i, len(c.lights), ErrIndexOutOfRange)
	}
	c.lights = slices.Delete(c.lights, i, i+1)
	c.changed()
	return nil
}

// Remove deletes l and reports whether it was present.
func (c *DirectionalLightCollection) Remove(l *Light) bool {
	i := slices.Index(c.lights, l)
	if i < 0 {
		return false
	}
	return c.RemoveAt(i) == nil
}

// Set replaces the light at i.
func (c *DirectionalLightCollection) Set(i int, l *Light) error {
	if err := checkLight(l); err != nil {
		return err
	}
	if i < 0 || i >= len(c.lights) {
		return fmt.Errorf("set at %d of %d: %w", i, len(c.lights), ErrIndexOutOfRange)
	}
	c.lights[i] = l
	c.changed()
	return nil
}

func (c *DirectionalLightCollection) Clear() {
	clear(c.lights)
	c.lights = c.lights[:0]
	c.changed()
}

// Sort re-sorts after a light's Order was changed in place.
func (c *DirectionalLightCollection) Sort() { c.changed() }

func (c *DirectionalLightCollection) grow() {
	if len(c.lights) < cap(c.lights) {
		return
	}
	grown := make([]*Light, len(c.lights), max(4, cap(c.lights)*2))
	copy(grown, c.lights)
	c.lights = grown
}

func (c *DirectionalLightCollection) changed() {
	slices.SortStableFunc(c.lights, func(a, b *Light) int { return cmp.Compare(a.Order, b.Order) })
	c.version++
}

func checkLight(l *Light) error {
	if l == nil {
		return ErrNilLight
	}
	if l.Kind != Directional {
		return fmt.Errorf("%s light: %w", l.Kind, ErrNotDirectional)
	}
	return nil
}
