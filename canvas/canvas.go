// Package canvas provides the rendering surfaces animations are drawn into.
// A Canvas is laid out in logical pixels on the host window and owns a
// device-pixel backing store.
package canvas

import (
	"fmt"
	"sync"

	"github.com/gogpu/gg"
)

// Canvas is a rectangle on the host page with its own drawing buffer.
type Canvas struct {
	mu sync.Mutex

	id       string
	x, y     float64
	w, h     float64
	dpr      float64
	attached bool

	dc *gg.Context
}

// New creates an attached canvas with a display rectangle in logical pixels.
// The backing store starts at 1x1 until the first Resize.
func New(id string, x, y, w, h float64) *Canvas {
	return &Canvas{
		id:       id,
		x:        x,
		y:        y,
		w:        w,
		h:        h,
		dpr:      1,
		attached: true,
		dc:       gg.NewContext(1, 1),
	}
}

// ID is the element id the canvas was registered under.
func (c *Canvas) ID() string {
	if c == nil {
		return ""
	}
	return c.id
}

// Attached reports whether the canvas is still part of the page.
func (c *Canvas) Attached() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attached
}

// Detach removes the canvas from the page. Its backing store is released.
func (c *Canvas) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attached = false
	if c.dc != nil {
		_ = c.dc.Close()
		c.dc = nil
	}
}

// SetRect moves and resizes the canvas on the page. It does not touch the
// backing store; call the owning instance's resize for that.
func (c *Canvas) SetRect(x, y, w, h float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.x, c.y, c.w, c.h = x, y, w, h
}

// Rect returns the display rectangle.
func (c *Canvas) Rect() (x, y, w, h float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.x, c.y, c.w, c.h
}

// SetDevicePixelRatio records the monitor scale factor.
func (c *Canvas) SetDevicePixelRatio(dpr float64) {
	if dpr <= 0 {
		dpr = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dpr = dpr
}

// DisplaySize returns the laid-out size in logical pixels.
func (c *Canvas) DisplaySize() (float64, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w, c.h
}

// DevicePixelRatio returns the recorded scale factor.
func (c *Canvas) DevicePixelRatio() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dpr
}

// Resize sets the backing store size in device pixels. It is a no-op when
// the size is unchanged.
func (c *Canvas) Resize(w, h int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.attached || c.dc == nil {
		return fmt.Errorf("canvas %q: detached", c.id)
	}
	if c.dc.Width() == w && c.dc.Height() == h {
		return nil
	}
	if err := c.dc.Resize(w, h); err != nil {
		return fmt.Errorf("canvas %q: %w", c.id, err)
	}
	return nil
}

// DrawingSize returns the backing store size in device pixels.
func (c *Canvas) DrawingSize() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dc == nil {
		return 0, 0
	}
	return c.dc.Width(), c.dc.Height()
}

// Context returns the backing drawing context, or nil once detached.
func (c *Canvas) Context() *gg.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dc
}

// Do runs fn on the backing context while holding the canvas lock.
func (c *Canvas) Do(fn func(dc *gg.Context) error) error {
	if c == nil {
		return fmt.Errorf("canvas: nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.attached || c.dc == nil {
		return fmt.Errorf("canvas %q: detached", c.id)
	}
	return fn(c.dc)
}

// Clear erases the backing store.
func (c *Canvas) Clear() {
	_ = c.Do(func(dc *gg.Context) error {
		dc.Clear()
		return nil
	})
}

// SavePNG writes the backing store to path.
func (c *Canvas) SavePNG(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dc == nil {
		return fmt.Errorf("canvas %q: detached", c.id)
	}
	return c.dc.SavePNG(path)
}
