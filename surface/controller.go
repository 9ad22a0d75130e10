// Package surface manages the lifecycle of animation instances bound to
// rendering surfaces.
//
// A Controller loads an asset described by a Config into a Surface and
// hands back a Handle that exclusively owns the resulting instance. At most
// one handle is live per surface: when a new load binds to a surface, the
// handle that was live there is disposed. A load that fails leaves the live
// handle alone. If two loads race for the same surface, the one started
// last wins and the earlier one completes with a KindCanceled error
// wrapping ErrSuperseded without touching the surface.
package surface

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/milk9111/animsurface/anim"
	"github.com/milk9111/animsurface/fetch"
	"go.uber.org/zap"
)

// Surface is a rendering target on the host page.
type Surface interface {
	anim.Canvas
	ID() string
	Attached() bool
}

// Controller owns the runtime instances of the surfaces it loads into.
type Controller struct {
	mu   sync.Mutex
	live map[string]*Handle
	gens map[string]uint64

	local  fetch.Fetcher
	remote fetch.Fetcher
	log    *zap.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithLocalFetcher sets the fetcher used for LocalPath sources.
func WithLocalFetcher(f fetch.Fetcher) Option {
	return func(c *Controller) { c.local = f }
}

// WithURLFetcher sets the fetcher used for URL sources.
func WithURLFetcher(f fetch.Fetcher) Option {
	return func(c *Controller) { c.remote = f }
}

// NewController creates a controller. Without options local paths resolve
// against the working directory and URLs use a 30s HTTP client.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		live:   make(map[string]*Handle),
		gens:   make(map[string]uint64),
		local:  fetch.Local{Dir: "."},
		remote: fetch.NewHTTP(30 * time.Second),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load fetches, decodes and instantiates the configured asset on surf. It
// blocks until the instance is ready or fails. On success the handle is
// playing when cfg.Autoplay is set and paused otherwise, and the surface's
// drawing buffer matches its display size times its pixel ratio.
//
// Errors are *Error values: KindConfig for a bad config (reported before
// any fetch) or for names missing from the asset, KindSurface for an
// invalid surface, KindAssetLoad for fetch and decode failures and
// KindCanceled when ctx ends or a newer load claims the surface.
func (c *Controller) Load(ctx context.Context, cfg Config, surf Surface) (*Handle, error) {
	const op = "load"

	if err := cfg.Validate(); err != nil {
		return nil, newError(KindConfig, op, err, "")
	}
	if err := checkSurface(surf); err != nil {
		return nil, err
	}

	id := surf.ID()
	gen := c.begin(id)
	log := c.log.With(zap.String("surface", id), zap.Stringer("source", cfg.Source), zap.Uint64("gen", gen))
	log.Debug("load started")

	file, err := c.resolve(ctx, op, cfg.Source)
	if err != nil {
		log.Warn("load failed", zap.Error(err))
		return nil, err
	}

	inst, err := anim.NewInstance(file, anim.Options{
		Artboard:      cfg.Artboard,
		StateMachines: cfg.StateMachines,
		Animations:    cfg.Animations,
		Fit:           cfg.Fit,
		Alignment:     cfg.Alignment,
		Autoplay:      cfg.Autoplay,
		Canvas:        surf,
		Logger:        log,
	})
	if err != nil {
		kind := KindAssetLoad
		if errors.Is(err, anim.ErrNotFound) {
			kind = KindConfig
		}
		err = newError(kind, op, err, "")
		log.Warn("load failed", zap.Error(err))
		return nil, err
	}

	if cfg.FPSCounter {
		inst.EnableFPSCounter()
	}

	h := &Handle{gen: gen, surface: surf, cfg: cfg, state: StateReady, inst: inst}
	prev, err := c.bind(id, h)
	if err != nil {
		inst.Cleanup()
		if errors.Is(err, ErrSuperseded) {
			log.Debug("load superseded")
		} else {
			log.Warn("load failed", zap.Error(err))
		}
		return nil, err
	}
	if prev != nil {
		log.Info("disposed previous animation")
	}

	w, hgt := anim.DrawingSize(surf)
	log.Info("animation ready",
		zap.Bool("autoplay", cfg.Autoplay),
		zap.Int("width", w),
		zap.Int("height", hgt))
	return h, nil
}

// LoadAsync runs Load on its own goroutine and returns a future for the
// result.
func (c *Controller) LoadAsync(ctx context.Context, cfg Config, surf Surface) *Pending {
	p := &Pending{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.handle, p.err = c.Load(ctx, cfg, surf)
	}()
	return p
}

// LoadFile fetches and decodes an asset without binding it to a surface.
// The file can back any number of later loads through FromFile.
func (c *Controller) LoadFile(ctx context.Context, src AssetSource) (*anim.File, error) {
	if err := (Config{Source: src}).Validate(); err != nil {
		return nil, newError(KindConfig, "load_file", err, "")
	}
	return c.resolve(ctx, "load_file", src)
}

// OnSurfaceResize re-derives the drawing buffer size from the surface's
// current display size and pixel ratio. It is idempotent and never fails:
// disposed handles and detached surfaces are logged and ignored.
func (c *Controller) OnSurfaceResize(h *Handle) {
	if h == nil {
		return
	}
	err := h.with("resize", func(i *anim.Instance) error {
		if !h.surface.Attached() {
			return newError(KindSurface, "resize", nil, "surface detached")
		}
		return i.ResizeDrawingSurfaceToCanvas()
	})
	if err != nil {
		c.log.Debug("resize ignored", zap.String("surface", h.surface.ID()), zap.Error(err))
	}
}

// Dispose releases the handle's instance and frees its surface for the next
// load. Disposing an already disposed handle is a no-op.
func (c *Controller) Dispose(h *Handle) error {
	if h == nil {
		return nil
	}
	id := h.surface.ID()

	c.mu.Lock()
	if c.live[id] == h {
		delete(c.live, id)
	}
	c.mu.Unlock()

	if h.release() {
		c.log.Info("animation disposed", zap.String("surface", id))
	}
	return nil
}

// Live returns the handle currently bound to a surface id.
func (c *Controller) Live(surfaceID string) *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live[surfaceID]
}

// Close disposes every live handle.
func (c *Controller) Close() error {
	c.mu.Lock()
	handles := make([]*Handle, 0, len(c.live))
	for _, h := range c.live {
		handles = append(handles, h)
	}
	c.mu.Unlock()

	for _, h := range handles {
		_ = c.Dispose(h)
	}
	return nil
}

// begin claims the surface for a new load. Any earlier load still in
// flight on it will fail to bind.
func (c *Controller) begin(id string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[id]++
	return c.gens[id]
}

// bind makes h the live handle of its surface unless a newer load claimed
// the surface. The drawing buffer is sized and the previous handle released
// under the controller lock, so a superseded load never touches the surface
// and the surface never hosts two ready handles. It returns the released
// handle, if any.
func (c *Controller) bind(id string, h *Handle) (*Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[id] != h.gen {
		return nil, newError(KindCanceled, "load", ErrSuperseded, "")
	}
	if err := h.inst.ResizeDrawingSurfaceToCanvas(); err != nil {
		return nil, newError(KindSurface, "load", err, "size drawing surface")
	}
	prev := c.live[id]
	c.live[id] = h
	if prev != nil && prev.release() {
		return prev, nil
	}
	return nil, nil
}

func (c *Controller) resolve(ctx context.Context, op string, src AssetSource) (*anim.File, error) {
	kind, err := src.Kind()
	if err != nil {
		return nil, newError(KindConfig, op, err, "")
	}

	var data []byte
	switch kind {
	case SourceFile:
		if !src.File.Decoded() {
			return nil, newError(KindConfig, op, anim.ErrFormat, "file was not produced by decoding an asset")
		}
		return src.File, nil
	case SourceBuffer:
		data = src.Buffer
	case SourcePath:
		data, err = c.fetch(ctx, op, c.local, src.LocalPath)
	case SourceURL:
		data, err = c.fetch(ctx, op, c.remote, src.URL)
	}
	if err != nil {
		return nil, err
	}

	file, err := anim.Decode(data)
	if err != nil {
		return nil, newError(KindAssetLoad, op, err, "decode")
	}
	return file, nil
}

func (c *Controller) fetch(ctx context.Context, op string, f fetch.Fetcher, location string) ([]byte, error) {
	if f == nil {
		return nil, newError(KindConfig, op, nil, fmt.Sprintf("no fetcher for %q", location))
	}
	data, err := f.Fetch(ctx, location)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, newError(KindCanceled, op, ctxErr, "")
		}
		return nil, newError(KindAssetLoad, op, err, "fetch")
	}
	return data, nil
}

func checkSurface(s Surface) error {
	const op = "load"
	if s == nil {
		return newError(KindSurface, op, nil, "nil surface")
	}
	if s.ID() == "" {
		return newError(KindSurface, op, nil, "surface has no id")
	}
	if !s.Attached() {
		return newError(KindSurface, op, nil, fmt.Sprintf("surface %q is detached", s.ID()))
	}
	if w, h := s.DisplaySize(); w <= 0 || h <= 0 {
		return newError(KindSurface, op, nil, fmt.Sprintf("surface %q has no display size", s.ID()))
	}
	if s.Context() == nil {
		return newError(KindSurface, op, nil, fmt.Sprintf("surface %q has no drawing context", s.ID()))
	}
	return nil
}
