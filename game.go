package main

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ebitenui/ebitenui"
	"github.com/ebitenui/ebitenui/widget"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/milk9111/animsurface/anim"
	"github.com/milk9111/animsurface/assets"
	"github.com/milk9111/animsurface/assetwatch"
	"github.com/milk9111/animsurface/canvas"
	"github.com/milk9111/animsurface/config"
	"github.com/milk9111/animsurface/fetch"
	"github.com/milk9111/animsurface/remote"
	"github.com/milk9111/animsurface/surface"
	"go.uber.org/zap"
	"golang.design/x/clipboard"
)

var pageBackground = color.NRGBA{R: 0x12, G: 0x14, B: 0x18, A: 0xff}

// Options configure NewGame.
type Options struct {
	Logger      *zap.Logger
	VehiclesURL string
	// Option, when non-zero, replaces the first surface's source with one
	// of the numbered source options.
	Option int
}

// slot is one canvas on the page and whatever is loaded into it.
type slot struct {
	spec      config.Surface
	presenter canvas.Presenter

	prep    chan prepared
	pending *surface.Pending
	handle  *surface.Handle
	err     error

	// path is the disk file behind the current load, for hot reload.
	path   string
	states map[string]string
}

type prepared struct {
	cfg surface.Config
	err error
}

// Game is the host page: it lays out canvases in the window, forwards
// resizes to the controller and drives every loaded animation.
type Game struct {
	ctx  context.Context
	log  *zap.Logger
	cfg  config.Config
	ctrl *surface.Controller

	local       fetch.Local
	http        *fetch.HTTP
	vehiclesURL string

	registry *canvas.Registry
	slots    []*slot

	sharedMu sync.Mutex
	shared   map[string]*anim.File

	watcher *assetwatch.Watcher
	bridge  *remote.Bridge

	ui     *ebitenui.UI
	status *widget.Text

	clipboardOK bool

	outW, outH float64
	scale      float64
	applied    struct{ w, h, scale float64 }
}

func NewGame(ctx context.Context, cfg config.Config, opts Options) (*Game, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	g := &Game{
		ctx:         ctx,
		log:         log,
		cfg:         cfg,
		local:       fetch.Local{Dir: ".", FS: assets.FS},
		http:        fetch.NewHTTP(30 * time.Second),
		vehiclesURL: opts.VehiclesURL,
		registry:    canvas.NewRegistry(),
		shared:      map[string]*anim.File{},
		outW:        float64(cfg.Window.Width),
		outH:        float64(cfg.Window.Height),
		scale:       1,
	}
	g.ctrl = surface.NewController(
		surface.WithLogger(log),
		surface.WithLocalFetcher(g.local),
		surface.WithURLFetcher(g.http),
	)

	for _, spec := range cfg.Surfaces {
		r := spec.StretchedRect(g.outW, g.outH)
		c := canvas.New(spec.ID, r.X, r.Y, r.Width, r.Height)
		g.registry.Register(c)
		g.slots = append(g.slots, &slot{spec: spec})
	}

	if err := clipboard.Init(); err != nil {
		log.Warn("clipboard unavailable", zap.Error(err))
	} else {
		g.clipboardOK = true
	}

	if cfg.Watch {
		w, err := assetwatch.New(log, g.watchDirs()...)
		if err != nil {
			return nil, fmt.Errorf("watch assets: %w", err)
		}
		g.watcher = w
	}

	if cfg.MQTT != nil {
		b := remote.New(*cfg.MQTT, log)
		if err := b.Connect(); err != nil {
			log.Warn("remote control disabled", zap.Error(err))
		} else {
			g.bridge = b
		}
	}

	g.ui, g.status = newControlsUI(g)

	for i, s := range g.slots {
		if i == 0 && opts.Option > 0 {
			g.loadOption(opts.Option)
			continue
		}
		g.loadSpec(s)
	}
	return g, nil
}

// watchDirs are the directories holding configured path sources, plus the
// bundled asset directory when running from a checkout.
func (g *Game) watchDirs() []string {
	seen := map[string]bool{}
	var dirs []string
	add := func(dir string) {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() || seen[dir] {
			return
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}
	for _, s := range g.cfg.Surfaces {
		if s.Source.Path != "" {
			add(filepath.Dir(g.local.DiskPath(s.Source.Path)))
		}
	}
	add(g.local.DiskPath("assets"))
	return dirs
}

func (g *Game) primary() *slot { return g.slots[0] }

// surfaceOf looks up the slot's canvas on the page by element id.
func (g *Game) surfaceOf(s *slot) (*canvas.Canvas, bool) {
	return g.registry.Get(s.spec.ID)
}

// start builds a config off the loop and hands it to the controller once
// ready. A newer start on the same slot wins.
func (g *Game) start(s *slot, build func(ctx context.Context) (surface.Config, error)) {
	ch := make(chan prepared, 1)
	s.prep = ch
	s.pending = nil
	go func() {
		cfg, err := build(g.ctx)
		ch <- prepared{cfg: cfg, err: err}
	}()
}

func (g *Game) loadSpec(s *slot) {
	spec := s.spec
	g.start(s, func(ctx context.Context) (surface.Config, error) {
		files := map[string]*anim.File{}
		if name := spec.Source.Shared; name != "" {
			f, err := g.sharedFile(ctx, name, g.cfg.Shared[name])
			if err != nil {
				return surface.Config{}, err
			}
			files[name] = f
		}
		return spec.Build(files)
	})
}

func (g *Game) loadOption(n int) {
	if n < 1 || n > len(sourceOptions) {
		return
	}
	opt := sourceOptions[n-1]
	g.log.Info("switching source", zap.String("option", opt.Label))
	g.start(g.primary(), func(ctx context.Context) (surface.Config, error) {
		return opt.build(ctx, g)
	})
}

// sharedFile fetches and parses a shared document once.
func (g *Game) sharedFile(ctx context.Context, name string, src config.Source) (*anim.File, error) {
	g.sharedMu.Lock()
	defer g.sharedMu.Unlock()
	if f, ok := g.shared[name]; ok {
		return f, nil
	}
	as, err := src.AssetSource()
	if err != nil {
		return nil, fmt.Errorf("shared file %q: %w", name, err)
	}
	f, err := g.ctrl.LoadFile(ctx, as)
	if err != nil {
		return nil, err
	}
	g.shared[name] = f
	return f, nil
}

// poll moves a slot through preparation and loading without blocking.
func (g *Game) poll(s *slot) {
	if s.prep != nil {
		select {
		case p := <-s.prep:
			s.prep = nil
			if p.err != nil {
				s.err = p.err
				g.log.Warn("prepare failed", zap.String("surface", s.spec.ID), zap.Error(p.err))
				return
			}
			s.path = ""
			if p.cfg.Source.LocalPath != "" {
				s.path = filepath.Clean(g.local.DiskPath(p.cfg.Source.LocalPath))
			}
			// A missing canvas reaches the controller as a nil surface and
			// fails as a surface error.
			var surf surface.Surface
			if c, ok := g.surfaceOf(s); ok {
				surf = c
			}
			s.pending = g.ctrl.LoadAsync(g.ctx, p.cfg, surf)
		default:
		}
	}
	if s.pending == nil {
		return
	}
	select {
	case <-s.pending.Done():
	default:
		return
	}

	h, err := s.pending.Result()
	s.pending = nil
	if err != nil {
		if errors.Is(err, surface.ErrSuperseded) {
			return
		}
		s.err = err
		return
	}
	s.handle = h
	s.err = nil
	s.states = map[string]string{}
	// The page may have been resized while the load was running.
	g.ctrl.OnSurfaceResize(h)
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	g.relayout()
	g.handleKeys()
	g.ui.Update()
	g.drainWatcher()

	dt := 1 / float64(ebiten.TPS())
	for i, s := range g.slots {
		g.poll(s)
		if s.handle == nil || s.handle.State() != surface.StateReady {
			continue
		}
		if i == 0 && g.bridge != nil {
			g.bridge.Apply(s.handle)
		}
		if err := s.handle.Advance(dt); err != nil {
			g.log.Warn("advance failed", zap.String("surface", s.spec.ID), zap.Error(err))
		}
		if i == 0 {
			g.publishStates(s)
		}
	}
	g.status.Label = g.statusLine()
	return nil
}

// relayout pushes window size and scale changes to the canvases.
func (g *Game) relayout() {
	if g.applied.w == g.outW && g.applied.h == g.outH && g.applied.scale == g.scale {
		return
	}
	g.applied.w, g.applied.h, g.applied.scale = g.outW, g.outH, g.scale

	for _, s := range g.slots {
		c, ok := g.surfaceOf(s)
		if !ok {
			continue
		}
		r := s.spec.StretchedRect(g.outW, g.outH)
		c.SetRect(r.X, r.Y, r.Width, r.Height)
		c.SetDevicePixelRatio(g.scale)
		if s.handle != nil {
			g.ctrl.OnSurfaceResize(s.handle)
		}
	}
	g.log.Debug("page resized",
		zap.Float64("width", g.outW),
		zap.Float64("height", g.outH),
		zap.Float64("scale", g.scale))
}

func (g *Game) handleKeys() {
	for i, key := range []ebiten.Key{ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4} {
		if inpututil.IsKeyJustPressed(key) {
			g.loadOption(i + 1)
		}
	}
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		g.togglePlay()
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		g.reload(g.primary())
	case inpututil.IsKeyJustPressed(ebiten.KeyF):
		g.cycleFit()
	case inpututil.IsKeyJustPressed(ebiten.KeyA):
		g.cycleAlignment()
	case inpututil.IsKeyJustPressed(ebiten.KeyC):
		g.copyConfig()
	case inpututil.IsKeyJustPressed(ebiten.KeyD):
		g.dispose()
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		g.toggleFPSCounter()
	}
}

func (g *Game) toggleFPSCounter() {
	h := g.primary().handle
	if h == nil {
		return
	}
	_, on := h.FPS()
	if err := h.SetFPSCounter(!on); err != nil {
		g.log.Debug("toggle fps counter ignored", zap.Error(err))
	}
}

func (g *Game) togglePlay() {
	h := g.primary().handle
	if h == nil {
		return
	}
	var err error
	if h.IsPlaying() {
		err = h.Pause()
	} else {
		err = h.Play()
	}
	if err != nil {
		g.log.Debug("toggle play ignored", zap.Error(err))
	}
}

// reload loads the slot's current config again.
func (g *Game) reload(s *slot) {
	if s.handle == nil {
		g.loadSpec(s)
		return
	}
	cfg := s.handle.Config()
	g.start(s, func(context.Context) (surface.Config, error) { return cfg, nil })
}

func (g *Game) dispose() {
	s := g.primary()
	if s.handle == nil {
		return
	}
	_ = g.ctrl.Dispose(s.handle)
	s.handle = nil
	if c, ok := g.surfaceOf(s); ok {
		c.Clear()
	}
}

var (
	fitCycle = []anim.Fit{
		anim.FitContain, anim.FitCover, anim.FitWidth, anim.FitHeight,
		anim.FitNone, anim.FitScaleDown, anim.FitFill,
	}
	alignCycle = []anim.Alignment{
		anim.AlignTopLeft, anim.AlignTopCenter, anim.AlignTopRight,
		anim.AlignCenterLeft, anim.AlignCenter, anim.AlignCenterRight,
		anim.AlignBottomLeft, anim.AlignBottomCenter, anim.AlignBottomRight,
	}
)

func (g *Game) cycleFit() {
	h := g.primary().handle
	if h == nil {
		return
	}
	cfg := h.Config()
	next := fitCycle[0]
	for i, f := range fitCycle {
		if f == cfg.Fit {
			next = fitCycle[(i+1)%len(fitCycle)]
		}
	}
	_ = h.SetLayout(next, cfg.Alignment)
}

func (g *Game) cycleAlignment() {
	h := g.primary().handle
	if h == nil {
		return
	}
	cfg := h.Config()
	next := alignCycle[0]
	for i, a := range alignCycle {
		if a == cfg.Alignment {
			next = alignCycle[(i+1)%len(alignCycle)]
		}
	}
	_ = h.SetLayout(cfg.Fit, next)
}

// currentConfig reflects layout changes made at runtime.
func (g *Game) currentConfig() config.Config {
	cfg := g.cfg
	cfg.Surfaces = append([]config.Surface(nil), g.cfg.Surfaces...)
	for i, s := range g.slots {
		if s.handle == nil {
			continue
		}
		hc := s.handle.Config()
		cfg.Surfaces[i].Fit = hc.Fit
		cfg.Surfaces[i].Alignment = hc.Alignment
	}
	return cfg
}

func (g *Game) copyConfig() {
	data, err := config.Marshal(g.currentConfig())
	if err != nil {
		g.log.Error("marshal config", zap.Error(err))
		return
	}
	if !g.clipboardOK {
		fmt.Print(string(data))
		return
	}
	clipboard.Write(clipboard.FmtText, data)
	g.log.Info("config copied to clipboard", zap.Int("bytes", len(data)))
}

func (g *Game) drainWatcher() {
	if g.watcher == nil {
		return
	}
	for {
		select {
		case name, ok := <-g.watcher.Events:
			if !ok {
				g.watcher = nil
				return
			}
			for _, s := range g.slots {
				if s.path != "" && s.path == name {
					g.log.Info("asset changed, reloading", zap.String("surface", s.spec.ID), zap.String("path", name))
					g.reload(s)
				}
			}
		case err, ok := <-g.watcher.Errors:
			if ok {
				g.log.Warn("asset watch", zap.Error(err))
			}
		default:
			return
		}
	}
}

func (g *Game) publishStates(s *slot) {
	if g.bridge == nil {
		return
	}
	for _, name := range s.handle.Config().StateMachines {
		state, err := s.handle.StateName(name)
		if err != nil || s.states[name] == state {
			continue
		}
		s.states[name] = state
		g.bridge.PublishState(name, state)
	}
}

func (g *Game) statusLine() string {
	s := g.primary()
	switch {
	case s.prep != nil || s.pending != nil:
		return "loading..."
	case s.err != nil:
		return "error"
	case s.handle == nil || s.handle.State() != surface.StateReady:
		return "no animation"
	}
	cfg := s.handle.Config()
	state := "paused"
	if s.handle.IsPlaying() {
		state = "playing"
	}
	return fmt.Sprintf("%s  %s  fit=%s align=%s", state, cfg.Source, cfg.Fit, cfg.Alignment)
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(pageBackground)

	for _, s := range g.slots {
		if s.handle != nil && s.handle.State() == surface.StateReady {
			if err := s.handle.Draw(); err != nil {
				g.log.Warn("draw failed", zap.String("surface", s.spec.ID), zap.Error(err))
			}
		}
		c, ok := g.surfaceOf(s)
		if !ok {
			continue
		}
		s.presenter.Present(screen, c, g.scale)
		g.drawOverlay(screen, s, c)
	}

	g.ui.Draw(screen)
}

func (g *Game) drawOverlay(screen *ebiten.Image, s *slot, c *canvas.Canvas) {
	x, y, _, _ := c.Rect()
	px, py := int(x*g.scale)+4, int(y*g.scale)+4

	if s.err != nil {
		ebitenutil.DebugPrintAt(screen, s.err.Error(), px, py)
		return
	}
	if s.handle == nil {
		return
	}
	if fps, on := s.handle.FPS(); on {
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("FPS: %.1f", fps), px, py)
	}
}

func (g *Game) LayoutF(outsideWidth, outsideHeight float64) (float64, float64) {
	g.outW, g.outH = outsideWidth, outsideHeight
	g.scale = ebiten.Monitor().DeviceScaleFactor()
	return outsideWidth * g.scale, outsideHeight * g.scale
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	panic("shouldn't use Layout")
}

// Close releases every surface and background worker.
func (g *Game) Close() {
	_ = g.ctrl.Close()
	for _, s := range g.slots {
		s.presenter.Release()
	}
	ids := make([]string, 0, len(g.slots))
	for _, c := range g.registry.All() {
		ids = append(ids, c.ID())
	}
	sort.Strings(ids)
	for _, id := range ids {
		g.registry.Remove(id)
	}
	if g.watcher != nil {
		_ = g.watcher.Close()
	}
	if g.bridge != nil {
		g.bridge.Close()
	}
}
