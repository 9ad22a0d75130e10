package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/milk9111/animsurface/anim"
	"github.com/milk9111/animsurface/assets"
	"github.com/milk9111/animsurface/canvas"
	"github.com/milk9111/animsurface/config"
	"github.com/milk9111/animsurface/fetch"
	"github.com/milk9111/animsurface/surface"
	"go.uber.org/zap"
)

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	err := applyFlags(&cfg, "my.yaml", "bumpy", "Truck", "cover", "bottom_left", true, "tcp://broker:1883")
	if err != nil {
		t.Fatalf("applyFlags: %v", err)
	}

	first := cfg.Surfaces[0]
	if first.Source.Path != "my.yaml" || first.StateMachines[0] != "bumpy" || first.Artboard != "Truck" {
		t.Fatalf("first surface = %+v", first)
	}
	if first.Fit != anim.FitCover || first.Alignment != anim.AlignBottomLeft {
		t.Fatalf("layout = %s/%s", first.Fit, first.Alignment)
	}
	if !cfg.Watch || cfg.MQTT == nil || cfg.MQTT.URL != "tcp://broker:1883" {
		t.Fatalf("globals = watch %v mqtt %+v", cfg.Watch, cfg.MQTT)
	}

	bad := config.Default()
	if err := applyFlags(&bad, "", "", "", "stretch", "", false, ""); err == nil {
		t.Fatalf("expected error for unknown fit")
	}
}

func newOptionGame(t *testing.T) *Game {
	t.Helper()
	srv := httptest.NewServer(http.FileServer(http.FS(assets.FS)))
	t.Cleanup(srv.Close)

	g := &Game{
		ctx:         context.Background(),
		local:       fetch.Local{Dir: ".", FS: assets.FS},
		http:        fetch.NewHTTP(5 * time.Second),
		vehiclesURL: srv.URL + "/" + assets.Vehicles,
		shared:      map[string]*anim.File{},
		log:         zap.NewNop(),
		registry:    canvas.NewRegistry(),
	}
	g.ctrl = surface.NewController(surface.WithLocalFetcher(g.local), surface.WithURLFetcher(g.http))
	return g
}

func TestSourceOptionsLoad(t *testing.T) {
	g := newOptionGame(t)
	ctx := context.Background()

	for i, opt := range sourceOptions {
		t.Run(opt.Label, func(t *testing.T) {
			cfg, err := opt.build(ctx, g)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			want := []surface.SourceKind{surface.SourcePath, surface.SourceURL, surface.SourceBuffer, surface.SourceFile}[i]
			if k, _ := cfg.Source.Kind(); k != want {
				t.Fatalf("source kind = %s, want %s", k, want)
			}

			c := canvas.New("rive-canvas", 0, 0, 320, 240)
			h, err := g.ctrl.Load(ctx, cfg, c)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			defer g.ctrl.Dispose(h)
			if !h.IsPlaying() {
				t.Fatalf("options autoplay")
			}
			if err := h.Advance(1.0 / 60); err != nil {
				t.Fatalf("Advance: %v", err)
			}
			if err := h.Draw(); err != nil {
				t.Fatalf("Draw: %v", err)
			}
		})
	}
}

func TestSharedFileFetchedOnce(t *testing.T) {
	g := newOptionGame(t)
	ctx := context.Background()

	a, err := g.sharedFile(ctx, "vehicles", config.Source{URL: g.vehiclesURL})
	if err != nil {
		t.Fatalf("sharedFile: %v", err)
	}
	b, err := g.sharedFile(ctx, "vehicles", config.Source{URL: "http://unused.invalid/x.yaml"})
	if err != nil {
		t.Fatalf("sharedFile again: %v", err)
	}
	if a != b {
		t.Fatalf("shared file should be cached")
	}
}

func pollUntilSettled(t *testing.T, g *Game, s *slot) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for s.prep != nil || s.pending != nil {
		if time.Now().After(deadline) {
			t.Fatalf("slot %q never settled", s.spec.ID)
		}
		g.poll(s)
		time.Sleep(time.Millisecond)
	}
}

func TestPollResolvesCanvasByID(t *testing.T) {
	g := newOptionGame(t)
	g.registry.Register(canvas.New("rive-canvas", 0, 0, 200, 200))

	found := &slot{spec: config.Surface{ID: "rive-canvas"}}
	g.start(found, func(ctx context.Context) (surface.Config, error) { return buildLocalOption(ctx, g) })
	pollUntilSettled(t, g, found)
	if found.err != nil || found.handle == nil {
		t.Fatalf("slot = handle %v err %v, want a handle", found.handle, found.err)
	}
	if c, _ := g.registry.Get("rive-canvas"); found.handle.Surface() != c {
		t.Fatalf("handle should draw into the registered canvas")
	}
	if _, on := found.handle.FPS(); !on {
		t.Fatalf("local option enables the fps counter")
	}

	missing := &slot{spec: config.Surface{ID: "nowhere"}}
	g.start(missing, func(ctx context.Context) (surface.Config, error) { return buildLocalOption(ctx, g) })
	pollUntilSettled(t, g, missing)
	if !errors.Is(missing.err, surface.ErrSurface) || missing.handle != nil {
		t.Fatalf("slot without canvas: err = %v", missing.err)
	}
}
