package surface

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/milk9111/animsurface/anim"
	"github.com/milk9111/animsurface/canvas"
	"github.com/milk9111/animsurface/fetch"
)

const carAsset = `
artboards:
  - name: Car
    width: 500
    height: 500
    shapes:
      - {name: car, type: rect, x: 250, y: 300, width: 300, height: 120, fill: "#3a7bd5"}
      - {name: bubble, type: ellipse, x: 120, y: 120, width: 40, height: 40, fill: white}
    animations:
      - name: idle
        duration: 2
        loop: loop
        tracks:
          - shape: bubble
            property: y
            keys:
              - {time: 0, value: 120}
              - {time: 2, value: 60, ease: in_out_sine}
    state_machines:
      - name: State Machine 1
        inputs:
          - {name: scrub, type: trigger}
        states:
          - {name: idle, animation: idle}
`

const vehiclesAsset = `
artboards:
  - name: Truck
    width: 800
    height: 400
    shapes:
      - {name: body, type: rect, x: 400, y: 200, width: 500, height: 150, fill: orange}
    animations:
      - name: bounce
        duration: 0.5
        loop: pingpong
        tracks:
          - shape: body
            property: y
            keys:
              - {time: 0, value: 200}
              - {time: 0.5, value: 180, ease: out_bounce}
    state_machines:
      - name: bumpy
        inputs:
          - {name: bump, type: trigger}
        states:
          - {name: drive, animation: bounce}
`

// countingFetcher serves fixed documents and counts calls.
type countingFetcher struct {
	docs  map[string]string
	err   error
	calls atomic.Int32
	delay time.Duration
}

func (f *countingFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	doc, ok := f.docs[location]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(doc), nil
}

// waitForFetch blocks until f has been asked for something, which means
// the load calling it has already claimed its surface.
func waitForFetch(t *testing.T, f *countingFetcher) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for f.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("fetch never started")
		}
		time.Sleep(time.Millisecond)
	}
}

func newTestController(local, remote fetch.Fetcher) *Controller {
	return NewController(WithLocalFetcher(local), WithURLFetcher(remote))
}

func newLocal() *countingFetcher {
	return &countingFetcher{docs: map[string]string{"clean_the_car.riv": carAsset}}
}

func newRemote() *countingFetcher {
	return &countingFetcher{docs: map[string]string{"https://cdn.example/vehicles.riv": vehiclesAsset}}
}

func TestLoadScenarios(t *testing.T) {
	t.Run("local_path_autoplays", func(t *testing.T) {
		c := newTestController(newLocal(), newRemote())
		surf := canvas.New("rive-canvas", 0, 0, 250, 250)
		surf.SetDevicePixelRatio(2)

		h, err := c.Load(context.Background(), Config{
			Source:        FromPath("clean_the_car.riv"),
			StateMachines: []string{"State Machine 1"},
			Autoplay:      true,
		}, surf)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if h.State() != StateReady || !h.IsPlaying() {
			t.Fatalf("state=%s playing=%v, want ready and playing", h.State(), h.IsPlaying())
		}
		if w, hh := surf.DrawingSize(); w != 500 || hh != 500 {
			t.Fatalf("drawing size = %dx%d, want 500x500", w, hh)
		}
		if err := h.Advance(1.0 / 60); err != nil {
			t.Fatalf("Advance: %v", err)
		}
		if err := h.Draw(); err != nil {
			t.Fatalf("Draw: %v", err)
		}
		if c.Live("rive-canvas") != h {
			t.Fatalf("handle should be live on its surface")
		}
	})

	t.Run("network_failure_is_asset_load_error", func(t *testing.T) {
		remote := newRemote()
		remote.err = errors.New("connection reset")
		c := newTestController(newLocal(), remote)

		_, err := c.Load(context.Background(), Config{
			Source:        FromURL("https://cdn.example/vehicles.riv"),
			StateMachines: []string{"bumpy"},
			Autoplay:      true,
		}, canvas.New("rive-canvas", 0, 0, 100, 100))
		if !errors.Is(err, ErrAssetLoad) {
			t.Fatalf("expected asset load error, got %v", err)
		}
		if errors.Is(err, ErrConfig) {
			t.Fatalf("asset load error must not match config kind")
		}
	})

	t.Run("two_sources_is_config_error_without_fetch", func(t *testing.T) {
		local, remote := newLocal(), newRemote()
		c := newTestController(local, remote)

		_, err := c.Load(context.Background(), Config{
			Source:        AssetSource{LocalPath: "clean_the_car.riv", URL: "https://cdn.example/vehicles.riv"},
			StateMachines: []string{"bumpy"},
		}, canvas.New("rive-canvas", 0, 0, 100, 100))
		if !errors.Is(err, ErrConfig) {
			t.Fatalf("expected config error, got %v", err)
		}
		if local.calls.Load() != 0 || remote.calls.Load() != 0 {
			t.Fatalf("no fetch expected, got local=%d remote=%d", local.calls.Load(), remote.calls.Load())
		}
	})
}

func TestLoadErrors(t *testing.T) {
	f, err := anim.Decode([]byte(vehiclesAsset))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	detached := canvas.New("gone", 0, 0, 10, 10)
	detached.Detach()
	var typedNil *canvas.Canvas
	handBuilt := &anim.File{Artboards: []*anim.Artboard{{Name: "Car", Width: 10, Height: 10}}}

	cases := []struct {
		name string
		cfg  Config
		surf Surface
		want error
	}{
		{"no_source", Config{}, canvas.New("a", 0, 0, 10, 10), ErrConfig},
		{"relative_url", Config{Source: FromURL("vehicles.riv")}, canvas.New("a", 0, 0, 10, 10), ErrConfig},
		{"empty_name", Config{Source: FromFile(f), StateMachines: []string{" "}}, canvas.New("a", 0, 0, 10, 10), ErrConfig},
		{"missing_state_machine", Config{Source: FromFile(f), StateMachines: []string{"State Machine 1"}}, canvas.New("a", 0, 0, 10, 10), ErrConfig},
		{"missing_artboard", Config{Source: FromFile(f), Artboard: "Car"}, canvas.New("a", 0, 0, 10, 10), ErrConfig},
		{"missing_local_file", Config{Source: FromPath("nope.riv")}, canvas.New("a", 0, 0, 10, 10), ErrAssetLoad},
		{"bad_buffer", Config{Source: FromBuffer([]byte("artboards: 3"))}, canvas.New("a", 0, 0, 10, 10), ErrAssetLoad},
		{"empty_artboard_entry", Config{Source: FromBuffer([]byte("artboards:\n  -\n"))}, canvas.New("a", 0, 0, 10, 10), ErrAssetLoad},
		{"empty_shape_entry", Config{Source: FromBuffer([]byte("artboards:\n  - name: a\n    width: 1\n    height: 1\n    shapes:\n      -\n"))}, canvas.New("a", 0, 0, 10, 10), ErrAssetLoad},
		{"empty_file", Config{Source: FromFile(&anim.File{})}, canvas.New("a", 0, 0, 10, 10), ErrConfig},
		{"undecoded_file", Config{Source: FromFile(handBuilt)}, canvas.New("a", 0, 0, 10, 10), ErrConfig},
		{"nil_surface", Config{Source: FromFile(f)}, nil, ErrSurface},
		{"typed_nil_surface", Config{Source: FromFile(f)}, typedNil, ErrSurface},
		{"detached_surface", Config{Source: FromFile(f)}, detached, ErrSurface},
		{"zero_size_surface", Config{Source: FromFile(f)}, canvas.New("a", 0, 0, 0, 10), ErrSurface},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestController(newLocal(), newRemote())
			h, err := c.Load(context.Background(), tc.cfg, tc.surf)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Load err = %v, want kind %v", err, tc.want)
			}
			if h != nil {
				t.Fatalf("failed load must not return a handle")
			}
		})
	}
}

func TestLoadSourceVariants(t *testing.T) {
	c := newTestController(newLocal(), newRemote())
	ctx := context.Background()

	shared, err := c.LoadFile(ctx, FromURL("https://cdn.example/vehicles.riv"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	cases := []struct {
		name string
		src  AssetSource
	}{
		{"url", FromURL("https://cdn.example/vehicles.riv")},
		{"buffer", FromBuffer([]byte(vehiclesAsset))},
		{"shared_file", FromFile(shared)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			surf := canvas.New("truck-"+tc.name, 0, 0, 400, 200)
			h, err := c.Load(ctx, Config{Source: tc.src, StateMachines: []string{"bumpy"}, Fit: anim.FitCover}, surf)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			defer c.Dispose(h)
			if h.IsPlaying() {
				t.Fatalf("autoplay off should leave the handle paused")
			}
			if s, err := h.StateName("bumpy"); err != nil || s != "drive" {
				t.Fatalf("StateName = %q, %v", s, err)
			}
		})
	}
}

func TestDispose(t *testing.T) {
	c := newTestController(newLocal(), newRemote())
	surf := canvas.New("rive-canvas", 0, 0, 100, 100)

	h, err := c.Load(context.Background(), Config{Source: FromPath("clean_the_car.riv"), Autoplay: true}, surf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := c.Dispose(h); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if h.State() != StateDisposed {
		t.Fatalf("state = %s, want disposed", h.State())
	}
	if err := c.Dispose(h); err != nil {
		t.Fatalf("second Dispose should be a no-op, got %v", err)
	}
	c.OnSurfaceResize(h)

	if err := h.Advance(0.1); !errors.Is(err, ErrDisposed) || !errors.Is(err, ErrConfig) {
		t.Fatalf("Advance after dispose = %v", err)
	}
	if h.IsPlaying() {
		t.Fatalf("disposed handle should not play")
	}
	if c.Live("rive-canvas") != nil {
		t.Fatalf("surface should be free after dispose")
	}
	if err := c.Dispose(nil); err != nil {
		t.Fatalf("Dispose(nil) = %v", err)
	}
}

func TestReloadDisposesPrevious(t *testing.T) {
	c := newTestController(newLocal(), newRemote())
	surf := canvas.New("rive-canvas", 0, 0, 100, 100)
	cfg := Config{Source: FromPath("clean_the_car.riv"), Autoplay: true}

	first, err := c.Load(context.Background(), cfg, surf)
	if err != nil {
		t.Fatalf("first Load: %v", err)
	}
	second, err := c.Load(context.Background(), cfg, surf)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}

	if first.State() != StateDisposed {
		t.Fatalf("previous handle state = %s, want disposed", first.State())
	}
	if c.Live("rive-canvas") != second {
		t.Fatalf("newest handle should be live")
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if second.State() != StateDisposed {
		t.Fatalf("Close should dispose live handles")
	}
}

func TestFailedReloadKeepsPrevious(t *testing.T) {
	remote := newRemote()
	remote.err = errors.New("connection reset")
	c := newTestController(newLocal(), remote)
	surf := canvas.New("rive-canvas", 0, 0, 100, 100)
	ctx := context.Background()

	first, err := c.Load(ctx, Config{Source: FromPath("clean_the_car.riv"), Autoplay: true}, surf)
	if err != nil {
		t.Fatalf("first Load: %v", err)
	}

	cases := []struct {
		name string
		cfg  Config
		want error
	}{
		{"fetch_error", Config{Source: FromURL("https://cdn.example/vehicles.riv")}, ErrAssetLoad},
		{"unknown_state_machine", Config{Source: FromPath("clean_the_car.riv"), StateMachines: []string{"bumpy"}}, ErrConfig},
		{"bad_buffer", Config{Source: FromBuffer([]byte("artboards:\n  -\n"))}, ErrAssetLoad},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := c.Load(ctx, tc.cfg, surf); !errors.Is(err, tc.want) {
				t.Fatalf("Load err = %v, want kind %v", err, tc.want)
			}
			if first.State() != StateReady || !first.IsPlaying() {
				t.Fatalf("previous handle state = %s, want ready and playing", first.State())
			}
			if c.Live("rive-canvas") != first {
				t.Fatalf("previous handle should stay live")
			}
			if err := first.Draw(); err != nil {
				t.Fatalf("Draw: %v", err)
			}
		})
	}
}

func TestSupersededLoadLeavesSurfaceAlone(t *testing.T) {
	slow := newLocal()
	slow.delay = 50 * time.Millisecond
	c := newTestController(slow, newRemote())
	surf := canvas.New("rive-canvas", 0, 0, 100, 100)

	older := c.LoadAsync(context.Background(), Config{Source: FromPath("clean_the_car.riv")}, surf)
	waitForFetch(t, slow)
	newer, err := c.Load(context.Background(), Config{Source: FromBuffer([]byte(carAsset))}, surf)
	if err != nil {
		t.Fatalf("newer Load: %v", err)
	}
	surf.SetDevicePixelRatio(3)

	// Draw on this goroutine while the older load finishes on its own.
	for done := false; !done; {
		select {
		case <-older.Done():
			done = true
		default:
		}
		if err := newer.Draw(); err != nil {
			t.Fatalf("Draw: %v", err)
		}
	}

	if _, err := older.Result(); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("older Result err = %v", err)
	}
	if w, h := surf.DrawingSize(); w != 100 || h != 100 {
		t.Fatalf("drawing size = %dx%d, superseded load must not resize the surface", w, h)
	}
	c.OnSurfaceResize(newer)
	if w, h := surf.DrawingSize(); w != 300 || h != 300 {
		t.Fatalf("drawing size after resize = %dx%d, want 300x300", w, h)
	}
}

func TestOnSurfaceResizeIdempotent(t *testing.T) {
	c := newTestController(newLocal(), newRemote())
	surf := canvas.New("rive-canvas", 0, 0, 200, 100)

	h, err := c.Load(context.Background(), Config{Source: FromPath("clean_the_car.riv")}, surf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	surf.SetRect(0, 0, 320, 240)
	surf.SetDevicePixelRatio(1.5)
	for i := 0; i < 5; i++ {
		c.OnSurfaceResize(h)
		if w, hh := surf.DrawingSize(); w != 480 || hh != 360 {
			t.Fatalf("call %d: drawing size = %dx%d, want 480x360", i, w, hh)
		}
	}

	surf.Detach()
	c.OnSurfaceResize(h)
	if h.State() != StateReady {
		t.Fatalf("resize on detached surface must not change handle state")
	}
}

func TestLoadAsync(t *testing.T) {
	t.Run("single_completion", func(t *testing.T) {
		c := newTestController(newLocal(), newRemote())
		p := c.LoadAsync(context.Background(), Config{Source: FromPath("clean_the_car.riv"), Autoplay: true},
			canvas.New("rive-canvas", 0, 0, 100, 100))

		select {
		case <-p.Done():
		case <-time.After(5 * time.Second):
			t.Fatalf("load did not complete")
		}
		h, err := p.Result()
		if err != nil || h == nil {
			t.Fatalf("Result = %v, %v", h, err)
		}
		if p.State() != StateReady {
			t.Fatalf("pending state = %s, want ready", p.State())
		}
	})

	t.Run("failure_reported", func(t *testing.T) {
		c := newTestController(newLocal(), newRemote())
		p := c.LoadAsync(context.Background(), Config{Source: FromPath("missing.riv")},
			canvas.New("rive-canvas", 0, 0, 100, 100))
		if _, err := p.Result(); !errors.Is(err, ErrAssetLoad) {
			t.Fatalf("Result err = %v", err)
		}
		if p.State() != StateFailed {
			t.Fatalf("pending state = %s, want failed", p.State())
		}
	})

	t.Run("newer_load_supersedes", func(t *testing.T) {
		slow := newLocal()
		slow.delay = 200 * time.Millisecond
		c := newTestController(slow, newRemote())
		surf := canvas.New("rive-canvas", 0, 0, 100, 100)

		older := c.LoadAsync(context.Background(), Config{Source: FromPath("clean_the_car.riv")}, surf)
		waitForFetch(t, slow)
		newer, err := c.Load(context.Background(), Config{Source: FromBuffer([]byte(carAsset))}, surf)
		if err != nil {
			t.Fatalf("newer Load: %v", err)
		}

		if _, err := older.Result(); !errors.Is(err, ErrCanceled) || !errors.Is(err, ErrSuperseded) {
			t.Fatalf("older Result err = %v", err)
		}
		if c.Live("rive-canvas") != newer || newer.State() != StateReady {
			t.Fatalf("newer handle should stay live")
		}
	})

	t.Run("context_canceled", func(t *testing.T) {
		slow := newLocal()
		slow.delay = time.Second
		c := newTestController(slow, newRemote())
		ctx, cancel := context.WithCancel(context.Background())
		p := c.LoadAsync(ctx, Config{Source: FromPath("clean_the_car.riv")}, canvas.New("rive-canvas", 0, 0, 100, 100))
		cancel()
		if _, err := p.Result(); !errors.Is(err, ErrCanceled) {
			t.Fatalf("Result err = %v", err)
		}
	})
}
