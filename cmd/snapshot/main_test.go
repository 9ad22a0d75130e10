package main

import (
	"context"
	"errors"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/milk9111/animsurface/surface"
)

func TestParseFlags(t *testing.T) {
	o, err := parseFlags([]string{"-w", "320", "-h", "200", "-dpr", "2", "-t", "1.5", "-o", "x.png"}, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if o.w != 320 || o.h != 200 || o.dpr != 2 || o.t != 1.5 || o.out != "x.png" {
		t.Fatalf("options = %+v", o)
	}
	if _, err := parseFlags([]string{"-fps", "0"}, io.Discard); err == nil {
		t.Fatalf("expected error for -fps 0")
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name   string
		mutate func(*options)
		wantW  int
		wantH  int
	}{
		{"car_state_machine", func(o *options) { o.stateMachine = "State Machine 1"; o.fire = "scrub"; o.t = 0.5 }, 500, 500},
		{"hidpi", func(o *options) { o.w, o.h, o.dpr = 200, 100, 2 }, 400, 200},
		{"vehicles_first_animation", func(o *options) { o.src = "assets/vehicles.yaml"; o.artboard = "Bike"; o.t = 0.25 }, 500, 500},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o, err := parseFlags(nil, io.Discard)
			if err != nil {
				t.Fatalf("parseFlags: %v", err)
			}
			o.out = filepath.Join(dir, tc.name+".png")
			tc.mutate(&o)

			if err := run(context.Background(), o, nil); err != nil {
				t.Fatalf("run: %v", err)
			}

			f, err := os.Open(o.out)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer f.Close()
			img, err := png.Decode(f)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if b := img.Bounds(); b.Dx() != tc.wantW || b.Dy() != tc.wantH {
				t.Fatalf("image = %dx%d, want %dx%d", b.Dx(), b.Dy(), tc.wantW, tc.wantH)
			}
		})
	}
}

func TestRunErrors(t *testing.T) {
	o, _ := parseFlags(nil, io.Discard)
	o.out = filepath.Join(t.TempDir(), "x.png")

	o.stateMachine = "missing"
	if err := run(context.Background(), o, nil); !errors.Is(err, surface.ErrConfig) {
		t.Fatalf("missing state machine: %v", err)
	}

	o.stateMachine = ""
	o.src = "does/not/exist.yaml"
	if err := run(context.Background(), o, nil); !errors.Is(err, surface.ErrAssetLoad) {
		t.Fatalf("missing file: %v", err)
	}

	o.src = "assets/clean_the_car.yaml"
	o.fit = "sideways"
	if err := run(context.Background(), o, nil); err == nil {
		t.Fatalf("expected fit error")
	}
}
