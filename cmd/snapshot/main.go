// Command snapshot renders one frame of an animation to a PNG without
// opening a window.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/milk9111/animsurface/anim"
	"github.com/milk9111/animsurface/assets"
	"github.com/milk9111/animsurface/canvas"
	"github.com/milk9111/animsurface/fetch"
	"github.com/milk9111/animsurface/surface"
	"go.uber.org/zap"
)

type options struct {
	src          string
	stateMachine string
	artboard     string
	fit          string
	align        string
	fire         string
	w, h         float64
	dpr          float64
	t            float64
	fps          int
	out          string
	debug        bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.src, "src", "assets/"+assets.CleanTheCar,
		"animation file path or http(s) url; bundled: "+strings.Join(assets.Names(), ", "))
	fs.StringVar(&o.stateMachine, "state-machine", "", "state machine to run (default: first animation)")
	fs.StringVar(&o.artboard, "artboard", "", "artboard to render (default: first)")
	fs.StringVar(&o.fit, "fit", "contain", "fit mode")
	fs.StringVar(&o.align, "align", "center", "alignment")
	fs.StringVar(&o.fire, "fire", "", "comma separated triggers fired before advancing")
	fs.Float64Var(&o.w, "w", 500, "canvas width in logical pixels")
	fs.Float64Var(&o.h, "h", 500, "canvas height in logical pixels")
	fs.Float64Var(&o.dpr, "dpr", 1, "device pixel ratio")
	fs.Float64Var(&o.t, "t", 0, "seconds to advance before rendering")
	fs.IntVar(&o.fps, "fps", 60, "advance step rate")
	fs.StringVar(&o.out, "o", "snapshot.png", "output PNG")
	fs.BoolVar(&o.debug, "debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.fps <= 0 {
		return o, fmt.Errorf("-fps must be positive")
	}
	return o, nil
}

func main() {
	o, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	var logger *zap.Logger
	if o.debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(context.Background(), o, logger); err != nil {
		logger.Fatal("snapshot failed", zap.Error(err))
	}
	logger.Info("snapshot written", zap.String("path", o.out))
}

func run(ctx context.Context, o options, logger *zap.Logger) error {
	fit, err := anim.ParseFit(o.fit)
	if err != nil {
		return err
	}
	align, err := anim.ParseAlignment(o.align)
	if err != nil {
		return err
	}

	cfg := surface.Config{
		Artboard:  o.artboard,
		Fit:       fit,
		Alignment: align,
		Autoplay:  true,
	}
	if strings.HasPrefix(o.src, "http://") || strings.HasPrefix(o.src, "https://") {
		cfg.Source = surface.FromURL(o.src)
	} else {
		cfg.Source = surface.FromPath(o.src)
	}
	if o.stateMachine != "" {
		cfg.StateMachines = []string{o.stateMachine}
	}

	ctrl := surface.NewController(
		surface.WithLogger(logger),
		surface.WithLocalFetcher(fetch.Local{Dir: ".", FS: assets.FS}),
		surface.WithURLFetcher(fetch.NewHTTP(30*time.Second)),
	)
	defer ctrl.Close()

	c := canvas.New("snapshot", 0, 0, o.w, o.h)
	c.SetDevicePixelRatio(o.dpr)
	defer c.Detach()

	h, err := ctrl.Load(ctx, cfg, c)
	if err != nil {
		return err
	}

	for _, name := range strings.Split(o.fire, ",") {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		if err := h.Fire(name); err != nil {
			return err
		}
	}

	step := 1 / float64(o.fps)
	for elapsed := 0.0; elapsed < o.t; elapsed += step {
		if err := h.Advance(step); err != nil {
			return err
		}
	}
	if err := h.Draw(); err != nil {
		return err
	}
	return c.SavePNG(o.out)
}
