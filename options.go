package main

import (
	"context"
	"fmt"

	"github.com/milk9111/animsurface/anim"
	"github.com/milk9111/animsurface/assets"
	"github.com/milk9111/animsurface/config"
	"github.com/milk9111/animsurface/surface"
)

// sourceOption is one of the ways the first surface can get its animation.
type sourceOption struct {
	Label string
	build func(ctx context.Context, g *Game) (surface.Config, error)
}

var sourceOptions = []sourceOption{
	{"1: local file", buildLocalOption},
	{"2: hosted url", buildURLOption},
	{"3: fetched buffer", buildBufferOption},
	{"4: shared file", buildSharedOption},
}

// optionLayout is the layout every option starts with.
func optionLayout(cfg *surface.Config) {
	cfg.Fit = anim.FitWidth
	cfg.Alignment = anim.AlignCenter
	cfg.Autoplay = true
}

func buildLocalOption(_ context.Context, _ *Game) (surface.Config, error) {
	cfg := surface.Config{
		Source:        surface.FromPath("assets/" + assets.CleanTheCar),
		StateMachines: []string{"State Machine 1"},
		FPSCounter:    true,
	}
	optionLayout(&cfg)
	return cfg, nil
}

func buildURLOption(_ context.Context, g *Game) (surface.Config, error) {
	cfg := surface.Config{
		Source:        surface.FromURL(g.vehiclesURL),
		StateMachines: []string{"bumpy"},
	}
	optionLayout(&cfg)
	return cfg, nil
}

// buildBufferOption downloads the bytes itself, the way a page would when
// it wants to hand the same download to several instances.
func buildBufferOption(ctx context.Context, g *Game) (surface.Config, error) {
	data, err := g.http.Fetch(ctx, g.vehiclesURL)
	if err != nil {
		return surface.Config{}, fmt.Errorf("fetch buffer: %w", err)
	}
	cfg := surface.Config{
		Source:        surface.FromBuffer(data),
		StateMachines: []string{"bumpy"},
	}
	optionLayout(&cfg)
	return cfg, nil
}

func buildSharedOption(ctx context.Context, g *Game) (surface.Config, error) {
	f, err := g.sharedFile(ctx, "vehicles", config.Source{URL: g.vehiclesURL})
	if err != nil {
		return surface.Config{}, err
	}
	cfg := surface.Config{
		Source:        surface.FromFile(f),
		StateMachines: []string{"bumpy"},
	}
	optionLayout(&cfg)
	return cfg, nil
}
