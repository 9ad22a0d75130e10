package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/milk9111/animsurface/anim"
	"github.com/milk9111/animsurface/assets"
	"github.com/milk9111/animsurface/config"
	"github.com/milk9111/animsurface/remote"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (default: built-in demo)")
	src := flag.String("src", "", "local animation file for the first surface")
	url := flag.String("url", "", "hosted vehicles document used by options 2-4 (default: bundled asset server)")
	stateMachine := flag.String("state-machine", "", "state machine to run on the first surface")
	artboard := flag.String("artboard", "", "artboard to show on the first surface")
	fit := flag.String("fit", "", "fit mode: contain, cover, fitWidth, fitHeight, none, scaleDown, fill")
	align := flag.String("align", "", "alignment, e.g. center or topLeft")
	option := flag.Int("option", 0, "start the first surface with source option 1-4")
	watch := flag.Bool("watch", false, "reload local animation files when they change")
	mqttURL := flag.String("mqtt", "", "MQTT broker URL for remote control, e.g. tcp://localhost:1883")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logger, err := newLogger(*debug)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg := config.Default()
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Fatal("load config", zap.Error(err))
		}
	}
	if err := applyFlags(&cfg, *src, *stateMachine, *artboard, *fit, *align, *watch, *mqttURL); err != nil {
		logger.Fatal("invalid flags", zap.Error(err))
	}
	if *option < 0 || *option > len(sourceOptions) {
		logger.Fatal("invalid -option", zap.Int("option", *option))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	vehiclesURL := *url
	if vehiclesURL == "" || cfg.AssetServer != "" {
		addr := cfg.AssetServer
		if addr == "" {
			addr = "127.0.0.1:0"
		}
		base, err := assets.Serve(ctx, addr, logger)
		if err != nil {
			logger.Fatal("asset server", zap.Error(err))
		}
		if vehiclesURL == "" {
			vehiclesURL = base + "/" + assets.Vehicles
		}
	}

	game, err := NewGame(ctx, cfg, Options{
		Logger:      logger,
		VehiclesURL: vehiclesURL,
		Option:      *option,
	})
	if err != nil {
		logger.Fatal("start", zap.Error(err))
	}
	defer game.Close()

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	ebiten.SetWindowTitle(cfg.Window.Title)

	if err := ebiten.RunGame(game); err != nil && err != ebiten.Termination {
		logger.Error("game loop", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// applyFlags overrides the first surface and the global switches.
func applyFlags(cfg *config.Config, src, stateMachine, artboard, fit, align string, watch bool, mqttURL string) error {
	first := &cfg.Surfaces[0]
	if src != "" {
		first.Source = config.Source{Path: src}
	}
	if stateMachine != "" {
		first.StateMachines = []string{stateMachine}
		first.Animations = nil
	}
	if artboard != "" {
		first.Artboard = artboard
	}
	if fit != "" {
		f, err := anim.ParseFit(fit)
		if err != nil {
			return err
		}
		first.Fit = f
	}
	if align != "" {
		a, err := anim.ParseAlignment(align)
		if err != nil {
			return err
		}
		first.Alignment = a
	}
	if watch {
		cfg.Watch = true
	}
	if mqttURL != "" {
		if cfg.MQTT == nil {
			cfg.MQTT = &remote.Config{}
		}
		cfg.MQTT.URL = mqttURL
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
