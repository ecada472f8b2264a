// VoiceMap - voice-driven accessible navigation assistant.
// Speaks the user's location, takes voice commands, records hazards and
// runs the emergency countdown; a web API and event stream drive the UI.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/voicemap/internal/config"
	"github.com/teslashibe/voicemap/internal/log"
	"github.com/teslashibe/voicemap/pkg/hazard"
	"github.com/teslashibe/voicemap/pkg/hub"
	"github.com/teslashibe/voicemap/pkg/speech"
	"github.com/teslashibe/voicemap/pkg/voicemap"
	"github.com/teslashibe/voicemap/pkg/web"
)

func main() {
	cfg, err := parseFlags()
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}
	log.Init(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		log.Error("voicemap failed", "error", err)
		os.Exit(1)
	}
}

// parseFlags loads the environment configuration and applies flag
// overrides on top of it.
func parseFlags() (config.Config, error) {
	envFile := flag.String("env", "", "Load configuration from this .env file")
	addr := flag.String("addr", "", "HTTP listen address (overrides HTTP_ADDRESS)")
	level := flag.String("log-level", "", "Log level: debug, info, warn, error")
	ttsProvider := flag.String("tts", "", "TTS provider: none, elevenlabs, openai, chain")
	demo := flag.Bool("demo", false, "Replay the demo walk instead of reading MQTT positions")
	hazards := flag.String("hazards", "", "Hazard store path (overrides VOICEMAP_HAZARDS_FILE)")
	flag.Parse()

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return config.Config{}, err
	}

	if *addr != "" {
		cfg.HTTPAddress = *addr
	}
	if *level != "" {
		cfg.LogLevel = *level
	}
	if *ttsProvider != "" {
		cfg.TTS.Provider = *ttsProvider
	}
	if *hazards != "" {
		cfg.HazardsFile = *hazards
	}
	cfg.Demo = cfg.Demo || *demo

	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg config.Config) error {
	logger := log.L()
	mainLog := log.Component("main")

	synth, err := voicemap.NewSynthesizer(cfg, logger)
	if err != nil {
		return err
	}
	recognizers, err := voicemap.NewRecognizerFactory(cfg, logger)
	if err != nil {
		return err
	}
	positions, err := voicemap.NewPositionSource(cfg, logger)
	if err != nil {
		return err
	}
	defer positions.Close()

	store, err := hazard.NewJSONStore(cfg.HazardsFile)
	if err != nil {
		return err
	}

	events := hub.New("events", logger)
	go events.Run(ctx)
	mainLog.Info("voicemap starting", "addr", cfg.HTTPAddress, "demo", cfg.Demo, "tts", cfg.TTS.Provider)

	app, err := voicemap.New(voicemap.Options{
		Output:      speech.NewOutput(synth, logger),
		Hazards:     store,
		Source:      positions,
		Recognizers: recognizers,
		Locale:      cfg.Locale,
		Publisher:   events,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer app.Close()

	srv := web.NewServer(app, events, logger)
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Listen(cfg.HTTPAddress); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	runErr := make(chan error, 1)
	go func() { runErr <- app.Run(runCtx) }()

	select {
	case err = <-serveErr:
		stop()
		<-runErr
	case err = <-runErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		mainLog.Warn("web shutdown failed", "error", serr)
	}
	mainLog.Info("voicemap stopped")
	return err
}
