// Package main provides the API server entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/tkodaira/melodeon/internal/api/httpapi"
	"github.com/tkodaira/melodeon/internal/domain/track"
	"github.com/tkodaira/melodeon/internal/infra/config"
	"github.com/tkodaira/melodeon/internal/infra/logger"
	"github.com/tkodaira/melodeon/internal/infra/store"
	"github.com/tkodaira/melodeon/internal/service"
)

var (
	app        = kingpin.New("melodeon-server", "melodeon streaming API server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	seedCmd  = app.Command("seed", "Load songs from a JSON file into the catalog and exit")
	seedFile = seedCmd.Flag("file", "Path to songs JSON file").Required().String()
)

func init() {
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{Output: "stdout", Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	switch command {
	case seedCmd.FullCommand():
		err = seed(cfg, *seedFile)
	default:
		err = run(cfg)
	}
	if err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. A separate function ensures defers
// fire even when returning with an error.
func run(cfg *config.Config) error {
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	playlists := service.NewPlaylistService(db)
	api := httpapi.New(httpapi.AuthConfig{
		JWTSecret: cfg.Auth.JWTSecret,
		Issuer:    cfg.Auth.Issuer,
	}, playlists, db)

	// h2c lets HTTP/2 clients connect without TLS termination here.
	h2s := &http2.Server{}
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(api.Handler(), h2s),
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		zlog.Info().Msgf("Received %v, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// seed loads a JSON array of songs into the catalog.
func seed(cfg *config.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var songs []track.Track
	if err := json.Unmarshal(data, &songs); err != nil {
		return err
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	for _, t := range track.Compact(songs) {
		if err := db.UpsertSong(ctx, t); err != nil {
			return err
		}
	}
	zlog.Info().Msgf("Seeded %d songs", len(songs))
	return nil
}

func openStore(cfg *config.Config) (*store.SQLite, error) {
	settings, err := cfg.Storage.SQLite()
	if err != nil {
		return nil, err
	}
	zlog.Debug().Msgf("Opening sqlite store at %s", settings.Path)
	return store.Open(settings.Path, settings.MaxOpenConns)
}
