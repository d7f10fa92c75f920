package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/udisondev/galaxyd/internal/config"
	"github.com/udisondev/galaxyd/internal/gog"
	"github.com/udisondev/galaxyd/internal/model"
	"github.com/udisondev/galaxyd/internal/server"
	"github.com/udisondev/galaxyd/internal/token"
)

const (
	ConfigPath = "config/galaxyd.yaml"
	Version    = "0.4.0"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	accessToken := flag.String("access-token", "", "access token for the platform account")
	refreshToken := flag.String("refresh-token", "", "refresh token used to mint game tokens")
	userID := flag.String("user-id", "", "galaxy user id from userData.json")
	username := flag.String("username", "", "user name shown to games")
	quitWhenIdle := flag.Bool("quit-when-idle", false, "exit after the last game disconnects")
	flag.Parse()

	cfgPath := ConfigPath
	if p := os.Getenv("GALAXYD_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *quitWhenIdle {
		cfg.QuitWhenIdle = true
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	})))
	slog.Info("galaxyd starting", "version", Version, "bind", cfg.BindAddress, "port", cfg.Port)

	if *refreshToken == "" {
		return fmt.Errorf("refresh-token is required")
	}

	store := token.NewStore()
	store.Insert(token.GalaxyClientID, model.Token{
		AccessToken:  *accessToken,
		RefreshToken: *refreshToken,
	})

	// The embedding application ships the vendor root next to the config.
	var rootCA []byte
	if p := os.Getenv("GALAXYD_ROOT_CA"); p != "" {
		rootCA, err = os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("reading root certificate: %w", err)
		}
	}

	api, err := gog.NewClient(store, cfg.Endpoints, cfg.Locale, rootCA, Version)
	if err != nil {
		return fmt.Errorf("building api client: %w", err)
	}

	user := model.UserInfo{Username: *username, GalaxyUserID: *userID}
	if user.GalaxyUserID == "" || user.Username == "" {
		// The identity can be recovered from the embed service when the
		// credential provider handed us only tokens.
		fetched, err := api.UserInfo(ctx, *accessToken)
		if err != nil {
			return fmt.Errorf("fetching user info: %w", err)
		}
		if user.GalaxyUserID == "" {
			user.GalaxyUserID = fetched.GalaxyUserID
		}
		if user.Username == "" {
			user.Username = fetched.Username
		}
	}

	srv := server.New(cfg, api, store, user)

	// Drain overlay actions; the desktop shell consumes these when
	// embedded, standalone runs just log them.
	go func() {
		for ev := range srv.OverlayEvents() {
			slog.Debug("overlay event", "game_pid", ev.GamePID, "kind", ev.Kind)
		}
	}()

	args := flag.Args()
	if len(args) > 0 && args[0] == "preload" {
		if len(args) != 3 {
			return fmt.Errorf("usage: galaxyd preload <client_id> <client_secret>")
		}
		return srv.Preload(ctx, args[1], args[2])
	}

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("running server: %w", err)
	}
	return nil
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
