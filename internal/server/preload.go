package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/udisondev/galaxyd/internal/gameplay"
	"github.com/udisondev/galaxyd/internal/token"
)

// Preload fills the gameplay cache for one game without a game
// connection, so a later session can start fully offline.
func (s *Server) Preload(ctx context.Context, clientID, clientSecret string) error {
	db, err := gameplay.Open(ctx, s.cfg.DataDir, clientID, s.user.GalaxyUserID, s.cfg.Locale)
	if err != nil {
		return fmt.Errorf("opening gameplay cache: %w", err)
	}
	defer db.Close()

	hasAch, err := db.HasAchievements(ctx)
	if err != nil {
		return err
	}
	hasStats, err := db.HasStatistics(ctx)
	if err != nil {
		return err
	}
	if hasAch && hasStats {
		slog.Info("already in database", "client_id", clientID)
		return nil
	}

	bootstrap, ok := s.store.Get(token.GalaxyClientID)
	if !ok {
		return fmt.Errorf("bootstrap token missing from store")
	}
	gameToken, err := s.api.RefreshToken(ctx, clientID, clientSecret, bootstrap.RefreshToken, bootstrap.OpenIDScope())
	if err != nil {
		return fmt.Errorf("obtaining game token: %w", err)
	}
	s.store.Insert(clientID, gameToken)

	achievements, mode, err := s.api.Achievements(ctx, clientID, s.user.GalaxyUserID)
	if err != nil {
		return fmt.Errorf("fetching achievements: %w", err)
	}
	if err := db.SetAchievements(ctx, achievements, mode); err != nil {
		return err
	}
	slog.Info("achievements preloaded", "count", len(achievements))

	stats, err := s.api.Stats(ctx, clientID, s.user.GalaxyUserID)
	if err != nil {
		return fmt.Errorf("fetching stats: %w", err)
	}
	if err := db.SetStatistics(ctx, stats); err != nil {
		return err
	}
	slog.Info("statistics preloaded", "count", len(stats))

	return nil
}
