// Package gameplay is the per-(game, user) cache of achievements,
// statistics and leaderboard scores. Every locally originated mutation
// sets the row's changed bit; the sync engine clears it after a
// successful push to the remote service.
package gameplay

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/udisondev/galaxyd/internal/gameplay/migrations"
)

// database_info keys.
const (
	infoAchievementsRetrieved = "achievements_retrieved"
	infoStatsRetrieved        = "stats_retrieved"
	infoAchievementsMode      = "achievements_mode"
	infoLanguage              = "language"
)

var gooseOnce sync.Once

// Database is an open gameplay cache for one (client id, user id) pair.
type Database struct {
	db *sql.DB
}

// Open creates <root>/gameplay/<clientID>/<userID>/gameplay.db if absent,
// applies the schema and records the language tag.
func Open(ctx context.Context, root, clientID, userID, language string) (*Database, error) {
	dir := filepath.Join(root, "gameplay", clientID, userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating gameplay directory: %w", err)
	}
	path := filepath.Join(dir, "gameplay.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening gameplay database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging gameplay database: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	d := &Database{db: db}
	if err := d.setInfo(ctx, infoLanguage, language); err != nil {
		db.Close()
		return nil, err
	}

	slog.Debug("gameplay database opened", "path", path)
	return d, nil
}

// Close closes the underlying pool.
func (d *Database) Close() error {
	return d.db.Close()
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	var dialectErr error
	gooseOnce.Do(func() {
		goose.SetBaseFS(migrations.FS)
		goose.SetLogger(goose.NopLogger())
		dialectErr = goose.SetDialect("sqlite3")
	})
	if dialectErr != nil {
		return fmt.Errorf("setting goose dialect: %w", dialectErr)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func (d *Database) info(ctx context.Context, key string) (string, error) {
	var value string
	err := d.db.QueryRowContext(ctx,
		`SELECT value FROM database_info WHERE key = ?`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying database_info %q: %w", key, err)
	}
	return value, nil
}

func (d *Database) setInfo(ctx context.Context, key, value string) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO database_info (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("writing database_info %q: %w", key, err)
	}
	return nil
}

// HasAchievements reports whether an achievement snapshot was ever
// retrieved from the remote service.
func (d *Database) HasAchievements(ctx context.Context) (bool, error) {
	v, err := d.info(ctx, infoAchievementsRetrieved)
	return v == "1", err
}

// HasStatistics reports whether a statistics snapshot was ever retrieved.
func (d *Database) HasStatistics(ctx context.Context) (bool, error) {
	v, err := d.info(ctx, infoStatsRetrieved)
	return v == "1", err
}

// AchievementsMode returns the mode string delivered with the last
// achievement snapshot.
func (d *Database) AchievementsMode(ctx context.Context) (string, error) {
	return d.info(ctx, infoAchievementsMode)
}

// Language returns the language tag the cache was last opened with.
func (d *Database) Language(ctx context.Context) (string, error) {
	return d.info(ctx, infoLanguage)
}
