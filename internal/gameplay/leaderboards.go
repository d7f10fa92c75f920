package gameplay

import (
	"context"
	"fmt"

	"github.com/udisondev/galaxyd/internal/model"
)

// Leaderboards returns cached leaderboard rows (definition plus local
// score state).
func (d *Database) Leaderboards(ctx context.Context, onlyChanged bool) ([]model.Leaderboard, error) {
	query := `SELECT id, key, name, sort_method, display_type, score, rank,
		force_update, entry_total_count, details, changed FROM leaderboard`
	if onlyChanged {
		query += ` WHERE changed = 1`
	}

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying leaderboards: %w", err)
	}
	defer rows.Close()

	var out []model.Leaderboard
	for rows.Next() {
		var l model.Leaderboard
		if err := rows.Scan(&l.ID, &l.Key, &l.Name, &l.SortMethod, &l.DisplayType,
			&l.Score, &l.Rank, &l.ForceUpdate, &l.EntryTotalCount,
			&l.Details, &l.Changed); err != nil {
			return nil, fmt.Errorf("scanning leaderboard: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating leaderboards: %w", err)
	}
	return out, nil
}

// Leaderboard returns one cached row by id. Returns nil, nil when absent.
func (d *Database) Leaderboard(ctx context.Context, id int64) (*model.Leaderboard, error) {
	all, err := d.Leaderboards(ctx, false)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, nil
}

// SetLeaderboards upserts definitions fetched from the remote service.
// Only metadata columns are touched; local score state survives.
func (d *Database) SetLeaderboards(ctx context.Context, defs []model.Leaderboard) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning leaderboards tx: %w", err)
	}
	defer tx.Rollback()

	for _, l := range defs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO leaderboard (id, key, name, sort_method, display_type, changed)
			 VALUES (?, ?, ?, ?, ?, 0)
			 ON CONFLICT(id) DO UPDATE SET
				key = excluded.key,
				name = excluded.name,
				sort_method = excluded.sort_method,
				display_type = excluded.display_type`,
			l.ID, l.Key, l.Name, l.SortMethod, l.DisplayType,
		)
		if err != nil {
			return fmt.Errorf("upserting leaderboard %d: %w", l.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing leaderboards tx: %w", err)
	}
	return nil
}

// SetLeaderboardScore writes a locally submitted score and raises the
// changed bit. Details is stored in url-safe unpadded base64.
func (d *Database) SetLeaderboardScore(ctx context.Context, id int64, score int32, force bool, details string) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE leaderboard SET score = ?, force_update = ?, details = ?, changed = 1 WHERE id = ?`,
		score, force, details, id,
	)
	if err != nil {
		return fmt.Errorf("updating leaderboard %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("leaderboard %d not in cache", id)
	}
	return nil
}

// SetLeaderboardRank records rank and entry count from the remote
// service without touching the changed bit.
func (d *Database) SetLeaderboardRank(ctx context.Context, id int64, rank, entryTotalCount uint32) error {
	_, err := d.db.ExecContext(ctx,
		`UPDATE leaderboard SET rank = ?, entry_total_count = ? WHERE id = ?`,
		rank, entryTotalCount, id,
	)
	if err != nil {
		return fmt.Errorf("updating leaderboard rank %d: %w", id, err)
	}
	return nil
}

// ApplyServerScore overwrites the local score state with the remote
// service's and clears the changed bit; used after a score push or a 409
// conflict read-back.
func (d *Database) ApplyServerScore(ctx context.Context, id int64, score int32, rank, entryTotalCount uint32) error {
	_, err := d.db.ExecContext(ctx,
		`UPDATE leaderboard SET score = ?, rank = ?, entry_total_count = ?, force_update = 0, changed = 0
		 WHERE id = ?`,
		score, rank, entryTotalCount, id,
	)
	if err != nil {
		return fmt.Errorf("applying server score %d: %w", id, err)
	}
	return nil
}

// ClearLeaderboardsChanged drops the changed bit for the given ids in a
// single transaction.
func (d *Database) ClearLeaderboardsChanged(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning clear-changed tx: %w", err)
	}
	defer tx.Rollback()
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`UPDATE leaderboard SET changed = 0 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("clearing leaderboard %d: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing clear-changed tx: %w", err)
	}
	return nil
}
