package gameplay

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/udisondev/galaxyd/internal/model"
)

// Achievements returns cached achievements, optionally only rows awaiting
// a remote push.
func (d *Database) Achievements(ctx context.Context, onlyChanged bool) ([]model.Achievement, error) {
	query := `SELECT id, key, name, description, visible_while_locked, unlock_time,
		image_url_locked, image_url_unlocked, changed, rarity,
		rarity_level_description, rarity_level_slug FROM achievement`
	if onlyChanged {
		query += ` WHERE changed = 1`
	}

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying achievements: %w", err)
	}
	defer rows.Close()

	var out []model.Achievement
	for rows.Next() {
		var a model.Achievement
		var unlockTime sql.NullString
		if err := rows.Scan(&a.ID, &a.Key, &a.Name, &a.Description,
			&a.VisibleWhileLocked, &unlockTime, &a.ImageURLLocked,
			&a.ImageURLUnlocked, &a.Changed, &a.Rarity,
			&a.RarityDescription, &a.RaritySlug); err != nil {
			return nil, fmt.Errorf("scanning achievement: %w", err)
		}
		a.UnlockTime = unlockTime.String
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating achievements: %w", err)
	}
	return out, nil
}

// Achievement returns one cached achievement by id. Returns nil, nil when
// the row does not exist.
func (d *Database) Achievement(ctx context.Context, id int64) (*model.Achievement, error) {
	all, err := d.Achievements(ctx, false)
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

// SetAchievements upserts a snapshot fetched from the remote service and
// marks achievements as retrieved. Metadata columns are always refreshed;
// unlock_time is preserved for rows whose changed bit is set so pending
// local unlocks survive the refresh.
func (d *Database) SetAchievements(ctx context.Context, achievements []model.Achievement, mode string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning achievements tx: %w", err)
	}
	defer tx.Rollback()

	for _, a := range achievements {
		var unlockTime any
		if a.UnlockTime != "" {
			unlockTime = a.UnlockTime
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO achievement (id, key, name, description, visible_while_locked,
				unlock_time, image_url_locked, image_url_unlocked, changed, rarity,
				rarity_level_description, rarity_level_slug)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
				key = excluded.key,
				name = excluded.name,
				description = excluded.description,
				visible_while_locked = excluded.visible_while_locked,
				image_url_locked = excluded.image_url_locked,
				image_url_unlocked = excluded.image_url_unlocked,
				rarity = excluded.rarity,
				rarity_level_description = excluded.rarity_level_description,
				rarity_level_slug = excluded.rarity_level_slug,
				unlock_time = CASE WHEN achievement.changed = 1
					THEN achievement.unlock_time ELSE excluded.unlock_time END`,
			a.ID, a.Key, a.Name, a.Description, a.VisibleWhileLocked,
			unlockTime, a.ImageURLLocked, a.ImageURLUnlocked, a.Rarity,
			a.RarityDescription, a.RaritySlug,
		)
		if err != nil {
			return fmt.Errorf("upserting achievement %d: %w", a.ID, err)
		}
	}

	if err := setInfoTx(ctx, tx, infoAchievementsRetrieved, "1"); err != nil {
		return err
	}
	if err := setInfoTx(ctx, tx, infoAchievementsMode, mode); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing achievements tx: %w", err)
	}
	return nil
}

// SetAchievement writes a local unlock (or clear when unlockTime is
// empty) and raises the changed bit in the same statement.
func (d *Database) SetAchievement(ctx context.Context, id int64, unlockTime string) error {
	var value any
	if unlockTime != "" {
		value = unlockTime
	}
	res, err := d.db.ExecContext(ctx,
		`UPDATE achievement SET unlock_time = ?, changed = 1 WHERE id = ?`,
		value, id,
	)
	if err != nil {
		return fmt.Errorf("updating achievement %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("achievement %d not in cache", id)
	}
	return nil
}

// ResetAchievements locks every achievement and clears all changed bits.
func (d *Database) ResetAchievements(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx,
		`UPDATE achievement SET unlock_time = NULL, changed = 0`)
	if err != nil {
		return fmt.Errorf("resetting achievements: %w", err)
	}
	return nil
}

// ClearAchievementsChanged drops the changed bit for the given ids in a
// single transaction, after a successful remote push.
func (d *Database) ClearAchievementsChanged(ctx context.Context, ids ...int64) error {
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
			`UPDATE achievement SET changed = 0 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("clearing achievement %d: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing clear-changed tx: %w", err)
	}
	return nil
}

func setInfoTx(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO database_info (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("writing database_info %q: %w", key, err)
	}
	return nil
}
