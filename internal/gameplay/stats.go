package gameplay

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/udisondev/galaxyd/internal/model"
)

// Statistics returns cached statistics joined with their typed values.
func (d *Database) Statistics(ctx context.Context, onlyChanged bool) ([]model.Stat, error) {
	query := `SELECT s.id, s.key, s.type, s.increment_only, s.changed,
		i.value, i.default_value, i.min_value, i.max_value, i.max_change,
		f.value, f.default_value, f.min_value, f.max_value, f.max_change, f.window
	FROM statistic s
	LEFT JOIN int_statistic i ON i.id = s.id
	LEFT JOIN float_statistic f ON f.id = s.id`
	if onlyChanged {
		query += ` WHERE s.changed = 1`
	}

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying statistics: %w", err)
	}
	defer rows.Close()

	var out []model.Stat
	for rows.Next() {
		var s model.Stat
		var (
			iVal, iDef                 sql.NullInt64
			iMin, iMax, iMaxChange     sql.NullInt64
			fVal, fDef                 sql.NullFloat64
			fMin, fMax, fMaxChange, fw sql.NullFloat64
		)
		if err := rows.Scan(&s.ID, &s.Key, &s.Type, &s.IncrementOnly, &s.Changed,
			&iVal, &iDef, &iMin, &iMax, &iMaxChange,
			&fVal, &fDef, &fMin, &fMax, &fMaxChange, &fw); err != nil {
			return nil, fmt.Errorf("scanning statistic: %w", err)
		}
		s.IValue, s.IDefault = iVal.Int64, iDef.Int64
		s.IMin = nullInt(iMin)
		s.IMax = nullInt(iMax)
		s.IMaxChange = nullInt(iMaxChange)
		s.FValue, s.FDefault = fVal.Float64, fDef.Float64
		s.FMin = nullFloat(fMin)
		s.FMax = nullFloat(fMax)
		s.FMaxChange = nullFloat(fMaxChange)
		s.Window = nullFloat(fw)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating statistics: %w", err)
	}
	return out, nil
}

// Statistic returns one cached stat by id. Returns nil, nil when absent.
func (d *Database) Statistic(ctx context.Context, id int64) (*model.Stat, error) {
	all, err := d.Statistics(ctx, false)
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

// SetStatistics upserts a snapshot fetched from the remote service and
// marks statistics as retrieved. Values of rows with a pending local
// update are left alone.
func (d *Database) SetStatistics(ctx context.Context, stats []model.Stat) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning statistics tx: %w", err)
	}
	defer tx.Rollback()

	for _, s := range stats {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO statistic (id, key, type, increment_only, changed)
			 VALUES (?, ?, ?, ?, 0)
			 ON CONFLICT(id) DO UPDATE SET
				key = excluded.key,
				type = excluded.type,
				increment_only = excluded.increment_only`,
			s.ID, s.Key, string(s.Type), s.IncrementOnly,
		)
		if err != nil {
			return fmt.Errorf("upserting statistic %d: %w", s.ID, err)
		}

		// The value row is written only when no local change is pending.
		var changed bool
		if err := tx.QueryRowContext(ctx,
			`SELECT changed FROM statistic WHERE id = ?`, s.ID).Scan(&changed); err != nil {
			return fmt.Errorf("reading statistic %d: %w", s.ID, err)
		}

		switch s.Type {
		case model.StatInt:
			if err := upsertIntValue(ctx, tx, s, changed); err != nil {
				return err
			}
		case model.StatFloat, model.StatAvgRate:
			if err := upsertFloatValue(ctx, tx, s, changed); err != nil {
				return err
			}
		default:
			return fmt.Errorf("statistic %d has unknown type %q", s.ID, s.Type)
		}
	}

	if err := setInfoTx(ctx, tx, infoStatsRetrieved, "1"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing statistics tx: %w", err)
	}
	return nil
}

func upsertIntValue(ctx context.Context, tx *sql.Tx, s model.Stat, changed bool) error {
	var n int64
	res, err := tx.ExecContext(ctx,
		`UPDATE int_statistic SET default_value = ?, min_value = ?, max_value = ?, max_change = ?
		 WHERE id = ?`,
		s.IDefault, ptrInt(s.IMin), ptrInt(s.IMax), ptrInt(s.IMaxChange), s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating int_statistic %d: %w", s.ID, err)
	}
	n, _ = res.RowsAffected()
	if n == 0 {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO int_statistic (id, value, default_value, min_value, max_value, max_change)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			s.ID, s.IValue, s.IDefault, ptrInt(s.IMin), ptrInt(s.IMax), ptrInt(s.IMaxChange),
		)
		if err != nil {
			return fmt.Errorf("inserting int_statistic %d: %w", s.ID, err)
		}
		return nil
	}
	if !changed {
		if _, err := tx.ExecContext(ctx,
			`UPDATE int_statistic SET value = ? WHERE id = ?`, s.IValue, s.ID); err != nil {
			return fmt.Errorf("writing int_statistic value %d: %w", s.ID, err)
		}
	}
	return nil
}

func upsertFloatValue(ctx context.Context, tx *sql.Tx, s model.Stat, changed bool) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE float_statistic SET default_value = ?, min_value = ?, max_value = ?, max_change = ?, window = ?
		 WHERE id = ?`,
		s.FDefault, ptrFloat(s.FMin), ptrFloat(s.FMax), ptrFloat(s.FMaxChange), ptrFloat(s.Window), s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating float_statistic %d: %w", s.ID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO float_statistic (id, value, default_value, min_value, max_value, max_change, window)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.ID, s.FValue, s.FDefault, ptrFloat(s.FMin), ptrFloat(s.FMax), ptrFloat(s.FMaxChange), ptrFloat(s.Window),
		)
		if err != nil {
			return fmt.Errorf("inserting float_statistic %d: %w", s.ID, err)
		}
		return nil
	}
	if !changed {
		if _, err := tx.ExecContext(ctx,
			`UPDATE float_statistic SET value = ? WHERE id = ?`, s.FValue, s.ID); err != nil {
			return fmt.Errorf("writing float_statistic value %d: %w", s.ID, err)
		}
	}
	return nil
}

// SetStatInt writes a new int value and raises the changed bit
// atomically.
func (d *Database) SetStatInt(ctx context.Context, id, value int64) error {
	return d.setStatValue(ctx, id, `UPDATE int_statistic SET value = ? WHERE id = ?`, value)
}

// SetStatFloat writes a new float/avgrate value and raises the changed
// bit atomically.
func (d *Database) SetStatFloat(ctx context.Context, id int64, value float64) error {
	return d.setStatValue(ctx, id, `UPDATE float_statistic SET value = ? WHERE id = ?`, value)
}

func (d *Database) setStatValue(ctx context.Context, id int64, query string, value any) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning stat update tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("updating stat %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("statistic %d not in cache", id)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE statistic SET changed = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("marking stat %d changed: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing stat update tx: %w", err)
	}
	return nil
}

// ResetStats restores every value to its default and clears all changed
// bits. Running it twice is a no-op after the first.
func (d *Database) ResetStats(ctx context.Context) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning reset tx: %w", err)
	}
	defer tx.Rollback()

	steps := []string{
		`UPDATE int_statistic SET value = default_value`,
		`UPDATE float_statistic SET value = default_value`,
		`UPDATE statistic SET changed = 0`,
	}
	for _, q := range steps {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("resetting stats: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reset tx: %w", err)
	}
	return nil
}

// ClearStatsChanged drops the changed bit for the given ids in a single
// transaction.
func (d *Database) ClearStatsChanged(ctx context.Context, ids ...int64) error {
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
			`UPDATE statistic SET changed = 0 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("clearing statistic %d: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing clear-changed tx: %w", err)
	}
	return nil
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func ptrInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func ptrFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
