package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/recycleshare/recycleshare/internal/model"
)

// WasteTypeRepo provides read and admin-write access to the waste
// type catalog.  Deletion is not here: it goes through the lifecycle
// engine so the in-use guard and the audit entry stay atomic.
type WasteTypeRepo struct{ DB *sql.DB }

func NewWasteTypeRepo(db *sql.DB) *WasteTypeRepo { return &WasteTypeRepo{DB: db} }

// List returns the whole catalog ordered by name.
func (r *WasteTypeRepo) List(ctx context.Context) ([]model.WasteType, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, name, unit_label, recycle_score_per_unit, created_at FROM waste_types ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	types := make([]model.WasteType, 0)
	for rows.Next() {
		var wt model.WasteType
		if err := rows.Scan(&wt.ID, &wt.Name, &wt.UnitLabel, &wt.RecycleScorePerUnit, &wt.CreatedAt); err != nil {
			return nil, err
		}
		types = append(types, wt)
	}
	return types, rows.Err()
}

// GetByID fetches one catalog entry.
func (r *WasteTypeRepo) GetByID(ctx context.Context, id uint64) (model.WasteType, error) {
	var wt model.WasteType
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, unit_label, recycle_score_per_unit, created_at FROM waste_types WHERE id=? LIMIT 1",
		id).Scan(&wt.ID, &wt.Name, &wt.UnitLabel, &wt.RecycleScorePerUnit, &wt.CreatedAt)
	return wt, err
}

// Create inserts a catalog entry and returns its ID.  Duplicate names
// surface as ErrConflict.
func (r *WasteTypeRepo) Create(ctx context.Context, name, unitLabel string, scorePerUnit float64) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO waste_types (name, unit_label, recycle_score_per_unit) VALUES (?,?,?)",
		name, unitLabel, scorePerUnit)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrConflict
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update rewrites a catalog entry.  Changing the per-unit score never
// rewrites already-accrued points; accrual snapshots the score at
// collection time.
func (r *WasteTypeRepo) Update(ctx context.Context, id uint64, name, unitLabel string, scorePerUnit float64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE waste_types SET name=?, unit_label=?, recycle_score_per_unit=? WHERE id=?",
		name, unitLabel, scorePerUnit, id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
