package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/recycleshare/recycleshare/internal/lifecycle"
	"github.com/recycleshare/recycleshare/internal/model"
)

// Store is the MySQL implementation of the lifecycle engine's
// persistence boundary.  Every engine operation runs inside one
// *sql.Tx obtained here, so the listing update, reservation write,
// score upsert and audit append of a transition commit together or
// not at all.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store bound to the given database handle.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// DB exposes the underlying handle for read-side repositories that
// share the pool.
func (s *Store) DB() *sql.DB { return s.db }

// WithinTx starts a transaction, runs fn against it and commits when
// fn returns nil.  Any error from fn rolls the transaction back and
// is returned unchanged so engine error kinds survive.
func (s *Store) WithinTx(ctx context.Context, fn func(tx lifecycle.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&storeTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// storeTx adapts one *sql.Tx to the primitives the engine composes.
type storeTx struct {
	tx *sql.Tx
}

func (t *storeTx) GetListing(ctx context.Context, id uint64) (model.WasteListing, error) {
	const q = `SELECT id, owner_id, waste_type_id, amount, description, status, created_at, updated_at
	           FROM waste_listings WHERE id = ?`
	var l model.WasteListing
	err := t.tx.QueryRowContext(ctx, q, id).Scan(
		&l.ID, &l.OwnerID, &l.WasteTypeID, &l.Amount, &l.Description, &l.Status, &l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.WasteListing{}, lifecycle.ErrNotFound
	}
	return l, err
}

func (t *storeTx) InsertListing(ctx context.Context, l *model.WasteListing) error {
	const q = `INSERT INTO waste_listings (owner_id, waste_type_id, amount, description, status) VALUES (?, ?, ?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, q, l.OwnerID, l.WasteTypeID, l.Amount, l.Description, l.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

func (t *storeTx) UpdateListingFields(ctx context.Context, id, wasteTypeID uint64, amount float64, description string) error {
	const q = `UPDATE waste_listings SET waste_type_id = ?, amount = ?, description = ? WHERE id = ?`
	_, err := t.tx.ExecContext(ctx, q, wasteTypeID, amount, description, id)
	return err
}

// CompareAndSetListingStatus flips the status only when the row still
// carries the expected one.  The WHERE guard makes the flip atomic:
// of two concurrent callers at most one sees an affected row.
func (t *storeTx) CompareAndSetListingStatus(ctx context.Context, id uint64, expected, next string) (bool, error) {
	const q = `UPDATE waste_listings SET status = ? WHERE id = ? AND status = ?`
	res, err := t.tx.ExecContext(ctx, q, next, id, expected)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (t *storeTx) DeleteListing(ctx context.Context, id uint64) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM waste_listings WHERE id = ?`, id)
	return err
}

func (t *storeTx) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	const q = `SELECT id, listing_id, collector_id, pickup_at, status, created_at, updated_at
	           FROM reservations WHERE id = ?`
	var r model.Reservation
	err := t.tx.QueryRowContext(ctx, q, id).Scan(
		&r.ID, &r.ListingID, &r.CollectorID, &r.PickupAt, &r.Status, &r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reservation{}, lifecycle.ErrNotFound
	}
	return r, err
}

func (t *storeTx) InsertReservation(ctx context.Context, r *model.Reservation) error {
	const q = `INSERT INTO reservations (listing_id, collector_id, pickup_at, status) VALUES (?, ?, ?, ?)`
	res, err := t.tx.ExecContext(ctx, q, r.ListingID, r.CollectorID, r.PickupAt.UTC().Format("2006-01-02 15:04:05"), r.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = uint64(id)
	return nil
}

func (t *storeTx) CompareAndSetReservationStatus(ctx context.Context, id uint64, expected, next string) (bool, error) {
	const q = `UPDATE reservations SET status = ? WHERE id = ? AND status = ?`
	res, err := t.tx.ExecContext(ctx, q, next, id, expected)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (t *storeTx) ActiveReservationExists(ctx context.Context, listingID uint64) (bool, error) {
	const q = `SELECT COUNT(*) FROM reservations WHERE listing_id = ? AND status <> ?`
	var n int64
	if err := t.tx.QueryRowContext(ctx, q, listingID, model.StatusCancelled).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *storeTx) GetWasteType(ctx context.Context, id uint64) (model.WasteType, error) {
	const q = `SELECT id, name, unit_label, recycle_score_per_unit, created_at FROM waste_types WHERE id = ?`
	var wt model.WasteType
	err := t.tx.QueryRowContext(ctx, q, id).Scan(&wt.ID, &wt.Name, &wt.UnitLabel, &wt.RecycleScorePerUnit, &wt.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.WasteType{}, lifecycle.ErrNotFound
	}
	return wt, err
}

func (t *storeTx) CountListingsForType(ctx context.Context, wasteTypeID uint64) (int64, error) {
	var n int64
	err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM waste_listings WHERE waste_type_id = ?`, wasteTypeID).Scan(&n)
	return n, err
}

func (t *storeTx) DeleteWasteType(ctx context.Context, id uint64) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM waste_types WHERE id = ?`, id)
	return err
}

// UpsertScore adds delta to the (user, month, year) bucket, creating
// the row on first accrual.  The additive ON DUPLICATE KEY UPDATE
// keeps concurrent completions for the same owner from overwriting
// each other.
func (t *storeTx) UpsertScore(ctx context.Context, userID uint64, month, year int, delta int64) error {
	const q = `INSERT INTO env_scores (user_id, month, year, score) VALUES (?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE score = score + VALUES(score)`
	_, err := t.tx.ExecContext(ctx, q, userID, month, year, delta)
	return err
}

func (t *storeTx) AppendAudit(ctx context.Context, e model.AuditLogEntry) error {
	const q = `INSERT INTO audit_log (entity, action, before_json, after_json, message) VALUES (?, ?, ?, ?, ?)`
	_, err := t.tx.ExecContext(ctx, q, e.Entity, e.Action, e.Before, e.After, e.Message)
	return err
}
