package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/recycleshare/recycleshare/internal/model"
)

// ListingRepo serves the read side of waste listings: public browsing
// and per-owner views.  All lifecycle mutations go through the engine;
// this repository only issues parameterized SELECTs.
type ListingRepo struct {
	db *sql.DB
}

// NewListingRepo returns a new ListingRepo bound to the given database.
func NewListingRepo(db *sql.DB) *ListingRepo { return &ListingRepo{db: db} }

// ListingDetail is a listing joined with its waste type and owner for
// display.  Collector information is only attached when an active
// reservation exists.
type ListingDetail struct {
	ID            uint64  `json:"id"`
	OwnerID       uint64  `json:"owner_id"`
	OwnerEmail    string  `json:"owner_email"`
	WasteTypeID   uint64  `json:"waste_type_id"`
	WasteTypeName string  `json:"waste_type_name"`
	UnitLabel     string  `json:"unit_label"`
	Amount        float64 `json:"amount"`
	Description   string  `json:"description"`
	Status        string  `json:"status"`
	CreatedAt     string  `json:"created_at"`
	ReservationID *uint64 `json:"reservation_id,omitempty"`
	CollectorID   *uint64 `json:"collector_id,omitempty"`
	PickupAt      *string `json:"pickup_at,omitempty"`
}

const listingDetailQuery = `SELECT l.id, l.owner_id, u.email, l.waste_type_id, t.name, t.unit_label,
       l.amount, l.description, l.status, l.created_at,
       r.id, r.collector_id, r.pickup_at
FROM waste_listings l
JOIN users u ON u.id = l.owner_id
JOIN waste_types t ON t.id = l.waste_type_id
LEFT JOIN reservations r ON r.listing_id = l.id AND r.status <> 'CANCELLED'`

func scanListingDetail(scan func(dest ...interface{}) error) (ListingDetail, error) {
	var (
		d         ListingDetail
		createdAt time.Time
		resID     sql.NullInt64
		collID    sql.NullInt64
		pickupAt  sql.NullTime
	)
	err := scan(
		&d.ID, &d.OwnerID, &d.OwnerEmail, &d.WasteTypeID, &d.WasteTypeName, &d.UnitLabel,
		&d.Amount, &d.Description, &d.Status, &createdAt,
		&resID, &collID, &pickupAt,
	)
	if err != nil {
		return ListingDetail{}, err
	}
	d.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	if resID.Valid {
		id := uint64(resID.Int64)
		d.ReservationID = &id
	}
	if collID.Valid {
		id := uint64(collID.Int64)
		d.CollectorID = &id
	}
	if pickupAt.Valid {
		iso := pickupAt.Time.UTC().Format(time.RFC3339)
		d.PickupAt = &iso
	}
	return d, nil
}

// ListPublic returns listings for browsing, optionally filtered by
// status and/or waste type.  Results are ordered newest first.
func (r *ListingRepo) ListPublic(ctx context.Context, status string, wasteTypeID uint64) ([]ListingDetail, error) {
	q := listingDetailQuery
	args := make([]interface{}, 0, 2)
	where := ""
	if status != "" {
		where = " WHERE l.status = ?"
		args = append(args, status)
	}
	if wasteTypeID != 0 {
		if where == "" {
			where = " WHERE l.waste_type_id = ?"
		} else {
			where += " AND l.waste_type_id = ?"
		}
		args = append(args, wasteTypeID)
	}
	rows, err := r.db.QueryContext(ctx, q+where+" ORDER BY l.created_at DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]ListingDetail, 0)
	for rows.Next() {
		d, err := scanListingDetail(rows.Scan)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// GetDetail returns one listing with its joins.  sql.ErrNoRows is
// returned when the listing does not exist.
func (r *ListingRepo) GetDetail(ctx context.Context, id uint64) (ListingDetail, error) {
	row := r.db.QueryRowContext(ctx, listingDetailQuery+" WHERE l.id = ?", id)
	return scanListingDetail(row.Scan)
}

// ListByOwner returns every listing posted by the given user, newest
// first, including collected and cancelled ones.
func (r *ListingRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]ListingDetail, error) {
	rows, err := r.db.QueryContext(ctx, listingDetailQuery+" WHERE l.owner_id = ? ORDER BY l.created_at DESC", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]ListingDetail, 0)
	for rows.Next() {
		d, err := scanListingDetail(rows.Scan)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// Get returns the bare listing row.  Handlers use it for ownership
// checks on read endpoints; mutations re-check inside the engine's
// transaction.
func (r *ListingRepo) Get(ctx context.Context, id uint64) (model.WasteListing, error) {
	const q = `SELECT id, owner_id, waste_type_id, amount, description, status, created_at, updated_at
	           FROM waste_listings WHERE id = ? LIMIT 1`
	var l model.WasteListing
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&l.ID, &l.OwnerID, &l.WasteTypeID, &l.Amount, &l.Description, &l.Status, &l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}
