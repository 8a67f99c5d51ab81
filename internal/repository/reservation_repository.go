package repository

import (
	"context"
	"database/sql"
	"time"
)

// ReservationRepo serves the read side of reservations.  Creation and
// every status change run through the lifecycle engine; here live the
// joined views shown to collectors and listing owners.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// ReservationDetail is a reservation joined with its listing, the
// listing's waste type and the owner for display to the collector.
type ReservationDetail struct {
	ID            uint64  `json:"id"`
	ListingID     uint64  `json:"listing_id"`
	CollectorID   uint64  `json:"collector_id"`
	Status        string  `json:"status"`
	PickupAt      string  `json:"pickup_at"`
	Amount        float64 `json:"amount"`
	Description   string  `json:"description"`
	WasteTypeName string  `json:"waste_type_name"`
	UnitLabel     string  `json:"unit_label"`
	OwnerID       uint64  `json:"owner_id"`
	OwnerEmail    string  `json:"owner_email"`
	CreatedAt     string  `json:"created_at"`
}

const reservationDetailQuery = `SELECT r.id, r.listing_id, r.collector_id, r.status, r.pickup_at,
       l.amount, l.description, t.name, t.unit_label, l.owner_id, u.email, r.created_at
FROM reservations r
JOIN waste_listings l ON l.id = r.listing_id
JOIN waste_types t ON t.id = l.waste_type_id
JOIN users u ON u.id = l.owner_id`

func scanReservationDetail(scan func(dest ...interface{}) error) (ReservationDetail, error) {
	var (
		d         ReservationDetail
		pickupAt  time.Time
		createdAt time.Time
	)
	err := scan(
		&d.ID, &d.ListingID, &d.CollectorID, &d.Status, &pickupAt,
		&d.Amount, &d.Description, &d.WasteTypeName, &d.UnitLabel, &d.OwnerID, &d.OwnerEmail, &createdAt,
	)
	if err != nil {
		return ReservationDetail{}, err
	}
	d.PickupAt = pickupAt.UTC().Format(time.RFC3339)
	d.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	return d, nil
}

// ListByCollector returns all reservations made by the given user,
// newest first.
func (r *ReservationRepo) ListByCollector(ctx context.Context, collectorID uint64) ([]ReservationDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		reservationDetailQuery+" WHERE r.collector_id = ? ORDER BY r.created_at DESC", collectorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]ReservationDetail, 0)
	for rows.Next() {
		d, err := scanReservationDetail(rows.Scan)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// GetDetail returns one reservation with its joins, enforcing that
// the caller is either the collector or the listing owner.  It
// returns sql.ErrNoRows when the reservation does not exist and
// ErrForbidden when it belongs to someone else.
func (r *ReservationRepo) GetDetail(ctx context.Context, reservationID, callerID uint64) (ReservationDetail, error) {
	row := r.db.QueryRowContext(ctx, reservationDetailQuery+" WHERE r.id = ?", reservationID)
	d, err := scanReservationDetail(row.Scan)
	if err != nil {
		return ReservationDetail{}, err
	}
	if d.CollectorID != callerID && d.OwnerID != callerID {
		return ReservationDetail{}, ErrForbidden
	}
	return d, nil
}
