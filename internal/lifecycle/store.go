package lifecycle

import (
	"context"

	"github.com/recycleshare/recycleshare/internal/model"
)

// Store is the persistence boundary consumed by the Engine.  WithinTx
// runs fn inside one transaction: either every write fn performed is
// committed, or none are.  The MySQL implementation lives in the
// repository package; tests supply a mock.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx exposes the row-level primitives an engine operation composes
// into one atomic transition.  The two CompareAndSet methods are the
// concurrency anchor: they issue a single conditional UPDATE guarded
// by the expected status and report whether a row actually changed,
// so two concurrent callers can never both win.
type Tx interface {
	// Listings.
	GetListing(ctx context.Context, id uint64) (model.WasteListing, error)
	InsertListing(ctx context.Context, l *model.WasteListing) error
	UpdateListingFields(ctx context.Context, id, wasteTypeID uint64, amount float64, description string) error
	CompareAndSetListingStatus(ctx context.Context, id uint64, expected, next string) (bool, error)
	DeleteListing(ctx context.Context, id uint64) error

	// Reservations.
	GetReservation(ctx context.Context, id uint64) (model.Reservation, error)
	InsertReservation(ctx context.Context, r *model.Reservation) error
	CompareAndSetReservationStatus(ctx context.Context, id uint64, expected, next string) (bool, error)
	ActiveReservationExists(ctx context.Context, listingID uint64) (bool, error)

	// Catalog (read-only reference data).
	GetWasteType(ctx context.Context, id uint64) (model.WasteType, error)
	CountListingsForType(ctx context.Context, wasteTypeID uint64) (int64, error)
	DeleteWasteType(ctx context.Context, id uint64) error

	// Side effects.
	UpsertScore(ctx context.Context, userID uint64, month, year int, delta int64) error
	AppendAudit(ctx context.Context, e model.AuditLogEntry) error
}

// ErrNotFound is returned by Tx implementations when a requested row
// does not exist.  The engine translates it into a KindNotFound error
// with an entity-specific message.
var ErrNotFound = &Error{Kind: KindNotFound, Msg: "not found"}
