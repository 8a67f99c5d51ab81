package model

import "time"

// Reservation records a collector's claim on a waste listing with a
// scheduled pickup time.  At most one non-cancelled reservation may
// exist per listing.  A reservation that reached COLLECTED is never
// deleted.
//
// Fields:
//  ID          – primary key identifier.
//  ListingID   – listing being claimed.
//  CollectorID – user who will pick up the waste.
//  PickupAt    – agreed pickup time.
//  Status      – mirrors the listing lifecycle (RESERVED on creation,
//                then COLLECTED or CANCELLED).
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Reservation struct {
	ID          uint64    // reservations.id
	ListingID   uint64    // reservations.listing_id
	CollectorID uint64    // reservations.collector_id
	PickupAt    time.Time // reservations.pickup_at
	Status      string    // reservations.status
	CreatedAt   time.Time // reservations.created_at
	UpdatedAt   time.Time // reservations.updated_at
}
