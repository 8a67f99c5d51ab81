package model

import "time"

// WasteListing is a posted quantity of recyclable waste awaiting
// collection.  Its Status field is the canonical state of the
// listing/reservation pair and only moves along the transitions
// documented in status.go.
//
// Fields:
//  ID          – primary key identifier.
//  OwnerID     – user who posted the listing.
//  WasteTypeID – catalog entry describing the waste.
//  Amount      – posted quantity; always > 0.
//  Description – free-form text shown to collectors.
//  Status      – lifecycle status (WAITING/RESERVED/COLLECTED/CANCELLED).
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type WasteListing struct {
	ID          uint64    // waste_listings.id
	OwnerID     uint64    // waste_listings.owner_id
	WasteTypeID uint64    // waste_listings.waste_type_id
	Amount      float64   // waste_listings.amount
	Description string    // waste_listings.description
	Status      string    // waste_listings.status
	CreatedAt   time.Time // waste_listings.created_at
	UpdatedAt   time.Time // waste_listings.updated_at
}
