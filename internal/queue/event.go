// Package queue defines message payloads exchanged over the message broker.
package queue

// CollectionCompletedEvent is published when a reservation reaches
// COLLECTED.  It carries enough information for downstream consumers
// to log, notify, or feed analytics without querying the primary
// database.
type CollectionCompletedEvent struct {
	ReservationID uint64  `json:"reservation_id"`
	ListingID     uint64  `json:"listing_id"`
	OwnerID       uint64  `json:"owner_id"`
	CollectorID   uint64  `json:"collector_id"`
	WasteType     string  `json:"waste_type"`
	UnitLabel     string  `json:"unit_label"`
	Amount        float64 `json:"amount"`
	Points        int64   `json:"points"`
	Month         int     `json:"month"`
	Year          int     `json:"year"`
	CollectedAt   string  `json:"collected_at"`
}

// OTPEmailEvent asks the mailer to deliver a one-time code.  The
// mailer runs outside this process; publishing keeps SMTP out of the
// request path.
type OTPEmailEvent struct {
	UserID    uint64 `json:"user_id"`
	Email     string `json:"email"`
	Code      string `json:"code"`
	Purpose   string `json:"purpose"`
	ExpiresAt string `json:"expires_at"`
}
