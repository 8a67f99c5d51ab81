package model

// Lifecycle statuses shared by waste listings and reservations.  The
// listing status is the canonical state of the pair; a reservation
// mirrors it.  Legal transitions are enforced by the lifecycle engine:
//
//	WAITING  -> RESERVED   (a collector reserves the listing)
//	RESERVED -> COLLECTED  (the collector completes the pickup, terminal)
//	RESERVED -> WAITING    (the reservation is cancelled; the reservation
//	                        row itself becomes CANCELLED)
const (
	StatusWaiting   = "WAITING"
	StatusReserved  = "RESERVED"
	StatusCollected = "COLLECTED"
	StatusCancelled = "CANCELLED"
)

// ValidStatus reports whether s is one of the four lifecycle statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusWaiting, StatusReserved, StatusCollected, StatusCancelled:
		return true
	}
	return false
}
