package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/recycleshare/recycleshare/internal/model"
)

// Engine owns every legal state transition of a WasteListing and its
// Reservation.  Each operation is one short-lived request-response
// unit of work: the state change and all of its side effects (score
// accrual, audit append) happen inside a single Store transaction, so
// either everything commits or nothing does.  Operations are safe to
// invoke concurrently; per-listing mutual exclusion comes from the
// conditional status updates, not from any process-wide lock.
type Engine struct {
	store Store
	now   func() time.Time
}

// New returns an Engine bound to the given store.  The clock defaults
// to time.Now in UTC and is injectable for tests.
func New(store Store) *Engine {
	return &Engine{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the engine's clock.  Intended for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Points converts a collected amount into reward points using the
// waste type's per-unit score.  Each accrual event contributes an
// integer: the product is rounded once, per event, and period totals
// are running sums of those integers.  Historical totals therefore
// never change when a listing is edited after collection.
func Points(amount, scorePerUnit float64) int64 {
	return int64(math.Round(amount * scorePerUnit))
}

// Period returns the (month, year) accrual bucket for t.
func Period(t time.Time) (month, year int) {
	return int(t.Month()), t.Year()
}

// CreateListing validates the input and inserts a new listing in
// WAITING state, appending the creation audit entry in the same
// transaction.  It fails with a validation error when amount <= 0 and
// a not-found error when the waste type is unknown.
func (e *Engine) CreateListing(ctx context.Context, ownerID, wasteTypeID uint64, amount float64, description string) (model.WasteListing, error) {
	if amount <= 0 {
		return model.WasteListing{}, errf(KindValidation, "amount must be greater than zero")
	}
	var created model.WasteListing
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		wt, err := tx.GetWasteType(ctx, wasteTypeID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return errf(KindNotFound, "unknown waste type")
			}
			return err
		}
		l := model.WasteListing{
			OwnerID:     ownerID,
			WasteTypeID: wt.ID,
			Amount:      amount,
			Description: description,
			Status:      model.StatusWaiting,
		}
		if err := tx.InsertListing(ctx, &l); err != nil {
			return err
		}
		after := snapshotListing(l)
		if err := tx.AppendAudit(ctx, model.AuditLogEntry{
			Entity:  model.AuditEntityListing,
			Action:  model.AuditActionCreated,
			After:   after,
			Message: fmt.Sprintf("listing %d created: %.2f %s of %s", l.ID, amount, wt.UnitLabel, wt.Name),
		}); err != nil {
			return err
		}
		created = l
		return nil
	})
	if err != nil {
		return model.WasteListing{}, err
	}
	return created, nil
}

// UpdateListing lets the owner edit description, amount and type while
// the listing has not been collected.  It is a plain field update with
// no lifecycle side effects beyond the audit entry.
func (e *Engine) UpdateListing(ctx context.Context, actorID, listingID, wasteTypeID uint64, amount float64, description string) (model.WasteListing, error) {
	if amount <= 0 {
		return model.WasteListing{}, errf(KindValidation, "amount must be greater than zero")
	}
	var updated model.WasteListing
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		l, err := tx.GetListing(ctx, listingID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return errf(KindNotFound, "listing not found")
			}
			return err
		}
		if l.OwnerID != actorID {
			return errf(KindForbidden, "listing belongs to another user")
		}
		switch l.Status {
		case model.StatusWaiting, model.StatusReserved:
			// editable states
		default:
			return errf(KindState, "a %s listing can no longer be edited", lower(l.Status))
		}
		if _, err := tx.GetWasteType(ctx, wasteTypeID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return errf(KindNotFound, "unknown waste type")
			}
			return err
		}
		before := snapshotListing(l)
		if err := tx.UpdateListingFields(ctx, l.ID, wasteTypeID, amount, description); err != nil {
			return err
		}
		l.WasteTypeID = wasteTypeID
		l.Amount = amount
		l.Description = description
		after := snapshotListing(l)
		if err := tx.AppendAudit(ctx, model.AuditLogEntry{
			Entity:  model.AuditEntityListing,
			Action:  model.AuditActionUpdated,
			Before:  before,
			After:   after,
			Message: fmt.Sprintf("listing %d updated by its owner", l.ID),
		}); err != nil {
			return err
		}
		updated = l
		return nil
	})
	if err != nil {
		return model.WasteListing{}, err
	}
	return updated, nil
}

// Reserve claims a WAITING listing for the collector.  The WAITING ->
// RESERVED flip is a single conditional update: when two collectors
// race on the same listing exactly one sees a row change and the other
// receives a conflict error.  The reservation row and the audit entry
// are written in the same transaction as the flip.
func (e *Engine) Reserve(ctx context.Context, listingID, collectorID uint64, pickupAt time.Time) (model.Reservation, error) {
	if pickupAt.Before(e.now()) {
		return model.Reservation{}, errf(KindValidation, "pickup time is in the past")
	}
	var created model.Reservation
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		l, err := tx.GetListing(ctx, listingID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return errf(KindNotFound, "listing not found")
			}
			return err
		}
		if l.OwnerID == collectorID {
			return errf(KindValidation, "you cannot reserve your own listing")
		}
		ok, err := tx.CompareAndSetListingStatus(ctx, l.ID, model.StatusWaiting, model.StatusReserved)
		if err != nil {
			return err
		}
		if !ok {
			return errf(KindConflict, "listing is no longer available")
		}
		r := model.Reservation{
			ListingID:   l.ID,
			CollectorID: collectorID,
			PickupAt:    pickupAt.UTC(),
			Status:      model.StatusReserved,
		}
		if err := tx.InsertReservation(ctx, &r); err != nil {
			return err
		}
		after := snapshotReservation(r)
		if err := tx.AppendAudit(ctx, model.AuditLogEntry{
			Entity:  model.AuditEntityReservation,
			Action:  model.AuditActionReserved,
			After:   after,
			Message: fmt.Sprintf("listing %d reserved by user %d, pickup at %s", l.ID, collectorID, r.PickupAt.Format(time.RFC3339)),
		}); err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		return model.Reservation{}, err
	}
	return created, nil
}

// CollectionResult reports the outcome of a completed pickup.
type CollectionResult struct {
	Reservation model.Reservation
	Listing     model.WasteListing
	Points      int64
	Month       int
	Year        int
}

// CompleteCollection marks a RESERVED reservation as collected.  The
// actual amount may differ from the posted amount (scale weighing at
// pickup) but must be positive.  In one transaction it flips both the
// reservation and its listing to COLLECTED, accrues
// round(actualAmount * scorePerUnit) points to the listing owner's
// (month, year) bucket by an additive upsert, and appends the audit
// entry reporting the points earned.
func (e *Engine) CompleteCollection(ctx context.Context, reservationID, collectorID uint64, actualAmount float64) (CollectionResult, error) {
	if actualAmount <= 0 {
		return CollectionResult{}, errf(KindValidation, "collected amount must be greater than zero")
	}
	var out CollectionResult
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		r, err := tx.GetReservation(ctx, reservationID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return errf(KindNotFound, "reservation not found")
			}
			return err
		}
		if r.CollectorID != collectorID {
			return errf(KindForbidden, "reservation belongs to another collector")
		}
		if r.Status != model.StatusReserved {
			return errf(KindState, "reservation is %s and cannot be collected", lower(r.Status))
		}
		ok, err := tx.CompareAndSetReservationStatus(ctx, r.ID, model.StatusReserved, model.StatusCollected)
		if err != nil {
			return err
		}
		if !ok {
			return errf(KindConflict, "reservation changed concurrently")
		}
		ok, err = tx.CompareAndSetListingStatus(ctx, r.ListingID, model.StatusReserved, model.StatusCollected)
		if err != nil {
			return err
		}
		if !ok {
			return errf(KindConflict, "listing changed concurrently")
		}
		l, err := tx.GetListing(ctx, r.ListingID)
		if err != nil {
			return err
		}
		wt, err := tx.GetWasteType(ctx, l.WasteTypeID)
		if err != nil {
			return err
		}
		points := Points(actualAmount, wt.RecycleScorePerUnit)
		month, year := Period(e.now())
		if err := tx.UpsertScore(ctx, l.OwnerID, month, year, points); err != nil {
			return err
		}
		before := snapshotReservation(r)
		r.Status = model.StatusCollected
		after := snapshotReservation(r)
		if err := tx.AppendAudit(ctx, model.AuditLogEntry{
			Entity:  model.AuditEntityReservation,
			Action:  model.AuditActionCollected,
			Before:  before,
			After:   after,
			Message: fmt.Sprintf("listing %d collected: %.2f %s of %s, %d points to user %d", l.ID, actualAmount, wt.UnitLabel, wt.Name, points, l.OwnerID),
		}); err != nil {
			return err
		}
		l.Status = model.StatusCollected
		out = CollectionResult{Reservation: r, Listing: l, Points: points, Month: month, Year: year}
		return nil
	})
	if err != nil {
		return CollectionResult{}, err
	}
	return out, nil
}

// CancelReservation cancels a RESERVED reservation and returns its
// listing to WAITING so any collector can claim it again.  Cancelling
// a collected reservation fails, and cancelling twice returns the
// same state error without a second state change.  The owner of the
// listing and the collector may both cancel.
func (e *Engine) CancelReservation(ctx context.Context, reservationID, actorID uint64) error {
	return e.store.WithinTx(ctx, func(tx Tx) error {
		r, err := tx.GetReservation(ctx, reservationID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return errf(KindNotFound, "reservation not found")
			}
			return err
		}
		l, err := tx.GetListing(ctx, r.ListingID)
		if err != nil {
			return err
		}
		if actorID != r.CollectorID && actorID != l.OwnerID {
			return errf(KindForbidden, "reservation belongs to another user")
		}
		switch r.Status {
		case model.StatusCollected:
			return errf(KindState, "a collected reservation cannot be cancelled")
		case model.StatusCancelled:
			return errf(KindState, "reservation is already cancelled")
		}
		ok, err := tx.CompareAndSetReservationStatus(ctx, r.ID, model.StatusReserved, model.StatusCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return errf(KindConflict, "reservation changed concurrently")
		}
		ok, err = tx.CompareAndSetListingStatus(ctx, r.ListingID, model.StatusReserved, model.StatusWaiting)
		if err != nil {
			return err
		}
		if !ok {
			return errf(KindConflict, "listing changed concurrently")
		}
		before := snapshotReservation(r)
		r.Status = model.StatusCancelled
		after := snapshotReservation(r)
		return tx.AppendAudit(ctx, model.AuditLogEntry{
			Entity:  model.AuditEntityReservation,
			Action:  model.AuditActionCancelled,
			Before:  before,
			After:   after,
			Message: fmt.Sprintf("reservation %d cancelled, listing %d is available again", r.ID, r.ListingID),
		})
	})
}

// DeleteListing removes a listing that has no live reservation.
// Admins may delete any listing; residents only their own.  A
// collected listing is history backing accrued points and the audit
// trail, so it can never be removed.
func (e *Engine) DeleteListing(ctx context.Context, actorID uint64, isAdmin bool, listingID uint64) error {
	return e.store.WithinTx(ctx, func(tx Tx) error {
		l, err := tx.GetListing(ctx, listingID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return errf(KindNotFound, "listing not found")
			}
			return err
		}
		if !isAdmin && l.OwnerID != actorID {
			return errf(KindForbidden, "listing belongs to another user")
		}
		if l.Status == model.StatusCollected {
			return errf(KindState, "a collected listing cannot be deleted")
		}
		active, err := tx.ActiveReservationExists(ctx, l.ID)
		if err != nil {
			return err
		}
		if active {
			return errf(KindConflict, "listing has an active reservation")
		}
		before := snapshotListing(l)
		if err := tx.DeleteListing(ctx, l.ID); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, model.AuditLogEntry{
			Entity:  model.AuditEntityListing,
			Action:  model.AuditActionDeleted,
			Before:  before,
			Message: fmt.Sprintf("listing %d deleted", l.ID),
		})
	})
}

// DeleteWasteType removes a catalog entry, refusing while any listing
// still references it.  This is a referential-integrity guard, not a
// cascade: the conflict is surfaced to the admin instead of silently
// removing listings.
func (e *Engine) DeleteWasteType(ctx context.Context, wasteTypeID uint64) error {
	return e.store.WithinTx(ctx, func(tx Tx) error {
		wt, err := tx.GetWasteType(ctx, wasteTypeID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return errf(KindNotFound, "waste type not found")
			}
			return err
		}
		n, err := tx.CountListingsForType(ctx, wt.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return errf(KindConflict, "waste type %q is in use by %d listing(s)", wt.Name, n)
		}
		before := snapshotWasteType(wt)
		if err := tx.DeleteWasteType(ctx, wt.ID); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, model.AuditLogEntry{
			Entity:  model.AuditEntityWasteType,
			Action:  model.AuditActionDeleted,
			Before:  before,
			Message: fmt.Sprintf("waste type %q deleted", wt.Name),
		})
	})
}

// snapshot helpers serialize the state carried into audit entries.
// Marshalling these flat structs cannot fail, so errors are ignored.

func snapshotListing(l model.WasteListing) *string {
	b, _ := json.Marshal(map[string]interface{}{
		"id":            l.ID,
		"owner_id":      l.OwnerID,
		"waste_type_id": l.WasteTypeID,
		"amount":        l.Amount,
		"description":   l.Description,
		"status":        l.Status,
	})
	s := string(b)
	return &s
}

func snapshotReservation(r model.Reservation) *string {
	b, _ := json.Marshal(map[string]interface{}{
		"id":           r.ID,
		"listing_id":   r.ListingID,
		"collector_id": r.CollectorID,
		"pickup_at":    r.PickupAt.Format(time.RFC3339),
		"status":       r.Status,
	})
	s := string(b)
	return &s
}

func snapshotWasteType(wt model.WasteType) *string {
	b, _ := json.Marshal(map[string]interface{}{
		"id":                     wt.ID,
		"name":                   wt.Name,
		"unit_label":             wt.UnitLabel,
		"recycle_score_per_unit": wt.RecycleScorePerUnit,
	})
	s := string(b)
	return &s
}

func lower(status string) string {
	switch status {
	case model.StatusWaiting:
		return "waiting"
	case model.StatusReserved:
		return "reserved"
	case model.StatusCollected:
		return "collected"
	case model.StatusCancelled:
		return "cancelled"
	}
	return status
}
