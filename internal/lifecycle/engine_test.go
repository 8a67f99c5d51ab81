package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/recycleshare/recycleshare/internal/model"
)

// memStore is an in-memory Store used to exercise full engine
// operations without a database.  WithinTx serializes callers with a
// mutex, mirroring the row-lock serialization MySQL gives the
// conditional updates, and discards writes when fn returns an error.
type memStore struct {
	mu           sync.Mutex
	listings     map[uint64]model.WasteListing
	reservations map[uint64]model.Reservation
	wasteTypes   map[uint64]model.WasteType
	scores       map[[3]uint64]int64 // user, month, year -> score
	audit        []model.AuditLogEntry
	nextID       uint64
}

func newMemStore() *memStore {
	return &memStore{
		listings:     map[uint64]model.WasteListing{},
		reservations: map[uint64]model.Reservation{},
		wasteTypes:   map[uint64]model.WasteType{},
		scores:       map[[3]uint64]int64{},
		nextID:       1,
	}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.clone()
	if err := fn(&memTx{s: s}); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

func (s *memStore) clone() *memStore {
	c := newMemStore()
	for k, v := range s.listings {
		c.listings[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, v := range s.wasteTypes {
		c.wasteTypes[k] = v
	}
	for k, v := range s.scores {
		c.scores[k] = v
	}
	c.audit = append([]model.AuditLogEntry(nil), s.audit...)
	c.nextID = s.nextID
	return c
}

func (s *memStore) restore(c *memStore) {
	s.listings, s.reservations, s.wasteTypes = c.listings, c.reservations, c.wasteTypes
	s.scores, s.audit, s.nextID = c.scores, c.audit, c.nextID
}

func (s *memStore) addWasteType(name, unit string, perUnit float64) uint64 {
	id := s.nextID
	s.nextID++
	s.wasteTypes[id] = model.WasteType{ID: id, Name: name, UnitLabel: unit, RecycleScorePerUnit: perUnit}
	return id
}

type memTx struct {
	s *memStore
}

func (t *memTx) GetListing(ctx context.Context, id uint64) (model.WasteListing, error) {
	l, ok := t.s.listings[id]
	if !ok {
		return model.WasteListing{}, ErrNotFound
	}
	return l, nil
}

func (t *memTx) InsertListing(ctx context.Context, l *model.WasteListing) error {
	l.ID = t.s.nextID
	t.s.nextID++
	t.s.listings[l.ID] = *l
	return nil
}

func (t *memTx) UpdateListingFields(ctx context.Context, id, wasteTypeID uint64, amount float64, description string) error {
	l := t.s.listings[id]
	l.WasteTypeID, l.Amount, l.Description = wasteTypeID, amount, description
	t.s.listings[id] = l
	return nil
}

func (t *memTx) CompareAndSetListingStatus(ctx context.Context, id uint64, expected, next string) (bool, error) {
	l, ok := t.s.listings[id]
	if !ok || l.Status != expected {
		return false, nil
	}
	l.Status = next
	t.s.listings[id] = l
	return true, nil
}

func (t *memTx) DeleteListing(ctx context.Context, id uint64) error {
	delete(t.s.listings, id)
	return nil
}

func (t *memTx) GetReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	r, ok := t.s.reservations[id]
	if !ok {
		return model.Reservation{}, ErrNotFound
	}
	return r, nil
}

func (t *memTx) InsertReservation(ctx context.Context, r *model.Reservation) error {
	r.ID = t.s.nextID
	t.s.nextID++
	t.s.reservations[r.ID] = *r
	return nil
}

func (t *memTx) CompareAndSetReservationStatus(ctx context.Context, id uint64, expected, next string) (bool, error) {
	r, ok := t.s.reservations[id]
	if !ok || r.Status != expected {
		return false, nil
	}
	r.Status = next
	t.s.reservations[id] = r
	return true, nil
}

func (t *memTx) ActiveReservationExists(ctx context.Context, listingID uint64) (bool, error) {
	for _, r := range t.s.reservations {
		if r.ListingID == listingID && r.Status != model.StatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) GetWasteType(ctx context.Context, id uint64) (model.WasteType, error) {
	wt, ok := t.s.wasteTypes[id]
	if !ok {
		return model.WasteType{}, ErrNotFound
	}
	return wt, nil
}

func (t *memTx) CountListingsForType(ctx context.Context, wasteTypeID uint64) (int64, error) {
	var n int64
	for _, l := range t.s.listings {
		if l.WasteTypeID == wasteTypeID {
			n++
		}
	}
	return n, nil
}

func (t *memTx) DeleteWasteType(ctx context.Context, id uint64) error {
	delete(t.s.wasteTypes, id)
	return nil
}

func (t *memTx) UpsertScore(ctx context.Context, userID uint64, month, year int, delta int64) error {
	key := [3]uint64{userID, uint64(month), uint64(year)}
	t.s.scores[key] += delta
	return nil
}

func (t *memTx) AppendAudit(ctx context.Context, e model.AuditLogEntry) error {
	t.s.audit = append(t.s.audit, e)
	return nil
}

// fixedClock pins the engine to a deterministic period.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var testNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func newTestEngine(s *memStore) *Engine {
	return New(s).WithClock(fixedClock(testNow))
}

func TestCreateListing(t *testing.T) {
	s := newMemStore()
	typeID := s.addWasteType("Glass", "kg", 20)
	e := newTestEngine(s)

	l, err := e.CreateListing(context.Background(), 1, typeID, 5.5, "bottles")
	require.NoError(t, err)
	require.Equal(t, model.StatusWaiting, l.Status)
	require.Equal(t, uint64(1), l.OwnerID)
	require.NotZero(t, l.ID)

	require.Len(t, s.audit, 1)
	require.Equal(t, model.AuditEntityListing, s.audit[0].Entity)
	require.Equal(t, model.AuditActionCreated, s.audit[0].Action)
	require.Nil(t, s.audit[0].Before)
	require.NotNil(t, s.audit[0].After)
}

func TestCreateListingRejectsBadInput(t *testing.T) {
	s := newMemStore()
	typeID := s.addWasteType("Glass", "kg", 20)
	e := newTestEngine(s)

	_, err := e.CreateListing(context.Background(), 1, typeID, 0, "")
	require.Equal(t, KindValidation, KindOf(err))

	_, err = e.CreateListing(context.Background(), 1, typeID, -2, "")
	require.Equal(t, KindValidation, KindOf(err))

	_, err = e.CreateListing(context.Background(), 1, 999, 1, "")
	require.Equal(t, KindNotFound, KindOf(err))

	require.Empty(t, s.audit)
}

func TestUpdateListingGuards(t *testing.T) {
	s := newMemStore()
	typeID := s.addWasteType("Glass", "kg", 20)
	e := newTestEngine(s)

	l, err := e.CreateListing(context.Background(), 1, typeID, 3, "jars")
	require.NoError(t, err)

	// Another user cannot edit.
	_, err = e.UpdateListing(context.Background(), 2, l.ID, typeID, 4, "x")
	require.Equal(t, KindForbidden, KindOf(err))

	// The owner can, while the listing is live.
	updated, err := e.UpdateListing(context.Background(), 1, l.ID, typeID, 4, "jars and bottles")
	require.NoError(t, err)
	require.Equal(t, 4.0, updated.Amount)

	// A reserved listing is still editable by its owner.
	r, err := e.Reserve(context.Background(), l.ID, 2, testNow.Add(time.Hour))
	require.NoError(t, err)
	updated, err = e.UpdateListing(context.Background(), 1, l.ID, typeID, 4.5, "and some cans")
	require.NoError(t, err)
	require.Equal(t, 4.5, updated.Amount)

	// After collection edits are refused.
	_, err = e.CompleteCollection(context.Background(), r.ID, 2, 4)
	require.NoError(t, err)
	_, err = e.UpdateListing(context.Background(), 1, l.ID, typeID, 5, "x")
	require.Equal(t, KindState, KindOf(err))
}

func TestReserveFirstWins(t *testing.T) {
	s := newMemStore()
	typeID := s.addWasteType("PET", "kg", 10)
	e := newTestEngine(s)

	l, err := e.CreateListing(context.Background(), 1, typeID, 2, "")
	require.NoError(t, err)

	pickup := testNow.Add(24 * time.Hour)
	_, err = e.Reserve(context.Background(), l.ID, 2, pickup)
	require.NoError(t, err)

	// The second collector loses with a conflict, not an error page.
	_, err = e.Reserve(context.Background(), l.ID, 3, pickup)
	require.Equal(t, KindConflict, KindOf(err))

	got := s.listings[l.ID]
	require.Equal(t, model.StatusReserved, got.Status)
	require.Len(t, s.reservations, 1)
}

func TestReserveConcurrentSingleWinner(t *testing.T) {
	s := newMemStore()
	typeID := s.addWasteType("PET", "kg", 10)
	e := newTestEngine(s)

	l, err := e.CreateListing(context.Background(), 1, typeID, 2, "")
	require.NoError(t, err)

	pickup := testNow.Add(24 * time.Hour)
	const collectors = 8
	errs := make(chan error, collectors)
	var wg sync.WaitGroup
	for i := 0; i < collectors; i++ {
		wg.Add(1)
		go func(uid uint64) {
			defer wg.Done()
			_, err := e.Reserve(context.Background(), l.ID, uid, pickup)
			errs <- err
		}(uint64(i + 2))
	}
	wg.Wait()
	close(errs)

	wins, conflicts := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case KindOf(err) == KindConflict:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, collectors-1, conflicts)
}

func TestReserveValidation(t *testing.T) {
	s := newMemStore()
	typeID := s.addWasteType("PET", "kg", 10)
	e := newTestEngine(s)

	l, err := e.CreateListing(context.Background(), 1, typeID, 2, "")
	require.NoError(t, err)

	// Pickup in the past.
	_, err = e.Reserve(context.Background(), l.ID, 2, testNow.Add(-time.Minute))
	require.Equal(t, KindValidation, KindOf(err))

	// Owner reserving their own listing.
	_, err = e.Reserve(context.Background(), l.ID, 1, testNow.Add(time.Hour))
	require.Equal(t, KindValidation, KindOf(err))

	// Unknown listing.
	_, err = e.Reserve(context.Background(), 999, 2, testNow.Add(time.Hour))
	require.Equal(t, KindNotFound, KindOf(err))
}

func TestCompleteCollectionAccruesPoints(t *testing.T) {
	s := newMemStore()
	typeID := s.addWasteType("Glass", "kg", 20)
	e := newTestEngine(s)

	l, err := e.CreateListing(context.Background(), 1, typeID, 5, "")
	require.NoError(t, err)
	r, err := e.Reserve(context.Background(), l.ID, 2, testNow.Add(time.Hour))
	require.NoError(t, err)

	// Weighed amount differs from the posted one.
	out, err := e.CompleteCollection(context.Background(), r.ID, 2, 5.5)
	require.NoError(t, err)
	require.Equal(t, int64(110), out.Points)
	require.Equal(t, 6, out.Month)
	require.Equal(t, 2025, out.Year)
	require.Equal(t, model.StatusCollected, out.Reservation.Status)
	require.Equal(t, model.StatusCollected, out.Listing.Status)

	// Points go to the listing owner, not the collector.
	require.Equal(t, int64(110), s.scores[[3]uint64{1, 6, 2025}])
	require.Zero(t, s.scores[[3]uint64{2, 6, 2025}])
}

func TestCompleteCollectionAccrualIsAdditive(t *testing.T) {
	s := newMemStore()
	typeID := s.addWasteType("Paper", "kg", 3)
	e := newTestEngine(s)

	for i := 0; i < 3; i++ {
		l, err := e.CreateListing(context.Background(), 1, typeID, 1, "")
		require.NoError(t, err)
		r, err := e.Reserve(context.Background(), l.ID, 2, testNow.Add(time.Hour))
		require.NoError(t, err)
		// 1.5 * 3 = 4.5 rounds to 5 per event, not 13.5 rounded once.
		_, err = e.CompleteCollection(context.Background(), r.ID, 2, 1.5)
		require.NoError(t, err)
	}
	require.Equal(t, int64(15), s.scores[[3]uint64{1, 6, 2025}])
}

func TestCompleteCollectionGuards(t *testing.T) {
	s := newMemStore()
	typeID := s.addWasteType("Glass", "kg", 20)
	e := newTestEngine(s)

	l, err := e.CreateListing(context.Background(), 1, typeID, 5, "")
	require.NoError(t, err)
	r, err := e.Reserve(context.Background(), l.ID, 2, testNow.Add(time.Hour))
	require.NoError(t, err)

	// Zero or negative amounts are rejected before any state change.
	_, err = e.CompleteCollection(context.Background(), r.ID, 2, 0)
	require.Equal(t, KindValidation, KindOf(err))

	// Only the reserving collector can complete.
	_, err = e.CompleteCollection(context.Background(), r.ID, 3, 5)
	require.Equal(t, KindForbidden, KindOf(err))

	// Completing twice fails on state.
	_, err = e.CompleteCollection(context.Background(), r.ID, 2, 5)
	require.NoError(t, err)
	_, err = e.CompleteCollection(context.Background(), r.ID, 2, 5)
	require.Equal(t, KindState, KindOf(err))

	// The score accrued exactly once.
	require.Equal(t, int64(100), s.scores[[3]uint64{1, 6, 2025}])
}

func TestCancelReservation(t *testing.T) {
	s := newMemStore()
	typeID := s.addWasteType("Glass", "kg", 20)
	e := newTestEngine(s)

	l, err := e.CreateListing(context.Background(), 1, typeID, 5, "")
	require.NoError(t, err)
	r, err := e.Reserve(context.Background(), l.ID, 2, testNow.Add(time.Hour))
	require.NoError(t, err)

	// A stranger cannot cancel.
	err = e.CancelReservation(context.Background(), r.ID, 3)
	require.Equal(t, KindForbidden, KindOf(err))

	// The collector can; the listing returns to WAITING.
	err = e.CancelReservation(context.Background(), r.ID, 2)
	require.NoError(t, err)
	require.Equal(t, model.StatusCancelled, s.reservations[r.ID].Status)
	require.Equal(t, model.StatusWaiting, s.listings[l.ID].Status)

	// Cancelling again fails the same way every time.
	err = e.CancelReservation(context.Background(), r.ID, 2)
	require.Equal(t, KindState, KindOf(err))
	err = e.CancelReservation(context.Background(), r.ID, 2)
	require.Equal(t, KindState, KindOf(err))

	// The listing is claimable again after cancellation.
	_, err = e.Reserve(context.Background(), l.ID, 4, testNow.Add(2*time.Hour))
	require.NoError(t, err)
}

func TestCancelByOwner(t *testing.T) {
	s := newMemStore()
	typeID := s.addWasteType("Glass", "kg", 20)
	e := newTestEngine(s)

	l, err := e.CreateListing(context.Background(), 1, typeID, 5, "")
	require.NoError(t, err)
	r, err := e.Reserve(context.Background(), l.ID, 2, testNow.Add(time.Hour))
	require.NoError(t, err)

	err = e.CancelReservation(context.Background(), r.ID, 1)
	require.NoError(t, err)
	require.Equal(t, model.StatusWaiting, s.listings[l.ID].Status)
}

func TestCancelCollectedFails(t *testing.T) {
	s := newMemStore()
	typeID := s.addWasteType("Glass", "kg", 20)
	e := newTestEngine(s)

	l, err := e.CreateListing(context.Background(), 1, typeID, 5, "")
	require.NoError(t, err)
	r, err := e.Reserve(context.Background(), l.ID, 2, testNow.Add(time.Hour))
	require.NoError(t, err)
	_, err = e.CompleteCollection(context.Background(), r.ID, 2, 5)
	require.NoError(t, err)

	err = e.CancelReservation(context.Background(), r.ID, 2)
	require.Equal(t, KindState, KindOf(err))
	require.Equal(t, model.StatusCollected, s.listings[l.ID].Status)
}

func TestDeleteListingGuards(t *testing.T) {
	s := newMemStore()
	typeID := s.addWasteType("Glass", "kg", 20)
	e := newTestEngine(s)

	l, err := e.CreateListing(context.Background(), 1, typeID, 5, "")
	require.NoError(t, err)

	// Not the owner, not an admin.
	err = e.DeleteListing(context.Background(), 2, false, l.ID)
	require.Equal(t, KindForbidden, KindOf(err))

	// With an active reservation deletion conflicts, even for admins.
	r, err := e.Reserve(context.Background(), l.ID, 2, testNow.Add(time.Hour))
	require.NoError(t, err)
	err = e.DeleteListing(context.Background(), 1, false, l.ID)
	require.Equal(t, KindConflict, KindOf(err))
	err = e.DeleteListing(context.Background(), 99, true, l.ID)
	require.Equal(t, KindConflict, KindOf(err))

	// Cancel first, then the owner may delete.
	require.NoError(t, e.CancelReservation(context.Background(), r.ID, 2))
	require.NoError(t, e.DeleteListing(context.Background(), 1, false, l.ID))
	require.NotContains(t, s.listings, l.ID)
}

func TestDeleteListingCollectedIsTerminal(t *testing.T) {
	s := newMemStore()
	typeID := s.addWasteType("Glass", "kg", 20)
	e := newTestEngine(s)

	l, err := e.CreateListing(context.Background(), 1, typeID, 5, "")
	require.NoError(t, err)
	r, err := e.Reserve(context.Background(), l.ID, 2, testNow.Add(time.Hour))
	require.NoError(t, err)
	_, err = e.CompleteCollection(context.Background(), r.ID, 2, 5)
	require.NoError(t, err)

	// Neither the owner nor an admin can remove collected history.
	err = e.DeleteListing(context.Background(), 1, false, l.ID)
	require.Equal(t, KindState, KindOf(err))
	err = e.DeleteListing(context.Background(), 99, true, l.ID)
	require.Equal(t, KindState, KindOf(err))
	require.Contains(t, s.listings, l.ID)
	require.Equal(t, model.StatusCollected, s.listings[l.ID].Status)
}

func TestDeleteListingByAdmin(t *testing.T) {
	s := newMemStore()
	typeID := s.addWasteType("Glass", "kg", 20)
	e := newTestEngine(s)

	l, err := e.CreateListing(context.Background(), 1, typeID, 5, "")
	require.NoError(t, err)
	require.NoError(t, e.DeleteListing(context.Background(), 99, true, l.ID))
}

func TestDeleteWasteTypeGuard(t *testing.T) {
	s := newMemStore()
	typeID := s.addWasteType("Glass", "kg", 20)
	e := newTestEngine(s)

	l, err := e.CreateListing(context.Background(), 1, typeID, 5, "")
	require.NoError(t, err)

	// Referenced by a listing: refused.
	err = e.DeleteWasteType(context.Background(), typeID)
	require.Equal(t, KindConflict, KindOf(err))
	require.Contains(t, s.wasteTypes, typeID)

	// Unreferenced: removed.
	require.NoError(t, e.DeleteListing(context.Background(), 1, false, l.ID))
	require.NoError(t, e.DeleteWasteType(context.Background(), typeID))
	require.NotContains(t, s.wasteTypes, typeID)

	err = e.DeleteWasteType(context.Background(), typeID)
	require.Equal(t, KindNotFound, KindOf(err))
}

func TestPoints(t *testing.T) {
	require.Equal(t, int64(110), Points(5.5, 20))
	require.Equal(t, int64(5), Points(1.5, 3))
	require.Equal(t, int64(0), Points(0.04, 10))
	require.Equal(t, int64(1), Points(0.05, 10))
}

func TestPeriod(t *testing.T) {
	m, y := Period(time.Date(2025, time.December, 31, 23, 59, 0, 0, time.UTC))
	require.Equal(t, 12, m)
	require.Equal(t, 2025, y)
}

// mockTx asserts call-level behavior testify-style where the stateful
// fake would hide it: a failed audit append must abort the whole
// transaction.
type mockTx struct {
	mock.Mock
	memTx
}

func (m *mockTx) AppendAudit(ctx context.Context, e model.AuditLogEntry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

type mockStore struct {
	s  *memStore
	tx *mockTx
}

func (ms *mockStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	ms.s.mu.Lock()
	defer ms.s.mu.Unlock()
	snapshot := ms.s.clone()
	if err := fn(ms.tx); err != nil {
		ms.s.restore(snapshot)
		return err
	}
	return nil
}

func TestAuditFailureAbortsTransaction(t *testing.T) {
	s := newMemStore()
	typeID := s.addWasteType("Glass", "kg", 20)
	tx := &mockTx{memTx: memTx{s: s}}
	tx.On("AppendAudit", mock.Anything, mock.AnythingOfType("model.AuditLogEntry")).Return(context.DeadlineExceeded)
	e := New(&mockStore{s: s, tx: tx}).WithClock(fixedClock(testNow))

	_, err := e.CreateListing(context.Background(), 1, typeID, 5, "")
	require.Error(t, err)
	require.Empty(t, s.listings)
	tx.AssertExpectations(t)
}
