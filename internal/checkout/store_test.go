package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/product"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/infrastructure/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	id Identity
}

func (f fakeSession) Current() (Identity, bool) { return f.id, f.id.UID != "" }

type note struct {
	Message string
	Kind    Kind
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []note
}

func (n *recordingNotifier) Notify(message string, kind Kind) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note{message, kind})
}

func (n *recordingNotifier) all() []note {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]note(nil), n.notes...)
}

var asha = Identity{UID: "uid-asha", Email: "asha@example.com", Name: "Asha"}

func med(id string, price int) product.Medicine {
	return product.Medicine{Base: product.Base{ID: id, Name: "Medicine " + id, Price: price, MRP: price}}
}

func pet(id string, price int) product.PetItem {
	return product.PetItem{Base: product.Base{ID: id, Name: "Pet " + id, Price: price, MRP: price}, PetType: product.PetCat, Rating: 4}
}

func newTestStore(id Identity, opts ...Option) (*Store, *mocks.MockOrderStore, *recordingNotifier) {
	repo := mocks.NewMockOrderStore()
	notifier := &recordingNotifier{}
	return NewStore(fakeSession{id: id}, repo, notifier, opts...), repo, notifier
}

// ============================================
// Cart Operation Tests
// ============================================

func TestStore_ConcreteScenario(t *testing.T) {
	s, _, _ := newTestStore(asha)
	a, b := med("A", 100), pet("B", 250)

	require.NoError(t, s.AddLine(a))
	require.NoError(t, s.AddLine(a))
	require.NoError(t, s.AddLine(b))
	assert.Equal(t, 450, s.Total())
	assert.Equal(t, 3, s.ItemCount())

	s.RemoveLine("A")
	assert.Equal(t, 1, s.QuantityOf("A"))
	assert.Equal(t, 1, s.QuantityOf("B"))
	assert.Equal(t, 350, s.Total())

	s.RemoveLine("A")
	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "B", lines[0].ProductID())
	assert.Equal(t, 250, s.Total())
	assert.Equal(t, 0, s.QuantityOf("A"))
}

func TestStore_RemoveAbsentIsNoop(t *testing.T) {
	s, _, _ := newTestStore(asha)
	require.NoError(t, s.AddLine(med("A", 100)))
	before := s.Lines()

	s.RemoveLine("missing")

	assert.Equal(t, before, s.Lines())
	assert.Equal(t, 100, s.Total())
}

func TestStore_AddRemoveRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		initial []product.Product
		add     product.Product
	}{
		{"empty cart", nil, med("A", 10)},
		{"new product", []product.Product{med("A", 10)}, pet("B", 20)},
		{"existing product", []product.Product{med("A", 10), pet("B", 20)}, med("A", 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := newTestStore(asha)
			for _, p := range tt.initial {
				require.NoError(t, s.AddLine(p))
			}
			before, total, count := s.Lines(), s.Total(), s.ItemCount()

			require.NoError(t, s.AddLine(tt.add))
			s.RemoveLine(tt.add.Common().ID)

			assert.Equal(t, before, s.Lines())
			assert.Equal(t, total, s.Total())
			assert.Equal(t, count, s.ItemCount())
		})
	}
}

func TestStore_EmptyCart(t *testing.T) {
	s, _, _ := newTestStore(asha)

	assert.Zero(t, s.Total())
	assert.Zero(t, s.ItemCount())
	assert.Empty(t, s.Lines())
}

func TestStore_AddLineRejectsMissingID(t *testing.T) {
	s, _, _ := newTestStore(asha)

	assert.ErrorIs(t, s.AddLine(med("", 10)), cart.ErrInvalidProduct)
	assert.Zero(t, s.ItemCount())
}

func TestStore_Clear(t *testing.T) {
	s, _, _ := newTestStore(asha)
	require.NoError(t, s.AddLine(med("A", 10)))

	s.Clear()

	assert.Zero(t, s.ItemCount())
}

// ============================================
// Place Order Tests
// ============================================

func TestStore_PlaceOrder_Unauthenticated(t *testing.T) {
	s, repo, notifier := newTestStore(Identity{})
	require.NoError(t, s.AddLine(med("A", 100)))
	before := s.Lines()

	id, err := s.PlaceOrder(context.Background())

	assert.Empty(t, id)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, before, s.Lines())
	assert.Equal(t, 100, s.Total())
	assert.Empty(t, repo.Calls())
	assert.Empty(t, s.Orders())
	assert.Equal(t, []note{{MsgLoginRequired, KindError}}, notifier.all())
}

func TestStore_PlaceOrder_Success(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	s, repo, notifier := newTestStore(asha, WithClock(func() time.Time { return now }))
	require.NoError(t, s.AddLine(med("A", 100)))
	require.NoError(t, s.AddLine(med("A", 100)))
	require.NoError(t, s.AddLine(pet("B", 250)))
	snapshot := s.Lines()

	id, err := s.PlaceOrder(context.Background())

	require.NoError(t, err)
	assert.Regexp(t, `^ORD-\d{6}$`, id)
	assert.Equal(t, order.NewID(now), id)
	assert.Zero(t, s.ItemCount())
	assert.Zero(t, s.Total())

	history := s.Orders()
	require.Len(t, history, 1)
	assert.Equal(t, id, history[0].ID)
	assert.Equal(t, order.StatusProcessing, history[0].Status)
	assert.Equal(t, snapshot, history[0].Items)
	assert.Equal(t, 450, history[0].Total)

	current, ok := s.CurrentOrder()
	assert.True(t, ok)
	assert.Equal(t, id, current)

	calls := repo.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, asha.UID, calls[0].UID)
	assert.Equal(t, id, calls[0].OrderID)
	rec := calls[0].Record
	assert.Equal(t, "Asha", rec.UserName)
	assert.Equal(t, "asha@example.com", rec.UserEmail)
	assert.Equal(t, "2026-10-18T09:30:00Z", rec.Date)
	assert.Nil(t, rec.DriverLocation)
	assert.True(t, rec.CreatedAt.IsZero())

	assert.Empty(t, notifier.all())
}

func TestStore_PlaceOrder_HistoryIsMostRecentFirst(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	s, _, _ := newTestStore(asha, WithClock(func() time.Time { return now }))

	require.NoError(t, s.AddLine(med("A", 100)))
	first, err := s.PlaceOrder(context.Background())
	require.NoError(t, err)

	now = now.Add(time.Second)
	require.NoError(t, s.AddLine(pet("B", 250)))
	second, err := s.PlaceOrder(context.Background())
	require.NoError(t, err)

	history := s.Orders()
	require.Len(t, history, 2)
	assert.Equal(t, second, history[0].ID)
	assert.Equal(t, first, history[1].ID)
}

func TestStore_PlaceOrder_PersistenceFailure(t *testing.T) {
	s, repo, notifier := newTestStore(asha)
	repo.PutErr = errors.New("permission denied")
	require.NoError(t, s.AddLine(med("A", 100)))
	require.NoError(t, s.AddLine(pet("B", 250)))
	before, total, count := s.Lines(), s.Total(), s.ItemCount()

	id, err := s.PlaceOrder(context.Background())

	assert.Empty(t, id)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, before, s.Lines())
	assert.Equal(t, total, s.Total())
	assert.Equal(t, count, s.ItemCount())
	assert.Empty(t, s.Orders())
	_, ok := s.CurrentOrder()
	assert.False(t, ok)
	assert.Equal(t, []note{{MsgPlacementFailed, KindError}}, notifier.all())
}

func TestStore_PlaceOrder_PhaseSequence(t *testing.T) {
	tests := []struct {
		name   string
		id     Identity
		putErr error
		want   []Phase
	}{
		{"committed", asha, nil, []Phase{PhaseValidating, PhasePersisting, PhaseCommitted, PhaseIdle}},
		{"persistence failure", asha, errors.New("boom"), []Phase{PhaseValidating, PhasePersisting, PhaseFailed, PhaseIdle}},
		{"unauthenticated", Identity{}, nil, []Phase{PhaseValidating, PhaseFailed, PhaseIdle}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var phases []Phase
			s, repo, _ := newTestStore(tt.id, WithPhaseHook(func(p Phase) { phases = append(phases, p) }))
			repo.PutErr = tt.putErr
			require.NoError(t, s.AddLine(med("A", 100)))

			_, _ = s.PlaceOrder(context.Background())

			assert.Equal(t, tt.want, phases)
			assert.Equal(t, PhaseIdle, s.Phase())
		})
	}
}

func TestStore_PlaceOrder_CartVisibleDuringPersist(t *testing.T) {
	s, repo, _ := newTestStore(asha)
	require.NoError(t, s.AddLine(med("A", 100)))

	var duringPut int
	repo.PutCallback = func(ctx context.Context, uid, orderID string, rec order.Record) error {
		duringPut = s.ItemCount()
		assert.Equal(t, PhasePersisting, s.Phase())
		return nil
	}

	_, err := s.PlaceOrder(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, duringPut)
	assert.Zero(t, s.ItemCount())
}

func TestStore_PlaceOrder_LineAddedDuringPersistSurvives(t *testing.T) {
	s, repo, _ := newTestStore(asha)
	require.NoError(t, s.AddLine(med("A", 100)))

	repo.PutCallback = func(ctx context.Context, uid, orderID string, rec order.Record) error {
		require.NoError(t, s.AddLine(med("A", 100)))
		require.NoError(t, s.AddLine(pet("B", 250)))
		return nil
	}

	id, err := s.PlaceOrder(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, s.QuantityOf("A"))
	assert.Equal(t, 1, s.QuantityOf("B"))
	history := s.Orders()
	require.Len(t, history, 1)
	assert.Equal(t, id, history[0].ID)
	require.Len(t, history[0].Items, 1)
	assert.Equal(t, 1, history[0].Items[0].Quantity)
}

func TestStore_PlaceOrder_LineRemovedDuringPersist(t *testing.T) {
	s, repo, _ := newTestStore(asha)
	require.NoError(t, s.AddLine(med("A", 100)))
	require.NoError(t, s.AddLine(med("A", 100)))

	repo.PutCallback = func(ctx context.Context, uid, orderID string, rec order.Record) error {
		s.RemoveLine("A")
		return nil
	}

	_, err := s.PlaceOrder(context.Background())

	require.NoError(t, err)
	assert.Zero(t, s.ItemCount())
}

func TestStore_PlaceOrder_SnapshotIsIndependentOfCart(t *testing.T) {
	s, repo, _ := newTestStore(asha)
	require.NoError(t, s.AddLine(med("A", 100)))

	_, err := s.PlaceOrder(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.AddLine(med("A", 100)))
	require.NoError(t, s.AddLine(med("A", 100)))

	assert.Equal(t, 1, s.Orders()[0].Items[0].Quantity)
	assert.Equal(t, 1, repo.Calls()[0].Record.Items[0].Quantity)
}

func TestStore_PlaceOrder_SerializesConcurrentCalls(t *testing.T) {
	s, repo, _ := newTestStore(asha)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.AddLine(med("A", 100)))
	}

	var inFlight, maxInFlight int
	var mu sync.Mutex
	repo.PutCallback = func(ctx context.Context, uid, orderID string, rec order.Record) error {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.PlaceOrder(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInFlight)
	assert.Zero(t, s.ItemCount())
}

// ============================================
// History Sync Tests
// ============================================

type fakeSubscriber struct {
	uid       string
	fn        func([]order.Record)
	cancelled bool
}

func (f *fakeSubscriber) Subscribe(uid string, fn func([]order.Record)) func() {
	f.uid = uid
	f.fn = fn
	return func() { f.cancelled = true }
}

func TestStore_TrackAppliesSnapshotsNewestFirst(t *testing.T) {
	s, _, _ := newTestStore(asha)
	sub := &fakeSubscriber{}

	cancel := s.Track(sub)
	require.NotNil(t, sub.fn)
	assert.Equal(t, asha.UID, sub.uid)

	sub.fn([]order.Record{
		{ID: "ORD-000001", Date: "2026-10-17T10:00:00Z", Status: order.StatusDelivered, Total: 30},
		{ID: "ORD-000002", Date: "2026-10-18T10:00:00Z", Status: order.StatusProcessing, Total: 60},
	})

	history := s.Orders()
	require.Len(t, history, 2)
	assert.Equal(t, "ORD-000002", history[0].ID)
	assert.Equal(t, order.StatusDelivered, history[1].Status)

	cancel()
	assert.True(t, sub.cancelled)
}

func TestStore_TrackWithoutIdentityIsNoop(t *testing.T) {
	s, _, _ := newTestStore(Identity{})
	sub := &fakeSubscriber{}

	cancel := s.Track(sub)
	cancel()

	assert.Nil(t, sub.fn)
}

func TestStore_PushedSnapshotDoesNotDuplicatePlacedOrder(t *testing.T) {
	s, repo, _ := newTestStore(asha)
	require.NoError(t, s.AddLine(med("A", 100)))

	repo.PutCallback = func(ctx context.Context, uid, orderID string, rec order.Record) error {
		rec.ID = orderID
		s.ApplySnapshot([]order.Record{rec})
		return nil
	}

	id, err := s.PlaceOrder(context.Background())

	require.NoError(t, err)
	history := s.Orders()
	require.Len(t, history, 1)
	assert.Equal(t, id, history[0].ID)
}

func TestStore_StaleSnapshotKeepsPlacedOrder(t *testing.T) {
	s, _, _ := newTestStore(asha, WithClock(func() time.Time {
		return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	}))
	sub := &fakeSubscriber{}
	s.Track(sub)

	older := order.Record{ID: "ORD-000001", Date: "2026-10-17T10:00:00Z", Status: order.StatusDelivered, Total: 30}
	stale := []order.Record{older}

	require.NoError(t, s.AddLine(med("A", 100)))
	id, err := s.PlaceOrder(context.Background())
	require.NoError(t, err)

	// listed before the write landed, delivered after the commit
	sub.fn(stale)

	history := s.Orders()
	require.Len(t, history, 2)
	assert.Equal(t, id, history[0].ID)
	assert.Equal(t, "ORD-000001", history[1].ID)

	confirmed := order.Record{ID: id, Date: "2026-10-18T12:00:00Z", Status: order.StatusDelivered, Total: 100}
	sub.fn([]order.Record{confirmed, older})

	history = s.Orders()
	require.Len(t, history, 2)
	assert.Equal(t, id, history[0].ID)
	assert.Equal(t, order.StatusDelivered, history[0].Status)
}

// slowLister returns an empty list, but only once released.
type slowLister struct {
	listed  chan struct{}
	release chan struct{}
}

func (l *slowLister) List(ctx context.Context, uid string) ([]order.Record, error) {
	close(l.listed)
	<-l.release
	return []order.Record{}, nil
}

// deliveredSubscriber signals after every snapshot it forwards.
type deliveredSubscriber struct {
	inner     Subscriber
	delivered chan struct{}
}

func (d deliveredSubscriber) Subscribe(uid string, fn func([]order.Record)) func() {
	return d.inner.Subscribe(uid, func(recs []order.Record) {
		fn(recs)
		d.delivered <- struct{}{}
	})
}

func TestStore_PolledSnapshotReadBeforeWriteKeepsPlacedOrder(t *testing.T) {
	s, _, _ := newTestStore(asha)
	lister := &slowLister{listed: make(chan struct{}), release: make(chan struct{})}
	sub := deliveredSubscriber{inner: store.NewPoller(lister, time.Hour), delivered: make(chan struct{}, 1)}
	cancel := s.Track(sub)
	defer cancel()

	<-lister.listed
	require.NoError(t, s.AddLine(med("A", 100)))
	id, err := s.PlaceOrder(context.Background())
	require.NoError(t, err)
	require.Len(t, s.Orders(), 1)

	close(lister.release)
	<-sub.delivered

	history := s.Orders()
	require.Len(t, history, 1)
	assert.Equal(t, id, history[0].ID)
}

func TestStore_EmptyStaleSnapshotKeepsPlacedOrder(t *testing.T) {
	s, _, _ := newTestStore(asha)
	sub := &fakeSubscriber{}
	s.Track(sub)

	require.NoError(t, s.AddLine(med("A", 100)))
	id, err := s.PlaceOrder(context.Background())
	require.NoError(t, err)
	require.Len(t, s.Orders(), 1)

	sub.fn([]order.Record{})

	history := s.Orders()
	require.Len(t, history, 1)
	assert.Equal(t, id, history[0].ID)
}

func TestStore_SetCurrentOrder(t *testing.T) {
	s, _, _ := newTestStore(asha)

	s.SetCurrentOrder("ORD-123456")
	id, ok := s.CurrentOrder()
	assert.True(t, ok)
	assert.Equal(t, "ORD-123456", id)

	s.SetCurrentOrder("")
	_, ok = s.CurrentOrder()
	assert.False(t, ok)
}
