package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"coffee-kiosk/internal/models"
	"coffee-kiosk/internal/pending"
	"coffee-kiosk/internal/remote"
)

func enqueue(t *testing.T, store pending.Store, ids ...string) map[string]models.Order {
	t.Helper()
	orders := make(map[string]models.Order, len(ids))
	for _, id := range ids {
		o := models.Order{
			ID:         id,
			Items:      cart(),
			TotalCents: 675,
			CreatedAt:  time.Now(),
		}
		if err := store.Enqueue(context.Background(), o); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
		orders[id] = o
	}
	return orders
}

// A clean pass drains the queue strictly oldest-first.
func TestRunDrainsFIFO(t *testing.T) {
	r := newRig(t)
	enqueue(t, r.store, "a", "b", "c")

	rep, err := r.retry.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Attempted != 3 || rep.Delivered != 3 {
		t.Fatalf("attempted %d delivered %d, want 3/3", rep.Attempted, rep.Delivered)
	}
	attempts := r.api.Attempts()
	want := []string{"a", "b", "c"}
	if len(attempts) != 3 {
		t.Fatalf("remote saw %d attempts, want 3", len(attempts))
	}
	for i := range want {
		if attempts[i] != want[i] {
			t.Errorf("attempt %d = %s, want %s", i, attempts[i], want[i])
		}
	}
	if ids := pendingIDs(t, r.store); len(ids) != 0 {
		t.Fatalf("queue not drained: %v", ids)
	}
}

// Unreachable mid-drain aborts the pass; later orders are left untouched.
func TestRunAbortsOnUnreachable(t *testing.T) {
	r := newRig(t)
	enqueue(t, r.store, "a", "b", "c")
	r.api.Script("b", remote.ErrUnreachable)

	rep, err := r.retry.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !rep.Aborted {
		t.Fatal("pass not marked aborted")
	}
	if rep.Attempted != 2 || rep.Delivered != 1 {
		t.Fatalf("attempted %d delivered %d, want 2/1", rep.Attempted, rep.Delivered)
	}
	if attempts := r.api.Attempts(); len(attempts) != 2 {
		t.Fatalf("order c was attempted during an aborted pass: %v", attempts)
	}

	ids := pendingIDs(t, r.store)
	if len(ids) != 2 || ids[0] != "b" || ids[1] != "c" {
		t.Fatalf("queue after abort = %v, want [b c]", ids)
	}
}

// A transient failure counts the attempt and moves on; it never blocks
// unrelated orders.
func TestRunTransientContinues(t *testing.T) {
	r := newRig(t)
	enqueue(t, r.store, "a", "b", "c")
	r.api.Script("b", &remote.TransientError{Reason: "busy"})

	rep, err := r.retry.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Attempted != 3 || rep.Delivered != 2 {
		t.Fatalf("attempted %d delivered %d, want 3/2", rep.Attempted, rep.Delivered)
	}

	recs, err := r.store.ListOrdered(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 || recs[0].Order.ID != "b" {
		t.Fatalf("queue = %v, want only b", recs)
	}
	if recs[0].AttemptCount != 1 {
		t.Errorf("attempt count = %d, want 1", recs[0].AttemptCount)
	}
	if recs[0].LastAttemptAt == nil {
		t.Error("last attempt time not stamped")
	}
}

// A rejection during drain removes the order for good and reports it.
func TestRunRejectionIsTerminal(t *testing.T) {
	r := newRig(t)
	enqueue(t, r.store, "a", "b", "c")
	r.api.Script("b", &remote.RejectedError{Reason: "out of stock"})

	rep, err := r.retry.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Delivered != 2 {
		t.Fatalf("delivered %d, want 2", rep.Delivered)
	}
	if len(rep.Rejections) != 1 || rep.Rejections[0].OrderID != "b" || rep.Rejections[0].Reason != "out of stock" {
		t.Fatalf("rejections = %v, want b/out of stock", rep.Rejections)
	}
	if ids := pendingIDs(t, r.store); len(ids) != 0 {
		t.Fatalf("rejected order still queued: %v", ids)
	}
}

// Queue before a restart, retry after: the queue ends empty.
func TestRunAfterRestart(t *testing.T) {
	dir := t.TempDir()
	api := remote.NewFake()
	api.SetDefault(remote.ErrUnreachable)
	first := newRigWithStore(t, api, pending.NewFileStore(dir, zap.NewNop()))

	out, err := first.create.Place(context.Background(), cart())
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if out.Kind != Queued {
		t.Fatalf("outcome = %s, want queued", out.Kind)
	}

	// Fresh store over the same directory stands in for a process restart;
	// the remote is accepting again.
	api2 := remote.NewFake()
	second := newRigWithStore(t, api2, pending.NewFileStore(dir, zap.NewNop()))

	rep, err := second.retry.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Delivered != 1 {
		t.Fatalf("delivered %d, want 1", rep.Delivered)
	}
	if got := api2.Accepted(); len(got) != 1 || got[0] != out.Order.ID {
		t.Fatalf("remote accepted %v, want [%s]", got, out.Order.ID)
	}
	if ids := pendingIDs(t, second.store); len(ids) != 0 {
		t.Fatalf("queue not empty after restart drain: %v", ids)
	}
}

type countingStore struct {
	pending.Store
	mu    sync.Mutex
	lists int
}

func (s *countingStore) ListOrdered(ctx context.Context) ([]models.PendingOrderRecord, error) {
	s.mu.Lock()
	s.lists++
	s.mu.Unlock()
	return s.Store.ListOrdered(ctx)
}

func (s *countingStore) listCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists
}

// Triggers arriving mid-pass coalesce into exactly one follow-up pass, no
// matter how many arrive.
func TestRunCoalescesTriggers(t *testing.T) {
	api := remote.NewFake()
	store := &countingStore{Store: pending.NewFileStore(t.TempDir(), zap.NewNop())}
	r := newRigWithStore(t, api, store)
	enqueue(t, r.store, "a", "b")

	entered := make(chan struct{}, 8)
	release := make(chan struct{})
	api.CreateHook = func(models.Order) {
		entered <- struct{}{}
		<-release
	}

	done := make(chan Report, 1)
	go func() {
		rep, err := r.retry.Run(context.Background())
		if err != nil {
			t.Errorf("run: %v", err)
		}
		done <- rep
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first pass never reached the remote")
	}

	// Two triggers while the pass is stuck on order a: both fold into one
	// follow-up.
	for i := 0; i < 2; i++ {
		rep, err := r.retry.Run(context.Background())
		if err != nil {
			t.Fatalf("coalesced run: %v", err)
		}
		if !rep.Coalesced {
			t.Fatal("mid-pass trigger was not coalesced")
		}
	}

	close(release)
	var rep Report
	select {
	case rep = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run never finished")
	}

	if rep.Delivered != 2 {
		t.Fatalf("delivered %d, want 2", rep.Delivered)
	}
	// Initial pass plus exactly one follow-up.
	if got := store.listCount(); got != 2 {
		t.Fatalf("queue was enumerated %d times, want 2", got)
	}
	if ids := pendingIDs(t, r.store); len(ids) != 0 {
		t.Fatalf("queue not empty: %v", ids)
	}
}
