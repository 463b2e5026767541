package pending

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"coffee-kiosk/internal/models"
)

func testOrder(id string) models.Order {
	return models.Order{
		ID: id,
		Items: []models.OrderItem{
			{MenuItemID: "espresso", Name: "Espresso", PriceCents: 350, Quantity: 1},
		},
		TotalCents: 350,
	}
}

func TestEnqueueAndListFIFO(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir(), zap.NewNop())

	for _, id := range []string{"a", "b", "c"} {
		if err := store.Enqueue(ctx, testOrder(id)); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}

	recs, err := store.ListOrdered(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	for i, want := range []string{"a", "b", "c"} {
		if recs[i].Order.ID != want {
			t.Errorf("record %d has ID %s, want %s", i, recs[i].Order.ID, want)
		}
		if recs[i].AttemptCount != 0 {
			t.Errorf("record %d has attempt count %d, want 0", i, recs[i].AttemptCount)
		}
		if recs[i].LastAttemptAt != nil {
			t.Errorf("record %d has a last attempt time before any attempt", i)
		}
	}
}

func TestEnqueueDuplicate(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir(), zap.NewNop())

	if err := store.Enqueue(ctx, testOrder("a")); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if err := store.Enqueue(ctx, testOrder("a")); !errors.Is(err, ErrDuplicateOrder) {
		t.Fatalf("second enqueue returned %v, want ErrDuplicateOrder", err)
	}

	recs, err := store.ListOrdered(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("store holds %d records for one ID, want 1", len(recs))
	}
}

func TestRemoveAbsentIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir(), zap.NewNop())

	if err := store.Remove(ctx, "missing"); err != nil {
		t.Fatalf("remove on empty store: %v", err)
	}

	if err := store.Enqueue(ctx, testOrder("a")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := store.Remove(ctx, "missing"); err != nil {
		t.Fatalf("remove absent: %v", err)
	}
	recs, _ := store.ListOrdered(ctx)
	if len(recs) != 1 {
		t.Fatalf("remove of absent ID changed the queue: %d records", len(recs))
	}

	if err := store.Remove(ctx, "a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	recs, _ = store.ListOrdered(ctx)
	if len(recs) != 0 {
		t.Fatalf("got %d records after remove, want 0", len(recs))
	}
}

func TestRecordAttemptFailure(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir(), zap.NewNop())

	if err := store.Enqueue(ctx, testOrder("a")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := store.RecordAttemptFailure(ctx, "a"); err != nil {
		t.Fatalf("record failure: %v", err)
	}
	if err := store.RecordAttemptFailure(ctx, "a"); err != nil {
		t.Fatalf("record failure: %v", err)
	}
	if err := store.RecordAttemptFailure(ctx, "absent"); err != nil {
		t.Fatalf("record failure for absent ID: %v", err)
	}

	recs, err := store.ListOrdered(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if recs[0].AttemptCount != 2 {
		t.Errorf("attempt count = %d, want 2", recs[0].AttemptCount)
	}
	if recs[0].LastAttemptAt == nil {
		t.Error("last attempt time not set")
	}
}

// A queue written before a crash must be readable by a fresh process.
func TestSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store := NewFileStore(dir, zap.NewNop())
	if err := store.Enqueue(ctx, testOrder("a")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := store.Enqueue(ctx, testOrder("b")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := store.RecordAttemptFailure(ctx, "a"); err != nil {
		t.Fatalf("record failure: %v", err)
	}

	reopened := NewFileStore(dir, zap.NewNop())
	recs, err := reopened.ListOrdered(ctx)
	if err != nil {
		t.Fatalf("list after reopen: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records after reopen, want 2", len(recs))
	}
	if recs[0].Order.ID != "a" || recs[1].Order.ID != "b" {
		t.Errorf("order lost across restart: %s, %s", recs[0].Order.ID, recs[1].Order.ID)
	}
	if recs[0].AttemptCount != 1 {
		t.Errorf("attempt count lost across restart: %d", recs[0].AttemptCount)
	}
}
