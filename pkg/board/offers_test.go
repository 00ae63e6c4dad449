package board

import (
	"errors"
	"testing"
)

func TestOfferRepoCreateAndGet(t *testing.T) {
	r := NewOfferRepo()

	o := r.Create("carrier-1", Sell, 100, 1000, 42)
	if o.ID == "" {
		t.Fatal("expected a generated ID")
	}
	if o.OfferNumber != 1 || o.CreatedAt != 42 || o.Status != StatusEmpty {
		t.Errorf("unexpected record: %+v", o)
	}

	got, err := r.Get(o.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.ID != o.ID {
		t.Errorf("Get() = %s, want %s", got.ID, o.ID)
	}

	// Returned snapshots must not alias repository state
	got.Quantity = 7
	again, _ := r.Get(o.ID)
	if again.Quantity != 100 {
		t.Errorf("repository state mutated through a snapshot: quantity=%d", again.Quantity)
	}

	if _, err := r.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestOfferRepoListInsertionOrder(t *testing.T) {
	r := NewOfferRepo()
	a := r.Create("u1", Sell, 1, 1, 3)
	b := r.Create("u2", Buy, 2, 2, 1) // older timestamp, later insertion
	c := r.Create("u3", Sell, 3, 3, 2)

	list := r.List()
	want := []string{a.ID, b.ID, c.ID}
	if len(list) != 3 {
		t.Fatalf("got %d offers, want 3", len(list))
	}
	for i, o := range list {
		if o.ID != want[i] {
			t.Errorf("list[%d] = %s, want %s (insertion order, not time order)", i, o.ID, want[i])
		}
	}
}

func TestOfferRepoUpdateMerge(t *testing.T) {
	r := NewOfferRepo()
	o := r.Create("u1", Sell, 100, 1000, 0)

	qty := int64(60)
	got, err := r.Update(o.ID, OfferUpdate{Quantity: &qty})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if got.Quantity != 60 || got.UnitPrice != 1000 {
		t.Errorf("merge result quantity=%d price=%d, want 60/1000", got.Quantity, got.UnitPrice)
	}

	if _, err := r.Update("missing", OfferUpdate{Quantity: &qty}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
}

func TestOfferRepoDelete(t *testing.T) {
	r := NewOfferRepo()
	o := r.Create("u1", Sell, 100, 1000, 0)

	if err := r.Delete(o.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if r.Count() != 0 || len(r.List()) != 0 {
		t.Errorf("repository not empty after delete")
	}
	if err := r.Delete(o.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete(deleted) error = %v, want ErrNotFound", err)
	}
}

func TestOfferRepoRestoreKeepsNumbering(t *testing.T) {
	r := NewOfferRepo()
	r.restore(&Offer{ID: "x", OfferNumber: 7, OwnerID: "u1", Side: Sell, Quantity: 1, UnitPrice: 1})

	o := r.Create("u2", Sell, 1, 1, 0)
	if o.OfferNumber != 8 {
		t.Errorf("offer number after restore = %d, want 8", o.OfferNumber)
	}
}
