package board

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(dir, "board.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	return s
}

func TestStoreOfferRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, dir)
	defer s.Close()

	o := &Offer{
		ID: "offer-1", OfferNumber: 1, OwnerID: "carrier-1",
		Side: Sell, Quantity: 100, UnitPrice: 1000,
		Status: StatusReserved, CreatedAt: 42,
	}
	if err := s.SaveOffer(o); err != nil {
		t.Fatalf("SaveOffer() error: %v", err)
	}

	offers, err := s.LoadOffers()
	if err != nil {
		t.Fatalf("LoadOffers() error: %v", err)
	}
	if len(offers) != 1 {
		t.Fatalf("got %d offers, want 1", len(offers))
	}
	if *offers[0] != *o {
		t.Errorf("round trip mismatch: got %+v, want %+v", offers[0], o)
	}
}

func TestStoreDeclarationsOrderedWithinOffer(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, dir)
	defer s.Close()

	// Save out of order; the key schema must bring them back created-asc
	for _, d := range []*Declaration{
		{ID: "d2", OfferID: "offer-1", ActorID: "b2", DeclaredQuantity: 20, CreatedAt: 200},
		{ID: "d1", OfferID: "offer-1", ActorID: "b1", DeclaredQuantity: 10, CreatedAt: 100},
		{ID: "d3", OfferID: "offer-1", ActorID: "b3", DeclaredQuantity: 30, CreatedAt: 300},
	} {
		if err := s.SaveDeclaration(d); err != nil {
			t.Fatalf("SaveDeclaration() error: %v", err)
		}
	}

	decls, err := s.LoadDeclarations()
	if err != nil {
		t.Fatalf("LoadDeclarations() error: %v", err)
	}
	want := []string{"d1", "d2", "d3"}
	if len(decls) != 3 {
		t.Fatalf("got %d declarations, want 3", len(decls))
	}
	for i, d := range decls {
		if d.ID != want[i] {
			t.Errorf("declarations[%d] = %s, want %s", i, d.ID, want[i])
		}
	}
}

func TestStoreCascadeDeleteLeavesNoKeys(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, dir)
	defer s.Close()

	s.SaveOffer(&Offer{ID: "offer-1", OfferNumber: 1, Quantity: 10, UnitPrice: 1})
	s.SaveOffer(&Offer{ID: "offer-2", OfferNumber: 2, Quantity: 20, UnitPrice: 2})
	s.SaveDeclaration(&Declaration{ID: "d1", OfferID: "offer-1", DeclaredQuantity: 5, CreatedAt: 1})
	s.SaveDeclaration(&Declaration{ID: "d2", OfferID: "offer-1", DeclaredQuantity: 5, CreatedAt: 2})
	s.SaveDeclaration(&Declaration{ID: "d3", OfferID: "offer-2", DeclaredQuantity: 5, CreatedAt: 3})

	bw := s.NewBatch()
	if err := bw.DeleteOfferCascade("offer-1"); err != nil {
		t.Fatalf("DeleteOfferCascade() error: %v", err)
	}
	if err := bw.Commit(); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}

	offers, _ := s.LoadOffers()
	if len(offers) != 1 || offers[0].ID != "offer-2" {
		t.Errorf("offers after cascade: %+v, want only offer-2", offers)
	}
	decls, _ := s.LoadDeclarations()
	if len(decls) != 1 || decls[0].ID != "d3" {
		t.Errorf("declarations after cascade: %+v, want only d3", decls)
	}
}

func TestBatchCommitsAtomically(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, dir)
	defer s.Close()

	bw := s.NewBatch()
	bw.SaveOffer(&Offer{ID: "offer-1", OfferNumber: 1, Quantity: 10, UnitPrice: 1, Status: StatusInTrade})
	bw.SaveDeclaration(&Declaration{ID: "d1", OfferID: "offer-1", DeclaredQuantity: 10, Tag: TagInTrade, CreatedAt: 1})
	if err := bw.Commit(); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}

	offers, _ := s.LoadOffers()
	decls, _ := s.LoadDeclarations()
	if len(offers) != 1 || len(decls) != 1 {
		t.Fatalf("batch write incomplete: %d offers, %d declarations", len(offers), len(decls))
	}
	if offers[0].Status != StatusInTrade || decls[0].Tag != TagInTrade {
		t.Errorf("batch contents wrong: offer=%+v decl=%+v", offers[0], decls[0])
	}
}
