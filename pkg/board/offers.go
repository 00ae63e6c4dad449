package board

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// OfferRepo is the authoritative offer collection. Pure CRUD keyed by ID,
// listed in insertion order; all business rules live in the Engine.
type OfferRepo struct {
	mu         sync.RWMutex
	offers     map[string]*Offer
	order      []string // IDs in insertion order
	nextNumber int64
}

// NewOfferRepo creates an empty offer repository.
func NewOfferRepo() *OfferRepo {
	return &OfferRepo{
		offers:     make(map[string]*Offer),
		nextNumber: 1,
	}
}

// Create assigns a fresh ID, offer number, and timestamp, and stores the
// record with an empty status tag.
func (r *OfferRepo) Create(ownerID string, side Side, quantity, unitPrice, createdAt int64) *Offer {
	r.mu.Lock()
	defer r.mu.Unlock()

	o := &Offer{
		ID:          uuid.New().String(),
		OfferNumber: r.nextNumber,
		OwnerID:     ownerID,
		Side:        side,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Status:      StatusEmpty,
		CreatedAt:   createdAt,
	}
	r.nextNumber++

	r.offers[o.ID] = o
	r.order = append(r.order, o.ID)

	snapshot := *o
	return &snapshot
}

// Get returns a copy of the offer, or ErrNotFound.
func (r *OfferRepo) Get(id string) (*Offer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, exists := r.offers[id]
	if !exists {
		return nil, fmt.Errorf("offer %s: %w", id, ErrNotFound)
	}

	snapshot := *o
	return &snapshot, nil
}

// List returns copies of all offers in insertion order.
func (r *OfferRepo) List() []*Offer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	offers := make([]*Offer, 0, len(r.order))
	for _, id := range r.order {
		snapshot := *r.offers[id]
		offers = append(offers, &snapshot)
	}
	return offers
}

// Update applies a partial field merge and returns the updated copy.
func (r *OfferRepo) Update(id string, upd OfferUpdate) (*Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, exists := r.offers[id]
	if !exists {
		return nil, fmt.Errorf("offer %s: %w", id, ErrNotFound)
	}

	if upd.Quantity != nil {
		o.Quantity = *upd.Quantity
	}
	if upd.UnitPrice != nil {
		o.UnitPrice = *upd.UnitPrice
	}

	snapshot := *o
	return &snapshot, nil
}

// Delete removes the offer. Declaration cascade is the Engine's job.
func (r *OfferRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.offers[id]; !exists {
		return fmt.Errorf("offer %s: %w", id, ErrNotFound)
	}

	delete(r.offers, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the number of stored offers.
func (r *OfferRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.offers)
}

// setStatus overwrites the offer's status tag. Engine-only: status is a
// derived field and nothing outside the engine may touch it.
func (r *OfferRepo) setStatus(id string, status OfferStatus) (*Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, exists := r.offers[id]
	if !exists {
		return nil, fmt.Errorf("offer %s: %w", id, ErrNotFound)
	}

	o.Status = status
	snapshot := *o
	return &snapshot, nil
}

// restore re-inserts a persisted offer, keeping the number counter ahead of
// every restored record. Used only while loading from the store.
func (r *OfferRepo) restore(o *Offer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record := *o
	r.offers[record.ID] = &record
	r.order = append(r.order, record.ID)
	if record.OfferNumber >= r.nextNumber {
		r.nextNumber = record.OfferNumber + 1
	}
}
