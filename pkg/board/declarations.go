package board

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// DeclarationRepo is the authoritative declaration collection, scoped to
// offers. Pure CRUD; tag rules and cascades are driven by the Engine.
type DeclarationRepo struct {
	mu      sync.RWMutex
	decls   map[string]*Declaration
	byOffer map[string][]string // offerID -> declaration IDs in insertion order
}

// NewDeclarationRepo creates an empty declaration repository.
func NewDeclarationRepo() *DeclarationRepo {
	return &DeclarationRepo{
		decls:   make(map[string]*Declaration),
		byOffer: make(map[string][]string),
	}
}

// Create assigns a fresh ID and timestamp and stores the record with a
// pending tag.
func (r *DeclarationRepo) Create(offerID, actorID string, quantity int64, note string, offeredPrice, createdAt int64) *Declaration {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := &Declaration{
		ID:               uuid.New().String(),
		OfferID:          offerID,
		ActorID:          actorID,
		DeclaredQuantity: quantity,
		Note:             note,
		OfferedPrice:     offeredPrice,
		Tag:              TagPending,
		CreatedAt:        createdAt,
	}

	r.decls[d.ID] = d
	r.byOffer[offerID] = append(r.byOffer[offerID], d.ID)

	snapshot := *d
	return &snapshot
}

// Get returns a copy of the declaration, or ErrNotFound.
func (r *DeclarationRepo) Get(id string) (*Declaration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, exists := r.decls[id]
	if !exists {
		return nil, fmt.Errorf("declaration %s: %w", id, ErrNotFound)
	}

	snapshot := *d
	return &snapshot, nil
}

// ListByOffer returns copies of an offer's declarations ordered by creation
// time ascending (insertion order; timestamps never go backwards within an
// offer because the engine serializes writes).
func (r *DeclarationRepo) ListByOffer(offerID string) []*Declaration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byOffer[offerID]
	decls := make([]*Declaration, 0, len(ids))
	for _, id := range ids {
		snapshot := *r.decls[id]
		decls = append(decls, &snapshot)
	}
	return decls
}

// Delete removes a single declaration.
func (r *DeclarationRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, exists := r.decls[id]
	if !exists {
		return fmt.Errorf("declaration %s: %w", id, ErrNotFound)
	}

	delete(r.decls, id)
	r.removeFromOffer(d.OfferID, id)
	return nil
}

// DeleteByOffer removes every declaration of an offer. Returns the number
// removed.
func (r *DeclarationRepo) DeleteByOffer(offerID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.byOffer[offerID]
	for _, id := range ids {
		delete(r.decls, id)
	}
	delete(r.byOffer, offerID)
	return len(ids)
}

// Count returns the number of stored declarations.
func (r *DeclarationRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.decls)
}

// setTag overwrites the declaration tag. Engine-only.
func (r *DeclarationRepo) setTag(id string, tag DeclarationTag) (*Declaration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, exists := r.decls[id]
	if !exists {
		return nil, fmt.Errorf("declaration %s: %w", id, ErrNotFound)
	}

	d.Tag = tag
	snapshot := *d
	return &snapshot, nil
}

// hasPending reports whether any declaration of the offer still carries the
// pending tag.
func (r *DeclarationRepo) hasPending(offerID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.byOffer[offerID] {
		if r.decls[id].Tag == TagPending {
			return true
		}
	}
	return false
}

// sumByTag totals declared quantity over an offer's declarations with the
// given tag. Full scan per call; fine at board scale.
func (r *DeclarationRepo) sumByTag(offerID string, tag DeclarationTag) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sum int64
	for _, id := range r.byOffer[offerID] {
		if d := r.decls[id]; d.Tag == tag {
			sum += d.DeclaredQuantity
		}
	}
	return sum
}

// restore re-inserts a persisted declaration. Used only while loading from
// the store; caller feeds records in creation order.
func (r *DeclarationRepo) restore(d *Declaration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record := *d
	r.decls[record.ID] = &record
	r.byOffer[record.OfferID] = append(r.byOffer[record.OfferID], record.ID)
}

// removeFromOffer drops an ID from the per-offer index. Caller holds the lock.
func (r *DeclarationRepo) removeFromOffer(offerID, id string) {
	ids := r.byOffer[offerID]
	for i, did := range ids {
		if did == id {
			r.byOffer[offerID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(r.byOffer[offerID]) == 0 {
		delete(r.byOffer, offerID)
	}
}
