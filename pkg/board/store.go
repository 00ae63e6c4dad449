package board

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// Store provides Pebble-based persistence for offers and declarations.
// Thread-safe: all writes go through the Engine's mutex.
type Store struct {
	db *pebble.DB
}

// NewStore opens a Pebble database at the given path.
func NewStore(dbPath string) (*Store, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(32 << 20), // 32MB cache
		MemTableSize: 16 << 20,                  // 16MB memtable
		MaxOpenFiles: 1000,
		BytesPerSync: 512 << 10, // 512KB
	}

	db, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", dbPath, err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveOffer persists an offer.
func (s *Store) SaveOffer(o *Offer) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("failed to marshal offer: %w", err)
	}

	if err := s.db.Set(offerKey(o.ID), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save offer: %w", err)
	}

	return nil
}

// SaveDeclaration persists a declaration.
func (s *Store) SaveDeclaration(d *Declaration) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal declaration: %w", err)
	}

	key := declarationKey(d.OfferID, d.CreatedAt, d.ID)
	if err := s.db.Set(key, data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save declaration: %w", err)
	}

	return nil
}

// DeleteDeclaration removes a declaration record.
func (s *Store) DeleteDeclaration(d *Declaration) error {
	key := declarationKey(d.OfferID, d.CreatedAt, d.ID)
	if err := s.db.Delete(key, pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete declaration: %w", err)
	}
	return nil
}

// LoadOffers scans all persisted offers. Ordering is by key (offer ID);
// callers re-sort by offer number.
func (s *Store) LoadOffers() ([]*Offer, error) {
	prefix := []byte(prefixOffer)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open offer iterator: %w", err)
	}
	defer iter.Close()

	var offers []*Offer
	for iter.First(); iter.Valid(); iter.Next() {
		var o Offer
		if err := json.Unmarshal(iter.Value(), &o); err != nil {
			continue // Skip invalid entries
		}
		offers = append(offers, &o)
	}

	return offers, nil
}

// LoadDeclarations scans all persisted declarations, grouped by offer and
// ordered by creation time within each offer (the key schema guarantees it).
func (s *Store) LoadDeclarations() ([]*Declaration, error) {
	prefix := []byte(prefixDeclaration)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open declaration iterator: %w", err)
	}
	defer iter.Close()

	var decls []*Declaration
	for iter.First(); iter.Valid(); iter.Next() {
		var d Declaration
		if err := json.Unmarshal(iter.Value(), &d); err != nil {
			continue // Skip invalid entries
		}
		decls = append(decls, &d)
	}

	return decls, nil
}

// BatchWrite provides atomic multi-record writes. Accept must commit the
// declaration tag and the offer status as one unit; offer deletion must
// drop the offer and its declarations as one unit.
type BatchWrite struct {
	batch *pebble.Batch
}

// NewBatch creates a new batch writer.
func (s *Store) NewBatch() *BatchWrite {
	return &BatchWrite{batch: s.db.NewBatch()}
}

// SaveOffer adds an offer write to the batch.
func (bw *BatchWrite) SaveOffer(o *Offer) error {
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return bw.batch.Set(offerKey(o.ID), data, nil)
}

// SaveDeclaration adds a declaration write to the batch.
func (bw *BatchWrite) SaveDeclaration(d *Declaration) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return bw.batch.Set(declarationKey(d.OfferID, d.CreatedAt, d.ID), data, nil)
}

// DeleteDeclaration adds deletion of a single declaration to the batch.
func (bw *BatchWrite) DeleteDeclaration(d *Declaration) error {
	return bw.batch.Delete(declarationKey(d.OfferID, d.CreatedAt, d.ID), nil)
}

// DeleteOfferCascade adds deletion of an offer and all its declarations
// to the batch.
func (bw *BatchWrite) DeleteOfferCascade(offerID string) error {
	if err := bw.batch.Delete(offerKey(offerID), nil); err != nil {
		return err
	}
	prefix := declarationPrefix(offerID)
	return bw.batch.DeleteRange(prefix, keyUpperBound(prefix), nil)
}

// Commit writes the batch atomically.
func (bw *BatchWrite) Commit() error {
	return bw.batch.Commit(pebble.Sync)
}

// Close closes the batch without committing.
func (bw *BatchWrite) Close() error {
	return bw.batch.Close()
}
