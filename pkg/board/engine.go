package board

import (
	"fmt"
	"sort"
	"sync"

	"github.com/uhyunpark/bulkboard/pkg/util"
	"go.uber.org/zap"
)

// Engine drives the quantity-reservation rules and the offer status machine.
// All lifecycle commands (declare/accept/reject/withdraw and offer CRUD) are
// serialized under one mutex so the offer and its declarations mutate as a
// single transactional aggregate: a command either fully applies or fully
// aborts.
//
// Status transitions:
//
//	EMPTY    --declare (first pending)-->        RESERVED
//	RESERVED --accept-->                         IN_TRADE
//	IN_TRADE --accept drives remaining to 0-->   END_TRADE (terminal)
//	RESERVED --reject-->                         EMPTY
//	RESERVED --withdraw last pending-->          EMPTY
//
// Reject is a hard reset to EMPTY regardless of other pending declarations;
// withdraw re-derives. The asymmetry is inherited board behavior, kept on
// purpose.
type Engine struct {
	mu     sync.Mutex
	offers *OfferRepo
	decls  *DeclarationRepo
	store  *Store // nil = ephemeral (no persistence)
	clock  util.Clock
	log    *zap.SugaredLogger

	// OnOfferUpdate is invoked with a snapshot after any command that
	// touched the offer. OnOfferDelete after a cascade delete. Both are
	// optional; the API server hooks them to the websocket hub.
	OnOfferUpdate func(*Offer)
	OnOfferDelete func(offerID string)
}

// NewEngine builds an engine over fresh repositories, replaying persisted
// state from the store when one is given.
func NewEngine(store *Store, clock util.Clock, logger *zap.SugaredLogger) (*Engine, error) {
	if clock == nil {
		clock = util.RealClock{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	e := &Engine{
		offers: NewOfferRepo(),
		decls:  NewDeclarationRepo(),
		store:  store,
		clock:  clock,
		log:    logger,
	}

	if store != nil {
		if err := e.load(); err != nil {
			return nil, fmt.Errorf("failed to load board state: %w", err)
		}
	}

	return e, nil
}

// load replays offers and declarations from the store into the repositories.
func (e *Engine) load() error {
	offers, err := e.store.LoadOffers()
	if err != nil {
		return err
	}
	sort.Slice(offers, func(i, j int) bool { return offers[i].OfferNumber < offers[j].OfferNumber })
	for _, o := range offers {
		e.offers.restore(o)
	}

	decls, err := e.store.LoadDeclarations()
	if err != nil {
		return err
	}
	for _, d := range decls {
		e.decls.restore(d)
	}

	e.log.Infow("board_state_loaded", "offers", len(offers), "declarations", len(decls))
	return nil
}

// ==============================
// Offer commands
// ==============================

// CreateOffer posts a new listing with an empty status tag.
func (e *Engine) CreateOffer(ownerID string, side Side, quantity, unitPrice int64) (*Offer, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("offer side %q: %w", side, ErrInvalidSide)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("offer quantity %d: %w", quantity, ErrInvalidQuantity)
	}
	if unitPrice <= 0 {
		return nil, fmt.Errorf("offer unit price %d: %w", unitPrice, ErrInvalidPrice)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	o := e.offers.Create(ownerID, side, quantity, unitPrice, e.clock.Now().UnixMilli())

	if e.store != nil {
		if err := e.store.SaveOffer(o); err != nil {
			e.offers.Delete(o.ID) // roll back the in-memory insert
			return nil, err
		}
	}

	e.log.Infow("offer_created",
		"offer_id", o.ID, "offer_number", o.OfferNumber,
		"owner", ownerID, "side", side, "quantity", quantity, "unit_price", unitPrice)
	e.notifyUpdate(o)
	return o, nil
}

// UpdateOffer applies a partial merge to an offer's negotiable fields.
func (e *Engine) UpdateOffer(id string, upd OfferUpdate) (*Offer, error) {
	if upd.Quantity != nil && *upd.Quantity <= 0 {
		return nil, fmt.Errorf("offer quantity %d: %w", *upd.Quantity, ErrInvalidQuantity)
	}
	if upd.UnitPrice != nil && *upd.UnitPrice <= 0 {
		return nil, fmt.Errorf("offer unit price %d: %w", *upd.UnitPrice, ErrInvalidPrice)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	prev, err := e.offers.Get(id)
	if err != nil {
		return nil, err
	}

	o, err := e.offers.Update(id, upd)
	if err != nil {
		return nil, err
	}

	if e.store != nil {
		if err := e.store.SaveOffer(o); err != nil {
			e.offers.Update(id, OfferUpdate{Quantity: &prev.Quantity, UnitPrice: &prev.UnitPrice})
			return nil, err
		}
	}

	e.log.Infow("offer_updated", "offer_id", id)
	e.notifyUpdate(o)
	return o, nil
}

// DeleteOffer removes the offer and cascades every declaration attached to
// it, atomically.
func (e *Engine) DeleteOffer(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.offers.Get(id); err != nil {
		return err
	}

	if e.store != nil {
		bw := e.store.NewBatch()
		if err := bw.DeleteOfferCascade(id); err != nil {
			bw.Close()
			return fmt.Errorf("failed to stage offer delete: %w", err)
		}
		if err := bw.Commit(); err != nil {
			return fmt.Errorf("failed to delete offer %s: %w", id, err)
		}
	}

	e.offers.Delete(id)
	removed := e.decls.DeleteByOffer(id)

	e.log.Infow("offer_deleted", "offer_id", id, "declarations_removed", removed)
	if e.OnOfferDelete != nil {
		e.OnOfferDelete(id)
	}
	return nil
}

// ==============================
// Declaration lifecycle
// ==============================

// Declare attaches a pending declaration to an offer. First pending
// declaration flips an EMPTY offer to RESERVED. Buy-side offers require the
// declarer to quote a positive price.
//
// No remaining-quantity check happens here: the sell-side guard is the
// calling boundary's job at creation time, and the engine re-checks at
// accept time.
func (e *Engine) Declare(offerID, actorID string, quantity int64, note string, offeredPrice int64) (*Declaration, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("declared quantity %d: %w", quantity, ErrInvalidQuantity)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	offer, err := e.offers.Get(offerID)
	if err != nil {
		return nil, err
	}
	if offer.Side == Buy && offeredPrice <= 0 {
		return nil, fmt.Errorf("buy offer requires an offered price, got %d: %w", offeredPrice, ErrInvalidPrice)
	}

	d := e.decls.Create(offerID, actorID, quantity, note, offeredPrice, e.clock.Now().UnixMilli())

	flipped := offer.Status == StatusEmpty
	if flipped {
		offer.Status = StatusReserved
	}

	if e.store != nil {
		bw := e.store.NewBatch()
		err := bw.SaveDeclaration(d)
		if err == nil && flipped {
			err = bw.SaveOffer(offer)
		}
		if err == nil {
			err = bw.Commit()
		} else {
			bw.Close()
		}
		if err != nil {
			e.decls.Delete(d.ID) // roll back the in-memory insert
			return nil, fmt.Errorf("failed to persist declaration: %w", err)
		}
	}

	if flipped {
		e.offers.setStatus(offerID, StatusReserved)
	}

	e.log.Infow("declaration_created",
		"declaration_id", d.ID, "offer_id", offerID, "actor", actorID,
		"quantity", quantity, "offer_status", offer.Status)
	e.notifyUpdate(offer)
	return d, nil
}

// Accept confirms a pending declaration. The declared quantity must fit in
// the offer's remaining quantity or the command aborts with
// ErrExceedsRemaining and no state changes. On success the declaration goes
// IN_TRADE, the offer goes IN_TRADE, and if the recomputed remaining
// quantity hits zero the offer is overridden to END_TRADE.
func (e *Engine) Accept(declarationID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := e.decls.Get(declarationID)
	if err != nil {
		return err
	}
	if d.Resolved() {
		return fmt.Errorf("declaration %s already %s: %w", d.ID, d.Tag, ErrInvalidTransition)
	}

	offer, err := e.offers.Get(d.OfferID)
	if err != nil {
		return err
	}

	remaining := e.remaining(offer)
	if d.DeclaredQuantity > remaining {
		return fmt.Errorf("declared %d, remaining %d on offer %s: %w",
			d.DeclaredQuantity, remaining, offer.ID, ErrExceedsRemaining)
	}

	// Two-step contract: force IN_TRADE, then override to END_TRADE when
	// the confirmed total consumes the whole offer.
	d.Tag = TagInTrade
	offer.Status = StatusInTrade
	if remaining-d.DeclaredQuantity == 0 {
		offer.Status = StatusEndTrade
	}

	if err := e.persistPair(d, offer); err != nil {
		return fmt.Errorf("failed to persist accept: %w", err)
	}

	e.decls.setTag(d.ID, TagInTrade)
	e.offers.setStatus(offer.ID, offer.Status)

	e.log.Infow("declaration_accepted",
		"declaration_id", d.ID, "offer_id", offer.ID,
		"quantity", d.DeclaredQuantity, "remaining", remaining-d.DeclaredQuantity,
		"offer_status", offer.Status)
	e.notifyUpdate(offer)
	return nil
}

// Reject resolves a pending declaration as rejected and resets the offer
// status straight back to EMPTY. This is a direct overwrite, not a
// re-derivation: other pending declarations do not keep the offer RESERVED.
func (e *Engine) Reject(declarationID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := e.decls.Get(declarationID)
	if err != nil {
		return err
	}
	if d.Resolved() {
		return fmt.Errorf("declaration %s already %s: %w", d.ID, d.Tag, ErrInvalidTransition)
	}

	offer, err := e.offers.Get(d.OfferID)
	if err != nil {
		return err
	}

	d.Tag = TagRejected
	offer.Status = StatusEmpty

	if err := e.persistPair(d, offer); err != nil {
		return fmt.Errorf("failed to persist reject: %w", err)
	}

	e.decls.setTag(d.ID, TagRejected)
	e.offers.setStatus(offer.ID, StatusEmpty)

	e.log.Infow("declaration_rejected", "declaration_id", d.ID, "offer_id", offer.ID)
	e.notifyUpdate(offer)
	return nil
}

// Withdraw deletes a declaration. When the withdrawn declaration was the
// offer's last pending one and the offer sits in RESERVED, the offer drops
// back to EMPTY; otherwise the offer status is untouched.
func (e *Engine) Withdraw(declarationID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, err := e.decls.Get(declarationID)
	if err != nil {
		return err
	}

	offer, err := e.offers.Get(d.OfferID)
	if err != nil {
		return err
	}

	pendingLeft := false
	for _, other := range e.decls.ListByOffer(offer.ID) {
		if other.ID != d.ID && other.Tag == TagPending {
			pendingLeft = true
			break
		}
	}

	reset := offer.Status == StatusReserved && !pendingLeft
	if reset {
		offer.Status = StatusEmpty
	}

	if e.store != nil {
		bw := e.store.NewBatch()
		err := bw.DeleteDeclaration(d)
		if err == nil && reset {
			err = bw.SaveOffer(offer)
		}
		if err == nil {
			err = bw.Commit()
		} else {
			bw.Close()
		}
		if err != nil {
			return fmt.Errorf("failed to persist withdraw: %w", err)
		}
	}

	e.decls.Delete(d.ID)
	if reset {
		e.offers.setStatus(offer.ID, StatusEmpty)
	}

	e.log.Infow("declaration_withdrawn",
		"declaration_id", d.ID, "offer_id", offer.ID, "offer_status", offer.Status)
	e.notifyUpdate(offer)
	return nil
}

// ==============================
// Derived quantities & queries
// ==============================

// ReservedQuantity sums declared quantity over the offer's still-pending
// declarations: claimed but not yet confirmed.
func (e *Engine) ReservedQuantity(offerID string) (int64, error) {
	if _, err := e.offers.Get(offerID); err != nil {
		return 0, err
	}
	return e.decls.sumByTag(offerID, TagPending), nil
}

// RemainingQuantity is the offer quantity minus everything already confirmed
// (IN_TRADE), floored at zero.
func (e *Engine) RemainingQuantity(offerID string) (int64, error) {
	offer, err := e.offers.Get(offerID)
	if err != nil {
		return 0, err
	}
	return e.remaining(offer), nil
}

// GetOffer returns a snapshot of one offer.
func (e *Engine) GetOffer(id string) (*Offer, error) {
	return e.offers.Get(id)
}

// ListOffers returns snapshots of all offers in insertion order. Callers
// sort and filter for presentation.
func (e *Engine) ListOffers() []*Offer {
	return e.offers.List()
}

// ListDeclarations returns an offer's declarations ordered by creation time
// ascending.
func (e *Engine) ListDeclarations(offerID string) ([]*Declaration, error) {
	if _, err := e.offers.Get(offerID); err != nil {
		return nil, err
	}
	return e.decls.ListByOffer(offerID), nil
}

// ==============================
// Internals
// ==============================

func (e *Engine) remaining(offer *Offer) int64 {
	confirmed := e.decls.sumByTag(offer.ID, TagInTrade)
	remaining := offer.Quantity - confirmed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// persistPair commits a declaration and its offer in one batch.
func (e *Engine) persistPair(d *Declaration, o *Offer) error {
	if e.store == nil {
		return nil
	}

	bw := e.store.NewBatch()
	err := bw.SaveDeclaration(d)
	if err == nil {
		err = bw.SaveOffer(o)
	}
	if err == nil {
		return bw.Commit()
	}
	bw.Close()
	return err
}

func (e *Engine) notifyUpdate(o *Offer) {
	if e.OnOfferUpdate != nil {
		snapshot := *o
		e.OnOfferUpdate(&snapshot)
	}
}
