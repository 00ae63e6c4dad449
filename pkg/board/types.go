package board

// Side says which way an offer trades: the owner is selling quantity
// (counter-parties claim it) or buying it (counter-parties quote a price).
type Side string

const (
	Sell Side = "sell"
	Buy  Side = "buy"
)

func (s Side) Valid() bool { return s == Sell || s == Buy }

// OfferStatus is the offer's lifecycle tag. StatusEmpty is both the initial
// state and the name of the "no pending negotiation" state, matching the
// empty tag the board renders as waiting.
type OfferStatus string

const (
	StatusEmpty    OfferStatus = ""
	StatusReserved OfferStatus = "reserved"
	StatusInTrade  OfferStatus = "in_trade"
	StatusEndTrade OfferStatus = "end_trade"
	StatusCanceled OfferStatus = "canceled" // reserved in the schema, never set by the engine
)

// DeclarationTag is the per-declaration resolution state. TagPending
// declarations count toward reserved quantity; TagInTrade ones count toward
// confirmed quantity. Both TagInTrade and TagRejected are terminal.
type DeclarationTag string

const (
	TagPending  DeclarationTag = ""
	TagInTrade  DeclarationTag = "in_trade"
	TagRejected DeclarationTag = "rejected"
)

// Offer is a posted bulk buy/sell listing. Status is derived/mutated only by
// the Engine; nothing else writes it.
type Offer struct {
	ID          string      `json:"id"`
	OfferNumber int64       `json:"offerNumber"`
	OwnerID     string      `json:"ownerId"`
	Side        Side        `json:"side"`
	Quantity    int64       `json:"quantity"`  // units, > 0
	UnitPrice   int64       `json:"unitPrice"` // cents per unit, > 0
	Status      OfferStatus `json:"status"`
	CreatedAt   int64       `json:"createdAt"` // unix ms
}

// Declaration is a counter-party's claim against an offer's quantity.
// OfferedPrice is only meaningful when the parent offer is buy-side
// (the declarer quotes what they would charge).
type Declaration struct {
	ID               string         `json:"id"`
	OfferID          string         `json:"offerId"`
	ActorID          string         `json:"actorId"`
	DeclaredQuantity int64          `json:"declaredQuantity"` // units, > 0
	Note             string         `json:"note"`
	OfferedPrice     int64          `json:"offeredPrice,omitempty"` // cents per unit, 0 when absent
	Tag              DeclarationTag `json:"tag"`
	CreatedAt        int64          `json:"createdAt"` // unix ms
}

// Resolved reports whether the declaration reached a terminal tag.
func (d *Declaration) Resolved() bool { return d.Tag != TagPending }

// OfferUpdate is a partial field merge for an offer. Nil fields are left
// untouched. Status is deliberately absent: only the engine moves it.
type OfferUpdate struct {
	Quantity  *int64
	UnitPrice *int64
}
