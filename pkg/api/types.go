package api

import "github.com/uhyunpark/bulkboard/pkg/board"

// API request/response types for REST endpoints and WebSocket messages

// ==============================
// REST Request Types
// ==============================

// CreateOfferRequest posts a new listing.
type CreateOfferRequest struct {
	OwnerID   string `json:"ownerId"`
	Side      string `json:"side"`      // "buy" or "sell"
	Quantity  int64  `json:"quantity"`  // units
	UnitPrice int64  `json:"unitPrice"` // cents per unit
}

// UpdateOfferRequest is a partial merge; absent fields stay untouched.
type UpdateOfferRequest struct {
	Quantity  *int64 `json:"quantity,omitempty"`
	UnitPrice *int64 `json:"unitPrice,omitempty"`
}

// DeclareRequest attaches a declaration to an offer.
type DeclareRequest struct {
	ActorID      string `json:"actorId"`
	Quantity     int64  `json:"quantity"`
	Note         string `json:"note"`
	OfferedPrice int64  `json:"offeredPrice,omitempty"` // required (>0) on buy offers
}

// ==============================
// REST Response Types
// ==============================

// OfferInfo is an offer plus its derived quantities.
type OfferInfo struct {
	ID                string            `json:"id"`
	OfferNumber       int64             `json:"offerNumber"`
	OwnerID           string            `json:"ownerId"`
	Side              board.Side        `json:"side"`
	Quantity          int64             `json:"quantity"`
	UnitPrice         int64             `json:"unitPrice"`
	Status            board.OfferStatus `json:"status"`
	CreatedAt         int64             `json:"createdAt"` // unix ms
	ReservedQuantity  int64             `json:"reservedQuantity"`
	RemainingQuantity int64             `json:"remainingQuantity"`
}

// DeclarationInfo mirrors a declaration record.
type DeclarationInfo struct {
	ID               string               `json:"id"`
	OfferID          string               `json:"offerId"`
	ActorID          string               `json:"actorId"`
	DeclaredQuantity int64                `json:"declaredQuantity"`
	Note             string               `json:"note"`
	OfferedPrice     int64                `json:"offeredPrice,omitempty"`
	Tag              board.DeclarationTag `json:"tag"`
	CreatedAt        int64                `json:"createdAt"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ==============================
// WebSocket Types
// ==============================

// WSSubscribeRequest is the client -> server subscription message.
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// OfferUpdate is broadcast on the "offers" channel and on "offer:{id}"
// whenever a command touches the offer.
type OfferUpdate struct {
	Type      string    `json:"type"` // "offer_update"
	Offer     OfferInfo `json:"offer"`
	Timestamp int64     `json:"timestamp"` // unix ms
}

// OfferDelete is broadcast when an offer is removed.
type OfferDelete struct {
	Type      string `json:"type"` // "offer_delete"
	OfferID   string `json:"offerId"`
	Timestamp int64  `json:"timestamp"`
}
