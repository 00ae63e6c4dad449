package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/uhyunpark/bulkboard/pkg/board"
	"go.uber.org/zap"
)

// Server exposes the board engine over REST and WebSocket. It is the
// trusted boundary from the engine's point of view: actor IDs in request
// bodies are taken at face value, and the sell-side quantity guard plus the
// end-of-trade gate are enforced here, before the engine is invoked.
type Server struct {
	engine  *board.Engine
	roster  *board.Roster
	router  *mux.Router
	hub     *Hub
	log     *zap.SugaredLogger
	origins []string
}

// NewServer creates an API server over the engine and user roster.
// The roster may be nil; user endpoints then return 404.
func NewServer(engine *board.Engine, roster *board.Roster, logger *zap.SugaredLogger, origins []string) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	s := &Server{
		engine:  engine,
		roster:  roster,
		router:  mux.NewRouter(),
		hub:     NewHub(logger),
		log:     logger,
		origins: origins,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Offer endpoints
	api.HandleFunc("/offers", s.handleListOffers).Methods("GET")
	api.HandleFunc("/offers", s.handleCreateOffer).Methods("POST")
	api.HandleFunc("/offers/{id}", s.handleGetOffer).Methods("GET")
	api.HandleFunc("/offers/{id}", s.handleUpdateOffer).Methods("PATCH")
	api.HandleFunc("/offers/{id}", s.handleDeleteOffer).Methods("DELETE")

	// Declaration endpoints
	api.HandleFunc("/offers/{id}/declarations", s.handleListDeclarations).Methods("GET")
	api.HandleFunc("/offers/{id}/declarations", s.handleDeclare).Methods("POST")
	api.HandleFunc("/declarations/{id}/accept", s.handleAccept).Methods("POST")
	api.HandleFunc("/declarations/{id}/reject", s.handleReject).Methods("POST")
	api.HandleFunc("/declarations/{id}", s.handleWithdraw).Methods("DELETE")

	// Roster endpoints
	api.HandleFunc("/users", s.handleListUsers).Methods("GET")
	api.HandleFunc("/users/{id}", s.handleGetUser).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the fully wrapped HTTP handler (used by tests).
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Start runs the hub and serves HTTP on addr.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	s.log.Infow("api_server_starting", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// ==============================
// Offer handlers
// ==============================

func (s *Server) handleListOffers(w http.ResponseWriter, r *http.Request) {
	sideFilter := r.URL.Query().Get("side")

	offers := s.engine.ListOffers()
	response := make([]OfferInfo, 0, len(offers))
	for _, o := range offers {
		if sideFilter != "" && string(o.Side) != sideFilter {
			continue
		}
		response = append(response, s.offerInfo(o))
	}

	// Board view: newest first
	sort.Slice(response, func(i, j int) bool { return response[i].CreatedAt > response[j].CreatedAt })

	respondJSON(w, response)
}

func (s *Server) handleCreateOffer(w http.ResponseWriter, r *http.Request) {
	var req CreateOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.OwnerID == "" {
		respondError(w, http.StatusBadRequest, "missing ownerId", "")
		return
	}

	offer, err := s.engine.CreateOffer(req.OwnerID, board.Side(req.Side), req.Quantity, req.UnitPrice)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}

	respondJSONStatus(w, http.StatusCreated, s.offerInfo(offer))
}

func (s *Server) handleGetOffer(w http.ResponseWriter, r *http.Request) {
	offer, err := s.engine.GetOffer(mux.Vars(r)["id"])
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, s.offerInfo(offer))
}

func (s *Server) handleUpdateOffer(w http.ResponseWriter, r *http.Request) {
	var req UpdateOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	offer, err := s.engine.UpdateOffer(mux.Vars(r)["id"], board.OfferUpdate{
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
	})
	if err != nil {
		s.respondEngineError(w, err)
		return
	}

	respondJSON(w, s.offerInfo(offer))
}

func (s *Server) handleDeleteOffer(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteOffer(mux.Vars(r)["id"]); err != nil {
		s.respondEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ==============================
// Declaration handlers
// ==============================

func (s *Server) handleListDeclarations(w http.ResponseWriter, r *http.Request) {
	decls, err := s.engine.ListDeclarations(mux.Vars(r)["id"])
	if err != nil {
		s.respondEngineError(w, err)
		return
	}

	response := make([]DeclarationInfo, len(decls))
	for i, d := range decls {
		response[i] = declarationInfo(d)
	}
	respondJSON(w, response)
}

func (s *Server) handleDeclare(w http.ResponseWriter, r *http.Request) {
	offerID := mux.Vars(r)["id"]

	var req DeclareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.ActorID == "" {
		respondError(w, http.StatusBadRequest, "missing actorId", "")
		return
	}

	offer, err := s.engine.GetOffer(offerID)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}

	// Boundary gates the engine leaves to its callers: no declarations on
	// a finished trade, and sell-side declarations must fit the remaining
	// quantity at creation time.
	if offer.Status == board.StatusEndTrade {
		respondError(w, http.StatusConflict, "offer trade has ended", "")
		return
	}
	if offer.Side == board.Sell {
		remaining, err := s.engine.RemainingQuantity(offerID)
		if err != nil {
			s.respondEngineError(w, err)
			return
		}
		if req.Quantity > remaining {
			respondError(w, http.StatusConflict, "declared quantity exceeds remaining quantity", "")
			return
		}
	}

	decl, err := s.engine.Declare(offerID, req.ActorID, req.Quantity, req.Note, req.OfferedPrice)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}

	respondJSONStatus(w, http.StatusCreated, declarationInfo(decl))
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Accept(mux.Vars(r)["id"]); err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, map[string]string{"status": "accepted"})
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Reject(mux.Vars(r)["id"]); err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, map[string]string{"status": "rejected"})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Withdraw(mux.Vars(r)["id"]); err != nil {
		s.respondEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ==============================
// Roster handlers
// ==============================

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if s.roster == nil {
		respondJSON(w, []board.User{})
		return
	}
	respondJSON(w, s.roster.List())
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	if s.roster == nil {
		respondError(w, http.StatusNotFound, "user not found", "")
		return
	}

	user, err := s.roster.Get(mux.Vars(r)["id"])
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, user)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Broadcast hooks (wired to engine callbacks in main)
// ==============================

// BroadcastOfferUpdate pushes an offer snapshot to subscribed clients.
func (s *Server) BroadcastOfferUpdate(o *board.Offer) {
	update := OfferUpdate{
		Type:      "offer_update",
		Offer:     s.offerInfo(o),
		Timestamp: time.Now().UnixMilli(),
	}
	s.hub.BroadcastToChannel("offers", update)
	s.hub.BroadcastToChannel("offer:"+o.ID, update)
}

// BroadcastOfferDelete announces an offer removal.
func (s *Server) BroadcastOfferDelete(offerID string) {
	msg := OfferDelete{
		Type:      "offer_delete",
		OfferID:   offerID,
		Timestamp: time.Now().UnixMilli(),
	}
	s.hub.BroadcastToChannel("offers", msg)
	s.hub.BroadcastToChannel("offer:"+offerID, msg)
}

// ==============================
// Helpers
// ==============================

func (s *Server) offerInfo(o *board.Offer) OfferInfo {
	// Derived quantities are best-effort here; the offer may be gone by the
	// time a broadcast renders it, in which case they stay zero.
	reserved, _ := s.engine.ReservedQuantity(o.ID)
	remaining, _ := s.engine.RemainingQuantity(o.ID)

	return OfferInfo{
		ID:                o.ID,
		OfferNumber:       o.OfferNumber,
		OwnerID:           o.OwnerID,
		Side:              o.Side,
		Quantity:          o.Quantity,
		UnitPrice:         o.UnitPrice,
		Status:            o.Status,
		CreatedAt:         o.CreatedAt,
		ReservedQuantity:  reserved,
		RemainingQuantity: remaining,
	}
}

func declarationInfo(d *board.Declaration) DeclarationInfo {
	return DeclarationInfo{
		ID:               d.ID,
		OfferID:          d.OfferID,
		ActorID:          d.ActorID,
		DeclaredQuantity: d.DeclaredQuantity,
		Note:             d.Note,
		OfferedPrice:     d.OfferedPrice,
		Tag:              d.Tag,
		CreatedAt:        d.CreatedAt,
	}
}

// respondEngineError maps engine error kinds to HTTP status codes.
func (s *Server) respondEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, board.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found", err.Error())
	case errors.Is(err, board.ErrInvalidQuantity),
		errors.Is(err, board.ErrInvalidPrice),
		errors.Is(err, board.ErrInvalidSide):
		respondError(w, http.StatusBadRequest, "invalid request", err.Error())
	case errors.Is(err, board.ErrExceedsRemaining),
		errors.Is(err, board.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "conflict", err.Error())
	default:
		s.log.Errorw("internal_error", "err", err)
		respondError(w, http.StatusInternalServerError, "internal error", "")
	}
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	respondJSONStatus(w, http.StatusOK, data)
}

func respondJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
