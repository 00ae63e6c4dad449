package board

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// BoardSuite runs full negotiation flows against a persisted engine and
// verifies state survives a store reopen.
type BoardSuite struct {
	suite.Suite
	dir    string
	store  *Store
	engine *Engine
	epoch  int64
}

func TestBoardSuite(t *testing.T) {
	suite.Run(t, new(BoardSuite))
}

func (s *BoardSuite) SetupTest() {
	s.dir = filepath.Join(s.T().TempDir(), "board.db")
	s.reopen()
}

func (s *BoardSuite) TearDownTest() {
	if s.store != nil {
		s.store.Close()
		s.store = nil
	}
}

// reopen closes the current store (if any) and rebuilds the engine from disk.
func (s *BoardSuite) reopen() {
	if s.store != nil {
		s.Require().NoError(s.store.Close())
	}

	store, err := NewStore(s.dir)
	s.Require().NoError(err)
	s.store = store

	// Each incarnation starts its clock past the previous one so restored
	// and new declarations keep distinct timestamps.
	s.epoch++
	engine, err := NewEngine(store, &fakeClock{now: time.UnixMilli(1_700_000_000_000).Add(time.Duration(s.epoch) * time.Hour)}, nil)
	s.Require().NoError(err)
	s.engine = engine
}

func (s *BoardSuite) TestFullTradeFlowSurvivesRestart() {
	offer, err := s.engine.CreateOffer("carrier-1", Sell, 100, 1000)
	s.Require().NoError(err)

	a, err := s.engine.Declare(offer.ID, "buyer-1", 60, "partial load", 0)
	s.Require().NoError(err)
	s.Require().NoError(s.engine.Accept(a.ID))

	// Restart mid-negotiation
	s.reopen()

	got, err := s.engine.GetOffer(offer.ID)
	s.Require().NoError(err)
	s.Equal(StatusInTrade, got.Status)
	s.Equal(offer.OfferNumber, got.OfferNumber)

	remaining, err := s.engine.RemainingQuantity(offer.ID)
	s.Require().NoError(err)
	s.Equal(int64(40), remaining)

	// Finish the trade after the restart
	b, err := s.engine.Declare(offer.ID, "buyer-2", 40, "the rest", 0)
	s.Require().NoError(err)
	s.Require().NoError(s.engine.Accept(b.ID))

	got, _ = s.engine.GetOffer(offer.ID)
	s.Equal(StatusEndTrade, got.Status)

	// And once more: the terminal state must persist too
	s.reopen()
	got, err = s.engine.GetOffer(offer.ID)
	s.Require().NoError(err)
	s.Equal(StatusEndTrade, got.Status)

	decls, err := s.engine.ListDeclarations(offer.ID)
	s.Require().NoError(err)
	s.Len(decls, 2)
	s.Equal(TagInTrade, decls[0].Tag)
	s.Equal(TagInTrade, decls[1].Tag)
}

func (s *BoardSuite) TestRejectAndWithdrawPersist() {
	offer, err := s.engine.CreateOffer("carrier-1", Sell, 50, 2000)
	s.Require().NoError(err)

	a, err := s.engine.Declare(offer.ID, "buyer-1", 50, "", 0)
	s.Require().NoError(err)
	b, err := s.engine.Declare(offer.ID, "buyer-2", 25, "", 0)
	s.Require().NoError(err)

	s.Require().NoError(s.engine.Reject(a.ID))
	s.Require().NoError(s.engine.Withdraw(b.ID))

	s.reopen()

	got, err := s.engine.GetOffer(offer.ID)
	s.Require().NoError(err)
	s.Equal(StatusEmpty, got.Status)

	decls, err := s.engine.ListDeclarations(offer.ID)
	s.Require().NoError(err)
	s.Require().Len(decls, 1)
	s.Equal(a.ID, decls[0].ID)
	s.Equal(TagRejected, decls[0].Tag)
}

func (s *BoardSuite) TestCascadeDeletePersists() {
	offer, err := s.engine.CreateOffer("carrier-1", Buy, 30, 1500)
	s.Require().NoError(err)

	_, err = s.engine.Declare(offer.ID, "carrier-2", 10, "can supply", 1400)
	s.Require().NoError(err)

	s.Require().NoError(s.engine.DeleteOffer(offer.ID))

	s.reopen()

	s.Empty(s.engine.ListOffers())
	_, err = s.engine.GetOffer(offer.ID)
	s.ErrorIs(err, ErrNotFound)
}

func (s *BoardSuite) TestOfferNumberingContinuesAfterRestart() {
	first, err := s.engine.CreateOffer("carrier-1", Sell, 10, 100)
	s.Require().NoError(err)
	s.Equal(int64(1), first.OfferNumber)

	s.reopen()

	second, err := s.engine.CreateOffer("carrier-2", Sell, 20, 200)
	s.Require().NoError(err)
	s.Equal(int64(2), second.OfferNumber)
}
