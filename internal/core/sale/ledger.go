// Package sale keeps the per-token sale records and enforces the request
// state machine.
package sale

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/LeJamon/goMarble/internal/core/result"
	"github.com/LeJamon/goMarble/internal/core/state"
	"github.com/LeJamon/goMarble/internal/types"
)

// Pagination limits of List.
const (
	DefaultLimit = 20
	MaxLimit     = 30
)

// StartParams describes a new listing.
type StartParams struct {
	TokenID      uint64
	Provider     types.Address
	SaleType     SaleType
	Duration     Duration
	InitialPrice *uint256.Int
	Royalty      Royalty
}

// Ledger stores sale records in a state view.
type Ledger struct {
	view state.View
}

// NewLedger returns a ledger over view.
func NewLedger(view state.View) *Ledger {
	return &Ledger{view: view}
}

// Get returns the record of tokenID, or NotOnSale.
func (l *Ledger) Get(tokenID uint64) (*Record, error) {
	data, err := l.view.Read(state.Sale(tokenID))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, result.Wrap(result.NotOnSale, "token %d", tokenID)
	}
	return decodeRecord(data)
}

// Has reports whether tokenID is listed.
func (l *Ledger) Has(tokenID uint64) (bool, error) {
	return l.view.Exists(state.Sale(tokenID))
}

// Start lists a token. The caller must be the token's current custodian.
func (l *Ledger) Start(p StartParams, callerIsCustodian bool, now uint64) (*Record, error) {
	if !callerIsCustodian {
		return nil, result.Wrap(result.Unauthorized, "%s does not hold token %d", p.Provider, p.TokenID)
	}
	listed, err := l.Has(p.TokenID)
	if err != nil {
		return nil, err
	}
	if listed {
		return nil, result.Wrap(result.AlreadyOnSale, "token %d", p.TokenID)
	}
	if !p.SaleType.Valid() {
		return nil, result.Wrap(result.InvalidSaleType, "unknown sale type %d", uint8(p.SaleType))
	}
	if p.SaleType == Fixed && p.Duration.Kind != Unbounded {
		return nil, result.Wrap(result.InvalidSaleType, "fixed sales cannot use %s", p.Duration)
	}
	switch p.Duration.Kind {
	case Unbounded:
	case TimeBound:
		if now > p.Duration.End {
			return nil, result.Wrap(result.AlreadyExpired, "end %d is before %d", p.Duration.End, now)
		}
	case BidBound:
		if p.Duration.MaxRequests == 0 {
			return nil, result.Wrap(result.InvalidSaleType, "bid_bound needs at least one request")
		}
	default:
		return nil, result.Wrap(result.InvalidSaleType, "unknown duration kind %d", p.Duration.Kind)
	}
	initial := types.AmountOrZero(p.InitialPrice)
	if err := types.CheckAmount(initial); err != nil {
		return nil, result.Wrap(result.InvalidMessage, "initial price: %v", err)
	}
	if err := p.Royalty.Rate.Validate(); err != nil {
		return nil, result.Wrap(result.InvalidMessage, "royalty: %v", err)
	}

	r := &Record{
		TokenID:      p.TokenID,
		Provider:     p.Provider,
		SaleType:     p.SaleType,
		Duration:     p.Duration,
		InitialPrice: initial,
		Royalty:      p.Royalty,
		Requests:     []Request{},
	}
	if err := l.insert(r); err != nil {
		return nil, err
	}
	return r, nil
}

// Submit appends a bid or offer and recomputes the winner.
func (l *Ledger) Submit(tokenID uint64, bidder types.Address, price *uint256.Int, now uint64) (*Record, error) {
	r, err := l.Get(tokenID)
	if err != nil {
		return nil, err
	}
	if !r.Duration.acceptsRequests(now, len(r.Requests)) {
		return nil, result.Wrap(result.AlreadyExpired, "token %d closed at %s", tokenID, r.Duration)
	}
	if r.SaleType == Fixed && len(r.Requests) > 0 {
		return nil, result.Wrap(result.AlreadyFinished, "token %d already has a buyer", tokenID)
	}
	price = types.AmountOrZero(price)
	if err := types.CheckAmount(price); err != nil {
		return nil, result.Wrap(result.InvalidMessage, "price: %v", err)
	}

	switch r.SaleType {
	case Fixed, Offer:
		if price.Lt(r.InitialPrice) {
			return nil, result.Wrap(result.LowerThanPrevious, "price %s below initial %s", price.Dec(), r.InitialPrice.Dec())
		}
	case Auction:
		if top := r.top(); !price.Gt(top) {
			return nil, result.Wrap(result.LowerThanPrevious, "bid %s does not exceed %s", price.Dec(), top.Dec())
		}
	}

	r.Requests = append(r.Requests, Request{Address: bidder, Price: price})
	r.pickWinner()
	if err := l.update(r); err != nil {
		return nil, err
	}
	return r, nil
}

// UpdatePrice changes the initial price of a listing nobody has bid on.
func (l *Ledger) UpdatePrice(tokenID uint64, caller types.Address, price *uint256.Int) (*Record, error) {
	r, err := l.Get(tokenID)
	if err != nil {
		return nil, err
	}
	if r.Provider != caller {
		return nil, result.Wrap(result.Unauthorized, "%s did not list token %d", caller, tokenID)
	}
	if len(r.Requests) > 0 {
		return nil, result.Wrap(result.AlreadyFinished, "token %d has %d requests", tokenID, len(r.Requests))
	}
	price = types.AmountOrZero(price)
	if err := types.CheckAmount(price); err != nil {
		return nil, result.Wrap(result.InvalidMessage, "price: %v", err)
	}
	r.InitialPrice = price
	if err := l.update(r); err != nil {
		return nil, err
	}
	return r, nil
}

// Remove withdraws a listing nobody has bid on and returns it.
func (l *Ledger) Remove(tokenID uint64, caller types.Address) (*Record, error) {
	r, err := l.Get(tokenID)
	if err != nil {
		return nil, err
	}
	if r.Provider != caller {
		return nil, result.Wrap(result.Unauthorized, "%s did not list token %d", caller, tokenID)
	}
	if len(r.Requests) > 0 {
		return nil, result.Wrap(result.AlreadyFinished, "token %d has %d requests", tokenID, len(r.Requests))
	}
	if err := l.view.Erase(state.Sale(tokenID)); err != nil {
		return nil, err
	}
	return r, nil
}

// Delete erases the record of tokenID.
func (l *Ledger) Delete(tokenID uint64) error {
	err := l.view.Erase(state.Sale(tokenID))
	if errors.Is(err, state.ErrEntryNotFound) {
		return result.Wrap(result.NotOnSale, "token %d", tokenID)
	}
	return err
}

// List returns records in ascending token id, starting after startAfter
// when set.
func (l *Ledger) List(startAfter *uint64, limit uint32) ([]*Record, error) {
	n := int(limit)
	if n == 0 {
		n = DefaultLimit
	}
	if n > MaxLimit {
		n = MaxLimit
	}

	var after []byte
	if startAfter != nil {
		after = state.Sale(*startAfter).Bytes()
	}

	records := make([]*Record, 0, n)
	var decodeErr error
	err := l.view.ForEach(state.SpacePrefix(state.SpaceSale), after, func(_, data []byte) bool {
		r, err := decodeRecord(data)
		if err != nil {
			decodeErr = err
			return false
		}
		records = append(records, r)
		return len(records) < n
	})
	if err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return records, nil
}

func (l *Ledger) insert(r *Record) error {
	data, err := encodeRecord(r)
	if err != nil {
		return err
	}
	return l.view.Insert(state.Sale(r.TokenID), data)
}

func (l *Ledger) update(r *Record) error {
	data, err := encodeRecord(r)
	if err != nil {
		return err
	}
	return l.view.Update(state.Sale(r.TokenID), data)
}
