package sale

import (
	"encoding/json"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goMarble/internal/core/result"
	"github.com/LeJamon/goMarble/internal/core/royalty"
	"github.com/LeJamon/goMarble/internal/core/state"
	"github.com/LeJamon/goMarble/internal/storage/database/pebble"
	"github.com/LeJamon/goMarble/internal/types"
)

const (
	alice types.Address = "marble1alice"
	bob   types.Address = "marble1bob"
	carol types.Address = "marble1carol"
	dave  types.Address = "marble1dave"
)

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	db, err := pebble.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewLedger(state.NewStore(db))
}

func amt(v uint64) *uint256.Int { return uint256.NewInt(v) }

func start(t *testing.T, l *Ledger, tokenID uint64, st SaleType, d Duration, initial uint64) *Record {
	t.Helper()
	r, err := l.Start(StartParams{
		TokenID:      tokenID,
		Provider:     alice,
		SaleType:     st,
		Duration:     d,
		InitialPrice: amt(initial),
		Royalty:      Royalty{Rate: royalty.Percent(5)},
	}, true, 1000)
	require.NoError(t, err)
	return r
}

func TestStartThenGet(t *testing.T) {
	l := newLedger(t)
	start(t, l, 7, Auction, NewTimeBound(2000), 100)

	r, err := l.Get(7)
	require.NoError(t, err)
	assert.Empty(t, r.Requests)
	assert.NotNil(t, r.Requests)
	assert.Equal(t, uint32(0), r.WinningIndex)
	assert.Equal(t, alice, r.Provider)
	assert.Equal(t, uint64(100), r.InitialPrice.Uint64())
	assert.Equal(t, NewTimeBound(2000), r.Duration)
	assert.Equal(t, royalty.Percent(5), r.Royalty.Rate)
	assert.Equal(t, alice, r.RoyaltyRecipient())

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"requests":[]`)
	assert.Contains(t, string(data), `"duration_type":{"time_bound":2000}`)
}

func TestStartErrors(t *testing.T) {
	l := newLedger(t)
	start(t, l, 1, Fixed, NewUnbounded(), 10)

	tests := []struct {
		name      string
		params    StartParams
		custodian bool
		want      result.Code
	}{
		{
			name:   "not custodian",
			params: StartParams{TokenID: 2, SaleType: Fixed, Duration: NewUnbounded()},
			want:   result.Unauthorized,
		},
		{
			name:      "already listed",
			params:    StartParams{TokenID: 1, SaleType: Fixed, Duration: NewUnbounded()},
			custodian: true,
			want:      result.AlreadyOnSale,
		},
		{
			name:      "fixed with time bound",
			params:    StartParams{TokenID: 2, SaleType: Fixed, Duration: NewTimeBound(5000)},
			custodian: true,
			want:      result.InvalidSaleType,
		},
		{
			name:      "fixed with bid bound",
			params:    StartParams{TokenID: 2, SaleType: Fixed, Duration: NewBidBound(3)},
			custodian: true,
			want:      result.InvalidSaleType,
		},
		{
			name:      "zero bid bound",
			params:    StartParams{TokenID: 2, SaleType: Offer, Duration: NewBidBound(0)},
			custodian: true,
			want:      result.InvalidSaleType,
		},
		{
			name:      "end in the past",
			params:    StartParams{TokenID: 2, SaleType: Auction, Duration: NewTimeBound(999)},
			custodian: true,
			want:      result.AlreadyExpired,
		},
		{
			name:      "unknown sale type",
			params:    StartParams{TokenID: 2, Duration: NewUnbounded()},
			custodian: true,
			want:      result.InvalidSaleType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Start(tt.params, tt.custodian, 1000)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuctionPricesStrictlyIncrease(t *testing.T) {
	l := newLedger(t)
	start(t, l, 1, Auction, NewUnbounded(), 100)

	_, err := l.Submit(1, bob, amt(100), 1000)
	assert.ErrorIs(t, err, result.LowerThanPrevious, "first bid must exceed the initial price")

	prices := []uint64{101, 150, 150, 149, 151, 500, 499, 501}
	var accepted []uint64
	for _, p := range prices {
		r, err := l.Submit(1, bob, amt(p), 1000)
		if err != nil {
			assert.ErrorIs(t, err, result.LowerThanPrevious)
			continue
		}
		accepted = append(accepted, p)
		assert.Equal(t, uint32(len(r.Requests)-1), r.WinningIndex)
	}
	assert.Equal(t, []uint64{101, 150, 151, 500, 501}, accepted)
}

func TestOfferWinnerIsFirstMax(t *testing.T) {
	l := newLedger(t)
	start(t, l, 1, Offer, NewUnbounded(), 10)

	steps := []struct {
		bidder types.Address
		price  uint64
		winner uint32
	}{
		{bob, 50, 0},
		{carol, 40, 0},
		{dave, 80, 2},
		{bob, 80, 2},
		{carol, 10, 2},
		{dave, 81, 5},
	}
	for _, s := range steps {
		r, err := l.Submit(1, s.bidder, amt(s.price), 1000)
		require.NoError(t, err)
		assert.Equal(t, s.winner, r.WinningIndex, "after %s %d", s.bidder, s.price)
	}

	_, err := l.Submit(1, bob, amt(9), 1000)
	assert.ErrorIs(t, err, result.LowerThanPrevious)
}

func TestFixedAcceptsOneRequest(t *testing.T) {
	l := newLedger(t)
	start(t, l, 1, Fixed, NewUnbounded(), 100)

	_, err := l.Submit(1, bob, amt(99), 1000)
	assert.ErrorIs(t, err, result.LowerThanPrevious)

	r, err := l.Submit(1, bob, amt(100), 1000)
	require.NoError(t, err)
	assert.Len(t, r.Requests, 1)

	_, err = l.Submit(1, carol, amt(1000), 1000)
	assert.ErrorIs(t, err, result.AlreadyFinished)
}

func TestBidBoundOfferScenario(t *testing.T) {
	l := newLedger(t)
	start(t, l, 1, Offer, NewBidBound(2), 100)

	_, err := l.Submit(1, "A", amt(150), 1000)
	require.NoError(t, err)
	r, err := l.Submit(1, "B", amt(200), 1000)
	require.NoError(t, err)
	assert.True(t, r.Duration.Settleable(1000, len(r.Requests)))

	_, err = l.Submit(1, "C", amt(90), 1000)
	assert.ErrorIs(t, err, result.AlreadyExpired)

	r, err = l.Get(1)
	require.NoError(t, err)
	w, ok := r.Winner()
	require.True(t, ok)
	assert.Equal(t, types.Address("B"), w.Address)
	assert.Equal(t, uint64(200), w.Price.Uint64())
}

func TestTimeBoundGate(t *testing.T) {
	l := newLedger(t)
	start(t, l, 1, Auction, NewTimeBound(2000), 100)

	_, err := l.Submit(1, bob, amt(150), 2000)
	require.NoError(t, err, "the end time itself still accepts requests")

	_, err = l.Submit(1, carol, amt(200), 2001)
	assert.ErrorIs(t, err, result.AlreadyExpired)

	d := NewTimeBound(2000)
	assert.False(t, d.Settleable(1999, 1))
	assert.True(t, d.Settleable(2000, 1))
}

func TestSubmitNotOnSale(t *testing.T) {
	l := newLedger(t)
	_, err := l.Submit(42, bob, amt(1), 0)
	assert.ErrorIs(t, err, result.NotOnSale)
}

func TestUpdatePriceAndRemove(t *testing.T) {
	l := newLedger(t)
	start(t, l, 1, Fixed, NewUnbounded(), 100)
	start(t, l, 2, Offer, NewUnbounded(), 100)

	_, err := l.UpdatePrice(1, bob, amt(5))
	assert.ErrorIs(t, err, result.Unauthorized)

	r, err := l.UpdatePrice(1, alice, amt(5))
	require.NoError(t, err)
	assert.Equal(t, uint64(5), r.InitialPrice.Uint64())

	_, err = l.Submit(2, bob, amt(100), 1000)
	require.NoError(t, err)
	_, err = l.UpdatePrice(2, alice, amt(1))
	assert.ErrorIs(t, err, result.AlreadyFinished)
	_, err = l.Remove(2, alice)
	assert.ErrorIs(t, err, result.AlreadyFinished)

	_, err = l.Remove(1, bob)
	assert.ErrorIs(t, err, result.Unauthorized)
	_, err = l.Remove(1, alice)
	require.NoError(t, err)
	_, err = l.Get(1)
	assert.ErrorIs(t, err, result.NotOnSale)
}

func TestDelete(t *testing.T) {
	l := newLedger(t)
	start(t, l, 1, Fixed, NewUnbounded(), 1)
	require.NoError(t, l.Delete(1))
	assert.ErrorIs(t, l.Delete(1), result.NotOnSale)
}

func TestList(t *testing.T) {
	l := newLedger(t)
	for id := uint64(1); id <= 40; id++ {
		start(t, l, id*10, Fixed, NewUnbounded(), id)
	}

	page, err := l.List(nil, 0)
	require.NoError(t, err)
	require.Len(t, page, DefaultLimit)
	assert.Equal(t, uint64(10), page[0].TokenID)

	page, err = l.List(nil, 100)
	require.NoError(t, err)
	assert.Len(t, page, MaxLimit)

	after := uint64(385)
	page, err = l.List(&after, 5)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, uint64(390), page[0].TokenID)
	assert.Equal(t, uint64(400), page[1].TokenID)
}

func TestDurationJSON(t *testing.T) {
	tests := []struct {
		in   string
		want Duration
	}{
		{`"unbounded"`, NewUnbounded()},
		{`{"unbounded":{}}`, NewUnbounded()},
		{`{"time_bound":1700000000}`, NewTimeBound(1700000000)},
		{`{"bid_bound":3}`, NewBidBound(3)},
	}
	for _, tt := range tests {
		var d Duration
		require.NoError(t, json.Unmarshal([]byte(tt.in), &d), tt.in)
		assert.Equal(t, tt.want, d)
	}

	var d Duration
	assert.Error(t, json.Unmarshal([]byte(`"forever"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`{"time_bound":1,"bid_bound":2}`), &d))

	var st SaleType
	require.NoError(t, json.Unmarshal([]byte(`"offer"`), &st))
	assert.Equal(t, Offer, st)
	assert.Error(t, json.Unmarshal([]byte(`"barter"`), &st))
}
