package royalty

import (
	"math/rand"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goMarble/internal/types"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name                                    string
		total                                   uint64
		protocol, seller, collection            Rate
		wantProtocol, wantSeller, wantColl, rem uint64
	}{
		{
			name:         "millionths",
			total:        1_000_000,
			protocol:     Millionths(25_000),
			seller:       Millionths(50_000),
			collection:   Millionths(10_000),
			wantProtocol: 25_000, wantSeller: 50_000, wantColl: 10_000, rem: 915_000,
		},
		{
			name:         "percent with rounding",
			total:        99,
			protocol:     Percent(3),
			seller:       Percent(5),
			collection:   Percent(1),
			wantProtocol: 2, wantSeller: 4, wantColl: 0, rem: 93,
		},
		{
			name:  "zero total",
			total: 0, protocol: Percent(10), seller: Percent(10), collection: Percent(10),
		},
		{
			name:         "zero rates mix with any scale",
			total:        200,
			protocol:     Rate{},
			seller:       Percent(50),
			collection:   Rate{},
			wantSeller:   100,
			rem:          100,
			wantProtocol: 0,
		},
		{
			name:       "full rate",
			total:      7,
			collection: Percent(100),
			wantColl:   7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Split(uint256.NewInt(tt.total), tt.protocol, tt.seller, tt.collection)
			require.NoError(t, err)
			assert.Equal(t, tt.wantProtocol, s.Protocol.Uint64())
			assert.Equal(t, tt.wantSeller, s.Seller.Uint64())
			assert.Equal(t, tt.wantColl, s.Collection.Uint64())
			assert.Equal(t, tt.rem, s.Remainder.Uint64())
			assert.Equal(t, tt.total, s.Sum().Uint64())
		})
	}
}

func TestSplitErrors(t *testing.T) {
	_, err := Split(uint256.NewInt(10), Percent(1), Millionths(1), Rate{})
	assert.ErrorIs(t, err, ErrScaleMismatch)

	_, err = Split(uint256.NewInt(10), Percent(60), Percent(50), Rate{})
	assert.ErrorIs(t, err, ErrRateOverflow)

	_, err = Split(uint256.NewInt(10), Rate{Value: 1, Scale: 1000}, Rate{}, Rate{})
	assert.ErrorIs(t, err, ErrInvalidScale)

	_, err = ParseScale(1000)
	assert.ErrorIs(t, err, ErrInvalidScale)
	s, err := ParseScale(100)
	require.NoError(t, err)
	assert.Equal(t, ScalePercent, s)
}

func TestSplitSumsToTotal(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		scale := ScaleMillionths
		if i%2 == 0 {
			scale = ScalePercent
		}
		a := r.Uint64() % (uint64(scale) / 3)
		b := r.Uint64() % (uint64(scale) / 3)
		c := r.Uint64() % (uint64(scale) / 3)

		total := new(uint256.Int).SetUint64(r.Uint64())
		if i%3 == 0 {
			// Exercise the top of the 128-bit amount range
			total.Sub(types.MaxAmount, total)
		}

		s, err := Split(total, NewRate(a, scale), NewRate(b, scale), NewRate(c, scale))
		require.NoError(t, err)
		require.True(t, s.Sum().Eq(total), "split of %s does not sum", total.Dec())
	}
}
