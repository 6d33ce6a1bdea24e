package sale

import (
	"fmt"

	"github.com/LeJamon/goMarble/internal/codec"
	"github.com/LeJamon/goMarble/internal/core/royalty"
	"github.com/LeJamon/goMarble/internal/types"
)

// Stored form of a record. Amounts are big-endian byte strings.
type recordWire struct {
	TokenID      uint64        `codec:"id"`
	Provider     string        `codec:"provider"`
	SaleType     uint8         `codec:"type"`
	DurationKind uint8         `codec:"dk"`
	End          uint64        `codec:"end"`
	MaxRequests  uint32        `codec:"max"`
	InitialPrice []byte        `codec:"initial"`
	RoyaltyAddr  string        `codec:"raddr"`
	RoyaltyRate  royalty.Rate  `codec:"rrate"`
	Requests     []requestWire `codec:"requests"`
	WinningIndex uint32        `codec:"winner"`
}

type requestWire struct {
	Address string `codec:"a"`
	Price   []byte `codec:"p"`
}

func encodeRecord(r *Record) ([]byte, error) {
	w := recordWire{
		TokenID:      r.TokenID,
		Provider:     r.Provider.String(),
		SaleType:     uint8(r.SaleType),
		DurationKind: uint8(r.Duration.Kind),
		End:          r.Duration.End,
		MaxRequests:  r.Duration.MaxRequests,
		InitialPrice: types.AmountToBytes(r.InitialPrice),
		RoyaltyAddr:  r.Royalty.Address.String(),
		RoyaltyRate:  r.Royalty.Rate,
		Requests:     make([]requestWire, 0, len(r.Requests)),
		WinningIndex: r.WinningIndex,
	}
	for _, req := range r.Requests {
		w.Requests = append(w.Requests, requestWire{
			Address: req.Address.String(),
			Price:   types.AmountToBytes(req.Price),
		})
	}
	return codec.Marshal(&w)
}

func decodeRecord(data []byte) (*Record, error) {
	var w recordWire
	if err := codec.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode sale record: %w", err)
	}
	initial, err := types.AmountFromBytes(w.InitialPrice)
	if err != nil {
		return nil, fmt.Errorf("decode sale %d initial price: %w", w.TokenID, err)
	}
	r := &Record{
		TokenID:  w.TokenID,
		Provider: types.Address(w.Provider),
		SaleType: SaleType(w.SaleType),
		Duration: Duration{
			Kind:        DurationKind(w.DurationKind),
			End:         w.End,
			MaxRequests: w.MaxRequests,
		},
		InitialPrice: initial,
		Royalty:      Royalty{Address: types.Address(w.RoyaltyAddr), Rate: w.RoyaltyRate},
		Requests:     make([]Request, 0, len(w.Requests)),
		WinningIndex: w.WinningIndex,
	}
	for i, req := range w.Requests {
		price, err := types.AmountFromBytes(req.Price)
		if err != nil {
			return nil, fmt.Errorf("decode sale %d request %d: %w", w.TokenID, i, err)
		}
		r.Requests = append(r.Requests, Request{Address: types.Address(req.Address), Price: price})
	}
	return r, nil
}
