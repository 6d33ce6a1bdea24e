// Package settlement exchanges the winning payment of a sale for the NFT.
package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/LeJamon/goMarble/internal/core/instruction"
	"github.com/LeJamon/goMarble/internal/core/result"
	"github.com/LeJamon/goMarble/internal/core/royalty"
	"github.com/LeJamon/goMarble/internal/core/sale"
	"github.com/LeJamon/goMarble/internal/core/swap"
	"github.com/LeJamon/goMarble/internal/types"
)

// Payment is what the payer sent to settle a sale.
type Payment struct {
	Payer  types.Address
	Asset  types.Asset
	Amount *uint256.Int
}

// Config holds the contract-wide settlement parameters.
type Config struct {
	// TokenContract tracks the NFTs held in custody.
	TokenContract types.Address
	FeeCollector  types.Address
	ProtocolRate  royalty.Rate
	// CollectionRecipient receives the collection-wide royalty.
	CollectionRecipient types.Address
	CollectionRate      royalty.Rate
}

// Validate checks that every non-zero leg has somewhere to go.
func (c Config) Validate() error {
	if c.TokenContract.IsEmpty() {
		return result.Wrap(result.Uninitialized, "no token contract linked")
	}
	if !c.ProtocolRate.IsZero() && c.FeeCollector.IsEmpty() {
		return fmt.Errorf("protocol rate %s needs a fee collector", c.ProtocolRate)
	}
	if !c.CollectionRate.IsZero() && c.CollectionRecipient.IsEmpty() {
		return fmt.Errorf("collection rate %s needs a recipient", c.CollectionRate)
	}
	return nil
}

// Outcome describes a completed settlement.
type Outcome struct {
	Record       *sale.Record
	Winner       sale.Request
	Paid         Payment
	Route        *swap.Route
	Converted    *uint256.Int
	Shares       royalty.Shares
	Instructions instruction.List
}

// Engine settles sales recorded in a ledger.
type Engine struct {
	ledger *sale.Ledger
	router *swap.Router
	cfg    Config
	logger *zap.Logger
}

// NewEngine creates a settlement engine.
func NewEngine(ledger *sale.Ledger, router *swap.Router, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		ledger: ledger,
		router: router,
		cfg:    cfg,
		logger: logger.Named("settlement"),
	}
}

// Settle validates p against the winning request of tokenID, converts it
// into the settlement asset, splits the proceeds and deletes the record.
// The returned instructions run in order: swaps, the NFT transfer to the
// payer, then one payout per non-zero leg.
func (e *Engine) Settle(ctx context.Context, tokenID uint64, p Payment, now uint64) (*Outcome, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	record, err := e.ledger.Get(tokenID)
	if errors.Is(err, result.NotOnSale) {
		return nil, result.Wrap(result.InvalidBuyParam, "token %d is not on sale", tokenID)
	}
	if err != nil {
		return nil, err
	}
	winner, ok := record.Winner()
	if !ok {
		return nil, result.Wrap(result.InvalidBuyParam, "token %d has no requests", tokenID)
	}
	if !record.Duration.Settleable(now, len(record.Requests)) {
		return nil, result.Wrap(result.NotExpired, "token %d settles at %s", tokenID, record.Duration)
	}

	paid := types.AmountOrZero(p.Amount)
	if winner.Address != p.Payer || paid.Lt(winner.Price) {
		return nil, result.Wrap(result.InvalidUserOrPrice, "winner is %s at %s, got %s from %s",
			winner.Address, winner.Price.Dec(), paid.Dec(), p.Payer)
	}

	// The whole payment is converted, overpayment included
	route, err := e.router.Route(ctx, p.Asset, paid)
	if err != nil {
		return nil, err
	}

	shares, err := royalty.Split(route.Output, e.cfg.ProtocolRate, record.Royalty.Rate, e.cfg.CollectionRate)
	if err != nil {
		return nil, fmt.Errorf("split settlement of token %d: %w", tokenID, err)
	}

	settlement := e.router.Topology().Settlement
	ins := route.Instructions()
	ins = append(ins, instruction.TransferNft{
		Contract:  e.cfg.TokenContract,
		TokenID:   tokenID,
		Recipient: p.Payer,
	})
	legs := []struct {
		to     types.Address
		amount *uint256.Int
	}{
		{e.cfg.FeeCollector, shares.Protocol},
		{record.RoyaltyRecipient(), shares.Seller},
		{e.cfg.CollectionRecipient, shares.Collection},
		{record.Provider, shares.Remainder},
	}
	for _, leg := range legs {
		if leg.amount.IsZero() {
			continue
		}
		ins = append(ins, instruction.TransferAsset{
			Asset:     settlement,
			Recipient: leg.to,
			Amount:    leg.amount,
		})
	}

	if err := e.ledger.Delete(tokenID); err != nil {
		return nil, err
	}

	e.logger.Info("settled sale",
		zap.Uint64("token_id", tokenID),
		zap.String("buyer", p.Payer.String()),
		zap.String("provider", record.Provider.String()),
		zap.String("paid", paid.Dec()+" "+p.Asset.String()),
		zap.String("converted", route.Output.Dec()),
		zap.Int("hops", len(route.Hops)))

	return &Outcome{
		Record:       record,
		Winner:       winner,
		Paid:         Payment{Payer: p.Payer, Asset: p.Asset, Amount: paid},
		Route:        route,
		Converted:    route.Output,
		Shares:       shares,
		Instructions: ins,
	}, nil
}
