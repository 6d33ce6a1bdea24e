package collection

import (
	"context"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/LeJamon/goMarble/internal/core/instruction"
	"github.com/LeJamon/goMarble/internal/core/result"
	"github.com/LeJamon/goMarble/internal/core/royalty"
	"github.com/LeJamon/goMarble/internal/core/sale"
	"github.com/LeJamon/goMarble/internal/core/settlement"
	"github.com/LeJamon/goMarble/internal/core/vm"
	"github.com/LeJamon/goMarble/internal/types"
)

func (c *call) ctx() context.Context {
	if c.deps.Ctx == nil {
		return context.Background()
	}
	return c.deps.Ctx
}

func (c *call) requireLinked() error {
	if c.cfg.TokenContract.IsEmpty() {
		return result.Wrap(result.Uninitialized, "no token contract linked")
	}
	return nil
}

func (c *call) checkSellerRoyalty(r sale.Royalty) error {
	if _, err := royalty.Split(nil, c.cfg.ProtocolFee.Rate, r.Rate, c.cfg.CollectionRoyalty.Rate); err != nil {
		return result.Wrap(result.InvalidMessage, "royalty: %v", err)
	}
	return nil
}

func (c *call) list(m StartSale, provider types.Address, custodian bool) (*sale.Record, error) {
	if err := c.checkSellerRoyalty(m.Royalty); err != nil {
		return nil, err
	}
	return c.ledger.Start(sale.StartParams{
		TokenID:      m.TokenID,
		Provider:     provider,
		SaleType:     m.SaleType,
		Duration:     m.Duration,
		InitialPrice: m.InitialPrice,
		Royalty:      m.Royalty,
	}, custodian, c.env.Block.Time)
}

func startSaleEvent(r *sale.Record) vm.Event {
	return vm.NewEvent("start_sale").
		Add("token_id", r.TokenID).
		Add("provider", r.Provider).
		Add("sale_type", r.SaleType).
		Add("duration_type", r.Duration).
		Add("initial_price", r.InitialPrice.Dec())
}

// startSale lists a token held by the sender and pulls it into custody.
func (c *call) startSale(m StartSale) (*vm.Response, error) {
	if err := vm.NoFunds(c.info); err != nil {
		return nil, err
	}
	if err := c.requireLinked(); err != nil {
		return nil, err
	}
	owner, err := c.deps.Querier.OwnerOf(c.ctx(), c.cfg.TokenContract, m.TokenID)
	if err != nil {
		return nil, err
	}
	r, err := c.list(m, c.info.Sender, owner == c.info.Sender)
	if err != nil {
		return nil, err
	}
	return vm.NewResponse().
		AddInstruction(instruction.TransferNft{
			Contract:  c.cfg.TokenContract,
			TokenID:   m.TokenID,
			Recipient: c.env.Contract,
		}).
		AddAttribute("action", "start_sale").
		AddAttribute("token_id", m.TokenID).
		AddEvent(startSaleEvent(r)), nil
}

// receiveNft lists a token the tracker already moved into custody.
func (c *call) receiveNft(m ReceiveNft) (*vm.Response, error) {
	if err := c.requireLinked(); err != nil {
		return nil, err
	}
	if c.info.Sender != c.cfg.TokenContract {
		return nil, result.Wrap(result.Unauthorized, "%s is not the token contract", c.info.Sender)
	}
	name, body, err := vm.SplitVariant(m.Msg)
	if err != nil {
		return nil, err
	}
	if name != "start_sale" {
		return nil, result.Wrap(result.InvalidMessage, "unknown receive_nft message %q", name)
	}
	var start StartSale
	if err := vm.DecodeBody(name, body, &start); err != nil {
		return nil, err
	}
	start.TokenID = m.TokenID

	r, err := c.list(start, m.Sender, true)
	if err != nil {
		return nil, err
	}
	return vm.NewResponse().
		AddAttribute("action", "start_sale").
		AddAttribute("token_id", m.TokenID).
		AddEvent(startSaleEvent(r)), nil
}

func (c *call) submit(tokenID uint64, bidder types.Address, price *uint256.Int) (*vm.Response, error) {
	r, err := c.ledger.Submit(tokenID, bidder, price, c.env.Block.Time)
	if err != nil {
		return nil, err
	}
	w, _ := r.Winner()
	c.logger.Debug("accepted request",
		zap.Uint64("token_id", tokenID),
		zap.String("bidder", bidder.String()),
		zap.Uint32("winning_index", r.WinningIndex))
	return vm.NewResponse().
		AddAttribute("action", "propose").
		AddAttribute("token_id", tokenID).
		AddEvent(vm.NewEvent("propose").
			Add("token_id", tokenID).
			Add("bidder", bidder).
			Add("price", types.AmountOrZero(price).Dec()).
			Add("requests", len(r.Requests)).
			Add("winner", w.Address)), nil
}

// propose records a bid or offer. Nothing is escrowed.
func (c *call) propose(m Propose) (*vm.Response, error) {
	if err := vm.NoFunds(c.info); err != nil {
		return nil, err
	}
	return c.submit(m.TokenID, c.info.Sender, m.Price)
}

// buy settles with the native coin attached to the call.
func (c *call) buy(m Buy) (*vm.Response, error) {
	coin, err := vm.OneCoin(c.info)
	if err != nil {
		return nil, err
	}
	return c.settle(m.TokenID, settlement.Payment{
		Payer:  c.info.Sender,
		Asset:  types.NativeAsset(coin.Denom),
		Amount: coin.Amount,
	})
}

// receive handles tokens sent by a token contract on behalf of m.Sender.
func (c *call) receive(m Receive) (*vm.Response, error) {
	hook, err := decodeHookMsg(m.Msg)
	if err != nil {
		return nil, err
	}
	token := types.TokenAsset(c.info.Sender)

	switch h := hook.(type) {
	case Buy:
		return c.settle(h.TokenID, settlement.Payment{
			Payer:  m.Sender,
			Asset:  token,
			Amount: m.Amount,
		})
	case Propose:
		// The sent amount backs the bid and goes straight back to the bidder
		if token != c.cfg.SettlementAsset {
			return nil, result.Wrap(result.InvalidCw20Token, "bids are placed in %s", c.cfg.SettlementAsset)
		}
		resp, err := c.submit(h.TokenID, m.Sender, m.Amount)
		if err != nil {
			return nil, err
		}
		return resp.AddInstruction(instruction.TransferAsset{
			Asset:     token,
			Recipient: m.Sender,
			Amount:    types.AmountOrZero(m.Amount),
		}), nil
	}
	return nil, result.Wrap(result.InvalidMessage, "unhandled receive message %T", hook)
}

func (c *call) settle(tokenID uint64, p settlement.Payment) (*vm.Response, error) {
	out, err := c.engine().Settle(c.ctx(), tokenID, p, c.env.Block.Time)
	if err != nil {
		return nil, err
	}
	return vm.NewResponse().
		AddInstruction(out.Instructions...).
		AddAttribute("action", "settle").
		AddAttribute("token_id", tokenID).
		AddEvent(vm.NewEvent("settle").
			Add("token_id", tokenID).
			Add("buyer", p.Payer).
			Add("provider", out.Record.Provider).
			Add("sale_type", out.Record.SaleType).
			Add("price", out.Winner.Price.Dec()).
			Add("paid_asset", out.Paid.Asset).
			Add("paid_amount", out.Paid.Amount.Dec()).
			Add("settlement_asset", c.cfg.SettlementAsset).
			Add("converted", out.Converted.Dec()).
			Add("protocol", out.Shares.Protocol.Dec()).
			Add("seller", out.Shares.Seller.Dec()).
			Add("collection", out.Shares.Collection.Dec()).
			Add("remainder", out.Shares.Remainder.Dec())), nil
}

// updatePrice changes the initial price of the sender's listings.
func (c *call) updatePrice(m UpdatePrice) (*vm.Response, error) {
	if len(m.TokenIDs) != len(m.Prices) {
		return nil, result.Wrap(result.WrongLength, "%d token ids for %d prices", len(m.TokenIDs), len(m.Prices))
	}
	resp := vm.NewResponse().AddAttribute("action", "update_price")
	for i, id := range m.TokenIDs {
		r, err := c.ledger.UpdatePrice(id, c.info.Sender, m.Prices[i])
		if err != nil {
			return nil, err
		}
		resp.AddEvent(vm.NewEvent("update_price").
			Add("token_id", id).
			Add("initial_price", r.InitialPrice.Dec()))
	}
	return resp, nil
}

// removeSale withdraws a listing and returns the token to its provider.
func (c *call) removeSale(m RemoveSale) (*vm.Response, error) {
	if err := c.requireLinked(); err != nil {
		return nil, err
	}
	r, err := c.ledger.Remove(m.TokenID, c.info.Sender)
	if err != nil {
		return nil, err
	}
	return vm.NewResponse().
		AddInstruction(instruction.TransferNft{
			Contract:  c.cfg.TokenContract,
			TokenID:   m.TokenID,
			Recipient: r.Provider,
		}).
		AddAttribute("action", "remove_sale").
		AddAttribute("token_id", m.TokenID).
		AddEvent(vm.NewEvent("remove_sale").Add("token_id", m.TokenID).Add("provider", r.Provider)), nil
}

// SalesPage is the get_sales answer.
type SalesPage struct {
	Sales []*sale.Record `json:"sales"`
}

func (c *call) getSales(m GetSales) (*SalesPage, error) {
	records, err := c.ledger.List(m.StartAfter, m.Limit)
	if err != nil {
		return nil, err
	}
	return &SalesPage{Sales: records}, nil
}

// BaseAmount is the get_base_amount answer.
type BaseAmount struct {
	Amount *uint256.Int `json:"amount"`
	Hops   int          `json:"hops"`
}

func (c *call) getBaseAmount(m GetBaseAmount) (*BaseAmount, error) {
	route, err := c.router().Route(c.ctx(), m.Asset, m.Amount)
	if err != nil {
		return nil, err
	}
	return &BaseAmount{Amount: route.Output, Hops: len(route.Hops)}, nil
}
