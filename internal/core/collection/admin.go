package collection

import (
	"encoding/json"

	"github.com/LeJamon/goMarble/internal/core/instruction"
	"github.com/LeJamon/goMarble/internal/core/result"
	"github.com/LeJamon/goMarble/internal/core/vm"
	"github.com/LeJamon/goMarble/internal/types"
)

func (c *call) requireOwner() error {
	if c.info.Sender != c.cfg.Owner {
		return result.Wrap(result.Unauthorized, "%s is not the owner", c.info.Sender)
	}
	return nil
}

// reserve hands out n fresh token ids.
func (c *call) reserve(n int) (uint64, error) {
	first := c.cfg.UnusedTokenID
	if c.cfg.MaxTokens > 0 && first+uint64(n)-1 > c.cfg.MaxTokens {
		return 0, result.Wrap(result.SoldOut, "%d of %d tokens minted", first-1, c.cfg.MaxTokens)
	}
	c.cfg.UnusedTokenID += uint64(n)
	return first, nil
}

func (c *call) mintInstruction(id uint64, owner types.Address, uri string, ext json.RawMessage) instruction.Mint {
	if owner.IsEmpty() {
		owner = c.info.Sender
	}
	return instruction.Mint{
		Contract:  c.cfg.TokenContract,
		TokenID:   id,
		Owner:     owner,
		URI:       uri,
		Extension: ext,
	}
}

func (c *call) mint(m Mint) (*vm.Response, error) {
	if err := c.requireOwner(); err != nil {
		return nil, err
	}
	if err := c.requireLinked(); err != nil {
		return nil, err
	}
	id, err := c.reserve(1)
	if err != nil {
		return nil, err
	}
	if err := saveConfig(c.deps.View, c.cfg); err != nil {
		return nil, err
	}
	ins := c.mintInstruction(id, m.Owner, m.URI, m.Extension)
	return vm.NewResponse().
		AddInstruction(ins).
		AddAttribute("action", "mint").
		AddAttribute("token_id", id).
		AddAttribute("owner", ins.Owner), nil
}

func (c *call) batchMint(m BatchMint) (*vm.Response, error) {
	if err := c.requireOwner(); err != nil {
		return nil, err
	}
	if err := c.requireLinked(); err != nil {
		return nil, err
	}
	if len(m.URIs) != len(m.Extensions) {
		return nil, result.Wrap(result.CountNotMatch, "%d uris for %d extensions", len(m.URIs), len(m.Extensions))
	}
	if len(m.URIs) == 0 {
		return nil, result.Wrap(result.InvalidMessage, "batch_mint needs at least one token")
	}
	first, err := c.reserve(len(m.URIs))
	if err != nil {
		return nil, err
	}
	if err := saveConfig(c.deps.View, c.cfg); err != nil {
		return nil, err
	}

	resp := vm.NewResponse().
		AddAttribute("action", "batch_mint").
		AddAttribute("first_token_id", first).
		AddAttribute("count", len(m.URIs))
	for i, uri := range m.URIs {
		resp.AddInstruction(c.mintInstruction(first+uint64(i), m.Owner, uri, m.Extensions[i]))
	}
	return resp, nil
}

func (c *call) changeLinkedContract(m ChangeLinkedContract) (*vm.Response, error) {
	if err := c.requireOwner(); err != nil {
		return nil, err
	}
	if m.Address.IsEmpty() {
		return nil, result.Wrap(result.InvalidMessage, "address is required")
	}
	// Listed tokens are escrowed on the current tracker.
	listed, err := c.ledger.List(nil, 1)
	if err != nil {
		return nil, err
	}
	if len(listed) > 0 {
		return nil, result.Wrap(result.AlreadyOnSale, "token %d is listed on %s", listed[0].TokenID, c.cfg.TokenContract)
	}
	c.cfg.TokenContract = m.Address
	if err := saveConfig(c.deps.View, c.cfg); err != nil {
		return nil, err
	}
	return vm.NewResponse().
		AddAttribute("action", "change_linked_contract").
		AddAttribute("token_contract", m.Address), nil
}

func (c *call) updateOwner(m UpdateOwner) (*vm.Response, error) {
	if err := c.requireOwner(); err != nil {
		return nil, err
	}
	if m.Owner.IsEmpty() {
		return nil, result.Wrap(result.InvalidMessage, "owner is required")
	}
	c.cfg.Owner = m.Owner
	if err := saveConfig(c.deps.View, c.cfg); err != nil {
		return nil, err
	}
	return vm.NewResponse().
		AddAttribute("action", "update_owner").
		AddAttribute("owner", m.Owner), nil
}

// updateEnabled is reachable while disabled so the owner can switch the
// contract back on.
func (c *call) updateEnabled(m UpdateEnabled) (*vm.Response, error) {
	if err := c.requireOwner(); err != nil {
		return nil, err
	}
	c.cfg.Enabled = m.Enabled
	if err := saveConfig(c.deps.View, c.cfg); err != nil {
		return nil, err
	}
	return vm.NewResponse().
		AddAttribute("action", "update_enabled").
		AddAttribute("enabled", m.Enabled), nil
}
