package host

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/LeJamon/goMarble/internal/core/instruction"
	"github.com/LeJamon/goMarble/internal/core/result"
	"github.com/LeJamon/goMarble/internal/core/state"
	"github.com/LeJamon/goMarble/internal/core/vm"
	"github.com/LeJamon/goMarble/internal/types"
)

// TokenInfo describes a fungible token.
type TokenInfo struct {
	Name        string       `json:"name"`
	Symbol      string       `json:"symbol"`
	Decimals    uint8        `json:"decimals"`
	TotalSupply *uint256.Int `json:"total_supply"`
}

type tokenWire struct {
	Name     string `codec:"name"`
	Symbol   string `codec:"symbol"`
	Decimals uint8  `codec:"decimals"`
	Supply   []byte `codec:"supply"`
}

// Holding is an initial token or coin balance.
type Holding struct {
	Address types.Address `json:"address"`
	Amount  *uint256.Int  `json:"amount"`
}

// TokenInstantiateMsg creates a fungible token.
type TokenInstantiateMsg struct {
	Name            string    `json:"name"`
	Symbol          string    `json:"symbol"`
	Decimals        uint8     `json:"decimals"`
	InitialBalances []Holding `json:"initial_balances"`
}

func loadToken(v state.View, token types.Address) (*TokenInfo, error) {
	var w tokenWire
	found, err := state.Load(v, state.TokenInfo(token), &w)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, result.Wrap(result.UnknownContract, "no token at %s", token)
	}
	supply, err := types.AmountFromBytes(w.Supply)
	if err != nil {
		return nil, err
	}
	return &TokenInfo{Name: w.Name, Symbol: w.Symbol, Decimals: w.Decimals, TotalSupply: supply}, nil
}

func createToken(v state.View, token types.Address, msg TokenInstantiateMsg) error {
	if msg.Name == "" || msg.Symbol == "" {
		return result.Wrap(result.InvalidMessage, "token needs a name and a symbol")
	}
	supply := new(uint256.Int)
	if err := state.Save(v, state.TokenInfo(token), &tokenWire{Name: msg.Name, Symbol: msg.Symbol, Decimals: msg.Decimals}); err != nil {
		return err
	}
	for _, h := range msg.InitialBalances {
		amount := types.AmountOrZero(h.Amount)
		if err := credit(v, h.Address, types.TokenAsset(token), amount); err != nil {
			return err
		}
		supply.Add(supply, amount)
	}
	if err := types.CheckAmount(supply); err != nil {
		return result.Wrap(result.InvalidMessage, "total supply: %v", err)
	}
	return state.Save(v, state.TokenInfo(token), &tokenWire{
		Name:     msg.Name,
		Symbol:   msg.Symbol,
		Decimals: msg.Decimals,
		Supply:   types.AmountToBytes(supply),
	})
}

// NftContractInfo describes an NFT tracker. Only the minter may mint, and
// the minter may move any token it tracks.
type NftContractInfo struct {
	Name   string        `json:"name" codec:"name"`
	Symbol string        `json:"symbol" codec:"symbol"`
	Minter types.Address `json:"minter" codec:"minter"`
	Count  uint64        `json:"count" codec:"count"`
}

// NftInfo is one tracked token.
type NftInfo struct {
	Owner     types.Address   `json:"owner" codec:"owner"`
	URI       string          `json:"token_uri" codec:"uri"`
	Extension json.RawMessage `json:"extension,omitempty" codec:"ext"`
}

// NftInstantiateMsg creates an NFT tracker.
type NftInstantiateMsg struct {
	Name   string        `json:"name"`
	Symbol string        `json:"symbol"`
	Minter types.Address `json:"minter"`
}

func loadTracker(v state.View, tracker types.Address) (*NftContractInfo, error) {
	var info NftContractInfo
	found, err := state.Load(v, state.NftInfo(tracker), &info)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, result.Wrap(result.UnknownContract, "no nft tracker at %s", tracker)
	}
	return &info, nil
}

func loadNft(v state.View, tracker types.Address, tokenID uint64) (*NftInfo, error) {
	var n NftInfo
	found, err := state.Load(v, state.Nft(tracker, tokenID), &n)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, result.Wrap(result.NotFound, "token %d of %s", tokenID, tracker)
	}
	return &n, nil
}

func createTracker(v state.View, tracker types.Address, msg NftInstantiateMsg) error {
	if msg.Name == "" || msg.Minter.IsEmpty() {
		return result.Wrap(result.InvalidMessage, "nft tracker needs a name and a minter")
	}
	return state.Save(v, state.NftInfo(tracker), &NftContractInfo{Name: msg.Name, Symbol: msg.Symbol, Minter: msg.Minter})
}

func mintNft(v state.View, sender types.Address, m instruction.Mint) error {
	info, err := loadTracker(v, m.Contract)
	if err != nil {
		return err
	}
	if info.Minter != sender {
		return result.Wrap(result.Unauthorized, "%s is not the minter of %s", sender, m.Contract)
	}
	k := state.Nft(m.Contract, m.TokenID)
	exists, err := v.Exists(k)
	if err != nil {
		return err
	}
	if exists {
		return result.Wrap(result.InvalidMessage, "token %d already minted", m.TokenID)
	}
	if err := state.Save(v, k, &NftInfo{Owner: m.Owner, URI: m.URI, Extension: m.Extension}); err != nil {
		return err
	}
	info.Count++
	return state.Save(v, state.NftInfo(m.Contract), info)
}

// transferNft moves a token on behalf of sender, who must own it or be the
// tracker's minter.
func transferNft(v state.View, sender, tracker types.Address, tokenID uint64, recipient types.Address) error {
	info, err := loadTracker(v, tracker)
	if err != nil {
		return err
	}
	n, err := loadNft(v, tracker, tokenID)
	if err != nil {
		return err
	}
	if n.Owner != sender && info.Minter != sender {
		return result.Wrap(result.Unauthorized, "%s may not move token %d of %s", sender, tokenID, tracker)
	}
	n.Owner = recipient
	return state.Save(v, state.Nft(tracker, tokenID), n)
}

// queryBuiltin answers queries addressed to host-served instances.
func queryBuiltin(v state.View, inst *Instance, msg json.RawMessage) (json.RawMessage, error) {
	name, body, err := vm.SplitVariant(msg)
	if err != nil {
		return nil, err
	}
	var out interface{}
	switch inst.Code + "/" + name {
	case NftCode + "/owner_of", NftCode + "/nft_info":
		var q struct {
			TokenID uint64 `json:"token_id"`
		}
		if err := vm.DecodeBody(name, body, &q); err != nil {
			return nil, err
		}
		n, err := loadNft(v, inst.Address, q.TokenID)
		if err != nil {
			return nil, err
		}
		if name == "owner_of" {
			out = map[string]types.Address{"owner": n.Owner}
		} else {
			out = n
		}
	case NftCode + "/contract_info":
		info, err := loadTracker(v, inst.Address)
		if err != nil {
			return nil, err
		}
		out = info
	case TokenCode + "/balance":
		var q struct {
			Address types.Address `json:"address"`
		}
		if err := vm.DecodeBody(name, body, &q); err != nil {
			return nil, err
		}
		bal, err := readAmount(v, state.TokenBalance(inst.Address, q.Address))
		if err != nil {
			return nil, err
		}
		out = map[string]*uint256.Int{"balance": bal}
	case TokenCode + "/token_info":
		info, err := loadToken(v, inst.Address)
		if err != nil {
			return nil, err
		}
		out = info
	default:
		return nil, result.Wrap(result.InvalidMessage, "unknown %s query %q", inst.Code, name)
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return data, nil
}
