package host

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/LeJamon/goMarble/internal/core/result"
	"github.com/LeJamon/goMarble/internal/core/state"
	"github.com/LeJamon/goMarble/internal/core/vm"
	"github.com/LeJamon/goMarble/internal/crypto"
	"github.com/LeJamon/goMarble/internal/types"
)

// TxKind selects what a transaction does.
type TxKind string

const (
	// TxExecute calls Contract with Msg and Funds.
	TxExecute TxKind = "execute"
	// TxInstantiate creates an instance of Code with Msg and Funds.
	TxInstantiate TxKind = "instantiate"
	// TxSendToken moves Amount of token Token to Contract and delivers
	// a receive hook carrying Msg.
	TxSendToken TxKind = "send_token"
	// TxSendNft moves TokenID of tracker Token to Contract and delivers a
	// receive_nft hook carrying Msg.
	TxSendNft TxKind = "send_nft"
	// TxTransfer pays Amount of Asset to Recipient.
	TxTransfer TxKind = "transfer"
)

// Tx is a transaction. Sequence must equal the sender's next sequence.
type Tx struct {
	Kind      TxKind          `json:"kind"`
	Sender    types.Address   `json:"sender"`
	Sequence  uint64          `json:"sequence"`
	Contract  types.Address   `json:"contract,omitempty"`
	Code      string          `json:"code,omitempty"`
	Label     string          `json:"label,omitempty"`
	Msg       json.RawMessage `json:"msg,omitempty"`
	Funds     []types.Coin    `json:"funds,omitempty"`
	Token     types.Address   `json:"token,omitempty"`
	TokenID   uint64          `json:"token_id,omitempty"`
	Asset     *types.Asset    `json:"asset,omitempty"`
	Amount    *uint256.Int    `json:"amount,omitempty"`
	Recipient types.Address   `json:"recipient,omitempty"`
}

// SigningBytes returns the canonical encoding that signatures cover.
func (tx *Tx) SigningBytes() ([]byte, error) {
	return json.Marshal(tx)
}

// Hash returns the upper-case hex sha256 of the signing bytes.
func (tx *Tx) Hash() (string, error) {
	b, err := tx.SigningBytes()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return strings.ToUpper(hex.EncodeToString(sum[:])), nil
}

// TxResult is a committed transaction.
type TxResult struct {
	Hash   string          `json:"hash"`
	Height uint64          `json:"height"`
	Time   uint64          `json:"time"`
	Tx     Tx              `json:"tx"`
	Events []vm.Event      `json:"events"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// EventsOf returns the events of type typ.
func (r *TxResult) EventsOf(typ string) []vm.Event {
	var out []vm.Event
	for _, e := range r.Events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// Envelope is a signed transaction.
type Envelope struct {
	Tx        Tx     `json:"tx"`
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
}

// Sign wraps tx in an envelope signed by key. The sender is set to the
// key's address.
func Sign(key *crypto.KeyPair, tx Tx) (*Envelope, error) {
	tx.Sender = key.Address()
	b, err := tx.SigningBytes()
	if err != nil {
		return nil, err
	}
	return &Envelope{Tx: tx, PublicKey: key.PublicKeyHex(), Signature: hex.EncodeToString(key.Sign(b))}, nil
}

// Verify checks that the envelope is signed by the sender's key.
func (e *Envelope) Verify() error {
	pub, err := hex.DecodeString(e.PublicKey)
	if err != nil {
		return result.Wrap(result.BadSignature, "public key: %v", err)
	}
	if crypto.AddressFromPublicKey(pub) != e.Tx.Sender {
		return result.Wrap(result.BadSignature, "key does not belong to %s", e.Tx.Sender)
	}
	sig, err := hex.DecodeString(e.Signature)
	if err != nil {
		return result.Wrap(result.BadSignature, "signature: %v", err)
	}
	b, err := e.Tx.SigningBytes()
	if err != nil {
		return err
	}
	if err := crypto.Verify(pub, b, sig); err != nil {
		return result.Wrap(result.BadSignature, "%v", err)
	}
	return nil
}

// Submit verifies and applies a signed transaction.
func (c *Chain) Submit(ctx context.Context, e *Envelope) (*TxResult, error) {
	if err := e.Verify(); err != nil {
		return nil, err
	}
	return c.Apply(ctx, e.Tx)
}

// Apply executes tx. On any error nothing is written.
func (c *Chain) Apply(ctx context.Context, tx Tx) (*TxResult, error) {
	return c.commit(ctx, tx, false)
}

// ApplyNext executes tx with the sender's next sequence.
func (c *Chain) ApplyNext(ctx context.Context, tx Tx) (*TxResult, error) {
	return c.commit(ctx, tx, true)
}

func (c *Chain) commit(ctx context.Context, tx Tx, fillSequence bool) (*TxResult, error) {
	c.mu.Lock()
	res, err := c.apply(ctx, tx, fillSequence)
	hooks := append([]*EventHooks(nil), c.hooks...)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	for _, h := range hooks {
		if h.OnTransaction != nil {
			h.OnTransaction(res)
		}
	}
	return res, nil
}

func (c *Chain) apply(ctx context.Context, tx Tx, fillSequence bool) (*TxResult, error) {
	if tx.Sender.IsEmpty() {
		return nil, result.Wrap(result.InvalidMessage, "sender is required")
	}
	table := state.NewApplyStateTable(c.store.WithContext(ctx))

	seq, err := sequenceOf(table, tx.Sender)
	if err != nil {
		return nil, err
	}
	if fillSequence {
		tx.Sequence = seq
	}
	if tx.Sequence != seq {
		return nil, result.Wrap(result.BadSequence, "%s: expected sequence %d, got %d", tx.Sender, seq, tx.Sequence)
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}

	height, err := readMeta(table, metaHeight)
	if err != nil {
		return nil, err
	}
	block := vm.Block{Height: height + 1, Time: uint64(c.clock.Now().Unix())}

	x := &txn{chain: c, ctx: ctx, view: table, block: block}
	data, err := x.dispatch(tx)
	if err != nil {
		table.Discard()
		c.logger.Debug("transaction failed",
			zap.String("hash", hash),
			zap.String("kind", string(tx.Kind)),
			zap.String("sender", tx.Sender.String()),
			zap.Error(err))
		return nil, err
	}

	if err := setSequence(table, tx.Sender, seq+1); err != nil {
		return nil, err
	}
	if err := writeMeta(table, metaHeight, block.Height); err != nil {
		return nil, err
	}
	if err := writeMeta(table, metaTime, block.Time); err != nil {
		return nil, err
	}
	changes, err := table.Apply()
	if err != nil {
		return nil, fmt.Errorf("commit transaction %s: %w", hash, err)
	}

	c.logger.Debug("transaction committed",
		zap.String("hash", hash),
		zap.Uint64("height", block.Height),
		zap.String("kind", string(tx.Kind)),
		zap.Int("changes", len(changes)),
		zap.Int("events", len(x.events)))

	return &TxResult{
		Hash:   hash,
		Height: block.Height,
		Time:   block.Time,
		Tx:     tx,
		Events: x.events,
		Data:   data,
	}, nil
}

// Sequence returns the next sequence of addr.
func (c *Chain) Sequence(ctx context.Context, addr types.Address) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sequenceOf(c.store.WithContext(ctx), addr)
}

func sequenceOf(v state.View, addr types.Address) (uint64, error) {
	data, err := v.Read(state.Account(addr))
	if err != nil || data == nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("account %s: corrupt sequence", addr)
	}
	return binary.BigEndian.Uint64(data), nil
}

func setSequence(v state.View, addr types.Address, seq uint64) error {
	return state.Put(v, state.Account(addr), binary.BigEndian.AppendUint64(nil, seq))
}

// Execute calls a contract.
func (c *Chain) Execute(ctx context.Context, sender, contract types.Address, msg json.RawMessage, funds ...types.Coin) (*TxResult, error) {
	return c.ApplyNext(ctx, Tx{Kind: TxExecute, Sender: sender, Contract: contract, Msg: msg, Funds: funds})
}

// Instantiate creates a contract instance and returns its address.
func (c *Chain) Instantiate(ctx context.Context, sender types.Address, code, label string, msg json.RawMessage, funds ...types.Coin) (types.Address, *TxResult, error) {
	res, err := c.ApplyNext(ctx, Tx{Kind: TxInstantiate, Sender: sender, Code: code, Label: label, Msg: msg, Funds: funds})
	if err != nil {
		return "", nil, err
	}
	var out struct {
		ContractAddress types.Address `json:"contract_address"`
	}
	if err := json.Unmarshal(res.Data, &out); err != nil {
		return "", nil, fmt.Errorf("decode instantiate data: %w", err)
	}
	return out.ContractAddress, res, nil
}

// SendToken moves tokens to a contract and runs its receive hook.
func (c *Chain) SendToken(ctx context.Context, sender, token, contract types.Address, amount *uint256.Int, msg json.RawMessage) (*TxResult, error) {
	return c.ApplyNext(ctx, Tx{Kind: TxSendToken, Sender: sender, Token: token, Contract: contract, Amount: amount, Msg: msg})
}

// SendNft moves an NFT to a contract and runs its receive_nft hook.
func (c *Chain) SendNft(ctx context.Context, sender, tracker, contract types.Address, tokenID uint64, msg json.RawMessage) (*TxResult, error) {
	return c.ApplyNext(ctx, Tx{Kind: TxSendNft, Sender: sender, Token: tracker, Contract: contract, TokenID: tokenID, Msg: msg})
}

// Transfer pays an asset to an account.
func (c *Chain) Transfer(ctx context.Context, sender, recipient types.Address, asset types.Asset, amount *uint256.Int) (*TxResult, error) {
	return c.ApplyNext(ctx, Tx{Kind: TxTransfer, Sender: sender, Recipient: recipient, Asset: &asset, Amount: amount})
}
