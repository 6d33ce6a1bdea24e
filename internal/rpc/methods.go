package rpc

import (
	"encoding/json"
	"time"

	"github.com/LeJamon/goMarble/internal/host"
	"github.com/LeJamon/goMarble/internal/types"
)

// registerAllMethods registers every RPC method against svc.
func registerAllMethods(registry *MethodRegistry, svc *Services) {
	// Server Information Methods
	registry.Register("server_info", &ServerInfoMethod{svc})
	registry.Register("ping", &PingMethod{})

	// Chain Methods
	registry.Register("submit", &SubmitMethod{svc})
	registry.Register("contract_query", &ContractQueryMethod{svc})
	registry.Register("balance", &BalanceMethod{svc})
	registry.Register("account_info", &AccountInfoMethod{svc})

	// Archive Methods
	registry.Register("sale_history", &SaleHistoryMethod{svc})
	registry.Register("recent_sales", &RecentSalesMethod{svc})
	registry.Register("tx_events", &TxEventsMethod{svc})

	// Admin Methods (require admin role)
	registry.Register("index_stats", &IndexStatsMethod{svc})
}

// parseParams decodes params into v. Missing params decode as an empty
// object.
func parseParams(params json.RawMessage, v interface{}) *RpcError {
	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(params, v); err != nil {
		return RpcErrorInvalidParams("Invalid parameters: " + err.Error())
	}
	return nil
}

// ServerInfoMethod handles the server_info RPC method
type ServerInfoMethod struct{ svc *Services }

func (m *ServerInfoMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	block, err := m.svc.Chain.LastBlock(ctx.Context)
	if err != nil {
		return nil, RpcErrorFromResult(err)
	}
	info := map[string]interface{}{
		"build_version": m.svc.Version,
		"uptime":        int64(time.Since(m.svc.StartTime).Seconds()),
		"height":        block.Height,
		"block_time":    block.Time,
		"index_enabled": m.svc.Archive != nil,
	}
	if m.svc.Subscriptions != nil {
		info["connections"] = m.svc.Subscriptions.ConnectionCount()
		info["subscribers"] = map[string]int{
			string(SubEvents):      m.svc.Subscriptions.GetSubscriberCount(SubEvents),
			string(SubSettlements): m.svc.Subscriptions.GetSubscriberCount(SubSettlements),
			string(SubBlocks):      m.svc.Subscriptions.GetSubscriberCount(SubBlocks),
		}
	}
	return map[string]interface{}{"info": info}, nil
}

func (m *ServerInfoMethod) RequiredRole() Role { return RoleGuest }

// PingMethod handles the ping RPC method
type PingMethod struct{}

func (m *PingMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	return map[string]interface{}{}, nil
}

func (m *PingMethod) RequiredRole() Role { return RoleGuest }

// SubmitMethod applies a signed transaction envelope.
type SubmitMethod struct{ svc *Services }

func (m *SubmitMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var envelope host.Envelope
	if err := parseParams(params, &envelope); err != nil {
		return nil, err
	}
	if envelope.PublicKey == "" || envelope.Signature == "" {
		return nil, RpcErrorInvalidParams("Missing public_key or signature")
	}
	res, err := m.svc.Chain.Submit(ctx.Context, &envelope)
	if err != nil {
		return nil, RpcErrorFromResult(err)
	}
	return map[string]interface{}{
		"engine_result": "Success",
		"hash":          res.Hash,
		"height":        res.Height,
		"time":          res.Time,
		"events":        res.Events,
		"data":          res.Data,
	}, nil
}

func (m *SubmitMethod) RequiredRole() Role { return RoleGuest }

// ContractQueryMethod runs a read-only contract query.
type ContractQueryMethod struct{ svc *Services }

type contractQueryParams struct {
	Contract types.Address   `json:"contract"`
	Msg      json.RawMessage `json:"msg"`
}

func (m *ContractQueryMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var p contractQueryParams
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	if p.Contract.IsEmpty() || len(p.Msg) == 0 {
		return nil, RpcErrorInvalidParams("Missing contract or msg")
	}
	data, err := m.svc.Chain.Query(ctx.Context, p.Contract, p.Msg)
	if err != nil {
		return nil, RpcErrorFromResult(err)
	}
	return map[string]interface{}{
		"contract": p.Contract,
		"data":     data,
	}, nil
}

func (m *ContractQueryMethod) RequiredRole() Role { return RoleGuest }

// BalanceMethod returns the balance of an address in one asset.
type BalanceMethod struct{ svc *Services }

type balanceParams struct {
	Address types.Address `json:"address"`
	Asset   types.Asset   `json:"asset"`
}

func (m *BalanceMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var p balanceParams
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	if p.Address.IsEmpty() || p.Asset.IsZero() {
		return nil, RpcErrorInvalidParams("Missing address or asset")
	}
	amount, err := m.svc.Chain.Balance(ctx.Context, p.Address, p.Asset)
	if err != nil {
		return nil, RpcErrorFromResult(err)
	}
	return map[string]interface{}{
		"address": p.Address,
		"asset":   p.Asset,
		"balance": types.AmountOrZero(amount).Dec(),
	}, nil
}

func (m *BalanceMethod) RequiredRole() Role { return RoleGuest }

// AccountInfoMethod returns the next sequence of an address.
type AccountInfoMethod struct{ svc *Services }

type accountParams struct {
	Address types.Address `json:"address"`
}

func (m *AccountInfoMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var p accountParams
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	if p.Address.IsEmpty() {
		return nil, RpcErrorInvalidParams("Missing address")
	}
	seq, err := m.svc.Chain.Sequence(ctx.Context, p.Address)
	if err != nil {
		return nil, RpcErrorFromResult(err)
	}
	return map[string]interface{}{
		"address":  p.Address,
		"sequence": seq,
	}, nil
}

func (m *AccountInfoMethod) RequiredRole() Role { return RoleGuest }

// SaleHistoryMethod lists the settlements of one token.
type SaleHistoryMethod struct{ svc *Services }

type saleHistoryParams struct {
	Contract types.Address `json:"contract"`
	TokenID  *uint64       `json:"token_id"`
}

func (m *SaleHistoryMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	if m.svc.Archive == nil {
		return nil, RpcErrorNotEnabled("Sale indexing is disabled")
	}
	var p saleHistoryParams
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	if p.Contract.IsEmpty() || p.TokenID == nil {
		return nil, RpcErrorInvalidParams("Missing contract or token_id")
	}
	settlements, err := m.svc.Archive.History(ctx.Context, p.Contract, *p.TokenID)
	if err != nil {
		return nil, RpcErrorInternal(err.Error())
	}
	return map[string]interface{}{
		"contract":    p.Contract,
		"token_id":    *p.TokenID,
		"settlements": nonNil(settlements),
	}, nil
}

func (m *SaleHistoryMethod) RequiredRole() Role { return RoleGuest }

// RecentSalesMethod lists the latest settlements of every collection.
type RecentSalesMethod struct{ svc *Services }

type recentSalesParams struct {
	Limit int `json:"limit"`
}

func (m *RecentSalesMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	if m.svc.Archive == nil {
		return nil, RpcErrorNotEnabled("Sale indexing is disabled")
	}
	p := recentSalesParams{Limit: 20}
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	if p.Limit <= 0 {
		return nil, RpcErrorInvalidParams("limit must be positive")
	}
	settlements, err := m.svc.Archive.Recent(ctx.Context, p.Limit)
	if err != nil {
		return nil, RpcErrorInternal(err.Error())
	}
	return map[string]interface{}{
		"limit":       p.Limit,
		"settlements": nonNil(settlements),
	}, nil
}

func (m *RecentSalesMethod) RequiredRole() Role { return RoleGuest }

// TxEventsMethod returns the archived events of a transaction.
type TxEventsMethod struct{ svc *Services }

type txEventsParams struct {
	Hash string `json:"hash"`
}

func (m *TxEventsMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	if m.svc.Archive == nil {
		return nil, RpcErrorNotEnabled("Sale indexing is disabled")
	}
	var p txEventsParams
	if err := parseParams(params, &p); err != nil {
		return nil, err
	}
	if p.Hash == "" {
		return nil, RpcErrorInvalidParams("Missing hash")
	}
	events, err := m.svc.Archive.Events(ctx.Context, p.Hash)
	if err != nil {
		return nil, RpcErrorInternal(err.Error())
	}
	if len(events) == 0 {
		return nil, RpcErrorNotFound("Transaction not found: " + p.Hash)
	}
	return map[string]interface{}{
		"hash":   p.Hash,
		"events": events,
	}, nil
}

func (m *TxEventsMethod) RequiredRole() Role { return RoleGuest }

// IndexStatsMethod reports history cache statistics.
type IndexStatsMethod struct{ svc *Services }

func (m *IndexStatsMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	if m.svc.Archive == nil {
		return nil, RpcErrorNotEnabled("Sale indexing is disabled")
	}
	return map[string]interface{}{"cache": m.svc.Archive.CacheStats()}, nil
}

func (m *IndexStatsMethod) RequiredRole() Role { return RoleAdmin }

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
