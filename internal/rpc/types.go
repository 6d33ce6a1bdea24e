package rpc

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
)

// Request is an HTTP RPC request.
// Format: {"method": "method_name", "params": [{...}]}
type Request struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params,omitempty"`
}

// Role-based access control
type Role int

const (
	RoleGuest Role = iota
	RoleAdmin
)

// RpcContext contains request-specific information
type RpcContext struct {
	Context  context.Context
	Role     Role
	ClientIP string
}

// MethodHandler is implemented by every RPC method.
type MethodHandler interface {
	Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError)
	RequiredRole() Role
}

// MethodRegistry maps method names to handlers.
type MethodRegistry struct {
	mu      sync.RWMutex
	methods map[string]MethodHandler
}

func NewMethodRegistry() *MethodRegistry {
	return &MethodRegistry{
		methods: make(map[string]MethodHandler),
	}
}

func (r *MethodRegistry) Register(name string, handler MethodHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods[name] = handler
}

func (r *MethodRegistry) Get(name string) (MethodHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, exists := r.methods[name]
	return handler, exists
}

// List returns the registered method names in sorted order.
func (r *MethodRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	methods := make([]string, 0, len(r.methods))
	for name := range r.methods {
		methods = append(methods, name)
	}
	sort.Strings(methods)
	return methods
}

// WebSocketCommand is a command received over a websocket. Parameters sit
// at the top level next to the command name.
type WebSocketCommand struct {
	Command string          `json:"command"`
	ID      interface{}     `json:"id,omitempty"`
	Params  json.RawMessage `json:"-"`
}

type WebSocketResponse struct {
	Type   string      `json:"type"`
	ID     interface{} `json:"id,omitempty"`
	Status string      `json:"status,omitempty"`
	Result interface{} `json:"result,omitempty"`
}

// SubscriptionType names a websocket stream.
type SubscriptionType string

const (
	// SubEvents carries every contract event of every committed transaction.
	SubEvents SubscriptionType = "events"
	// SubSettlements carries settle events only.
	SubSettlements SubscriptionType = "settlements"
	// SubBlocks carries one message per committed transaction height.
	SubBlocks SubscriptionType = "blocks"
)

var validStreams = map[SubscriptionType]bool{
	SubEvents:      true,
	SubSettlements: true,
	SubBlocks:      true,
}

// SubscriptionRequest is the body of subscribe and unsubscribe. Contracts
// narrows the event streams to the listed contract addresses.
type SubscriptionRequest struct {
	Streams   []SubscriptionType `json:"streams,omitempty"`
	Contracts []string           `json:"contracts,omitempty"`
}
