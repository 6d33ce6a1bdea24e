package rpc

import (
	"sync"
)

// SubscriptionConfig holds per-stream filters of a connection.
type SubscriptionConfig struct {
	Contracts []string
}

// matches reports whether an event of contract passes the filter.
func (c SubscriptionConfig) matches(contract string) bool {
	if len(c.Contracts) == 0 {
		return true
	}
	for _, addr := range c.Contracts {
		if addr == contract {
			return true
		}
	}
	return false
}

// Connection is a subscriber as seen by the SubscriptionManager.
type Connection struct {
	ID            string
	Subscriptions map[SubscriptionType]SubscriptionConfig
	SendChannel   chan []byte
	CloseChannel  chan struct{}
}

// NewConnection returns a connection with a send buffer of size.
func NewConnection(id string, size int) *Connection {
	return &Connection{
		ID:            id,
		Subscriptions: make(map[SubscriptionType]SubscriptionConfig),
		SendChannel:   make(chan []byte, size),
		CloseChannel:  make(chan struct{}),
	}
}

// SubscriptionManager manages websocket subscriptions.
type SubscriptionManager struct {
	mu          sync.RWMutex
	connections map[string]*Connection
}

// NewSubscriptionManager creates a new SubscriptionManager
func NewSubscriptionManager() *SubscriptionManager {
	return &SubscriptionManager{
		connections: make(map[string]*Connection),
	}
}

// AddConnection adds a connection to the subscription manager
func (sm *SubscriptionManager) AddConnection(conn *Connection) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.connections[conn.ID] = conn
}

// RemoveConnection removes a connection from the subscription manager
func (sm *SubscriptionManager) RemoveConnection(connID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.connections, connID)
}

// HandleSubscribe adds the requested streams to conn. Contract filters of
// a stream already subscribed are merged.
func (sm *SubscriptionManager) HandleSubscribe(conn *Connection, request SubscriptionRequest) *RpcError {
	if len(request.Streams) == 0 {
		return NewRpcError(RpcSTREAM_MALFORMED, "malformedStream", "malformedStream", "No streams requested")
	}
	for _, stream := range request.Streams {
		if !validStreams[stream] {
			return NewRpcError(RpcSTREAM_MALFORMED, "malformedStream", "malformedStream",
				"Unknown stream type: "+string(stream))
		}
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	for _, stream := range request.Streams {
		existing, ok := conn.Subscriptions[stream]
		if !ok || len(request.Contracts) == 0 {
			conn.Subscriptions[stream] = SubscriptionConfig{Contracts: append([]string(nil), request.Contracts...)}
			continue
		}
		if len(existing.Contracts) == 0 {
			// Already unfiltered
			continue
		}
		seen := make(map[string]bool, len(existing.Contracts))
		for _, c := range existing.Contracts {
			seen[c] = true
		}
		for _, c := range request.Contracts {
			if !seen[c] {
				existing.Contracts = append(existing.Contracts, c)
				seen[c] = true
			}
		}
		conn.Subscriptions[stream] = existing
	}
	return nil
}

// HandleUnsubscribe removes streams from conn. With contracts listed only
// those filters are dropped; a stream left without filters is removed.
func (sm *SubscriptionManager) HandleUnsubscribe(conn *Connection, request SubscriptionRequest) *RpcError {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for _, stream := range request.Streams {
		if !validStreams[stream] {
			return NewRpcError(RpcSTREAM_MALFORMED, "malformedStream", "malformedStream",
				"Unknown stream type: "+string(stream))
		}
		existing, ok := conn.Subscriptions[stream]
		if !ok {
			continue
		}
		if len(request.Contracts) == 0 {
			delete(conn.Subscriptions, stream)
			continue
		}
		remove := make(map[string]bool, len(request.Contracts))
		for _, c := range request.Contracts {
			remove[c] = true
		}
		var remaining []string
		for _, c := range existing.Contracts {
			if !remove[c] {
				remaining = append(remaining, c)
			}
		}
		if len(remaining) == 0 {
			delete(conn.Subscriptions, stream)
		} else {
			conn.Subscriptions[stream] = SubscriptionConfig{Contracts: remaining}
		}
	}
	return nil
}

// BroadcastToStream sends data to every connection subscribed to stream
// whose filter accepts contract. Slow connections are skipped.
func (sm *SubscriptionManager) BroadcastToStream(stream SubscriptionType, contract string, data []byte) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sent := 0
	for _, conn := range sm.connections {
		config, ok := conn.Subscriptions[stream]
		if !ok || !config.matches(contract) {
			continue
		}
		select {
		case conn.SendChannel <- data:
			sent++
		default:
			// Channel full, skip
		}
	}
	return sent
}

// GetSubscriberCount returns the number of connections on stream.
func (sm *SubscriptionManager) GetSubscriberCount(stream SubscriptionType) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	n := 0
	for _, conn := range sm.connections {
		if _, ok := conn.Subscriptions[stream]; ok {
			n++
		}
	}
	return n
}

// ConnectionCount returns the number of open connections.
func (sm *SubscriptionManager) ConnectionCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.connections)
}
