package rpc

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/LeJamon/goMarble/internal/core/vm"
	"github.com/LeJamon/goMarble/internal/host"
)

// settleEvent is the event type of a completed sale.
const settleEvent = "settle"

// EventMessage is one contract event sent on the events and settlements
// streams.
type EventMessage struct {
	Type       string         `json:"type"` // Always "event"
	Stream     string         `json:"stream"`
	TxHash     string         `json:"tx_hash"`
	Height     uint64         `json:"height"`
	Time       uint64         `json:"time"`
	EventIndex int            `json:"event_index"`
	Contract   string         `json:"contract"`
	EventType  string         `json:"event_type"`
	Attributes []vm.Attribute `json:"attributes"`
}

// BlockMessage is sent on the blocks stream once per committed transaction.
type BlockMessage struct {
	Type       string `json:"type"` // Always "block"
	Height     uint64 `json:"height"`
	Time       uint64 `json:"time"`
	TxHash     string `json:"tx_hash"`
	TxKind     string `json:"tx_kind"`
	Sender     string `json:"sender"`
	EventCount int    `json:"event_count"`
}

// Publisher fans committed transactions out to websocket subscribers.
type Publisher struct {
	manager *SubscriptionManager
	logger  *zap.Logger
}

// NewPublisher creates a new Publisher with the given subscription manager
func NewPublisher(manager *SubscriptionManager, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{manager: manager, logger: logger.Named("publisher")}
}

// Hooks returns the chain hooks that feed the publisher.
func (p *Publisher) Hooks() *host.EventHooks {
	return &host.EventHooks{OnTransaction: p.PublishTransaction}
}

// PublishTransaction broadcasts the events of a committed transaction.
func (p *Publisher) PublishTransaction(res *host.TxResult) {
	if res == nil || p.manager == nil {
		return
	}

	for i, ev := range res.Events {
		contract, _ := ev.Get(host.ContractAttribute)
		msg := EventMessage{
			Type:       "event",
			Stream:     string(SubEvents),
			TxHash:     res.Hash,
			Height:     res.Height,
			Time:       res.Time,
			EventIndex: i,
			Contract:   contract,
			EventType:  ev.Type,
			Attributes: ev.Attributes,
		}
		p.broadcast(SubEvents, contract, msg)
		if ev.Type == settleEvent {
			msg.Stream = string(SubSettlements)
			p.broadcast(SubSettlements, contract, msg)
		}
	}

	p.broadcast(SubBlocks, "", BlockMessage{
		Type:       "block",
		Height:     res.Height,
		Time:       res.Time,
		TxHash:     res.Hash,
		TxKind:     string(res.Tx.Kind),
		Sender:     res.Tx.Sender.String(),
		EventCount: len(res.Events),
	})
}

func (p *Publisher) broadcast(stream SubscriptionType, contract string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		p.logger.Error("failed to marshal stream message", zap.String("stream", string(stream)), zap.Error(err))
		return
	}
	p.manager.BroadcastToStream(stream, contract, data)
}

// GetSubscriberCount returns the number of active subscribers for a stream.
func (p *Publisher) GetSubscriberCount(stream SubscriptionType) int {
	return p.manager.GetSubscriberCount(stream)
}
