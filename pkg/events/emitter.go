package events

import (
	"encoding/json"
	"time"

	"github.com/ashfall-labs/burnwatcher/pkg/infra"
	"github.com/shopspring/decimal"
)

// BurnEvent is published to the queue after every confirmed burn so
// downstream consumers (dashboards, alerting) can react without polling.
type BurnEvent struct {
	TxHash      string          `json:"tx_hash"`
	AmountHuman decimal.Decimal `json:"amount_human"`
	AmountRaw   string          `json:"amount_raw,omitempty"`
	FromAddress string          `json:"from_address,omitempty"`
	SinkAddress string          `json:"sink_address"`
	Timestamp   int64           `json:"timestamp"`
}

type Emitter interface {
	EmitBurn(event BurnEvent) error
	Close()
}

type emitter struct {
	queue infra.MessageQueue
	topic string
}

func NewEmitter(queue infra.MessageQueue, topic string) Emitter {
	if topic == "" {
		topic = infra.BurnEventTopicQueue
	}
	return &emitter{
		queue: queue,
		topic: topic,
	}
}

func (e *emitter) EmitBurn(event BurnEvent) error {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UTC().Unix()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return e.queue.Enqueue(e.topic, data, &infra.EnqueueOptions{
		// The tx hash dedupes redeliveries of the same burn.
		IdempotentKey: event.TxHash,
	})
}

func (e *emitter) Close() {
	if e.queue != nil {
		e.queue.Close()
	}
}
