// Package kafka delivers sealed audit entries to a Kafka topic so downstream
// consumers (billing reconciliation, compliance exports) can tail the trail
// without querying the store.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"procura/internal/audit"
)

// event is the wire form of a sealed entry. Results are already redacted by
// the recorder before they reach the sink.
type event struct {
	EntryID         string         `json:"entry_id"`
	PlanExecutionID string         `json:"plan_execution_id,omitempty"`
	MandateID       string         `json:"mandate_id,omitempty"`
	Tool            string         `json:"tool"`
	Decision        string         `json:"decision"`
	Args            map[string]any `json:"args,omitempty"`
	Result          any            `json:"result,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	SealedAt        *time.Time     `json:"sealed_at,omitempty"`
}

type Publisher struct {
	client *kgo.Client
	topic  string
}

// NewPublisher connects a producer to the given brokers. The caller owns the
// lifecycle and must Close it on shutdown.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka publisher requires a topic")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Publisher{client: client, topic: topic}, nil
}

// Publish writes one sealed entry, keyed by plan execution so a plan's
// entries land on one partition in order.
func (p *Publisher) Publish(ctx context.Context, entry *audit.Entry) error {
	evt := event{
		EntryID:         entry.ID.String(),
		PlanExecutionID: string(entry.PlanExecutionID),
		Tool:            entry.Tool,
		Decision:        string(entry.Decision),
		Args:            entry.Args,
		Result:          entry.Result,
		CreatedAt:       entry.CreatedAt,
		SealedAt:        entry.SealedAt,
	}
	if !entry.MandateID.IsNil() {
		evt.MandateID = entry.MandateID.String()
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	key := []byte(entry.PlanExecutionID)
	if len(key) == 0 {
		key = []byte(entry.ID.String())
	}

	record := &kgo.Record{Topic: p.topic, Key: key, Value: payload}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() {
	p.client.Close()
}
