package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3/log"
	"github.com/segmentio/kafka-go"
)

// Типы событий жизненного цикла буста
const (
	EventBoostActivated         = "boost.activated"
	EventReconciliationRequired = "boost.reconciliation_required"
)

// BoostEvent событие по оплаченному бусту
type BoostEvent struct {
	Type        string     `json:"type"`
	ListingID   string     `json:"listing_id,omitempty"`
	BoostType   string     `json:"boost_type,omitempty"`
	Provider    string     `json:"provider"`
	ProviderRef string     `json:"provider_ref"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// messageWriter подмножество kafka.Writer
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer публикует JSON-сообщения в Kafka
type Producer struct {
	writer messageWriter
}

// NewProducer создает продюсера для списка брокеров
func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	return &Producer{writer: writer}
}

// Publish сериализует payload в JSON и отправляет в topic.
// Ключ - идентификатор объявления, чтобы события одного объявления шли в одну партицию.
func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	log.Debugf("Событие отправлено в Kafka - Topic: %s, Key: %s", topic, key)
	return nil
}

// Close закрывает writer
func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
