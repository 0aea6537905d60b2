package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// OutboxTopicPublisher публикует outbox-сообщения в заданный Kafka topic.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
func NewOutboxPublisher(producer *Producer, topic string) domain.OutboxPublisher {
	if topic == "" {
		topic = TopicCheckoutEvents
	}
	return &OutboxTopicPublisher{
		producer: producer,
		topic:    topic,
	}
}

func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}
	return p.producer.PublishEvent(p.topic, messageKey(event), newEnvelope(event))
}

// DeadLetterPublisher перекладывает сообщения, не ушедшие в основной topic,
// в dead letter queue с диагностическими заголовками записи.
type DeadLetterPublisher struct {
	producer      *Producer
	originalTopic string
}

// NewDeadLetterPublisher создаёт DLQ-паблишер; originalTopic попадает в заголовок записи.
func NewDeadLetterPublisher(producer *Producer, originalTopic string) domain.OutboxPublisher {
	if originalTopic == "" {
		originalTopic = TopicCheckoutEvents
	}
	return &DeadLetterPublisher{
		producer:      producer,
		originalTopic: originalTopic,
	}
}

func (p *DeadLetterPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka dlq publisher is not initialized")
	}

	headers := map[string]string{
		HeaderOriginalTopic: p.originalTopic,
		HeaderFailedAt:      time.Now().UTC().Format(time.RFC3339Nano),
	}
	return p.producer.PublishEventWithHeaders(TopicDeadLetterQueue, messageKey(event), headers, newEnvelope(event))
}

// eventEnvelope — формат записи в topic: метаданные outbox плюс сырой payload.
type eventEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

func newEnvelope(event domain.OutboxMessage) eventEnvelope {
	return eventEnvelope{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       json.RawMessage(event.Payload),
		PublishedAt:   time.Now().UTC(),
	}
}

// messageKey выбирает ключ партиционирования: агрегат, а при его отсутствии id записи.
func messageKey(event domain.OutboxMessage) string {
	if event.AggregateID != "" {
		return event.AggregateID
	}
	return event.ID
}

var (
	_ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
	_ domain.OutboxPublisher = (*DeadLetterPublisher)(nil)
)
