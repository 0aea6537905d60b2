package kafka

// Topics для Kafka
const (
	TopicCheckoutEvents  = "checkout.lifecycle.events"
	TopicDeadLetterQueue = "checkout.dlq" // Dead Letter Queue для failed messages
)

// Заголовки записей dead letter queue.
const (
	HeaderOriginalTopic = "x-original-topic"
	HeaderFailedAt      = "x-failed-at"
)
