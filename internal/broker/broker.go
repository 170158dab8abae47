package broker

import "context"

// Publisher delivers payloads to a topic. Delivery is at-least-once; the
// broker may redeliver, consumers deduplicate.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// MessageHandler is invoked once per delivered message. Duplicates are
// possible and must be handled downstream.
type MessageHandler func(topic string, payload []byte)

// Subscriber registers a handler for a topic.
type Subscriber interface {
	Subscribe(topic string, handler MessageHandler) error
}
