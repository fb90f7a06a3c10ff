package mq

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MessageQueue publishes and consumes messages.
type MessageQueue interface {
	Producer
	Consumer

	Ping(ctx context.Context) error
	Close() error
}

// Producer publishes messages to a topic.
type Producer interface {
	Publish(ctx context.Context, topic string, message *Message) error
}

// Consumer dispatches messages of subscribed topics to handlers.
type Consumer interface {
	// SubscribeWithOptions registers handler for topic. Consumption begins on Start.
	SubscribeWithOptions(ctx context.Context, topic string, handler HandlerFunc, opts *SubscribeOptions) error
	Start() error
	Stop() error
}

// FetchLimiter gates fetching so a consumer never holds more messages than it can work on.
type FetchLimiter interface {
	Acquire(ctx context.Context) error
	Release()
}

// Message is a queue message plus delivery metadata.
type Message struct {
	ID         string            `json:"id"`
	Body       []byte            `json:"body"`
	Headers    map[string]string `json:"headers"`
	Timestamp  time.Time         `json:"timestamp"`
	RetryCount int               `json:"retry_count"`
	MaxRetries int               `json:"max_retries"`
	// Expiration drops the message when it is consumed later than Timestamp+Expiration.
	Expiration time.Duration `json:"expiration"`
}

// HandlerFunc processes one message. A nil return commits it.
type HandlerFunc func(ctx context.Context, message *Message) error

// SubscribeOptions tunes one subscription.
type SubscribeOptions struct {
	ConsumerGroup   string
	Concurrency     int
	MaxRetries      int
	RetryDelay      time.Duration
	DeadLetterTopic string
	MessageTTL      time.Duration
	Limiter         FetchLimiter
}

// SetDefaults fills zero fields.
func (o *SubscribeOptions) SetDefaults() {
	if o.Concurrency == 0 {
		o.Concurrency = 1
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	if o.RetryDelay == 0 {
		o.RetryDelay = time.Second
	}
}

// NewMessage creates a message with a fresh id.
func NewMessage(body []byte) *Message {
	return &Message{
		ID:         uuid.NewString(),
		Body:       body,
		Headers:    make(map[string]string),
		Timestamp:  time.Now(),
		MaxRetries: 3,
	}
}

func (m *Message) SetHeader(key, value string) {
	if m.Headers == nil {
		m.Headers = make(map[string]string)
	}
	m.Headers[key] = value
}

func (m *Message) GetHeader(key string) (string, bool) {
	if m.Headers == nil {
		return "", false
	}
	val, ok := m.Headers[key]
	return val, ok
}
