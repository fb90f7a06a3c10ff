package service

import (
	"context"
	"strconv"
	"time"

	"codejudge/internal/common/mq"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

const poolRetryHeader = "x-pool-retry"

// PoolRetryConfig controls how triggers rejected by a full queue are requeued.
type PoolRetryConfig struct {
	Topic           string        `yaml:"topic"`
	DeadLetterTopic string        `yaml:"deadLetterTopic"`
	MaxRetries      int           `yaml:"maxRetries"`
	BaseDelay       time.Duration `yaml:"baseDelay"`
	MaxDelay        time.Duration `yaml:"maxDelay"`
}

// ParsePoolRetryCount reads the pool retry counter of a message.
func ParsePoolRetryCount(headers map[string]string) int {
	raw, ok := headers[poolRetryHeader]
	if !ok {
		return 0
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return 0
	}
	return val
}

// CloneMessageForRetry copies msg with a fresh timestamp and the given pool retry count.
// Delivery retries start over because the handler itself never failed.
func CloneMessageForRetry(msg *mq.Message, retryCount int) *mq.Message {
	out := &mq.Message{
		ID:         msg.ID,
		Body:       msg.Body,
		Headers:    make(map[string]string, len(msg.Headers)+1),
		Timestamp:  time.Now(),
		MaxRetries: msg.MaxRetries,
		Expiration: msg.Expiration,
	}
	for k, v := range msg.Headers {
		out.Headers[k] = v
	}
	out.Headers[poolRetryHeader] = strconv.Itoa(retryCount)
	return out
}

// ComputePoolBackoff doubles base per retry, capped at max when max is positive.
func ComputePoolBackoff(retryCount int, base, max time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 0; i < retryCount; i++ {
		if max > 0 && delay >= max {
			break
		}
		delay *= 2
	}
	if max > 0 && delay > max {
		return max
	}
	return delay
}

// RequeueForPoolFull waits out the backoff and republishes msg to the retry topic.
// Once the retry budget is spent the message goes to the dead letter topic, or a
// JudgeQueueFull error is returned when there is none.
func RequeueForPoolFull(ctx context.Context, producer mq.Producer, cfg PoolRetryConfig, msg *mq.Message) error {
	if producer == nil || cfg.Topic == "" {
		return appErr.New(appErr.ServiceUnavailable).WithMessage("retry queue is not configured")
	}
	if msg == nil {
		return appErr.New(appErr.InvalidParams).WithMessage("message is nil")
	}
	retryCount := ParsePoolRetryCount(msg.Headers)
	if cfg.MaxRetries > 0 && retryCount >= cfg.MaxRetries {
		if cfg.DeadLetterTopic == "" {
			logger.Warn(ctx, "pool retry exhausted without dead letter", zap.Int("retry_count", retryCount), zap.String("message_id", msg.ID))
			return appErr.New(appErr.JudgeQueueFull).WithMessage("judge queue is full")
		}
		logger.Warn(ctx, "pool retry exhausted, sending to dead letter", zap.Int("retry_count", retryCount), zap.String("message_id", msg.ID), zap.String("topic", cfg.DeadLetterTopic))
		return producer.Publish(ctx, cfg.DeadLetterTopic, CloneMessageForRetry(msg, retryCount))
	}

	delay := ComputePoolBackoff(retryCount, cfg.BaseDelay, cfg.MaxDelay)
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	logger.Info(ctx, "requeue judge trigger", zap.Int("retry_count", retryCount+1), zap.String("message_id", msg.ID), zap.Duration("delay", delay))
	return producer.Publish(ctx, cfg.Topic, CloneMessageForRetry(msg, retryCount+1))
}
