package mq

import (
	"context"
	"testing"
	"time"
)

func TestKafkaMessageHeadersSurviveCodec(t *testing.T) {
	msg := NewMessage([]byte(`{"submission_id":42}`))
	msg.ID = "42"
	msg.RetryCount = 2
	msg.Expiration = 5 * time.Minute
	msg.SetHeader("x-pool-retry", "1")

	got := fromKafkaMessage(toKafkaMessage("judge.trigger", msg))
	if got.ID != "42" || got.RetryCount != 2 || got.MaxRetries != 3 || got.Expiration != 5*time.Minute {
		t.Fatalf("unexpected message: %+v", got)
	}
	if v, ok := got.GetHeader("x-pool-retry"); !ok || v != "1" {
		t.Fatalf("expected user header, got %q %v", v, ok)
	}
	if _, ok := got.GetHeader(headerID); ok {
		t.Fatalf("reserved headers must not leak into user headers")
	}
	if !got.Timestamp.Equal(msg.Timestamp) {
		t.Fatalf("timestamp changed: %v != %v", got.Timestamp, msg.Timestamp)
	}
}

func TestSubscribeOptionsDefaults(t *testing.T) {
	opts := &SubscribeOptions{MaxRetries: 5}
	opts.SetDefaults()
	if opts.Concurrency != 1 || opts.MaxRetries != 5 || opts.RetryDelay != time.Second {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
}

func TestTokenLimiter(t *testing.T) {
	l := NewTokenLimiter(1)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Acquire(ctx); err == nil {
		t.Fatalf("expected second acquire to block until timeout")
	}
	l.Release()
	l.Release()
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	if err := l.Acquire(ctx2); err == nil {
		t.Fatalf("extra release must not grow the limiter")
	}
}
