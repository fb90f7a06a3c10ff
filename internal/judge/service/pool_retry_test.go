package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"codejudge/internal/common/mq"
	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
)

func TestComputePoolBackoff(t *testing.T) {
	cases := []struct {
		retry int
		base  time.Duration
		max   time.Duration
		want  time.Duration
	}{
		{retry: 0, base: time.Second, max: 10 * time.Second, want: time.Second},
		{retry: 1, base: time.Second, max: 10 * time.Second, want: 2 * time.Second},
		{retry: 3, base: time.Second, max: 10 * time.Second, want: 8 * time.Second},
		{retry: 5, base: time.Second, max: 10 * time.Second, want: 10 * time.Second},
		{retry: 2, base: time.Second, max: 0, want: 4 * time.Second},
		{retry: 2, base: 0, max: time.Second, want: 0},
	}
	for _, tc := range cases {
		if got := ComputePoolBackoff(tc.retry, tc.base, tc.max); got != tc.want {
			t.Fatalf("retry=%d base=%v max=%v: expected %v, got %v", tc.retry, tc.base, tc.max, tc.want, got)
		}
	}
}

func TestParsePoolRetryCount(t *testing.T) {
	if got := ParsePoolRetryCount(nil); got != 0 {
		t.Fatalf("expected 0 for nil headers, got %d", got)
	}
	if got := ParsePoolRetryCount(map[string]string{poolRetryHeader: "-2"}); got != 0 {
		t.Fatalf("expected 0 for negative count, got %d", got)
	}
	if got := ParsePoolRetryCount(map[string]string{poolRetryHeader: "3"}); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestRequeueForPoolFullPublishesToRetryTopic(t *testing.T) {
	producer := &fakeProducer{}
	msg := &mq.Message{ID: "42", Body: []byte(`{"submission_id":42}`), Headers: map[string]string{"trace": "t1"}, RetryCount: 2}
	cfg := PoolRetryConfig{Topic: "judge.retry", DeadLetterTopic: "judge.dead", MaxRetries: 3}
	if err := RequeueForPoolFull(context.Background(), producer, cfg, msg); err != nil {
		t.Fatalf("requeue failed: %v", err)
	}
	out := producer.published["judge.retry"]
	if len(out) != 1 {
		t.Fatalf("expected one retry message, got %d", len(out))
	}
	if out[0].Headers[poolRetryHeader] != "1" || out[0].Headers["trace"] != "t1" || out[0].RetryCount != 0 {
		t.Fatalf("unexpected retry message: %+v", out[0])
	}
}

func TestRequeueForPoolFullSendsToDeadLetterWhenExhausted(t *testing.T) {
	producer := &fakeProducer{}
	msg := &mq.Message{ID: "42", Headers: map[string]string{poolRetryHeader: "3"}}
	cfg := PoolRetryConfig{Topic: "judge.retry", DeadLetterTopic: "judge.dead", MaxRetries: 3}
	if err := RequeueForPoolFull(context.Background(), producer, cfg, msg); err != nil {
		t.Fatalf("requeue failed: %v", err)
	}
	if len(producer.published["judge.dead"]) != 1 || len(producer.published["judge.retry"]) != 0 {
		t.Fatalf("expected dead letter only, got %+v", producer.published)
	}

	cfg.DeadLetterTopic = ""
	err := RequeueForPoolFull(context.Background(), producer, cfg, msg)
	if !appErr.Is(err, appErr.JudgeQueueFull) {
		t.Fatalf("expected JudgeQueueFull without dead letter, got %v", err)
	}
}

func TestConsumerRequeuesWhenQueueFull(t *testing.T) {
	d := NewDispatcher(&recordingJudger{done: make(chan int64, 1)}, nil, DispatcherConfig{Workers: 1, QueueSize: 1})
	if err := d.Submit(1); err != nil {
		t.Fatalf("fill queue failed: %v", err)
	}
	producer := &fakeProducer{}
	c := NewConsumer(d, producer, PoolRetryConfig{Topic: "judge.retry", MaxRetries: 3}, 10*time.Millisecond)

	body, _ := json.Marshal(model.JudgeMessage{SubmissionID: 2, Reason: model.ReasonSubmit})
	if err := c.HandleMessage(context.Background(), mq.NewMessage(body)); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if len(producer.published["judge.retry"]) != 1 {
		t.Fatalf("expected trigger requeued, got %+v", producer.published)
	}
}

func TestConsumerRejectsBadPayload(t *testing.T) {
	d := NewDispatcher(&recordingJudger{done: make(chan int64, 1)}, nil, DispatcherConfig{})
	c := NewConsumer(d, nil, PoolRetryConfig{}, 0)
	err := c.HandleMessage(context.Background(), mq.NewMessage([]byte("not json")))
	if !appErr.Is(err, appErr.InvalidParams) {
		t.Fatalf("expected InvalidParams, got %v", err)
	}
	if d.QueueDepth() != 0 {
		t.Fatalf("expected nothing enqueued")
	}
}

func TestConsumerEnqueuesTrigger(t *testing.T) {
	d := NewDispatcher(&recordingJudger{done: make(chan int64, 1)}, nil, DispatcherConfig{Workers: 1, QueueSize: 4})
	c := NewConsumer(d, nil, PoolRetryConfig{}, 0)
	body, _ := json.Marshal(model.JudgeMessage{SubmissionID: 5, Reason: model.ReasonRejudge})
	if err := c.HandleMessage(context.Background(), mq.NewMessage(body)); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if d.QueueDepth() != 1 {
		t.Fatalf("expected trigger enqueued, depth %d", d.QueueDepth())
	}
}
