package service

import (
	"context"
	"encoding/json"
	"time"

	"codejudge/internal/common/mq"
	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/contextkey"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

const defaultSlotWait = 2 * time.Second

// Consumer feeds judge triggers from the message queue into the dispatcher.
type Consumer struct {
	dispatcher *Dispatcher
	producer   mq.Producer
	retry      PoolRetryConfig
	slotWait   time.Duration
}

// NewConsumer creates a consumer. producer may be nil when no retry topic is used.
func NewConsumer(dispatcher *Dispatcher, producer mq.Producer, retry PoolRetryConfig, slotWait time.Duration) *Consumer {
	if slotWait <= 0 {
		slotWait = defaultSlotWait
	}
	return &Consumer{dispatcher: dispatcher, producer: producer, retry: retry, slotWait: slotWait}
}

// HandleMessage decodes a trigger and enqueues it. When the queue stays full the
// trigger is requeued with backoff so the partition keeps moving.
func (c *Consumer) HandleMessage(ctx context.Context, msg *mq.Message) error {
	if msg == nil {
		return appErr.New(appErr.InvalidParams).WithMessage("message is nil")
	}
	var payload model.JudgeMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		return appErr.Wrapf(err, appErr.InvalidParams, "decode judge message failed")
	}
	if payload.SubmissionID <= 0 {
		return appErr.ValidationError("submission_id", "required")
	}
	ctx = context.WithValue(ctx, contextkey.SubmissionID, payload.SubmissionID)

	err := c.dispatcher.SubmitWait(ctx, payload.SubmissionID, c.slotWait)
	if err == nil {
		logger.Debug(ctx, "judge trigger accepted", zap.String("reason", payload.Reason))
		return nil
	}
	if appErr.Is(err, appErr.JudgeQueueFull) && c.producer != nil && c.retry.Topic != "" {
		return RequeueForPoolFull(ctx, c.producer, c.retry, msg)
	}
	return err
}
