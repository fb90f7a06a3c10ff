package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"codejudge/internal/common/mq"
	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
)

// StatusEventPublisher publishes status events for async processing.
type StatusEventPublisher interface {
	PublishFinalStatus(ctx context.Context, status model.StatusSnapshot) error
}

// MQStatusEventPublisher publishes status events to a message queue.
type MQStatusEventPublisher struct {
	queue mq.Producer
	topic string
}

// NewMQStatusEventPublisher creates a new MQ status event publisher.
func NewMQStatusEventPublisher(queue mq.Producer, topic string) *MQStatusEventPublisher {
	return &MQStatusEventPublisher{queue: queue, topic: topic}
}

// PublishFinalStatus publishes a final status event keyed by submission id.
func (p *MQStatusEventPublisher) PublishFinalStatus(ctx context.Context, status model.StatusSnapshot) error {
	if p == nil || p.queue == nil {
		return appErr.New(appErr.ServiceUnavailable).WithMessage("status publisher is not configured")
	}
	if p.topic == "" {
		return appErr.New(appErr.InvalidParams).WithMessage("status topic is required")
	}
	if status.SubmissionID <= 0 {
		return appErr.ValidationError("submission_id", "required")
	}
	if !status.Status.IsTerminal() {
		return appErr.New(appErr.InvalidParams).WithMessage("status is not final")
	}
	event := model.StatusEvent{
		Type:      model.StatusEventFinal,
		Status:    status,
		CreatedAt: time.Now().Unix(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal status event failed: %w", err)
	}
	message := mq.NewMessage(payload)
	message.ID = strconv.FormatInt(status.SubmissionID, 10)
	if err := p.queue.Publish(ctx, p.topic, message); err != nil {
		return appErr.Wrapf(err, appErr.ServiceUnavailable, "publish status event failed")
	}
	return nil
}
