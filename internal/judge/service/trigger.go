package service

import (
	"context"
	"encoding/json"
	"strconv"

	"codejudge/internal/common/mq"
	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
)

// Trigger hands a submission to the judge without waiting for the verdict.
type Trigger interface {
	Trigger(ctx context.Context, msg model.JudgeMessage) error
}

// DispatchTrigger judges in this process through the worker pool.
type DispatchTrigger struct {
	Dispatcher *Dispatcher
}

func (t DispatchTrigger) Trigger(ctx context.Context, msg model.JudgeMessage) error {
	return t.Dispatcher.Submit(msg.SubmissionID)
}

// QueueTrigger publishes the trigger so any judge node can pick it up.
type QueueTrigger struct {
	Producer mq.Producer
	Topic    string
}

func (t QueueTrigger) Trigger(ctx context.Context, msg model.JudgeMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return appErr.Wrapf(err, appErr.InternalServerError, "encode judge message failed")
	}
	m := mq.NewMessage(body)
	m.ID = strconv.FormatInt(msg.SubmissionID, 10)
	if err := t.Producer.Publish(ctx, t.Topic, m); err != nil {
		return appErr.Wrapf(err, appErr.ServiceUnavailable, "publish judge message failed")
	}
	return nil
}
