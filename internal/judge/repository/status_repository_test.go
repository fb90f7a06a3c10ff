package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
)

func TestStatusRepositoryRoundTrip(t *testing.T) {
	repo := NewStatusRepository(newMiniCache(t), time.Hour)
	ctx := context.Background()

	if _, err := repo.Get(ctx, 1); !appErr.Is(err, appErr.NotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	snap := model.StatusSnapshot{SubmissionID: 1, UserID: 2, Status: model.StatusJudging}
	if err := repo.Save(ctx, snap); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := repo.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != model.StatusJudging || got.UserID != 2 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}

	if err := repo.Delete(ctx, 1); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := repo.Get(ctx, 1); !appErr.Is(err, appErr.NotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestStatusRepositoryLock(t *testing.T) {
	repo := NewStatusRepository(newMiniCache(t), time.Hour)
	ctx := context.Background()
	ok, err := repo.TryLock(ctx, 5, "a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected lock, ok=%v err=%v", ok, err)
	}
	if ok, _ := repo.TryLock(ctx, 5, "b", time.Minute); ok {
		t.Fatalf("expected second owner to be rejected")
	}
	if err := repo.Unlock(ctx, 5, "a"); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}
	if ok, _ := repo.TryLock(ctx, 5, "b", time.Minute); !ok {
		t.Fatalf("expected lock after release")
	}
}

func TestPublishFinalStatus(t *testing.T) {
	producer := &fakeProducer{}
	pub := NewMQStatusEventPublisher(producer, "judge.status")
	snap := model.StatusSnapshot{SubmissionID: 8, Status: model.StatusAccepted, Score: 10}
	if err := pub.PublishFinalStatus(context.Background(), snap); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if producer.topic != "judge.status" || len(producer.messages) != 1 {
		t.Fatalf("unexpected publish: topic=%s count=%d", producer.topic, len(producer.messages))
	}
	msg := producer.messages[0]
	if msg.ID != "8" {
		t.Fatalf("expected message keyed by submission, got %q", msg.ID)
	}
	var event model.StatusEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		t.Fatalf("decode event failed: %v", err)
	}
	if event.Type != model.StatusEventFinal || event.Status.Score != 10 {
		t.Fatalf("unexpected event: %+v", event)
	}

	if err := pub.PublishFinalStatus(context.Background(), model.StatusSnapshot{SubmissionID: 8, Status: model.StatusJudging}); err == nil {
		t.Fatalf("expected non-final status to be rejected")
	}
}
