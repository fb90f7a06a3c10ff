package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorCodeHTTPStatus(t *testing.T) {
	tests := []struct {
		code       ErrorCode
		wantStatus int
	}{
		{Success, 200},
		{InvalidParams, 400},
		{ValidationFailed, 400},
		{LanguageNotSupported, 400},
		{CodeTooLarge, 400},
		{TokenInvalid, 401},
		{Forbidden, 403},
		{SubmissionNotFound, 404},
		{ProblemNotFound, 404},
		{JudgeInProgress, 409},
		{SubmissionJudged, 409},
		{JudgeQueueFull, 429},
		{JudgeShutdown, 503},
		{JudgeSystemError, 500},
		{DatabaseError, 500},
	}
	for _, tt := range tests {
		t.Run(tt.code.Message(), func(t *testing.T) {
			if got := tt.code.HTTPStatus(); got != tt.wantStatus {
				t.Errorf("HTTPStatus() = %v, want %v", got, tt.wantStatus)
			}
		})
	}
}

func TestUnknownCodeMessage(t *testing.T) {
	if got := ErrorCode(19999).Message(); got != "Unknown error" {
		t.Fatalf("Message() = %q", got)
	}
}

func TestWrapfKeepsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrapf(cause, JudgeSystemError, "load submission %d failed", 7)

	if err.Error() != "load submission 7 failed" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if !stderrors.Is(err, cause) {
		t.Fatalf("cause should be reachable through errors.Is")
	}
	if Wrapf(nil, JudgeSystemError, "x") != nil {
		t.Fatalf("wrapping nil should return nil")
	}
}

func TestWrapRecodesAppError(t *testing.T) {
	original := New(CacheError)
	wrapped := Wrap(original, DatabaseError)
	if wrapped != original || wrapped.Code != DatabaseError {
		t.Fatalf("expected in-place recode, got %+v", wrapped)
	}
}

func TestGetCodeThroughChain(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{name: "nil", err: nil, want: Success},
		{name: "app error", err: New(JudgeQueueFull), want: JudgeQueueFull},
		{name: "fmt wrapped", err: fmt.Errorf("submit: %w", New(JudgeShutdown)), want: JudgeShutdown},
		{name: "foreign", err: stderrors.New("boom"), want: InternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.want {
				t.Errorf("GetCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIs(t *testing.T) {
	err := New(SubmissionNotFound)
	if !Is(err, SubmissionNotFound) {
		t.Error("Is() should match the code")
	}
	if Is(err, DatabaseError) {
		t.Error("Is() should not match another code")
	}
	if Is(nil, SubmissionNotFound) {
		t.Error("Is() should be false for nil")
	}
}

func TestValidationErrorDetails(t *testing.T) {
	err := ValidationError("submission_id", "required")
	if err.Code != ValidationFailed {
		t.Fatalf("unexpected code: %v", err.Code)
	}
	if err.Details["field"] != "submission_id" {
		t.Fatalf("field detail not set: %v", err.Details)
	}
	err.WithDetail("submission_id", int64(3))
	if err.Details["submission_id"] != int64(3) {
		t.Fatalf("detail not added: %v", err.Details)
	}
}

func TestGetErrorWrapsForeign(t *testing.T) {
	err := GetError(stderrors.New("disk full"))
	if err.Code != InternalServerError || err.Error() != "disk full" {
		t.Fatalf("unexpected error: %+v", err)
	}
	if GetError(nil) != nil {
		t.Fatalf("GetError(nil) should be nil")
	}
}
