package service

import (
	"context"
	"strings"
	"testing"

	"codejudge/internal/judge/model"
	"codejudge/internal/judge/sandbox/profile"
	appErr "codejudge/pkg/errors"
)

func newLanguages(t *testing.T) *profile.Registry {
	t.Helper()
	reg, err := profile.NewRegistry(nil)
	if err != nil {
		t.Fatalf("registry failed: %v", err)
	}
	return reg
}

func TestCreateSubmissionStoresPending(t *testing.T) {
	h := newHarness(t)
	svc := h.service(t)
	sub, err := svc.CreateSubmission(context.Background(), newLanguages(t), SubmitRequest{
		UserID: 7, ProblemID: 1, Language: "cpp", Code: "int main(){}",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if sub.ID == 0 || sub.Status != model.StatusPending || !sub.SubmittedAt.Equal(fixedNow) {
		t.Fatalf("unexpected submission: %+v", sub)
	}
	if got := h.subs.row(sub.ID); got.Code != "int main(){}" {
		t.Fatalf("expected stored code, got %q", got.Code)
	}
	snap, err := svc.GetStatus(context.Background(), sub.ID)
	if err != nil || snap.Status != model.StatusPending {
		t.Fatalf("expected pending snapshot, got %+v err=%v", snap, err)
	}
}

func TestCreateSubmissionValidation(t *testing.T) {
	h := newHarness(t)
	svc := h.service(t)
	cases := []struct {
		name string
		req  SubmitRequest
		code appErr.ErrorCode
	}{
		{name: "unknown language", req: SubmitRequest{UserID: 7, ProblemID: 1, Language: "cobol", Code: "x"}, code: appErr.LanguageNotSupported},
		{name: "missing problem", req: SubmitRequest{UserID: 7, ProblemID: 99, Language: "c", Code: "x"}, code: appErr.ProblemNotFound},
		{name: "empty code", req: SubmitRequest{UserID: 7, ProblemID: 1, Language: "c", Code: "  "}, code: appErr.ValidationFailed},
		{name: "oversized code", req: SubmitRequest{UserID: 7, ProblemID: 1, Language: "c", Code: strings.Repeat("a", MaxCodeBytes+1)}, code: appErr.CodeTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateSubmission(context.Background(), newLanguages(t), tc.req)
			if appErr.GetCode(err) != tc.code {
				t.Fatalf("expected code %d, got %v", tc.code, err)
			}
		})
	}
}
