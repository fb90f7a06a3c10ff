package auth

import (
	"testing"
	"time"

	pkgerrors "codejudge/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndAuthenticate(t *testing.T) {
	svc := NewTokenService(Config{Secret: "s3cret", Issuer: "codejudge", TTL: time.Hour})
	token, err := svc.Issue(UserInfo{ID: 42, Role: RoleContestant}, time.Now())
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}
	user, err := svc.Authenticate(token)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if user.ID != 42 || user.Role != RoleContestant {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.IsJudge() || !user.CanSubmit() {
		t.Fatalf("contestant should submit but not judge")
	}
}

func TestAuthenticateRejects(t *testing.T) {
	svc := NewTokenService(Config{Secret: "s3cret", Issuer: "codejudge", TTL: time.Minute})
	expired, err := svc.Issue(UserInfo{ID: 1, Role: RoleJudge}, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("issue token failed: %v", err)
	}
	otherIssuer, _ := NewTokenService(Config{Secret: "s3cret", Issuer: "elsewhere"}).Issue(UserInfo{ID: 1}, time.Now())
	otherSecret, _ := NewTokenService(Config{Secret: "other", Issuer: "codejudge"}).Issue(UserInfo{ID: 1}, time.Now())
	noneAlg, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1", "typ": "access"}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
		code  pkgerrors.ErrorCode
	}{
		{name: "empty", token: "", code: pkgerrors.TokenInvalid},
		{name: "garbage", token: "not-a-jwt", code: pkgerrors.TokenInvalid},
		{name: "expired", token: expired, code: pkgerrors.TokenExpired},
		{name: "issuer", token: otherIssuer, code: pkgerrors.TokenInvalid},
		{name: "secret", token: otherSecret, code: pkgerrors.TokenInvalid},
		{name: "alg none", token: noneAlg, code: pkgerrors.TokenInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Authenticate(tt.token)
			if got := pkgerrors.GetCode(err); got != tt.code {
				t.Fatalf("expected code %v, got %v (%v)", tt.code, got, err)
			}
		})
	}
}

func TestRoles(t *testing.T) {
	tests := []struct {
		role      string
		judge     bool
		canSubmit bool
	}{
		{role: RoleAdmin, judge: true, canSubmit: true},
		{role: "JUDGE", judge: true, canSubmit: true},
		{role: RoleContestant, judge: false, canSubmit: true},
		{role: RoleVisitor, judge: false, canSubmit: false},
		{role: "", judge: false, canSubmit: false},
	}
	for _, tt := range tests {
		u := UserInfo{ID: 1, Role: tt.role}
		if u.IsJudge() != tt.judge || u.CanSubmit() != tt.canSubmit {
			t.Fatalf("role %q: judge=%v submit=%v", tt.role, u.IsJudge(), u.CanSubmit())
		}
	}
}

func TestIssueWithoutSecret(t *testing.T) {
	if _, err := NewTokenService(Config{}).Issue(UserInfo{ID: 1}, time.Now()); !pkgerrors.Is(err, pkgerrors.ServiceUnavailable) {
		t.Fatalf("expected service unavailable, got %v", err)
	}
}
