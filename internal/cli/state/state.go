// Package state persists the judgectl access token between sessions.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenState is the persisted login of judgectl.
type TokenState struct {
	AccessToken string    `json:"access_token"`
	BaseURL     string    `json:"base_url,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewTokenState records token for baseURL. The expiry is read from the token's
// claims without verifying the signature; the server still does that.
func NewTokenState(token, baseURL string, now time.Time) TokenState {
	st := TokenState{AccessToken: token, BaseURL: baseURL, UpdatedAt: now}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil && claims.ExpiresAt != nil {
		st.ExpiresAt = claims.ExpiresAt.Time
	}
	return st
}

// Expired reports whether the token is known to be past its expiry.
func (s TokenState) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Load reads path. A missing or empty file is an empty state.
func Load(path string) (TokenState, error) {
	var st TokenState
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return st, nil
	case err != nil:
		return st, fmt.Errorf("read token state failed: %w", err)
	case len(data) == 0:
		return st, nil
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("parse token state failed: %w", err)
	}
	return st, nil
}

// Save writes st readable by the owner only.
func Save(path string, st TokenState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token state dir failed: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal token state failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write token state failed: %w", err)
	}
	return nil
}

func Clear(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token state failed: %w", err)
	}
	return nil
}
