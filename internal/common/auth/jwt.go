package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	pkgerrors "codejudge/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

// Roles known to the judge. judge and admin may rejudge and read any submission.
const (
	RoleAdmin      = "admin"
	RoleJudge      = "judge"
	RoleContestant = "contestant"
	RoleVisitor    = "visitor"
)

// Config holds token verification settings.
type Config struct {
	Secret string        `yaml:"secret"`
	Issuer string        `yaml:"issuer"`
	TTL    time.Duration `yaml:"ttl"`
}

// UserInfo is the identity carried by an access token.
type UserInfo struct {
	ID   int64
	Role string
}

// IsJudge reports whether the user may act on other users' submissions.
func (u UserInfo) IsJudge() bool {
	return strings.EqualFold(u.Role, RoleAdmin) || strings.EqualFold(u.Role, RoleJudge)
}

// CanSubmit reports whether the user may create submissions.
func (u UserInfo) CanSubmit() bool {
	return u.IsJudge() || strings.EqualFold(u.Role, RoleContestant)
}

type tokenClaims struct {
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenService verifies and issues HS256 access tokens.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewTokenService(cfg Config) *TokenService {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
	}
}

// Authenticate parses raw and returns the identity it carries.
func (s *TokenService) Authenticate(raw string) (UserInfo, error) {
	if raw == "" {
		return UserInfo{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	claims, err := s.parseToken(raw)
	if err != nil {
		return UserInfo{}, err
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return UserInfo{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	return UserInfo{ID: userID, Role: claims.Role}, nil
}

// Issue signs an access token for user.
func (s *TokenService) Issue(user UserInfo, now time.Time) (string, error) {
	if len(s.secret) == 0 {
		return "", pkgerrors.New(pkgerrors.ServiceUnavailable).WithMessage("token secret is not configured")
	}
	claims := tokenClaims{
		Role:      user.Role,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *TokenService) parseToken(raw string) (*tokenClaims, error) {
	if len(s.secret) == 0 {
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	parsed, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, pkgerrors.New(pkgerrors.TokenExpired)
		}
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	if claims.TokenType != "access" || claims.Subject == "" {
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	return claims, nil
}
