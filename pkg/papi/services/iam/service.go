// Package iam issues and checks the bearer tokens that guard the
// administrative endpoints.
package iam

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// TokenAudience is the expected audience claim for admin tokens.
	TokenAudience = "podium-admin"
	RoleAdmin     = "admin"

	tokenIssuer = "podium"
)

var ErrNotAdmin = errors.New("token does not carry the admin role")

type IAMService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIAMService(secret string, ttl time.Duration) *IAMService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IAMService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// IssueToken mints an admin token for subject.
func (s *IAMService) IssueToken(subject string) (string, error) {
	now := s.now()
	claims := ToClaims(&AdminClaims{
		Subject: subject,
		Role:    RoleAdmin,
		Iss:     tokenIssuer,
		Aud:     TokenAudience,
		Iat:     now.Unix(),
		Exp:     now.Add(s.ttl).Unix(),
	})
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ValidateToken verifies signature, expiry, audience and role.
func (s *IAMService) ValidateToken(tokenString string) (*AdminClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	ac, err := FromMapClaims(mc)
	if err != nil {
		return nil, err
	}
	if ac.Aud != TokenAudience {
		return nil, fmt.Errorf("invalid audience: expected %q, got %q", TokenAudience, ac.Aud)
	}
	if ac.Role != RoleAdmin {
		return nil, ErrNotAdmin
	}
	return ac, nil
}
