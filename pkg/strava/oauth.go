package strava

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/quatton/podium/pkg/sport"
	"golang.org/x/oauth2"
)

var ErrNoRefreshToken = errors.New("strava: credential has no refresh token")

// AuthCodeURL builds the consent URL. state is echoed back on the callback.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("approval_prompt", "force"))
}

// ExchangeCode trades an authorization code for a credential and the
// athlete profile bundled in the token response.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*sport.Credential, *sport.Athlete, error) {
	tok, err := c.oauth.Exchange(c.oauthContext(ctx), code)
	if err != nil {
		return nil, nil, fmt.Errorf("exchange code: %w", err)
	}
	cred := credentialFromToken(tok)
	athlete, err := athleteFromToken(tok)
	if err != nil {
		return nil, nil, err
	}
	return cred, athlete, nil
}

// Refresh exchanges a refresh token for a new credential.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*sport.Credential, error) {
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	// An empty access token forces the token source to refresh.
	src := c.oauth.TokenSource(c.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	return credentialFromToken(tok), nil
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

func credentialFromToken(tok *oauth2.Token) *sport.Credential {
	expiry := tok.Expiry
	if v, ok := numberExtra(tok.Extra("expires_at")); ok && v > 0 {
		expiry = time.Unix(int64(v), 0)
	}
	return &sport.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiry.UTC(),
	}
}

func athleteFromToken(tok *oauth2.Token) (*sport.Athlete, error) {
	raw, ok := tok.Extra("athlete").(map[string]any)
	if !ok {
		return nil, errors.New("strava: token response has no athlete")
	}
	id, ok := numberExtra(raw["id"])
	if !ok || id <= 0 {
		return nil, errors.New("strava: token response has no athlete id")
	}
	a := &sport.Athlete{ID: int64(id)}
	a.FirstName, _ = raw["firstname"].(string)
	a.LastName, _ = raw["lastname"].(string)
	return a, nil
}

func numberExtra(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
