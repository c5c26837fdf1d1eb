// Package link connects a chat user to their fitness account through the
// provider's OAuth code flow.
package link

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/quatton/podium/pkg/kv"
	"github.com/quatton/podium/pkg/plog"
	"github.com/quatton/podium/pkg/sport"
	"github.com/quatton/podium/pkg/store"
)

const (
	stateIssuer   = "podium"
	kvPrefixState = "link:state:"
)

var (
	ErrStateAlreadyUsed = errors.New("state token already used")
	ErrInvalidState     = errors.New("invalid state token")
	ErrNotConfigured    = errors.New("strava oauth not configured")
)

// OAuth is the provider side of the code flow.
type OAuth interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*sport.Credential, *sport.Athlete, error)
}

// SyncQueue receives the background sync started after a link.
type SyncQueue interface {
	SubmitUser(userID int64) bool
}

// StateClaims binds an OAuth state to the chat user that asked to connect.
type StateClaims struct {
	TelegramID int64  `json:"tid"`
	StateID    string `json:"state_id"`
	jwt.RegisteredClaims
}

type Service struct {
	oauth  OAuth
	users  store.Users
	kv     kv.Store
	queue  SyncQueue
	secret []byte
	ttl    time.Duration
	logger *plog.Logger
	now    func() time.Time
}

type Options struct {
	OAuth    OAuth
	Users    store.Users
	KV       kv.Store
	Queue    SyncQueue
	Secret   string
	StateTTL time.Duration
	Logger   *plog.Logger
}

func NewService(opts Options) *Service {
	if opts.StateTTL <= 0 {
		opts.StateTTL = 10 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = plog.NewDiscard()
	}
	return &Service{
		oauth:  opts.OAuth,
		users:  opts.Users,
		kv:     opts.KV,
		queue:  opts.Queue,
		secret: []byte(opts.Secret),
		ttl:    opts.StateTTL,
		logger: opts.Logger,
		now:    time.Now,
	}
}

// GenerateState signs a short-lived state for telegramID and records its id
// in KV so it can be redeemed once.
func (s *Service) GenerateState(ctx context.Context, telegramID int64) (string, error) {
	now := s.now()
	claims := StateClaims{
		TelegramID: telegramID,
		StateID:    uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    stateIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", err
	}

	if err := s.kv.Set(ctx, kvPrefixState+claims.StateID, []byte("1"), s.ttl); err != nil {
		return "", fmt.Errorf("failed to store state: %w", err)
	}
	return signed, nil
}

// ValidateState checks the signature and expiry of state and consumes it.
// A second redemption returns ErrStateAlreadyUsed.
func (s *Service) ValidateState(ctx context.Context, state string) (*StateClaims, error) {
	parsed, err := jwt.ParseWithClaims(state, &StateClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(stateIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	claims, ok := parsed.Claims.(*StateClaims)
	if !ok || !parsed.Valid || claims.StateID == "" {
		return nil, ErrInvalidState
	}

	if _, err := s.kv.GetDelete(ctx, kvPrefixState+claims.StateID); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrStateAlreadyUsed
		}
		return nil, fmt.Errorf("failed to validate state: %w", err)
	}
	return claims, nil
}

// AuthorizeURL starts a link for telegramID.
func (s *Service) AuthorizeURL(ctx context.Context, telegramID int64) (string, error) {
	if s.oauth == nil {
		return "", ErrNotConfigured
	}
	state, err := s.GenerateState(ctx, telegramID)
	if err != nil {
		return "", err
	}
	return s.oauth.AuthCodeURL(state), nil
}

// Complete redeems state, exchanges code and stores the credential on the
// user. A background sync is queued for the freshly linked user.
func (s *Service) Complete(ctx context.Context, code, state string) (*sport.User, error) {
	if s.oauth == nil {
		return nil, ErrNotConfigured
	}
	claims, err := s.ValidateState(ctx, state)
	if err != nil {
		return nil, err
	}

	cred, athlete, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	u := &sport.User{
		TelegramID: claims.TelegramID,
		Credential: cred,
	}
	if athlete != nil {
		id := athlete.ID
		u.AthleteID = &id
		u.FirstName = athlete.FirstName
		u.LastName = athlete.LastName
	}

	// Names already chosen by the user win over the provider profile.
	if existing, err := s.users.Get(ctx, claims.TelegramID); err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	} else if existing != nil && (existing.FirstName != "" || existing.LastName != "") {
		u.FirstName, u.LastName = "", ""
	}

	if err := s.users.Upsert(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.Info("fitness account linked", "user_id", claims.TelegramID)
	if s.queue != nil && !s.queue.SubmitUser(claims.TelegramID) {
		s.logger.Warn("initial sync not queued", "user_id", claims.TelegramID)
	}

	linked, err := s.users.Get(ctx, claims.TelegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}
	return linked, nil
}
