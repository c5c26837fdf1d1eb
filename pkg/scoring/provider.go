package scoring

import (
	"context"
	"errors"
	"fmt"

	"github.com/quatton/podium/pkg/perr"
	"github.com/quatton/podium/pkg/plog"
	"github.com/quatton/podium/pkg/sport"
	"github.com/shopspring/decimal"
)

var (
	ErrNegativeWeight = errors.New("weight must not be negative")
	ErrEmptySport     = errors.New("sport type must not be empty")
)

// WeightStore persists administrative weight overrides.
type WeightStore interface {
	ListWeights(ctx context.Context) ([]sport.Weight, error)
	SetWeight(ctx context.Context, sportType string, weight decimal.Decimal) error
	DeleteWeight(ctx context.Context, sportType string) error
}

// Provider serves the current weight table.
type Provider struct {
	store  WeightStore
	logger *plog.Logger
}

func NewProvider(store WeightStore, logger *plog.Logger) *Provider {
	if logger == nil {
		logger = plog.NewDiscard()
	}
	return &Provider{store: store, logger: logger}
}

// Current reads the stored overrides. It never fails: a store error is logged
// and the built-in defaults are returned instead.
func (p *Provider) Current(ctx context.Context) Table {
	if p.store == nil {
		return DefaultTable()
	}
	rows, err := p.store.ListWeights(ctx)
	if err != nil {
		p.logger.Warn("weight table unavailable, using defaults", "error", err)
		return DefaultTable()
	}
	t := make(Table, len(rows))
	for _, r := range rows {
		key := normalizeSport(r.SportType)
		if key == "" {
			continue
		}
		if r.Weight.IsNegative() {
			p.logger.Warn("ignoring negative weight", "sport", key, "weight", r.Weight.String())
			continue
		}
		t[key] = r.Weight
	}
	return t
}

// Effective is Current merged over the defaults, which is what users see.
func (p *Provider) Effective(ctx context.Context) Table {
	out := DefaultTable()
	for k, v := range p.Current(ctx) {
		out[k] = v
	}
	return out
}

// Set stores an override for sportType.
func (p *Provider) Set(ctx context.Context, sportType string, weight decimal.Decimal) error {
	key := normalizeSport(sportType)
	if key == "" {
		return perr.New(perr.CodeValidation, ErrEmptySport)
	}
	if weight.IsNegative() {
		return perr.New(perr.CodeValidation, fmt.Errorf("%s: %w", key, ErrNegativeWeight))
	}
	if err := p.store.SetWeight(ctx, key, weight); err != nil {
		return perr.New(perr.CodeStore, fmt.Errorf("set weight %s: %w", key, err))
	}
	p.logger.Info("weight updated", "sport", key, "weight", weight.String())
	return nil
}

// Reset removes the override so the sport falls back to its default.
func (p *Provider) Reset(ctx context.Context, sportType string) error {
	key := normalizeSport(sportType)
	if key == "" {
		return perr.New(perr.CodeValidation, ErrEmptySport)
	}
	if err := p.store.DeleteWeight(ctx, key); err != nil {
		return perr.New(perr.CodeStore, fmt.Errorf("reset weight %s: %w", key, err))
	}
	p.logger.Info("weight reset", "sport", key)
	return nil
}

// Import stores every entry of t, stopping at the first failure.
func (p *Provider) Import(ctx context.Context, t Table) error {
	for _, e := range t.Sorted() {
		if err := p.Set(ctx, e.SportType, e.Weight); err != nil {
			return err
		}
	}
	return nil
}
