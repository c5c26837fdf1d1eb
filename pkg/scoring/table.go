// Package scoring converts raw activity distances into weighted distances.
//
// A Table maps sport type labels to non-negative multipliers. The Provider
// reads the administrative table on every call so a weight change is seen by
// the next scoring operation, and falls back to DefaultTable when the store
// cannot be read.
package scoring

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Table maps a sport type label to its multiplier.
type Table map[string]decimal.Decimal

// DefaultTable returns the built-in weights. Run is the baseline.
func DefaultTable() Table {
	return Table{
		"Run":  decimal.NewFromFloat(1.0),
		"Ride": decimal.NewFromFloat(0.25),
		"Swim": decimal.NewFromFloat(4.0),
	}
}

var defaults = DefaultTable()

// Weight returns the multiplier for sport: the table's value if present,
// otherwise the built-in default, otherwise zero.
func (t Table) Weight(sportType string) decimal.Decimal {
	key := normalizeSport(sportType)
	if w, ok := t[key]; ok {
		return w
	}
	if w, ok := defaults[key]; ok {
		return w
	}
	return decimal.Zero
}

// Allowed reports whether sport currently scores above zero.
func (t Table) Allowed(sportType string) bool {
	return t.Weight(sportType).IsPositive()
}

// Clone returns an independent copy.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Entry is one sport/weight pair, used for stable listings.
type Entry struct {
	SportType string
	Weight    decimal.Decimal
}

// Sorted lists the table by descending weight, then sport name.
func (t Table) Sorted() []Entry {
	out := make([]Entry, 0, len(t))
	for k, v := range t {
		out = append(out, Entry{SportType: k, Weight: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Weight.Cmp(out[j].Weight); c != 0 {
			return c > 0
		}
		return out[i].SportType < out[j].SportType
	})
	return out
}

func normalizeSport(s string) string {
	return strings.TrimSpace(s)
}
