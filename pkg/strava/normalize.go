package strava

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/quatton/podium/pkg/sport"
)

// flexDistance accepts the distance shapes seen across API and client
// versions: a bare number, a numeric string, or a quantity object carrying
// num, magnitude or value.
type flexDistance float64

func (d *flexDistance) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*d = 0
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*d = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("distance %q: %w", s, err)
		}
		*d = flexDistance(f)
		return nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		for _, key := range []string{"num", "magnitude", "value"} {
			if raw, ok := obj[key]; ok {
				return d.UnmarshalJSON(raw)
			}
		}
		return fmt.Errorf("distance object without num, magnitude or value: %s", b)
	default:
		var f float64
		if err := json.Unmarshal(b, &f); err != nil {
			return fmt.Errorf("distance: %w", err)
		}
		*d = flexDistance(f)
		return nil
	}
}

// flexSportType accepts a bare string or an enum wrapper object with root or
// value.
type flexSportType string

func (s *flexSportType) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if b[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		for _, key := range []string{"root", "value"} {
			if raw, ok := obj[key]; ok {
				return s.UnmarshalJSON(raw)
			}
		}
		return fmt.Errorf("sport type object without root or value: %s", b)
	}
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("sport type: %w", err)
	}
	*s = flexSportType(strings.TrimSpace(str))
	return nil
}

type apiActivity struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	Distance  flexDistance  `json:"distance"`
	Type      flexSportType `json:"type"`
	SportType flexSportType `json:"sport_type"`
	StartDate time.Time     `json:"start_date"`
}

// decodeRecord normalizes one raw activity payload.
func decodeRecord(raw json.RawMessage) (sport.Record, error) {
	var a apiActivity
	if err := json.Unmarshal(raw, &a); err != nil {
		return sport.Record{}, err
	}
	kind := string(a.Type)
	if kind == "" {
		kind = string(a.SportType)
	}
	return sport.Record{
		ID:             a.ID,
		Name:           a.Name,
		SportType:      kind,
		DistanceMeters: float64(a.Distance),
		StartDate:      a.StartDate,
		Raw:            raw,
	}, nil
}
