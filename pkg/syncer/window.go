package syncer

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the format of the configured window bounds.
const DateLayout = "2006-01-02"

// Window bounds a historical sync. End is exclusive and optional: it is the
// UTC midnight after the configured end date, so that whole day is covered.
type Window struct {
	Start time.Time
	End   *time.Time
}

// ParseWindow reads YYYY-MM-DD bounds as UTC midnights. An empty start means
// no window is configured and returns nil.
func ParseWindow(start, end string) (*Window, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" {
		if end != "" {
			return nil, fmt.Errorf("sync end date %q set without a start date", end)
		}
		return nil, nil
	}
	s, err := time.ParseInLocation(DateLayout, start, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("sync start date: %w", err)
	}
	w := &Window{Start: s}
	if end != "" {
		e, err := time.ParseInLocation(DateLayout, end, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("sync end date: %w", err)
		}
		if e.Before(s) {
			return nil, fmt.Errorf("sync end date %s is before start date %s", end, start)
		}
		e = e.AddDate(0, 0, 1)
		w.End = &e
	}
	return w, nil
}

func (w *Window) String() string {
	if w == nil {
		return "none"
	}
	if w.End == nil {
		return w.Start.Format(DateLayout) + ".."
	}
	return w.Start.Format(DateLayout) + ".." + w.LastDay().Format(DateLayout)
}

// LastDay is the last calendar day the window covers.
func (w *Window) LastDay() time.Time {
	if w == nil || w.End == nil {
		return time.Time{}
	}
	return w.End.AddDate(0, 0, -1)
}
