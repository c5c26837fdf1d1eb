// Package memory implements the store contracts in process memory. It backs
// tests and the single-binary development mode.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/quatton/podium/pkg/sport"
	"github.com/quatton/podium/pkg/store"
	"github.com/shopspring/decimal"
)

type Users struct {
	mu    sync.RWMutex
	users map[int64]sport.User
}

func NewUsers() *Users {
	return &Users{users: make(map[int64]sport.User)}
}

func cloneUser(u sport.User) sport.User {
	if u.AthleteID != nil {
		id := *u.AthleteID
		u.AthleteID = &id
	}
	if u.Credential != nil {
		c := *u.Credential
		u.Credential = &c
	}
	return u
}

func (s *Users) Get(_ context.Context, id int64) (*sport.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	c := cloneUser(u)
	return &c, nil
}

func (s *Users) GetByAthlete(_ context.Context, athleteID int64) (*sport.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.AthleteID != nil && *u.AthleteID == athleteID {
			c := cloneUser(u)
			return &c, nil
		}
	}
	return nil, nil
}

func (s *Users) ListByIDs(_ context.Context, ids []int64) ([]sport.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]sport.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (s *Users) ListLinked(_ context.Context) ([]sport.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]sport.User, 0, len(s.users))
	for _, u := range s.users {
		if u.Credential != nil {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TelegramID < out[j].TelegramID })
	return out, nil
}

func (s *Users) Upsert(_ context.Context, u *sport.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[u.TelegramID]
	if !ok {
		s.users[u.TelegramID] = cloneUser(*u)
		return nil
	}
	if u.PhoneNumber != "" {
		cur.PhoneNumber = u.PhoneNumber
	}
	if u.IsVerified {
		cur.IsVerified = true
	}
	if u.FirstName != "" {
		cur.FirstName = u.FirstName
	}
	if u.LastName != "" {
		cur.LastName = u.LastName
	}
	if u.TelegramUsername != "" {
		cur.TelegramUsername = u.TelegramUsername
	}
	if u.AthleteID != nil {
		id := *u.AthleteID
		cur.AthleteID = &id
	}
	if u.Credential != nil {
		c := *u.Credential
		cur.Credential = &c
	}
	s.users[u.TelegramID] = cur
	return nil
}

func (s *Users) SaveCredential(_ context.Context, id int64, cred sport.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	u.Credential = &cred
	s.users[id] = u
	return nil
}

func (s *Users) UpdateName(_ context.Context, id int64, first, last string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return false, nil
	}
	u.FirstName, u.LastName = first, last
	s.users[id] = u
	return true, nil
}

func (s *Users) IsAuthorized(_ context.Context, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return ok && u.IsVerified, nil
}

type Activities struct {
	mu   sync.RWMutex
	rows map[int64]sport.Activity
}

func NewActivities() *Activities {
	return &Activities{rows: make(map[int64]sport.Activity)}
}

func (s *Activities) UpsertMany(_ context.Context, acts []sport.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range acts {
		s.rows[a.ID] = a
	}
	return nil
}

func (s *Activities) sorted(filter func(sport.Activity) bool) []sport.Activity {
	out := make([]sport.Activity, 0, len(s.rows))
	for _, a := range s.rows {
		if filter == nil || filter(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Activities) ListByUser(_ context.Context, userID int64) ([]sport.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(func(a sport.Activity) bool { return a.UserID == userID }), nil
}

func (s *Activities) ListAll(_ context.Context) ([]sport.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(nil), nil
}

func (s *Activities) UpdateWeighted(_ context.Context, weighted map[int64]decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, w := range weighted {
		if a, ok := s.rows[id]; ok {
			a.WeightedDistance = w
			s.rows[id] = a
		}
	}
	return nil
}

func (s *Activities) DeleteMany(_ context.Context, userID int64, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if a, ok := s.rows[id]; ok && a.UserID == userID {
			delete(s.rows, id)
		}
	}
	return nil
}

func (s *Activities) Recent(_ context.Context, userID int64, limit int) ([]sport.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.sorted(func(a sport.Activity) bool { return a.UserID == userID })
	out := make([]sport.Activity, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *Activities) Count(_ context.Context, userID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.rows {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

type Weights struct {
	mu   sync.RWMutex
	rows map[string]decimal.Decimal
}

func NewWeights() *Weights {
	return &Weights{rows: make(map[string]decimal.Decimal)}
}

func (s *Weights) ListWeights(_ context.Context) ([]sport.Weight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]sport.Weight, 0, len(s.rows))
	for k, v := range s.rows {
		out = append(out, sport.Weight{SportType: k, Weight: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SportType < out[j].SportType })
	return out, nil
}

func (s *Weights) SetWeight(_ context.Context, sportType string, w decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[sportType] = w
	return nil
}

func (s *Weights) DeleteWeight(_ context.Context, sportType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, sportType)
	return nil
}

var (
	_ store.Users      = (*Users)(nil)
	_ store.Activities = (*Activities)(nil)
	_ store.Weights    = (*Weights)(nil)
)
