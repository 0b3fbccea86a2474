package presence

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"homeplan/internal/household"
	"homeplan/internal/ics"
	appLog "homeplan/internal/log"
	"homeplan/internal/metrics"
)

// Service owns the current presence snapshot. Refreshes are serialized and
// only a successful build replaces what is stored.
type Service struct {
	builder *Builder
	store   Store
	roster  *household.Roster
	weeks   int

	mu sync.Mutex
}

// NewService ties a builder to a store. defaultWeeks is used for lazy
// builds and for Refresh calls that pass a non-positive window.
func NewService(builder *Builder, store Store, roster *household.Roster, defaultWeeks int) *Service {
	if defaultWeeks <= 0 {
		defaultWeeks = 3
	}
	return &Service{builder: builder, store: store, roster: roster, weeks: defaultWeeks}
}

// Current returns the stored table, building one first if none exists.
func (s *Service) Current(ctx context.Context) (*Table, error) {
	t, err := s.store.Load()
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, ErrNoSnapshot) {
		return nil, err
	}
	appLog.Info("no presence snapshot yet, building")
	return s.Refresh(ctx, 0)
}

// Snapshot returns the stored table without ever touching the calendar.
// It returns ErrNoSnapshot when no build has succeeded yet.
func (s *Service) Snapshot() (*Table, error) {
	return s.store.Load()
}

// Refresh rebuilds and stores the table. On failure the previous snapshot
// is left untouched.
func (s *Service) Refresh(ctx context.Context, weeks int) (*Table, error) {
	if weeks <= 0 {
		weeks = s.weeks
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	started := time.Now()
	t, err := s.builder.Build(ctx, weeks)
	if err != nil {
		metrics.PresenceRefresh(started, 0, err)
		return nil, err
	}
	if err := s.store.Save(t); err != nil {
		metrics.PresenceRefresh(started, 0, err)
		appLog.Error("presence snapshot save failed", err)
		return nil, err
	}
	metrics.PresenceRefresh(started, len(t.MatchedEvents), nil)
	return t, nil
}

// Absences flattens a table's matched events into exportable spans,
// sorted by first day then member.
func (s *Service) Absences(t *Table) []ics.Absence {
	out := make([]ics.Absence, 0, len(t.MatchedEvents))
	for _, m := range t.MatchedEvents {
		first, err := time.Parse(DateLayout, m.StartDate)
		if err != nil {
			continue
		}
		last, err := time.Parse(DateLayout, m.EndDate)
		if err != nil {
			continue
		}
		out = append(out, ics.Absence{
			Member:     m.Member,
			MemberName: s.roster.DisplayName(m.Member),
			Title:      m.Title,
			First:      first,
			Last:       last,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].First.Equal(out[j].First) {
			return out[i].First.Before(out[j].First)
		}
		return out[i].Member < out[j].Member
	})
	return out
}
