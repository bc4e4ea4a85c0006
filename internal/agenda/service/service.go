// Package service implements the session/agenda read service with hybrid
// enrichment. Agendas are entered incrementally by organizers, so records
// range from bare title+time rows to fully enriched sessions; the service
// grades each record instead of failing on sparse ones.
package service

import (
	"context"
	"sort"
	"time"

	"event_messaging_backend/internal/agenda/repository"

	"github.com/google/uuid"
)

// enrichmentFieldCount is the number of optional enrichment fields that
// feed the richness score: synopsis, focus areas, takeaways, keywords.
const enrichmentFieldCount = 4

// SessionView is a session record plus derived quality metadata.
type SessionView struct {
	repository.Session
	DataRichnessScore float64
}

// Service is the read-only agenda accessor.
type Service struct {
	repo *repository.Repository
}

// New creates the agenda service.
func New(repo *repository.Repository) *Service {
	return &Service{repo: repo}
}

// Richness computes the 0-1 data richness score for a session: the
// fraction of optional enrichment fields that are populated.
func Richness(s repository.Session) float64 {
	populated := 0
	if s.Synopsis != nil && *s.Synopsis != "" {
		populated++
	}
	if len(s.FocusAreas) > 0 {
		populated++
	}
	if len(s.Takeaways) > 0 {
		populated++
	}
	if len(s.Keywords) > 0 {
		populated++
	}
	return float64(populated) / float64(enrichmentFieldCount)
}

func view(s repository.Session) SessionView {
	return SessionView{Session: s, DataRichnessScore: Richness(s)}
}

// GetSessionByID returns one graded session record.
func (s *Service) GetSessionByID(ctx context.Context, id uuid.UUID) (SessionView, error) {
	rec, err := s.repo.GetSessionByID(ctx, id)
	if err != nil {
		return SessionView{}, err
	}
	return view(rec), nil
}

// GetEventSessions returns all graded agenda items for an event in start order.
func (s *Service) GetEventSessions(ctx context.Context, eventID uuid.UUID) ([]SessionView, error) {
	recs, err := s.repo.GetEventSessions(ctx, eventID)
	if err != nil {
		return nil, err
	}
	views := make([]SessionView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, view(rec))
	}
	return views, nil
}

// RecommendedSessions returns up to limit talk sessions ordered richest
// first (ties broken by start time), so downstream recommendation logic
// prefers well-described records without hard-failing on sparse ones.
func (s *Service) RecommendedSessions(ctx context.Context, eventID uuid.UUID, limit int) ([]SessionView, error) {
	all, err := s.GetEventSessions(ctx, eventID)
	if err != nil {
		return nil, err
	}

	talks := make([]SessionView, 0, len(all))
	for _, sv := range all {
		if sv.Kind == repository.KindSession {
			talks = append(talks, sv)
		}
	}

	sortRichestFirst(talks)

	if limit > 0 && len(talks) > limit {
		talks = talks[:limit]
	}
	return talks, nil
}

func sortRichestFirst(talks []SessionView) {
	sort.SliceStable(talks, func(i, j int) bool {
		if talks[i].DataRichnessScore != talks[j].DataRichnessScore {
			return talks[i].DataRichnessScore > talks[j].DataRichnessScore
		}
		return talks[i].StartsAt.Before(talks[j].StartsAt)
	})
}

// Breaks returns the break blocks of an event in start order.
func (s *Service) Breaks(ctx context.Context, eventID uuid.UUID) ([]repository.Session, error) {
	return s.itemsOfKind(ctx, eventID, repository.KindBreak)
}

// LunchBlock returns the lunch block, or nil when the agenda has none.
func (s *Service) LunchBlock(ctx context.Context, eventID uuid.UUID) (*repository.Session, error) {
	blocks, err := s.itemsOfKind(ctx, eventID, repository.KindLunch)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, nil
	}
	return &blocks[0], nil
}

func (s *Service) itemsOfKind(ctx context.Context, eventID uuid.UUID, kind repository.ItemKind) ([]repository.Session, error) {
	all, err := s.repo.GetEventSessions(ctx, eventID)
	if err != nil {
		return nil, err
	}
	var out []repository.Session
	for _, item := range all {
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	return out, nil
}

// Sponsors returns the event's exhibiting partners.
func (s *Service) Sponsors(ctx context.Context, eventID uuid.UUID) ([]repository.Sponsor, error) {
	return s.repo.GetEventSponsors(ctx, eventID)
}

// GetEvent returns the event record.
func (s *Service) GetEvent(ctx context.Context, eventID uuid.UUID) (repository.Event, error) {
	return s.repo.GetEvent(ctx, eventID)
}

// ActiveEventFor reports the checked-in, time-active event for a
// contractor right now, or nil.
func (s *Service) ActiveEventFor(ctx context.Context, contractorID uuid.UUID, now time.Time) (*repository.Event, error) {
	return s.repo.GetActiveEventForContractor(ctx, contractorID, now)
}
