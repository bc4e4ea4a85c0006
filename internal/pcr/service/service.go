package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"event_messaging_backend/internal/events"
	"event_messaging_backend/internal/pcr/repository"
	"event_messaging_backend/internal/pcr/score"
	"event_messaging_backend/platform/apperr"
	"event_messaging_backend/platform/logger"
)

type Service struct {
	repo *repository.Repository
	bus  events.Bus
	log  *logger.Logger
}

func New(repo *repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// Record writes one scored signal to the ledger and returns the updated
// subject aggregate. Scores run 0 to 10.
func (s *Service) Record(ctx context.Context, entry repository.Entry) (score.Aggregate, error) {
	if entry.Score < 0 || entry.Score > 10 {
		return score.Aggregate{}, apperr.Validation("score must be between 0 and 10")
	}
	if !score.ValidSubjectType(string(entry.SubjectType)) {
		return score.Aggregate{}, apperr.Validation("unknown subject type")
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	agg, err := s.repo.Record(ctx, entry)
	if err != nil {
		return score.Aggregate{}, err
	}

	s.bus.Publish(ctx, events.PcrRecorded{
		BaseEvent:     events.NewBaseEvent(),
		LedgerEntryID: entry.ID,
		SubjectType:   string(entry.SubjectType),
		SubjectID:     entry.SubjectID,
		ContractorID:  entry.ContractorID,
		Score:         entry.Score,
	})
	return agg, nil
}

// Summary is the read model for one subject.
type Summary struct {
	SubjectType string  `json:"subjectType"`
	SubjectID   string  `json:"subjectId"`
	SampleSize  int     `json:"sampleSize"`
	Mean        float64 `json:"mean"`
	Trend       float64 `json:"trend"`
	Direction   string  `json:"direction"`
}

func (s *Service) GetSummary(ctx context.Context, subjectType string, subjectID uuid.UUID) (Summary, error) {
	if !score.ValidSubjectType(subjectType) {
		return Summary{}, apperr.Validation("unknown subject type")
	}

	row, err := s.repo.GetAggregate(ctx, score.SubjectType(subjectType), subjectID)
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		SubjectType: string(row.SubjectType),
		SubjectID:   row.SubjectID.String(),
		SampleSize:  row.Aggregate.SampleSize,
		Mean:        row.Aggregate.Mean,
		Trend:       row.Aggregate.Trend,
		Direction:   row.Direction,
	}, nil
}

// ComputeQuarterlyPowerConfidence rebuilds partner scores from the last
// quarter of ledger rows. It runs off the per-message path, from the
// periodic scheduler task.
func (s *Service) ComputeQuarterlyPowerConfidence(ctx context.Context, now time.Time) (int, error) {
	since := now.AddDate(0, -3, 0)

	aggs, err := s.repo.QuarterAggregates(ctx, since)
	if err != nil {
		return 0, err
	}

	quarter := fmt.Sprintf("%dQ%d", now.Year(), (int(now.Month())-1)/3+1)

	computed := 0
	for partnerID, agg := range aggs {
		badges := score.Badges(agg)
		confidence := score.PowerConfidence(agg, badges)
		if err := s.repo.SavePowerConfidence(ctx, partnerID, quarter, confidence, badges); err != nil {
			s.log.Error("power confidence save failed",
				"partner_id", partnerID,
				"quarter", quarter,
				"error", err.Error(),
			)
			continue
		}
		computed++
	}

	s.log.Info("quarterly power confidence computed",
		"quarter", quarter,
		"partners", computed,
	)
	return computed, nil
}
