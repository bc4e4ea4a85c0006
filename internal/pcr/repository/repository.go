package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"event_messaging_backend/internal/pcr/score"
	"event_messaging_backend/platform/apperr"
)

// Entry is one immutable ledger row.
type Entry struct {
	ID           uuid.UUID
	SubjectType  score.SubjectType
	SubjectID    uuid.UUID
	ContractorID uuid.UUID
	EventID      uuid.UUID
	Score        float64
	SourceType   string
	CreatedAt    time.Time
}

// AggregateRow is the persisted rolling summary for one subject.
type AggregateRow struct {
	SubjectType score.SubjectType
	SubjectID   uuid.UUID
	Aggregate   score.Aggregate
	Direction   string
	UpdatedAt   time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record appends the ledger row and folds it into the subject aggregate
// in one transaction. The aggregate row is locked for the fold so
// concurrent scores for the same subject serialize.
func (r *Repository) Record(ctx context.Context, entry Entry) (score.Aggregate, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return score.Aggregate{}, err
	}
	defer tx.Rollback(ctx)

	insertLedger := `
		INSERT INTO pcr_ledger
			(id, subject_type, subject_id, contractor_id, event_id, score, source_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if _, err := tx.Exec(ctx, insertLedger,
		entry.ID, entry.SubjectType, entry.SubjectID, entry.ContractorID,
		entry.EventID, entry.Score, entry.SourceType,
	); err != nil {
		return score.Aggregate{}, err
	}

	selectAgg := `
		SELECT sample_size, mean_score, trend
		FROM pcr_aggregates
		WHERE subject_type = $1 AND subject_id = $2
		FOR UPDATE`

	var agg score.Aggregate
	err = tx.QueryRow(ctx, selectAgg, entry.SubjectType, entry.SubjectID).
		Scan(&agg.SampleSize, &agg.Mean, &agg.Trend)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return score.Aggregate{}, err
	}

	agg = score.Fold(agg, entry.Score)

	upsertAgg := `
		INSERT INTO pcr_aggregates
			(subject_type, subject_id, sample_size, mean_score, trend, trend_direction, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (subject_type, subject_id) DO UPDATE
		SET sample_size = EXCLUDED.sample_size,
		    mean_score = EXCLUDED.mean_score,
		    trend = EXCLUDED.trend,
		    trend_direction = EXCLUDED.trend_direction,
		    updated_at = NOW()`

	if _, err := tx.Exec(ctx, upsertAgg,
		entry.SubjectType, entry.SubjectID,
		agg.SampleSize, agg.Mean, agg.Trend, agg.Direction(),
	); err != nil {
		return score.Aggregate{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return score.Aggregate{}, err
	}
	return agg, nil
}

// GetAggregate reads one subject's rolling summary.
func (r *Repository) GetAggregate(ctx context.Context, subjectType score.SubjectType, subjectID uuid.UUID) (AggregateRow, error) {
	query := `
		SELECT subject_type, subject_id, sample_size, mean_score, trend, trend_direction, updated_at
		FROM pcr_aggregates
		WHERE subject_type = $1 AND subject_id = $2`

	var row AggregateRow
	err := r.pool.QueryRow(ctx, query, subjectType, subjectID).Scan(
		&row.SubjectType, &row.SubjectID,
		&row.Aggregate.SampleSize, &row.Aggregate.Mean, &row.Aggregate.Trend,
		&row.Direction, &row.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return AggregateRow{}, apperr.NotFound("no scores recorded for subject")
	}
	if err != nil {
		return AggregateRow{}, err
	}
	return row, nil
}

// QuarterAggregates rebuilds per-partner aggregates from the ledger rows
// of the given window. Subjects of type speaker and sponsor are the
// partner-facing ones the quarterly job scores.
func (r *Repository) QuarterAggregates(ctx context.Context, since time.Time) (map[uuid.UUID]score.Aggregate, error) {
	query := `
		SELECT subject_id, score
		FROM pcr_ledger
		WHERE subject_type IN ('speaker', 'sponsor')
		  AND created_at >= $1
		ORDER BY subject_id, created_at`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	aggs := make(map[uuid.UUID]score.Aggregate)
	for rows.Next() {
		var (
			subjectID uuid.UUID
			value     float64
		)
		if err := rows.Scan(&subjectID, &value); err != nil {
			return nil, err
		}
		aggs[subjectID] = score.Fold(aggs[subjectID], value)
	}
	return aggs, rows.Err()
}

// SavePowerConfidence stores one partner's quarterly score.
func (r *Repository) SavePowerConfidence(ctx context.Context, partnerID uuid.UUID, quarter string, score float64, badges int) error {
	query := `
		INSERT INTO power_confidence_scores (partner_id, quarter, score, badges, computed_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (partner_id, quarter) DO UPDATE
		SET score = EXCLUDED.score,
		    badges = EXCLUDED.badges,
		    computed_at = NOW()`

	_, err := r.pool.Exec(ctx, query, partnerID, quarter, score, badges)
	return err
}
