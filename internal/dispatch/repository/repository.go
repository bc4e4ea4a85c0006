package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"event_messaging_backend/internal/dispatch/classify"
	"event_messaging_backend/internal/messaging"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Outstanding is the single centralized query every short-reply rule
// resolves against: sent outbound messages of reply-expecting families
// that the contractor has not answered yet.
func (r *Repository) Outstanding(ctx context.Context, contractorID, eventID uuid.UUID) ([]classify.Outstanding, error) {
	query := `
		SELECT id, message_type, actual_send_time, agenda_item_id, personalization_data
		FROM scheduled_messages
		WHERE contractor_id = $1
		  AND event_id = $2
		  AND direction = 'outbound'
		  AND status = 'sent'
		  AND responded_at IS NULL
		  AND message_type = ANY($3)
		  AND actual_send_time > NOW() - INTERVAL '24 hours'
		ORDER BY actual_send_time DESC`

	families := make([]string, 0, len(messaging.TriggerTypes))
	for _, t := range messaging.TriggerTypes {
		if t.AwaitsReply() {
			families = append(families, string(t))
		}
	}

	rows, err := r.pool.Query(ctx, query, contractorID, eventID, families)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []classify.Outstanding
	for rows.Next() {
		var (
			o           classify.Outstanding
			messageType string
			sentAt      *time.Time
		)
		if err := rows.Scan(&o.MessageID, &messageType, &sentAt, &o.AgendaItemID, &o.Personalization); err != nil {
			return nil, err
		}
		o.Trigger = messaging.TriggerType(messageType)
		if sentAt != nil {
			o.SentAt = *sentAt
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

// MarkResponded closes an outstanding interaction once a reply resolved
// to it.
func (r *Repository) MarkResponded(ctx context.Context, messageID uuid.UUID, at time.Time) error {
	query := `
		UPDATE scheduled_messages
		SET responded_at = $2
		WHERE id = $1 AND responded_at IS NULL`

	_, err := r.pool.Exec(ctx, query, messageID, at)
	return err
}

// RecordInbound appends the audit row for one handled inbound message.
// Inbound rows never enter the pending status machine.
func (r *Repository) RecordInbound(ctx context.Context, contractorID, eventID uuid.UUID, messageType classify.MessageType, body string, personalization json.RawMessage, arrivedAt time.Time) (uuid.UUID, error) {
	query := `
		INSERT INTO scheduled_messages
			(id, contractor_id, event_id, message_type, direction, status,
			 scheduled_time, actual_send_time, dedupe_key, body, personalization_data)
		VALUES ($1, $2, $3, $4, 'inbound', 'sent', $5, $5, $1::text, $6, $7)
		RETURNING id`

	id := uuid.New()
	if err := r.pool.QueryRow(ctx, query,
		id, contractorID, eventID, string(messageType), arrivedAt, body, personalization,
	).Scan(&id); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}
