package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"event_messaging_backend/internal/messaging"
	"event_messaging_backend/platform/apperr"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const messageColumns = `
	id, contractor_id, event_id, message_type, direction, status,
	scheduled_time, actual_send_time, agenda_item_id, dedupe_key,
	body, personalization_data, last_error, responded_at, created_at`

func scanMessage(row pgx.Row) (messaging.ScheduledMessage, error) {
	var m messaging.ScheduledMessage
	err := row.Scan(
		&m.ID, &m.ContractorID, &m.EventID, &m.MessageType, &m.Direction, &m.Status,
		&m.ScheduledTime, &m.ActualSendTime, &m.AgendaItemID, &m.DedupeKey,
		&m.Body, &m.PersonalizationData, &m.LastError, &m.RespondedAt, &m.CreatedAt,
	)
	return m, err
}

// InsertPending writes the planned rows, skipping any whose dedupe key
// already exists. Duplicate check-ins therefore cannot double-schedule.
// Only the rows actually inserted are returned; the caller enqueues
// worker tasks for exactly those.
func (r *Repository) InsertPending(ctx context.Context, msgs []messaging.ScheduledMessage) ([]messaging.ScheduledMessage, error) {
	query := `
		INSERT INTO scheduled_messages
			(id, contractor_id, event_id, message_type, direction, status,
			 scheduled_time, agenda_item_id, dedupe_key, body, personalization_data)
		VALUES ($1, $2, $3, $4, 'outbound', 'pending', $5, $6, $7, $8, $9)
		ON CONFLICT (dedupe_key) DO NOTHING
		RETURNING id`

	var inserted []messaging.ScheduledMessage
	for _, m := range msgs {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		var id uuid.UUID
		err := r.pool.QueryRow(ctx, query,
			m.ID, m.ContractorID, m.EventID, m.MessageType,
			m.ScheduledTime, m.AgendaItemID, m.DedupeKey, m.Body, m.PersonalizationData,
		).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return inserted, err
		}
		inserted = append(inserted, m)
	}
	return inserted, nil
}

// GetByID loads one scheduled message.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (messaging.ScheduledMessage, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM scheduled_messages WHERE id = $1`, id)

	m, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return messaging.ScheduledMessage{}, apperr.NotFound("scheduled message not found")
	}
	if err != nil {
		return messaging.ScheduledMessage{}, err
	}
	return m, nil
}

// Contact is the delivery address for one message's recipient. OptedOut
// is read at send time so a message enqueued before the opt-out still
// gets dropped.
type Contact struct {
	Phone     string
	Email     *string
	FirstName string
	OptedOut  bool
}

// GetContact loads the recipient contact data for one message.
func (r *Repository) GetContact(ctx context.Context, messageID uuid.UUID) (Contact, error) {
	var c Contact
	err := r.pool.QueryRow(ctx,
		`SELECT a.phone, a.email, a.first_name, a.opted_out
		 FROM scheduled_messages m
		 JOIN attendees a ON a.contractor_id = m.contractor_id AND a.event_id = m.event_id
		 WHERE m.id = $1`, messageID).
		Scan(&c.Phone, &c.Email, &c.FirstName, &c.OptedOut)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, apperr.NotFound("no attendee for scheduled message")
	}
	if err != nil {
		return Contact{}, err
	}
	return c, nil
}

// MarkSent moves a pending row to sent. It reports false when the row had
// already left pending, so a stale worker task cannot double-send.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE scheduled_messages
		 SET status = 'sent', actual_send_time = $2
		 WHERE id = $1 AND status = 'pending'`, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkFailed moves a pending row to failed and records the last error
// for the operator reconciliation queue.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE scheduled_messages
		 SET status = 'failed', last_error = $2
		 WHERE id = $1 AND status = 'pending'`, id, reason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkCancelled moves a pending row to cancelled. It reports false when
// the row had already left pending.
func (r *Repository) MarkCancelled(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE scheduled_messages
		 SET status = 'cancelled'
		 WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Retimed is one pending row whose fire time changed.
type Retimed struct {
	ID            uuid.UUID
	ContractorID  uuid.UUID
	EventID       uuid.UUID
	ScheduledTime time.Time
}

// ShiftPending moves every pending row of an event by offset and returns
// the re-timed rows so the caller can enqueue fresh worker tasks. The
// superseded tasks fire against rows whose time is now in the future and
// are skipped by the worker.
func (r *Repository) ShiftPending(ctx context.Context, eventID uuid.UUID, offset time.Duration) ([]Retimed, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE scheduled_messages
		 SET scheduled_time = scheduled_time + $2
		 WHERE event_id = $1 AND direction = 'outbound' AND status = 'pending'
		 RETURNING id, contractor_id, event_id, scheduled_time`,
		eventID, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Retimed
	for rows.Next() {
		var rt Retimed
		if err := rows.Scan(&rt.ID, &rt.ContractorID, &rt.EventID, &rt.ScheduledTime); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// RetimeFamily moves an event's pending rows of one trigger family to a
// fixed time, for early event end.
func (r *Repository) RetimeFamily(ctx context.Context, eventID uuid.UUID, trigger messaging.TriggerType, to time.Time) ([]Retimed, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE scheduled_messages
		 SET scheduled_time = $3
		 WHERE event_id = $1 AND message_type = $2
		   AND direction = 'outbound' AND status = 'pending'
		 RETURNING id, contractor_id, event_id, scheduled_time`,
		eventID, string(trigger), to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Retimed
	for rows.Next() {
		var rt Retimed
		if err := rows.Scan(&rt.ID, &rt.ContractorID, &rt.EventID, &rt.ScheduledTime); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// CancelPendingExcept cancels an event's pending rows outside the kept
// trigger families and reports how many were cancelled.
func (r *Repository) CancelPendingExcept(ctx context.Context, eventID uuid.UUID, keep []messaging.TriggerType) (int, error) {
	kept := make([]string, 0, len(keep))
	for _, t := range keep {
		kept = append(kept, string(t))
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE scheduled_messages
		 SET status = 'cancelled'
		 WHERE event_id = $1 AND direction = 'outbound' AND status = 'pending'
		   AND NOT (message_type = ANY($2))`,
		eventID, kept)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// CancelPendingForContractor cancels a contractor's pending rows for one
// event, for opt-out.
func (r *Repository) CancelPendingForContractor(ctx context.Context, contractorID, eventID uuid.UUID) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE scheduled_messages
		 SET status = 'cancelled'
		 WHERE contractor_id = $1 AND event_id = $2
		   AND direction = 'outbound' AND status = 'pending'`,
		contractorID, eventID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// PendingCount reports how many rows of an event are still pending.
func (r *Repository) PendingCount(ctx context.Context, eventID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM scheduled_messages
		 WHERE event_id = $1 AND direction = 'outbound' AND status = 'pending'`,
		eventID).Scan(&n)
	return n, err
}
