// Package repository provides the read path over event agenda and speaker data.
package repository

import (
	"context"
	"errors"
	"time"

	"event_messaging_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ItemKind distinguishes agenda block types.
type ItemKind string

const (
	KindSession ItemKind = "session"
	KindBreak   ItemKind = "break"
	KindLunch   ItemKind = "lunch"
)

// Event is one live event with its overall time window.
type Event struct {
	ID       uuid.UUID
	Name     string
	Location string
	StartsAt time.Time
	EndsAt   time.Time
}

// Session is one agenda block, joined against speaker data. Speaker
// assignment lags session creation, so all speaker fields are optional;
// HasSpeakerData reports whether the outer join found a speaker row.
type Session struct {
	ID       uuid.UUID
	EventID  uuid.UUID
	Title    string
	Kind     ItemKind
	StartsAt time.Time
	EndsAt   time.Time

	SpeakerID      *uuid.UUID
	SpeakerName    *string
	SpeakerCompany *string
	SpeakerBio     *string
	HasSpeakerData bool

	Synopsis   *string
	FocusAreas []string
	Takeaways  []string
	Keywords   []string
}

// Repository reads agenda and speaker data.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates an agenda repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const sessionColumns = `
	s.id, s.event_id, s.title, s.kind, s.starts_at, s.ends_at,
	sp.id, sp.name, sp.company, sp.bio,
	s.synopsis, s.focus_areas, s.takeaways, s.keywords`

const sessionFrom = `
	FROM agenda_items s
	LEFT JOIN speakers sp ON sp.id = s.speaker_id`

func scanSession(row pgx.Row) (Session, error) {
	var s Session
	err := row.Scan(
		&s.ID, &s.EventID, &s.Title, &s.Kind, &s.StartsAt, &s.EndsAt,
		&s.SpeakerID, &s.SpeakerName, &s.SpeakerCompany, &s.SpeakerBio,
		&s.Synopsis, &s.FocusAreas, &s.Takeaways, &s.Keywords,
	)
	if err != nil {
		return Session{}, err
	}
	s.HasSpeakerData = s.SpeakerID != nil
	return s, nil
}

// GetSessionByID returns one agenda item. A session without an assigned
// speaker is a valid, lower-confidence record, never an error.
func (r *Repository) GetSessionByID(ctx context.Context, id uuid.UUID) (Session, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+sessionFrom+` WHERE s.id = $1`, id)

	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, apperr.NotFound("session not found")
	}
	if err != nil {
		return Session{}, err
	}
	return s, nil
}

// GetEventSessions returns all agenda items for an event in start order.
func (r *Repository) GetEventSessions(ctx context.Context, eventID uuid.UUID) ([]Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+sessionFrom+`
		 WHERE s.event_id = $1
		 ORDER BY s.starts_at ASC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Sponsor is one exhibiting partner at an event.
type Sponsor struct {
	ID            uuid.UUID
	EventID       uuid.UUID
	Name          string
	Booth         string
	Pitch         *string
	TalkingPoints []string
}

// GetEventSponsors returns the event's sponsors in booth order.
func (r *Repository) GetEventSponsors(ctx context.Context, eventID uuid.UUID) ([]Sponsor, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, event_id, name, booth, pitch, talking_points
		 FROM sponsors
		 WHERE event_id = $1
		 ORDER BY booth ASC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sponsors []Sponsor
	for rows.Next() {
		var sp Sponsor
		if err := rows.Scan(&sp.ID, &sp.EventID, &sp.Name, &sp.Booth, &sp.Pitch, &sp.TalkingPoints); err != nil {
			return nil, err
		}
		sponsors = append(sponsors, sp)
	}
	return sponsors, rows.Err()
}

// GetEvent returns the event record with its time window.
func (r *Repository) GetEvent(ctx context.Context, eventID uuid.UUID) (Event, error) {
	var e Event
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, location, starts_at, ends_at
		 FROM events WHERE id = $1`, eventID).
		Scan(&e.ID, &e.Name, &e.Location, &e.StartsAt, &e.EndsAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Event{}, apperr.NotFound("event not found")
	}
	if err != nil {
		return Event{}, err
	}
	return e, nil
}

// GetActiveEventForContractor returns the event the contractor is checked
// in to whose time window contains now, or nil when there is none. This is
// the routing guard for the conversation state machine and is re-evaluated
// on every inbound message.
func (r *Repository) GetActiveEventForContractor(ctx context.Context, contractorID uuid.UUID, now time.Time) (*Event, error) {
	var e Event
	err := r.pool.QueryRow(ctx,
		`SELECT e.id, e.name, e.location, e.starts_at, e.ends_at
		 FROM events e
		 JOIN attendees a ON a.event_id = e.id
		 WHERE a.contractor_id = $1
		   AND a.checked_in_at IS NOT NULL
		   AND a.opted_out = FALSE
		   AND e.starts_at <= $2 AND e.ends_at >= $2
		 ORDER BY e.starts_at ASC
		 LIMIT 1`, contractorID, now).
		Scan(&e.ID, &e.Name, &e.Location, &e.StartsAt, &e.EndsAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
