// Package repository persists attendee registration and check-in state.
package repository

import (
	"context"
	"errors"
	"time"

	"event_messaging_backend/platform/apperr"
	"event_messaging_backend/platform/phone"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Attendee is one contractor registered to one event.
type Attendee struct {
	ContractorID uuid.UUID
	EventID      uuid.UUID
	Phone        string
	Email        *string
	FirstName    string
	LastName     string
	CheckedInAt  *time.Time
	OptedOut     bool
}

// CheckedIn reports whether the attendee has checked in.
func (a Attendee) CheckedIn() bool { return a.CheckedInAt != nil }

// Repository reads and mutates attendee rows.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates an attendee repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const attendeeColumns = `contractor_id, event_id, phone, email, first_name, last_name, checked_in_at, opted_out`

func scanAttendee(row pgx.Row) (Attendee, error) {
	var a Attendee
	err := row.Scan(&a.ContractorID, &a.EventID, &a.Phone, &a.Email,
		&a.FirstName, &a.LastName, &a.CheckedInAt, &a.OptedOut)
	return a, err
}

// GetByID returns the attendee row for (contractor, event).
func (r *Repository) GetByID(ctx context.Context, contractorID, eventID uuid.UUID) (Attendee, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+attendeeColumns+` FROM attendees
		 WHERE contractor_id = $1 AND event_id = $2`, contractorID, eventID)
	a, err := scanAttendee(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Attendee{}, apperr.NotFound("attendee not found")
	}
	return a, err
}

// GetByPhone resolves a webhook sender to an attendee of the given event.
// The phone is normalized to E.164 before matching.
func (r *Repository) GetByPhone(ctx context.Context, rawPhone string, eventID uuid.UUID) (Attendee, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+attendeeColumns+` FROM attendees
		 WHERE phone = $1 AND event_id = $2`, phone.NormalizeE164(rawPhone), eventID)
	a, err := scanAttendee(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Attendee{}, apperr.NotFound("no attendee for phone")
	}
	return a, err
}

// CheckIn records the check-in timestamp. Idempotent: a duplicate
// check-in webhook leaves the original timestamp untouched and reports
// changed=false.
func (r *Repository) CheckIn(ctx context.Context, contractorID, eventID uuid.UUID, at time.Time) (Attendee, bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attendees SET checked_in_at = $3
		 WHERE contractor_id = $1 AND event_id = $2 AND checked_in_at IS NULL`,
		contractorID, eventID, at)
	if err != nil {
		return Attendee{}, false, err
	}

	a, err := r.GetByID(ctx, contractorID, eventID)
	if err != nil {
		return Attendee{}, false, err
	}
	return a, tag.RowsAffected() > 0, nil
}

// OptOut flags the attendee as opted out of messaging.
func (r *Repository) OptOut(ctx context.Context, contractorID, eventID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attendees SET opted_out = TRUE
		 WHERE contractor_id = $1 AND event_id = $2`, contractorID, eventID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("attendee not found")
	}
	return nil
}

// ListCheckedIn returns all checked-in, not-opted-out attendees of an event.
func (r *Repository) ListCheckedIn(ctx context.Context, eventID uuid.UUID) ([]Attendee, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attendeeColumns+` FROM attendees
		 WHERE event_id = $1 AND checked_in_at IS NOT NULL AND opted_out = FALSE`,
		eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attendee
	for rows.Next() {
		a, err := scanAttendee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// IsAdminPhone reports whether the phone is on the operator allowlist.
// Authorization for admin commands is allowlist-only; it is not scoped to
// a particular event.
func (r *Repository) IsAdminPhone(ctx context.Context, rawPhone string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM admin_phones WHERE phone = $1)`,
		phone.NormalizeE164(rawPhone)).Scan(&exists)
	return exists, err
}
