package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/neussi/comsas-uy1.com/core/event"
)

const (
	eventColumns = `id, title, description, event_date, location, max_participants, registration_deadline,
	is_featured, is_active, created_at`
	registrationColumns = "id, event_id, full_name, email, phone, promotion, message, is_confirmed, ticket, created_at"
)

type eventRepository struct {
	db *sqlx.DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *sqlx.DB) event.Repository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) CreateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	e.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, repo.db.Rebind(
		"INSERT INTO events ("+eventColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"),
		e.ID, e.Title, e.Description, e.Date.UTC(), e.Location, e.MaxParticipants,
		e.RegistrationDeadline.UTC(), e.IsFeatured, e.IsActive, e.CreatedAt.UTC(),
	)
	if err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	return e, nil
}

func (repo *eventRepository) UpdateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`UPDATE events SET title = ?, description = ?, event_date = ?,
		location = ?, max_participants = ?, registration_deadline = ?, is_featured = ?, is_active = ? WHERE id = ?`),
		e.Title, e.Description, e.Date.UTC(), e.Location, e.MaxParticipants,
		e.RegistrationDeadline.UTC(), e.IsFeatured, e.IsActive, e.ID,
	)
	if err != nil {
		return event.Event{}, errors.Wrap(err, "updating event")
	}
	if err = affectedOne(res, event.ErrEventNotFound, "updating event"); err != nil {
		return event.Event{}, err
	}
	return e, nil
}

func (repo *eventRepository) GetEvent(ctx context.Context, id string) (event.Event, error) {
	var e event.Event
	q := repo.db.Rebind("SELECT " + eventColumns + " FROM events WHERE id = ?")
	if err := sqlx.GetContext(ctx, repo.db, &e, q, id); err != nil {
		return event.Event{}, trapNoRows(err, event.ErrEventNotFound, "getting event")
	}
	return e, nil
}

func (repo *eventRepository) QueryEvents(ctx context.Context, activeOnly bool) ([]event.Event, error) {
	var w where
	if activeOnly {
		w.add("is_active = ?", true)
	}
	events := make([]event.Event, 0)
	q := repo.db.Rebind("SELECT " + eventColumns + " FROM events" + w.String() + " ORDER BY event_date, created_at")
	if err := sqlx.SelectContext(ctx, repo.db, &events, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	return events, nil
}

func (repo *eventRepository) CreateRegistration(ctx context.Context, r event.Registration) (event.Registration, error) {
	r.ID = uuid.New().String()
	r.Ticket = uuid.New().String()
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if err := reservePlace(ctx, tx, r.EventID, r.Email); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(
			"INSERT INTO event_registrations ("+registrationColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"),
			r.ID, r.EventID, r.FullName, r.Email, r.Phone, r.Promotion, r.Message, r.IsConfirmed, r.Ticket, r.CreatedAt.UTC(),
		)
		if err != nil {
			if _, ok := uniqueViolation(err); ok {
				return event.ErrAlreadyRegistered
			}
			return errors.Wrap(err, "inserting registration")
		}
		return nil
	})
	if err != nil {
		return event.Registration{}, err
	}
	return r, nil
}

// reservePlace locks the event row until tx ends and checks that email is not registered
// yet and that one more participant fits.
func reservePlace(ctx context.Context, tx *sqlx.Tx, eventID, email string) error {
	res, err := tx.ExecContext(ctx, tx.Rebind("UPDATE events SET max_participants = max_participants WHERE id = ?"), eventID)
	if err != nil {
		return errors.Wrap(err, "locking event")
	}
	if err = affectedOne(res, event.ErrEventNotFound, "locking event"); err != nil {
		return err
	}

	var places struct {
		Max   *int `db:"max_participants"`
		Taken int  `db:"taken"`
		Mine  int  `db:"mine"`
	}
	q := tx.Rebind(`SELECT e.max_participants,
		(SELECT COUNT(*) FROM event_registrations r WHERE r.event_id = e.id) AS taken,
		(SELECT COUNT(*) FROM event_registrations r WHERE r.event_id = e.id AND r.email = ?) AS mine
		FROM events e WHERE e.id = ?`)
	if err = sqlx.GetContext(ctx, tx, &places, q, email, eventID); err != nil {
		return trapNoRows(err, event.ErrEventNotFound, "counting registrations")
	}
	switch {
	case places.Mine > 0:
		return event.ErrAlreadyRegistered
	case places.Max != nil && places.Taken >= *places.Max:
		return event.ErrEventFull
	}
	return nil
}

func (repo *eventRepository) GetRegistration(ctx context.Context, id string) (event.Registration, error) {
	var r event.Registration
	q := repo.db.Rebind("SELECT " + registrationColumns + " FROM event_registrations WHERE id = ?")
	if err := sqlx.GetContext(ctx, repo.db, &r, q, id); err != nil {
		return event.Registration{}, trapNoRows(err, event.ErrRegistrationNotFound, "getting registration")
	}
	return r, nil
}

func (repo *eventRepository) ConfirmRegistration(ctx context.Context, id string) (event.Registration, error) {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("UPDATE event_registrations SET is_confirmed = ? WHERE id = ?"), true, id)
	if err != nil {
		return event.Registration{}, errors.Wrap(err, "confirming registration")
	}
	if err = affectedOne(res, event.ErrRegistrationNotFound, "confirming registration"); err != nil {
		return event.Registration{}, err
	}
	return repo.GetRegistration(ctx, id)
}

func (repo *eventRepository) QueryRegistrations(ctx context.Context, eventID string) ([]event.Registration, error) {
	regs := make([]event.Registration, 0)
	q := repo.db.Rebind("SELECT " + registrationColumns + " FROM event_registrations WHERE event_id = ? ORDER BY created_at DESC, id")
	if err := sqlx.SelectContext(ctx, repo.db, &regs, q, eventID); err != nil {
		return nil, errors.Wrap(err, "querying registrations")
	}
	return regs, nil
}

func (repo *eventRepository) CountRegistrations(ctx context.Context, eventID string) (int, error) {
	var n int
	q := repo.db.Rebind("SELECT COUNT(*) FROM event_registrations WHERE event_id = ?")
	if err := sqlx.GetContext(ctx, repo.db, &n, q, eventID); err != nil {
		return 0, errors.Wrap(err, "counting registrations")
	}
	return n, nil
}
