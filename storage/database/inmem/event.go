package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/neussi/comsas-uy1.com/core/event"
)

type eventRepository struct {
	db *DB
}

var _ event.Repository = (*eventRepository)(nil)

func NewEventRepository(db *DB) event.Repository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) CreateEvent(_ context.Context, e event.Event) (event.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	e.ID = uuid.New().String()
	repo.db.events[e.ID] = &e
	repo.db.track(e.ID)
	return e, nil
}

func (repo *eventRepository) UpdateEvent(_ context.Context, e event.Event) (event.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	orig, ok := repo.db.events[e.ID]
	if !ok {
		return event.Event{}, event.ErrEventNotFound
	}
	e.CreatedAt = orig.CreatedAt
	repo.db.events[e.ID] = &e
	return e, nil
}

func (repo *eventRepository) GetEvent(_ context.Context, id string) (event.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if e, ok := repo.db.events[id]; ok {
		return *e, nil
	}
	return event.Event{}, event.ErrEventNotFound
}

func (repo *eventRepository) QueryEvents(_ context.Context, activeOnly bool) ([]event.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	events := make([]event.Event, 0, len(repo.db.events))
	for _, e := range repo.db.events {
		if activeOnly && !e.IsActive {
			continue
		}
		events = append(events, *e)
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return repo.db.before(events[i].ID, events[j].ID)
	})
	return events, nil
}

func (repo *eventRepository) CreateRegistration(_ context.Context, r event.Registration) (event.Registration, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	e, ok := repo.db.events[r.EventID]
	if !ok {
		return event.Registration{}, event.ErrEventNotFound
	}
	var taken int
	for _, other := range repo.db.registrations {
		if other.EventID != r.EventID {
			continue
		}
		if other.Email == r.Email {
			return event.Registration{}, event.ErrAlreadyRegistered
		}
		taken++
	}
	if e.MaxParticipants != nil && taken >= *e.MaxParticipants {
		return event.Registration{}, event.ErrEventFull
	}
	r.ID = uuid.New().String()
	r.Ticket = uuid.New().String()
	repo.db.registrations[r.ID] = &r
	repo.db.track(r.ID)
	return r, nil
}

func (repo *eventRepository) GetRegistration(_ context.Context, id string) (event.Registration, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if r, ok := repo.db.registrations[id]; ok {
		return *r, nil
	}
	return event.Registration{}, event.ErrRegistrationNotFound
}

func (repo *eventRepository) ConfirmRegistration(_ context.Context, id string) (event.Registration, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	r, ok := repo.db.registrations[id]
	if !ok {
		return event.Registration{}, event.ErrRegistrationNotFound
	}
	r.IsConfirmed = true
	return *r, nil
}

func (repo *eventRepository) QueryRegistrations(_ context.Context, eventID string) ([]event.Registration, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	regs := make([]event.Registration, 0)
	for _, r := range repo.db.registrations {
		if r.EventID == eventID {
			regs = append(regs, *r)
		}
	}
	sort.Slice(regs, func(i, j int) bool {
		if !regs[i].CreatedAt.Equal(regs[j].CreatedAt) {
			return regs[i].CreatedAt.After(regs[j].CreatedAt)
		}
		return repo.db.before(regs[j].ID, regs[i].ID)
	})
	return regs, nil
}

func (repo *eventRepository) CountRegistrations(_ context.Context, eventID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	var n int
	for _, r := range repo.db.registrations {
		if r.EventID == eventID {
			n++
		}
	}
	return n, nil
}
