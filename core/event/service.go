package event

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/neussi/comsas-uy1.com/core"
)

var (
	// errors
	ErrEventNotFound        = core.NewError(core.KindNotFound, "Événement introuvable.")
	ErrRegistrationNotFound = core.NewError(core.KindNotFound, "Inscription introuvable.")
	ErrRegistrationClosed   = core.NewError(core.KindPrecondition, "Les inscriptions à cet événement sont closes.")
	ErrEventFull            = core.NewError(core.KindPrecondition, "Cet événement est complet.")
	ErrAlreadyRegistered    = core.NewError(core.KindDuplicate, "Vous êtes déjà inscrit à cet événement.")
)

type (
	Repository interface {
		CreateEvent(ctx context.Context, e Event) (Event, error)
		UpdateEvent(ctx context.Context, e Event) (Event, error)
		GetEvent(ctx context.Context, id string) (Event, error)
		// QueryEvents orders by event date.
		QueryEvents(ctx context.Context, activeOnly bool) ([]Event, error)

		// CreateRegistration returns ErrAlreadyRegistered if the email is already registered
		// to the event, and ErrEventFull if the event has no place left. Both checks hold
		// across processes.
		CreateRegistration(ctx context.Context, r Registration) (Registration, error)
		GetRegistration(ctx context.Context, id string) (Registration, error)
		ConfirmRegistration(ctx context.Context, id string) (Registration, error)
		// QueryRegistrations orders by registration time, newest first.
		QueryRegistrations(ctx context.Context, eventID string) ([]Registration, error)
		CountRegistrations(ctx context.Context, eventID string) (int, error)
	}

	Service interface {
		CreateEvent(ctx context.Context, ne NewEvent) (Event, error)
		UpdateEvent(ctx context.Context, id string, ne NewEvent) (Event, error)
		GetEvent(ctx context.Context, id string) (Detail, error)
		QueryEvents(ctx context.Context, activeOnly bool) ([]Event, error)

		Register(ctx context.Context, eventID string, nr NewRegistration) (Registration, error)
		ConfirmRegistration(ctx context.Context, id string) (Registration, error)
		QueryRegistrations(ctx context.Context, eventID string) (Registrations, error)
	}

	service struct {
		repo      Repository
		mailSvc   core.EmailService
		assocMail mail.Address
		nowFunc   func() time.Time
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, assocMail mail.Address) Service {
	return &service{repo: repo, mailSvc: mailSvc, assocMail: assocMail, nowFunc: time.Now}
}

func (svc *service) CreateEvent(ctx context.Context, ne NewEvent) (Event, error) {
	return svc.repo.CreateEvent(ctx, Event{
		Title:                ne.Title,
		Description:          ne.Description,
		Date:                 ne.Date.UTC(),
		Location:             ne.Location,
		MaxParticipants:      ne.MaxParticipants,
		RegistrationDeadline: ne.RegistrationDeadline.UTC(),
		IsFeatured:           ne.IsFeatured,
		IsActive:             ne.IsActive == nil || *ne.IsActive,
		CreatedAt:            svc.nowFunc().UTC(),
	})
}

func (svc *service) UpdateEvent(ctx context.Context, id string, ne NewEvent) (Event, error) {
	e, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return Event{}, err
	}
	e.Title = ne.Title
	e.Description = ne.Description
	e.Date = ne.Date.UTC()
	e.Location = ne.Location
	e.MaxParticipants = ne.MaxParticipants
	e.RegistrationDeadline = ne.RegistrationDeadline.UTC()
	e.IsFeatured = ne.IsFeatured
	if ne.IsActive != nil {
		e.IsActive = *ne.IsActive
	}
	return svc.repo.UpdateEvent(ctx, e)
}

func (svc *service) GetEvent(ctx context.Context, id string) (Detail, error) {
	e, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	registered, err := svc.repo.CountRegistrations(ctx, id)
	if err != nil {
		return Detail{}, errors.Wrap(err, "counting registrations")
	}

	d := Detail{
		Event:              e,
		IsRegistrationOpen: e.IsRegistrationOpen(svc.nowFunc()),
		Registered:         registered,
	}
	if e.MaxParticipants != nil {
		left := *e.MaxParticipants - registered
		if left < 0 {
			left = 0
		}
		d.PlacesLeft = &left
	}
	return d, nil
}

func (svc *service) QueryEvents(ctx context.Context, activeOnly bool) ([]Event, error) {
	return svc.repo.QueryEvents(ctx, activeOnly)
}

// Register signs a participant up while registrations are open. Every registration
// takes a place, confirmed or not.
func (svc *service) Register(ctx context.Context, eventID string, nr NewRegistration) (Registration, error) {
	e, err := svc.repo.GetEvent(ctx, eventID)
	if err != nil {
		return Registration{}, err
	}
	if !e.IsRegistrationOpen(svc.nowFunc()) {
		return Registration{}, ErrRegistrationClosed
	}

	r, err := svc.repo.CreateRegistration(ctx, Registration{
		EventID:   eventID,
		FullName:  nr.FullName,
		Email:     nr.Email,
		Phone:     nr.Phone,
		Promotion: nr.Promotion,
		Message:   nr.Message,
		CreatedAt: svc.nowFunc().UTC(),
	})
	if err != nil {
		return Registration{}, err
	}

	svc.send(&core.EmailMessage{
		To:      []mail.Address{svc.assocMail},
		Subject: "Nouvelle inscription - " + e.Title,
		BodyStr: fmt.Sprintf("Participant : %s\nEmail : %s\nTéléphone : %s\nPromotion : %s\n\n%s",
			r.FullName, r.Email, r.Phone, r.Promotion, r.Message),
	})
	return r, nil
}

// ConfirmRegistration confirms a registration and emails the ticket to the participant
// the first time.
func (svc *service) ConfirmRegistration(ctx context.Context, id string) (Registration, error) {
	r, err := svc.repo.GetRegistration(ctx, id)
	if err != nil || r.IsConfirmed {
		return r, err
	}
	if r, err = svc.repo.ConfirmRegistration(ctx, id); err != nil {
		return Registration{}, err
	}
	e, err := svc.repo.GetEvent(ctx, r.EventID)
	if err != nil {
		return Registration{}, errors.Wrap(err, "getting event")
	}
	svc.send(&core.EmailMessage{
		To:           []mail.Address{{Name: r.FullName, Address: r.Email}},
		Subject:      "Inscription confirmée - " + e.Title,
		TemplateName: "registration_confirmed",
		TemplateData: struct {
			Event        Event
			Registration Registration
		}{e, r},
	})
	return r, nil
}

func (svc *service) QueryRegistrations(ctx context.Context, eventID string) (Registrations, error) {
	e, err := svc.repo.GetEvent(ctx, eventID)
	if err != nil {
		return Registrations{}, err
	}
	regs, err := svc.repo.QueryRegistrations(ctx, eventID)
	if err != nil {
		return Registrations{}, errors.Wrap(err, "querying registrations")
	}

	res := Registrations{Event: e, Registrations: regs}
	for _, r := range regs {
		if r.IsConfirmed {
			res.Confirmed++
		} else {
			res.Pending++
		}
	}
	return res, nil
}

func (svc *service) send(msg *core.EmailMessage) {
	if svc.mailSvc != nil {
		svc.mailSvc.SendMessages(msg)
	}
}
