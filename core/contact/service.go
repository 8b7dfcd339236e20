package contact

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/neussi/comsas-uy1.com/core"
)

var ErrNotFound = core.NewError(core.KindNotFound, "Message introuvable.")

type (
	Repository interface {
		CreateMessage(ctx context.Context, m Message) (Message, error)
		GetMessage(ctx context.Context, id string) (Message, error)
		// QueryMessages orders by creation time, newest first.
		QueryMessages(ctx context.Context, filter QueryFilter) ([]Message, error)
		// MarkMessage sets the read flag, and the replied flag too when replied is true.
		// Flags are never cleared.
		MarkMessage(ctx context.Context, id string, replied bool) (Message, error)
		DeleteMessage(ctx context.Context, id string) error
	}

	Service interface {
		Send(ctx context.Context, nm NewMessage) (Message, error)
		// Read returns the message and marks it read.
		Read(ctx context.Context, id string) (Message, error)
		MarkReplied(ctx context.Context, id string) (Message, error)
		Query(ctx context.Context, filter QueryFilter) ([]Message, error)
		Delete(ctx context.Context, id string) error
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

// Send stores the message and forwards it to the association.
func (svc *service) Send(ctx context.Context, nm NewMessage) (Message, error) {
	m, err := svc.repo.CreateMessage(ctx, Message{
		FullName:  nm.FullName,
		Email:     nm.Email,
		Phone:     nm.Phone,
		Subject:   nm.Subject,
		Body:      nm.Body,
		CreatedAt: svc.nowFunc().UTC(),
	})
	if err != nil {
		return Message{}, err
	}
	svc.send(&core.EmailMessage{
		To:      []mail.Address{svc.assocMail},
		Subject: "Nouveau message de contact - " + m.Subject,
		BodyStr: fmt.Sprintf("De : %s (%s)\nTéléphone : %s\n\nMessage :\n%s", m.FullName, m.Email, m.Phone, m.Body),
	})
	return m, nil
}

func (svc *service) Read(ctx context.Context, id string) (Message, error) {
	m, err := svc.repo.GetMessage(ctx, id)
	if err != nil || m.IsRead {
		return m, err
	}
	return svc.repo.MarkMessage(ctx, id, false)
}

func (svc *service) MarkReplied(ctx context.Context, id string) (Message, error) {
	return svc.repo.MarkMessage(ctx, id, true)
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Message, error) {
	return svc.repo.QueryMessages(ctx, filter)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteMessage(ctx, id)
}

func (svc *service) send(msg *core.EmailMessage) {
	if svc.mailSvc != nil {
		svc.mailSvc.SendMessages(msg)
	}
}
