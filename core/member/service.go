package member

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
	ErrNotFound        = core.NewError(core.KindNotFound, "Membre introuvable.")
	ErrAlreadyApproved = core.NewError(core.KindPrecondition, "Cette adhésion a déjà été validée.")
	ErrMatriculeExists = errors.New("un membre avec ce matricule existe déjà")
)

type (
	Repository interface {
		// CreateMember returns ErrMatriculeExists if the matricule is taken.
		CreateMember(ctx context.Context, m Member) (Member, error)
		GetMember(ctx context.Context, id string) (Member, error)
		// QueryMembers orders by join date, newest first.
		QueryMembers(ctx context.Context, filter QueryFilter) ([]Member, error)
		UpdateMember(ctx context.Context, m Member) (Member, error)
		SetMemberActive(ctx context.Context, id string, active bool) (Member, error)
		// DeletePendingMember returns ErrAlreadyApproved for an active member.
		DeletePendingMember(ctx context.Context, id string) error
	}

	Service interface {
		Apply(ctx context.Context, app Application) (Member, error)
		Approve(ctx context.Context, id string) (Member, error)
		Reject(ctx context.Context, id string) error
		Get(ctx context.Context, id string) (Member, error)
		Update(ctx context.Context, id string, u Update) (Member, error)
		Query(ctx context.Context, filter QueryFilter) ([]Member, error)
		// Directory lists active members of the given type (any type when empty), by name.
		Directory(ctx context.Context, memberType string) ([]Profile, error)
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

// Apply stores a pending application and tells the association about it.
func (svc *service) Apply(ctx context.Context, app Application) (Member, error) {
	birth, err := time.Parse("2006-01-02", app.BirthDate)
	if err != nil {
		return Member{}, core.NewValidationError(err, core.FieldError{Field: "birth_date", Error: err.Error()})
	}
	m, err := svc.repo.CreateMember(ctx, Member{
		FullName:   app.FullName,
		BirthDate:  birth,
		BirthPlace: app.BirthPlace,
		Level:      app.Level,
		Phone:      app.Phone,
		Email:      app.Email,
		Matricule:  app.Matricule,
		Type:       TypeSimple,
		Bio:        app.Bio,
		IsActive:   false,
		JoinedAt:   svc.nowFunc().UTC(),
	})
	if errors.Cause(err) == ErrMatriculeExists {
		return Member{}, core.NewValidationError(err, core.FieldError{Field: "matricule", Error: err.Error()})
	}
	if err != nil {
		return Member{}, err
	}

	svc.send(&core.EmailMessage{
		To:      []mail.Address{svc.assocMail},
		Subject: "Nouvelle demande d'adhésion - COMS.A.S",
		BodyStr: fmt.Sprintf(
			"Nouvelle demande d'adhésion reçue :\n\nNom et prénom : %s\nMatricule : %s\nEmail : %s\nTéléphone : %s\n"+
				"Lieu de naissance : %s\nDate de naissance : %s\n\n"+
				"Connectez-vous à l'administration pour valider ou rejeter cette demande.",
			m.FullName, m.Matricule, m.Email, m.Phone, m.BirthPlace, m.BirthDate.Format("02/01/2006"),
		),
	})
	return m, nil
}

// Approve activates a member and sends the welcome email. Approving twice is a no-op.
func (svc *service) Approve(ctx context.Context, id string) (Member, error) {
	m, err := svc.repo.GetMember(ctx, id)
	if err != nil {
		return Member{}, err
	}
	if m.IsActive {
		return m, nil
	}
	if m, err = svc.repo.SetMemberActive(ctx, id, true); err != nil {
		return Member{}, err
	}
	svc.send(&core.EmailMessage{
		To:           []mail.Address{{Name: m.FullName, Address: m.Email}},
		Subject:      "Bienvenue au COMS.A.S",
		TemplateName: "member_approved",
		TemplateData: m,
	})
	return m, nil
}

// Reject deletes a pending application.
func (svc *service) Reject(ctx context.Context, id string) error {
	return svc.repo.DeletePendingMember(ctx, id)
}

func (svc *service) Get(ctx context.Context, id string) (Member, error) {
	return svc.repo.GetMember(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, u Update) (Member, error) {
	m, err := svc.repo.GetMember(ctx, id)
	if err != nil {
		return Member{}, err
	}
	m.Type = u.Type
	m.BureauPost = u.BureauPost
	if m.Type != TypeBureau {
		m.BureauPost = ""
	}
	m.Level = u.Level
	m.Promotion = u.Promotion
	m.Profession = u.Profession
	m.Address = u.Address
	m.Bio = u.Bio
	return svc.repo.UpdateMember(ctx, m)
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Member, error) {
	return svc.repo.QueryMembers(ctx, filter)
}

func (svc *service) Directory(ctx context.Context, memberType string) ([]Profile, error) {
	members, err := svc.repo.QueryMembers(ctx, QueryFilter{Type: memberType, Status: StatusActive})
	if err != nil {
		return nil, errors.Wrap(err, "querying active members")
	}
	sortByName(members)
	profiles := make([]Profile, 0, len(members))
	for _, m := range members {
		profiles = append(profiles, m.Profile())
	}
	return profiles, nil
}

func (svc *service) send(msg *core.EmailMessage) {
	if svc.mailSvc != nil {
		svc.mailSvc.SendMessages(msg)
	}
}
