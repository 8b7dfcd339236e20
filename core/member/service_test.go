package member_test

import (
	"context"
	"net/mail"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neussi/comsas-uy1.com/core"
	. "github.com/neussi/comsas-uy1.com/core/member"
	emailsvc "github.com/neussi/comsas-uy1.com/services/email"
	inmemdb "github.com/neussi/comsas-uy1.com/storage/database/inmem"
	"github.com/neussi/comsas-uy1.com/tests"
)

var assocMail = mail.Address{Name: "COMS.A.S", Address: "bureau@comsas.cm"}

type fixture struct {
	repo    Repository
	svc     Service
	mailSvc *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) fixture {
	conf := testutil.Config(t.TempDir())
	logger := testutil.Logger(conf)
	f := fixture{
		repo:    inmemdb.NewMemberRepository(inmemdb.Open()),
		mailSvc: emailsvc.NewConsoleServiceMock(conf, logger),
	}
	f.svc = NewService(f.repo, f.mailSvc, assocMail)
	return f
}

func application(name, matricule string) Application {
	return Application{
		FullName:   name,
		Matricule:  matricule,
		BirthDate:  "2001-05-12",
		BirthPlace: "Douala",
		Phone:      "690112233",
		Email:      "applicant@test.cm",
		Level:      "L2",
	}
}

func TestService_Apply(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	m, err := f.svc.Apply(ctx, application("Awa Ngono", "21T0001"))
	require.NoError(t, err)
	assert.False(t, m.IsActive)
	assert.Equal(t, TypeSimple, m.Type)
	assert.Equal(t, 2001, m.BirthDate.Year())

	sent := f.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, assocMail.Address, sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "21T0001")
	assert.Contains(t, sent[0].TextContent, "12/05/2001")

	tests := []struct {
		name      string
		app       Application
		wantField string
	}{
		{name: "taken matricule", app: application("Paul Biya", "21T0001"), wantField: "matricule"},
		{name: "bad birth date", app: func() Application {
			a := application("Paul Biya", "21T0002")
			a.BirthDate = "2001-13-01"
			return a
		}(), wantField: "birth_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Apply(ctx, tt.app)
			var vErr *core.ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			require.Len(t, vErr.Fields, 1)
			assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
		})
	}
	assert.Len(t, f.mailSvc.SentMessages(), 1)
}

func TestService_ApproveReject(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	pending := testutil.CreateMember(t, f.repo, "Awa Ngono", "21T0001", TypeSimple, false)
	other := testutil.CreateMember(t, f.repo, "Paul Biya", "21T0002", TypeSimple, false)

	m, err := f.svc.Approve(ctx, pending.ID)
	require.NoError(t, err)
	assert.True(t, m.IsActive)

	sent := f.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, pending.Email, sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "Awa Ngono")
	assert.Contains(t, sent[0].TextContent, "21T0001")
	assert.NotEmpty(t, sent[0].HTMLContent)

	// a second approval sends nothing
	_, err = f.svc.Approve(ctx, pending.ID)
	require.NoError(t, err)
	assert.Len(t, f.mailSvc.SentMessages(), 1)

	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{name: "approved member", id: pending.ID, wantErr: ErrAlreadyApproved},
		{name: "unknown member", id: "nope", wantErr: ErrNotFound},
		{name: "pending member", id: other.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, f.svc.Reject(ctx, tt.id))
		})
	}

	_, err = f.svc.Get(ctx, other.ID)
	assert.Equal(t, ErrNotFound, err)
	_, err = f.svc.Approve(ctx, "nope")
	assert.Equal(t, ErrNotFound, err)
}

func TestService_Update(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	m := testutil.CreateMember(t, f.repo, "Awa Ngono", "21T0001", TypeSimple, true)

	tests := []struct {
		name     string
		update   Update
		wantPost string
	}{
		{name: "bureau post kept", update: Update{Type: TypeBureau, BureauPost: "Trésorière", Promotion: "2021"}, wantPost: "Trésorière"},
		{name: "post dropped outside the bureau", update: Update{Type: TypeCouncil, BureauPost: "Trésorière"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.Update(ctx, m.ID, tt.update)
			require.NoError(t, err)
			assert.Equal(t, tt.update.Type, got.Type)
			assert.Equal(t, tt.wantPost, got.BureauPost)
			assert.Equal(t, m.Matricule, got.Matricule)
		})
	}

	_, err := f.svc.Update(ctx, "nope", Update{Type: TypeSimple})
	assert.Equal(t, ErrNotFound, err)
}

func TestService_Directory(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	testutil.CreateMember(t, f.repo, "zoé Eto", "21T0001", TypeBureau, true)
	testutil.CreateMember(t, f.repo, "Awa Ngono", "21T0002", TypeBureau, true)
	testutil.CreateMember(t, f.repo, "Paul Biya", "21T0003", TypeSimple, true)
	testutil.CreateMember(t, f.repo, "Pending Guy", "21T0004", TypeBureau, false)

	tests := []struct {
		name       string
		memberType string
		want       []string
	}{
		{name: "bureau", memberType: TypeBureau, want: []string{"Awa Ngono", "zoé Eto"}},
		{name: "all types", want: []string{"Awa Ngono", "Paul Biya", "zoé Eto"}},
		{name: "founders", memberType: TypeFounder, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiles, err := f.svc.Directory(ctx, tt.memberType)
			require.NoError(t, err)
			names := make([]string, 0, len(profiles))
			for _, p := range profiles {
				names = append(names, p.FullName)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}
