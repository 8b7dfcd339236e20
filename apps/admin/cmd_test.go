package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neussi/comsas-uy1.com/core/contest"
	"github.com/neussi/comsas-uy1.com/core/sponsorship"
	"github.com/neussi/comsas-uy1.com/core/user"
	emailsvc "github.com/neussi/comsas-uy1.com/services/email"
	notifysvc "github.com/neussi/comsas-uy1.com/services/notify"
	sqlxrepos "github.com/neussi/comsas-uy1.com/storage/database/sqlx"
	"github.com/neussi/comsas-uy1.com/tests"
)

type fixture struct {
	cli             *commandLine
	out             *bytes.Buffer
	usrRepo         user.Repository
	sponsorshipRepo sponsorship.Repository
	contestRepo     contest.Repository
	mailSvc         *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) *fixture {
	conf := testutil.Config(t.TempDir())
	logger := testutil.Logger(conf)

	// set up DB & repos
	db := testutil.PrepareDB(t)
	f := &fixture{
		out:             new(bytes.Buffer),
		usrRepo:         sqlxrepos.NewUserRepository(db),
		sponsorshipRepo: sqlxrepos.NewSponsorshipRepository(db),
		contestRepo:     sqlxrepos.NewContestRepository(db),
		mailSvc:         emailsvc.NewConsoleServiceMock(conf, logger),
	}

	// start CLI
	f.cli = &commandLine{
		db:             db,
		out:            f.out,
		usrRepo:        f.usrRepo,
		sponsorshipSvc: sponsorship.NewService(f.sponsorshipRepo, f.mailSvc, notifysvc.NewNotifierMock(), logger),
		contestSvc:     contest.NewService(f.contestRepo, nil),
	}
	return f
}

func mockPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
	t.Cleanup(func() { readPasswordFunc = orig })
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_usage(t *testing.T) {
	f := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "adduser: no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "adduser: no password", args: []string{"adduser", "-username", "awa", "-email", "awa@comsas.cm"}, wantErr: errHelp},
		{name: "resetpassword: no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "automatch: no session", args: []string{"automatch"}, wantErr: errHelp},
		{name: "recount: no contest", args: []string{"recount"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			tt.check(t, f.cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
	assert.Contains(t, f.out.String(), "Usage:")
}

func Test_commandLine_migrate(t *testing.T) {
	f := setup(t)

	orig := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = orig })
	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		if _, err := fs.Stat(fsys, dir); err != nil {
			return err
		}
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "badges", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, f.cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	existing := testutil.CreateUser(t, f.usrRepo, "Awa", "awa", "awa@comsas.cm", "old", nil, false)

	tests := []struct {
		name      string
		args      []string
		pwd       string
		wantUname string
		wantRoles []string
	}{
		{name: "new admin", args: []string{"adduser", "-username", " Root ", "-email", "ROOT@comsas.cm", "-admin"}, pwd: "s3cret", wantUname: "root", wantRoles: user.AllRoles},
		{name: "new bureau", args: []string{"adduser", "-username", "sec", "-email", "sec@comsas.cm", "-bureau"}, pwd: "s3cret", wantUname: "sec", wantRoles: user.BureauRoles},
		{name: "existing user by email", args: []string{"adduser", "-username", "someone", "-email", "awa@comsas.cm", "-bureau"}, pwd: "n3w", wantUname: "awa", wantRoles: user.BureauRoles},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			require.NoError(t, f.cli.run(append([]string{"admin"}, tt.args...)))

			usr, err := f.usrRepo.GetUser(ctx, user.GetFilter{Username: tt.wantUname})
			require.NoError(t, err)
			require.NotNil(t, usr.IsActive)
			assert.True(t, *usr.IsActive)
			assert.ElementsMatch(t, tt.wantRoles, []string(usr.Roles))
			assert.NoError(t, usr.CheckPassword(tt.pwd))
		})
	}

	usr, err := f.usrRepo.GetUser(ctx, user.GetFilter{ID: existing.ID})
	require.NoError(t, err)
	assert.Equal(t, "awa", usr.Username)
	users, err := f.usrRepo.QueryUsers(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, users, 3)
}

func Test_commandLine_resetPassword(t *testing.T) {
	f := setup(t)
	usr := testutil.CreateUser(t, f.usrRepo, "User", "awe", "awe@test.cm", "mdr", nil, true)

	tests := []cliTest{
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, pwd: "lol"},
		{name: "reset with email", args: []string{"resetpassword", "-username", " AWE@test.cm"}, pwd: "lmao"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			err := f.cli.run(append([]string{"admin"}, tt.args...))
			tt.check(t, err)
			if err != nil {
				return
			}

			refreshed, err := f.usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
			require.NoError(t, err)
			assert.NoError(t, refreshed.CheckPassword(tt.pwd))
		})
	}
}

func Test_commandLine_autoMatch(t *testing.T) {
	f := setup(t)
	now := time.Now()
	sess := testutil.CreateSession(t, f.sponsorshipRepo, "2026", true)
	closed := testutil.CreateSession(t, f.sponsorshipRepo, "2025", false)
	testutil.CreateMentor(t, f.sponsorshipRepo, sess.ID, "m1@comsas.cm", "GL", []string{"web"}, 1, now.Add(-time.Hour))
	testutil.CreateMentee(t, f.sponsorshipRepo, sess.ID, "e1@comsas.cm", "GL", []string{"web"}, now.Add(-time.Hour))
	testutil.CreateMentee(t, f.sponsorshipRepo, sess.ID, "e2@comsas.cm", "GL", nil, now)

	err := f.cli.run([]string{"admin", "automatch", "-session", closed.ID})
	assert.Equal(t, sponsorship.ErrSessionInactive, err)

	f.out.Reset()
	require.NoError(t, f.cli.run([]string{"admin", "automatch", "-session", sess.ID}))
	assert.Equal(t, "created: 1, unmatched: 1, skipped: 0\n", f.out.String())
	assert.Len(t, f.mailSvc.SentMessages(), 2)
}

func Test_commandLine_recount(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := testutil.CreateOpenContest(t, f.contestRepo, "miss-2026")
	alice := testutil.CreateCandidate(t, f.contestRepo, c.ID, "Alice", contest.StatusApproved)
	testutil.CreateCandidate(t, f.contestRepo, c.ID, "Bob", contest.StatusApproved)
	_, err := f.contestRepo.RecordVote(ctx, contest.Vote{
		ContestID:      c.ID,
		CandidateID:    alice.ID,
		VoterEmail:     "v@test.cm",
		VoterMatricule: "20U0001",
		CreatedAt:      time.Now().UTC(),
	})
	require.NoError(t, err)

	err = f.cli.run([]string{"admin", "recount", "-contest", "nope"})
	assert.Equal(t, contest.ErrContestNotFound, err)

	f.out.Reset()
	require.NoError(t, f.cli.run([]string{"admin", "recount", "-contest", c.ID}))
	assert.Equal(t, "Alice: 1\nBob: 0\n", f.out.String())
}
