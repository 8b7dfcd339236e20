package testutil

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"strings"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/neussi/comsas-uy1.com/core"
	"github.com/neussi/comsas-uy1.com/core/contest"
	"github.com/neussi/comsas-uy1.com/core/event"
	"github.com/neussi/comsas-uy1.com/core/member"
	"github.com/neussi/comsas-uy1.com/core/sponsorship"
	"github.com/neussi/comsas-uy1.com/core/user"
	logsvc "github.com/neussi/comsas-uy1.com/services/logger"
	"github.com/neussi/comsas-uy1.com/storage/database"
)

// Config returns a test configuration backed by a sqlite database in dir.
func Config(dir string) *core.Config {
	conf := core.NewConfig()
	conf.TestMode = true
	conf.Debug = false
	conf.Database.Engine = database.SQLite
	conf.Database.Path = filepath.Join(dir, "test.db")
	conf.Telegram.Token = ""
	return conf
}

// Logger returns a silent logger with Rollbar reporting disabled.
func Logger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)
	return logger
}

// PrepareDB opens a fresh, fully migrated sqlite database that is closed with the test.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := database.Open(Config(t.TempDir()))
	if err != nil {
		t.Fatalf("PrepareDB() failed to open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed to migrate: %v", err)
	}
	return db
}

// NewValidator returns a validator with every custom tag registered, and the translator of its messages.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	sponsorship.InitValidators(validate, translator)
	contest.InitValidators(validate, translator)
	member.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateSession(t *testing.T, repo sponsorship.Repository, name string, isActive bool) sponsorship.Session {
	now := time.Now().UTC().Truncate(time.Second)
	sess, err := repo.CreateSession(context.Background(), sponsorship.Session{
		Name:      name,
		StartDate: now.AddDate(0, -1, 0),
		EndDate:   now.AddDate(0, 5, 0),
		IsActive:  isActive,
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	return sess
}

// CreateMentor registers a mentor; createdAt decides its rank in matching passes.
func CreateMentor(
	t *testing.T,
	repo sponsorship.Repository,
	sessionID, email, specialty string,
	domains []string,
	maxMentees int,
	createdAt time.Time,
) sponsorship.Mentor {
	mentor, err := repo.CreateMentor(context.Background(), sponsorship.Mentor{
		SessionID:        sessionID,
		FirstName:        "Mentor",
		LastName:         email,
		Phone:            "690000000",
		Email:            email,
		Level:            "M2",
		Specialty:        specialty,
		ExpertiseDomains: sponsorship.NewTagSet(domains...),
		MaxMentees:       maxMentees,
		CreatedAt:        createdAt.UTC(),
	})
	if err != nil {
		t.Fatalf("CreateMentor() failed: %v", err)
	}
	return mentor
}

// CreateMentee registers a mentee; createdAt decides its rank in matching passes.
func CreateMentee(
	t *testing.T,
	repo sponsorship.Repository,
	sessionID, email, specialty string,
	domains []string,
	createdAt time.Time,
) sponsorship.Mentee {
	mentee, err := repo.CreateMentee(context.Background(), sponsorship.Mentee{
		SessionID:        sessionID,
		FirstName:        "Mentee",
		LastName:         email,
		Phone:            "670000000",
		Email:            email,
		Level:            "L1",
		DesiredSpecialty: specialty,
		DesiredDomains:   sponsorship.NewTagSet(domains...),
		CreatedAt:        createdAt.UTC(),
	})
	if err != nil {
		t.Fatalf("CreateMentee() failed: %v", err)
	}
	return mentee
}

// CreateContest stores a contest open from start to end.
func CreateContest(t *testing.T, repo contest.Repository, slug string, start, end time.Time, isActive bool) contest.Contest {
	c, err := repo.CreateContest(context.Background(), contest.Contest{
		Slug:      slug,
		Title:     slug,
		StartTime: start.UTC(),
		EndTime:   end.UTC(),
		IsActive:  isActive,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateContest() failed: %v", err)
	}
	return c
}

// CreateOpenContest stores an active contest that started yesterday and ends tomorrow.
func CreateOpenContest(t *testing.T, repo contest.Repository, slug string) contest.Contest {
	now := time.Now()
	return CreateContest(t, repo, slug, now.Add(-24*time.Hour), now.Add(24*time.Hour), true)
}

func CreateCandidate(t *testing.T, repo contest.Repository, contestID, name, status string) contest.Candidate {
	cand, err := repo.CreateCandidate(context.Background(), contest.Candidate{
		ContestID: contestID,
		Name:      name,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateCandidate() failed: %v", err)
	}
	return cand
}

// CreateMember stores a member born on January 1st, 2000.
func CreateMember(t *testing.T, repo member.Repository, name, matricule, memberType string, isActive bool) member.Member {
	m, err := repo.CreateMember(context.Background(), member.Member{
		FullName:   name,
		BirthDate:  time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		BirthPlace: "Yaoundé",
		Phone:      "690000000",
		Email:      strings.ToLower(matricule) + "@comsas.cm",
		Matricule:  matricule,
		Type:       memberType,
		IsActive:   isActive,
		JoinedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateMember() failed: %v", err)
	}
	return m
}

// CreateEvent stores an active event held in a week, with registrations open until deadline.
// maxParticipants <= 0 means unlimited.
func CreateEvent(t *testing.T, repo event.Repository, title string, deadline time.Time, maxParticipants int) event.Event {
	var limit *int
	if maxParticipants > 0 {
		limit = &maxParticipants
	}
	now := time.Now().UTC()
	e, err := repo.CreateEvent(context.Background(), event.Event{
		Title:                title,
		Date:                 now.AddDate(0, 0, 7),
		Location:             "Amphi 250",
		MaxParticipants:      limit,
		RegistrationDeadline: deadline.UTC(),
		IsActive:             true,
		CreatedAt:            now,
	})
	if err != nil {
		t.Fatalf("CreateEvent() failed: %v", err)
	}
	return e
}
