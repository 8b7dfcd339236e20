package main

import (
	"context"
	"expvar"
	"fmt"
	"io"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/neussi/comsas-uy1.com/apps/api/echo"
	"github.com/neussi/comsas-uy1.com/core"
	"github.com/neussi/comsas-uy1.com/core/contact"
	"github.com/neussi/comsas-uy1.com/core/contest"
	"github.com/neussi/comsas-uy1.com/core/event"
	"github.com/neussi/comsas-uy1.com/core/member"
	"github.com/neussi/comsas-uy1.com/core/sponsorship"
	"github.com/neussi/comsas-uy1.com/core/user"
	emailsvc "github.com/neussi/comsas-uy1.com/services/email"
	logsvc "github.com/neussi/comsas-uy1.com/services/logger"
	notifysvc "github.com/neussi/comsas-uy1.com/services/notify"
	"github.com/neussi/comsas-uy1.com/storage/database"
	inmemdb "github.com/neussi/comsas-uy1.com/storage/database/inmem"
	sqlxrepos "github.com/neussi/comsas-uy1.com/storage/database/sqlx"
)

type repositories struct {
	users       user.Repository
	sponsorship sponsorship.Repository
	contests    contest.Repository
	members     member.Repository
	events      event.Repository
	messages    contact.Repository
	closer      io.Closer
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	repos, err := setUpRepositories(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = repos.closer.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	notifier, err := notifysvc.New(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up notifier: %v", err), err)
	}

	usrSvc := user.NewService(repos.users)
	sponsorshipSvc := sponsorship.NewService(repos.sponsorship, mailSvc, notifier, logger)
	contestSvc := contest.NewService(repos.contests, notifier)
	memberSvc := member.NewService(repos.members, mailSvc, conf.AssociationEmail)
	eventSvc := event.NewService(repos.events, mailSvc, conf.AssociationEmail)
	contactSvc := contact.NewService(repos.messages, mailSvc, conf.AssociationEmail)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q (%s)", conf.Build, conf))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	sponsorship.InitValidators(validate, translator)
	contest.InitValidators(validate, translator)
	member.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	user.LoadCommonPasswords(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("database").Set(conf.Database.Engine)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:           conf,
			Logger:         logger,
			UserSvc:        usrSvc,
			SponsorshipSvc: sponsorshipSvc,
			ContestSvc:     contestSvc,
			MemberSvc:      memberSvc,
			EventSvc:       eventSvc,
			ContactSvc:     contactSvc,
			Validate:       validate,
			Translator:     translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpRepositories(conf *core.Config) (*repositories, error) {
	if conf.Database.Engine == database.Memory {
		db := inmemdb.Open()
		return &repositories{
			users:       inmemdb.NewUserRepository(db),
			sponsorship: inmemdb.NewSponsorshipRepository(db),
			contests:    inmemdb.NewContestRepository(db),
			members:     inmemdb.NewMemberRepository(db),
			events:      inmemdb.NewEventRepository(db),
			messages:    inmemdb.NewContactRepository(db),
			closer:      db,
		}, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &repositories{
		users:       sqlxrepos.NewUserRepository(db),
		sponsorship: sqlxrepos.NewSponsorshipRepository(db),
		contests:    sqlxrepos.NewContestRepository(db),
		members:     sqlxrepos.NewMemberRepository(db),
		events:      sqlxrepos.NewEventRepository(db),
		messages:    sqlxrepos.NewContactRepository(db),
		closer:      db,
	}, nil
}
