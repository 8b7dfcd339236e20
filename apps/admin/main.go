package main

import (
	"log"
	"os"

	"github.com/neussi/comsas-uy1.com/core"
	"github.com/neussi/comsas-uy1.com/core/contest"
	"github.com/neussi/comsas-uy1.com/core/sponsorship"
	emailsvc "github.com/neussi/comsas-uy1.com/services/email"
	logsvc "github.com/neussi/comsas-uy1.com/services/logger"
	notifysvc "github.com/neussi/comsas-uy1.com/services/notify"
	"github.com/neussi/comsas-uy1.com/storage/database"
	sqlxrepos "github.com/neussi/comsas-uy1.com/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer func() { _ = db.Close() }()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	notifier, err := notifysvc.New(conf, logger)
	if err != nil {
		logger.Fatal("setting up notifier", err)
	}
	core.ParseEmailTemplates(conf, logger)

	// start CLI
	cli := commandLine{
		db:             db,
		out:            os.Stdout,
		usrRepo:        sqlxrepos.NewUserRepository(db),
		sponsorshipSvc: sponsorship.NewService(sqlxrepos.NewSponsorshipRepository(db), mailSvc, notifier, logger),
		contestSvc:     contest.NewService(sqlxrepos.NewContestRepository(db), notifier),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}
