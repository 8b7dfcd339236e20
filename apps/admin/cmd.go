package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/neussi/comsas-uy1.com/core/contest"
	"github.com/neussi/comsas-uy1.com/core/sponsorship"
	"github.com/neussi/comsas-uy1.com/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db             *sqlx.DB
	out            io.Writer
	usrRepo        user.Repository
	sponsorshipSvc sponsorship.Service
	contestSvc     contest.Service
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  adduser -username USERNAME -email EMAIL [-admin|-bureau] - create or update a staff user")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  automatch -session SESSION_ID - match every pending mentee of a sponsorship session")
	fmt.Fprintln(cli.out, "  recount -contest CONTEST_ID - rebuild the vote tallies of a contest")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant every admin role.")
	addUserBureau := addUserCmd.Bool("bureau", false, "Grant the bureau role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	autoMatchCmd := flag.NewFlagSet("automatch", flag.ContinueOnError)
	autoMatchSession := autoMatchCmd.String("session", "", "The sponsorship session ID.")

	recountCmd := flag.NewFlagSet("recount", flag.ContinueOnError)
	recountContest := recountCmd.String("contest", "", "The contest ID.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserUname, *addUserEmail, pwd, *addUserAdmin, *addUserBureau)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "automatch":
		if err := autoMatchCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *autoMatchSession == "" {
			autoMatchCmd.Usage()
			return errHelp
		}
		return cli.autoMatch(*autoMatchSession)

	case "recount":
		if err := recountCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *recountContest == "" {
			recountCmd.Usage()
			return errHelp
		}
		return cli.recount(*recountContest)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) readPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
