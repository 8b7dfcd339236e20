package main

import (
	"github.com/trezcool/goose"

	"github.com/neussi/comsas-uy1.com/fs"
)

var gooseRunFunc = goose.RunFS // mockable

func (cli *commandLine) migrate(args []string) error {
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	if err := goose.SetDialect(cli.db.DriverName()); err != nil {
		return err
	}
	return gooseRunFunc(args[0], cli.db.DB, appfs.FS, "migrations", arguments...)
}
