package main

import (
	"context"

	"github.com/neussi/comsas-uy1.com/core"
	"github.com/neussi/comsas-uy1.com/core/user"
)

// addUser updates or creates a staff user.User
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin, isBureau bool) error {
	var usr user.User
	var err error
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	if usr, err = cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname, email}}); err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Name:     uname,
			Username: uname,
			Email:    email,
		}
	}
	switch {
	case isAdmin:
		usr.Roles = user.AllRoles
	case isBureau:
		usr.Roles = user.BureauRoles
	}
	usr.SetActive(true)
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.UpdateOrCreateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}
