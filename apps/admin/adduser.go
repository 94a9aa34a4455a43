package main

import (
	"context"
	"time"

	"github.com/trezcool/ies/core"
	"github.com/trezcool/ies/core/user"
)

// addUser updates or creates an active user.User
func (cli *commandLine) addUser(name, email, pwd, role string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	now := time.Now().UTC()

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	isNew := err == user.ErrNotFound
	if err != nil && !isNew {
		return err
	}
	if isNew {
		usr = user.User{Email: email, CreatedAt: now}
	}
	usr.Name = name
	usr.Role = role
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}

	if isNew {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	return err
}
