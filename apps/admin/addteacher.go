package main

import (
	"context"
	"fmt"

	"github.com/maharatedu/platform/core"
	"github.com/maharatedu/platform/core/user"
)

// addTeacher registers the platform's single teacher account.
func (cli *commandLine) addTeacher(ctx context.Context, name, email, pwd string) error {
	reg := user.Registration{
		Name:     name,
		Email:    email,
		Password: pwd,
		Role:     user.RoleTeacher,
	}
	if err := reg.Validate(core.Validate); err != nil {
		return err
	}
	usr, err := cli.usrSvc.Register(ctx, reg)
	if err != nil {
		return err
	}
	fmt.Printf("teacher %q (%s) registered with id %s\n", usr.Name, usr.Email, usr.ID)
	return nil
}

// seedSettings materializes the default settings document so that the
// first portal load does not have to.
func (cli *commandLine) seedSettings(ctx context.Context) error {
	st, err := cli.setSvc.Get(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("platform settings ready (site name %q)\n", st.SiteName)
	return nil
}
