package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lapmarkt/lapcli/internal/model"
)

// cmdLogin authenticates and persists the session.
func (a *app) cmdLogin(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	u := fs.String("u", "", "username")
	p := fs.String("p", "", "password")
	_ = fs.Parse(args)
	if *u == "" || *p == "" {
		fmt.Fprintln(os.Stderr, "need -u and -p")
		os.Exit(1)
	}

	ctx, cancel := a.ctx()
	defer cancel()
	if err := a.sessions.Login(ctx, model.Credentials{Username: *u, Password: *p}, ""); err != nil {
		fail(err)
	}
	fmt.Println("ok")
}

// cmdRegister creates an account and logs in with the same credentials.
func (a *app) cmdRegister(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	u := fs.String("u", "", "username")
	e := fs.String("e", "", "email")
	p := fs.String("p", "", "password")
	_ = fs.Parse(args)
	if *u == "" || *e == "" || *p == "" {
		fmt.Fprintln(os.Stderr, "need -u, -e and -p")
		os.Exit(1)
	}

	ctx, cancel := a.ctx()
	defer cancel()
	reg := model.Registration{Username: *u, Email: *e, Password: *p}
	if err := a.sessions.Register(ctx, reg, ""); err != nil {
		fail(err)
	}
	fmt.Println("ok")
}

func (a *app) cmdLogout() {
	ctx, cancel := a.ctx()
	defer cancel()
	a.sessions.Logout(ctx)
	fmt.Println("ok")
}

func (a *app) cmdMe() {
	if err := a.requireAuth("/me"); err != nil {
		fail(err)
	}
	ctx, cancel := a.ctx()
	defer cancel()
	u, err := a.auth.Me(ctx)
	if err != nil {
		fail(err)
	}
	printJSON(u)
}

func (a *app) cmdProfile() {
	if err := a.requireAuth("/profile"); err != nil {
		fail(err)
	}
	ctx, cancel := a.ctx()
	defer cancel()
	p, err := a.profile.Get(ctx)
	if err != nil {
		fail(err)
	}
	printJSON(p)
}

func (a *app) cmdAvatar(args []string) {
	fs := flag.NewFlagSet("avatar", flag.ExitOnError)
	file := fs.String("file", "", "avatar image file")
	_ = fs.Parse(args)
	if *file == "" {
		fmt.Fprintln(os.Stderr, "need -file")
		os.Exit(1)
	}
	if err := a.requireAuth("/profile"); err != nil {
		fail(err)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		fail(err)
	}
	ctx, cancel := a.ctx()
	defer cancel()
	url, err := a.profile.UploadAvatar(ctx, *file, data)
	if err != nil {
		fail(err)
	}
	fmt.Println(url)
}

func (a *app) cmdAvatarRemove() {
	if err := a.requireAuth("/profile"); err != nil {
		fail(err)
	}
	ctx, cancel := a.ctx()
	defer cancel()
	if err := a.profile.RemoveAvatar(ctx); err != nil {
		fail(err)
	}
	fmt.Println("ok")
}

func (a *app) cmdChangePassword(args []string) {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	current := fs.String("current", "", "current password")
	next := fs.String("new", "", "new password")
	_ = fs.Parse(args)
	if *current == "" || *next == "" {
		fmt.Fprintln(os.Stderr, "need -current and -new")
		os.Exit(1)
	}
	if err := a.requireAuth("/profile"); err != nil {
		fail(err)
	}

	ctx, cancel := a.ctx()
	defer cancel()
	change := model.PasswordChange{CurrentPassword: *current, NewPassword: *next}
	if err := a.profile.ChangePassword(ctx, change); err != nil {
		fail(err)
	}
	fmt.Println("ok")
}
