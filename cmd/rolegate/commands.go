package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/rolegate/portal-client/internal/api"
	"github.com/rolegate/portal-client/internal/core/domain"
	"github.com/rolegate/portal-client/internal/infrastructure/config"
)

const usage = `usage: rolegate [-o table|json|yaml] <command> [flags]

commands:
  info                                  backend info probe
  register -username -email [-mobile] -password [-confirm]
  login -userid -password
  logout
  whoami                                show the stored session
  view <home|login|register|admin>      resolve a navigation request
  users [-cached]                       list accounts (admin)
  set-role <id> <user|moderator|admin>  change an account's role (admin)
  toggle-status <id>                    activate or deactivate an account (admin)
  serve                                 run the loopback shell server
`

type command func(ctx context.Context, a *app, p printer, args []string) error

var commands = map[string]command{
	"info":          cmdInfo,
	"register":      cmdRegister,
	"login":         cmdLogin,
	"logout":        cmdLogout,
	"whoami":        cmdWhoami,
	"view":          cmdView,
	"users":         cmdUsers,
	"set-role":      cmdSetRole,
	"toggle-status": cmdToggleStatus,
	"serve":         cmdServe,
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("rolegate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	output := fs.String("o", string(formatTable), "output format: table, json or yaml")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w\n%s", err, usage)
	}
	if fs.NArg() == 0 {
		return errors.New(usage)
	}

	f, err := parseFormat(*output)
	if err != nil {
		return err
	}
	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		return fmt.Errorf("unknown command %q\n%s", fs.Arg(0), usage)
	}

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("close resources")
		}
	}()

	return cmd(ctx, a, printer{w: stdout, f: f}, fs.Args()[1:])
}

func subcommand(name string, args []string, define func(fs *flag.FlagSet)) (*flag.FlagSet, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if define != nil {
		define(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, domain.Validation(fmt.Sprintf("%s: %v", name, err))
	}
	return fs, nil
}

func cmdInfo(ctx context.Context, a *app, p printer, args []string) error {
	info, err := a.gateway.Info(ctx)
	if err != nil {
		return err
	}
	return p.emit(info, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "message:\t%s\n", info.Message)
		fmt.Fprintf(tw, "status:\t%s\n", info.Status)
		for _, ep := range info.Endpoints {
			fmt.Fprintf(tw, "endpoint:\t%s\n", ep)
		}
	})
}

func cmdRegister(ctx context.Context, a *app, p printer, args []string) error {
	var (
		profile domain.RegistrationProfile
		confirm string
	)
	if _, err := subcommand("register", args, func(fs *flag.FlagSet) {
		fs.StringVar(&profile.Username, "username", "", "login handle")
		fs.StringVar(&profile.Email, "email", "", "email address")
		fs.StringVar(&profile.Mobile, "mobile", "", "mobile number")
		fs.StringVar(&profile.Password, "password", "", "password")
		fs.StringVar(&confirm, "confirm", "", "password again; skipped when empty")
	}); err != nil {
		return err
	}
	if confirm != "" && confirm != profile.Password {
		return domain.Validation("Passwords do not match")
	}

	msg, err := a.session.Register(ctx, profile)
	if err != nil {
		return err
	}
	return p.message(msg, a.access.AfterRegistration())
}

func cmdLogin(ctx context.Context, a *app, p printer, args []string) error {
	var userID, password string
	if _, err := subcommand("login", args, func(fs *flag.FlagSet) {
		fs.StringVar(&userID, "userid", "", "login handle")
		fs.StringVar(&password, "password", "", "password")
	}); err != nil {
		return err
	}

	if _, err := a.session.Login(ctx, userID, password); err != nil {
		return err
	}
	return p.session(a.session.State(), a.access.AfterLogin())
}

func cmdLogout(_ context.Context, a *app, p printer, _ []string) error {
	err := a.session.Logout()
	view := a.access.AfterLogout()
	if err != nil {
		return err
	}
	return p.message("Logged out", view)
}

func cmdWhoami(_ context.Context, a *app, p printer, _ []string) error {
	return p.session(a.session.State(), a.access.Current())
}

func cmdView(_ context.Context, a *app, p printer, args []string) error {
	if len(args) != 1 {
		return domain.Validation("view: expected one of home, login, register, admin")
	}
	requested, err := domain.ParseView(args[0])
	if err != nil {
		return domain.Validation(err.Error())
	}
	return p.navigation(requested, a.access.Navigate(requested))
}

// enterAdmin navigates to the admin view and fails when the session may not
// see it.
func enterAdmin(a *app) error {
	if a.access.Navigate(domain.ViewAdmin) != domain.ViewAdmin {
		return domain.NewError(domain.KindForbidden, 0, "Access denied. Admin privileges required.")
	}
	return nil
}

func cmdUsers(ctx context.Context, a *app, p printer, args []string) error {
	var cached bool
	if _, err := subcommand("users", args, func(fs *flag.FlagSet) {
		fs.BoolVar(&cached, "cached", false, "show the last stored roster without contacting the backend")
	}); err != nil {
		return err
	}
	if err := enterAdmin(a); err != nil {
		return err
	}

	if cached {
		if a.cfg.Mongo.URI == "" {
			return domain.Validation("users -cached needs MONGO_URI")
		}
		if err := a.roster.Warm(ctx); err != nil {
			return err
		}
		return p.users(a.roster.Entries())
	}

	entries, err := a.roster.Refresh(ctx)
	if err != nil {
		return err
	}
	return p.users(entries)
}

func cmdSetRole(ctx context.Context, a *app, p printer, args []string) error {
	if len(args) != 2 {
		return domain.Validation("set-role: expected <id> <role>")
	}
	role, err := domain.ParseRole(args[1])
	if err != nil {
		return domain.Validation("Invalid role")
	}
	if err := enterAdmin(a); err != nil {
		return err
	}
	a.warm(ctx)

	res, err := a.roster.ChangeRole(ctx, args[0], role)
	if err != nil {
		return err
	}
	return p.result(res)
}

func cmdToggleStatus(ctx context.Context, a *app, p printer, args []string) error {
	if len(args) != 1 {
		return domain.Validation("toggle-status: expected <id>")
	}
	if err := enterAdmin(a); err != nil {
		return err
	}
	a.warm(ctx)

	res, err := a.roster.ToggleStatus(ctx, args[0])
	if err != nil {
		return err
	}
	return p.result(res)
}

// warm loads the roster snapshot so a confirmed mutation can be written back
// to it.
func (a *app) warm(ctx context.Context) {
	if err := a.roster.Warm(ctx); err != nil {
		a.log.Warn().Err(err).Msg("warm roster")
	}
}

func cmdServe(ctx context.Context, a *app, p printer, _ []string) error {
	a.warm(ctx)
	e := api.NewRouter(api.Deps{
		Session: a.session,
		Access:  a.access,
		Roster:  a.roster,
		Info:    a.gateway,
		Checks:  a.checks,
	}, a.log.With().Str("component", "shell").Logger())

	srv := &http.Server{
		Addr:              a.cfg.Shell.Addr,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", srv.Addr).Msg("shell server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("shell server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shell server shutdown: %w", err)
	}
	return p.message("shell server stopped", a.access.Current())
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
