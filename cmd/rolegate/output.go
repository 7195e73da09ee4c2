package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rolegate/portal-client/internal/core/domain"
)

type format string

const (
	formatTable format = "table"
	formatJSON  format = "json"
	formatYAML  format = "yaml"
)

func parseFormat(s string) (format, error) {
	switch f := format(s); f {
	case formatTable, formatJSON, formatYAML:
		return f, nil
	}
	return "", domain.Validation(fmt.Sprintf("unknown output format %q", s))
}

type printer struct {
	w io.Writer
	f format
}

// emit writes v as JSON or YAML, or hands a tabwriter to table.
func (p printer) emit(v any, table func(tw *tabwriter.Writer)) error {
	switch p.f {
	case formatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

type messageOut struct {
	Message string      `json:"message" yaml:"message"`
	View    domain.View `json:"view"    yaml:"view"`
}

func (p printer) message(msg string, view domain.View) error {
	out := messageOut{Message: msg, View: view}
	return p.emit(out, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, msg)
		fmt.Fprintf(tw, "view:\t%s\n", view)
	})
}

type sessionOut struct {
	Authenticated bool         `json:"authenticated"       yaml:"authenticated"`
	User          *domain.User `json:"user,omitempty"      yaml:"user,omitempty"`
	RoleLabel     string       `json:"roleLabel,omitempty" yaml:"roleLabel,omitempty"`
	View          domain.View  `json:"view"                yaml:"view"`
}

func (p printer) session(state domain.AuthState, view domain.View) error {
	out := sessionOut{View: view}
	if u, ok := state.User(); ok {
		out.Authenticated = true
		out.User = &u
		out.RoleLabel = u.Role.Label()
	}
	return p.emit(out, func(tw *tabwriter.Writer) {
		if out.User == nil {
			fmt.Fprintln(tw, "not logged in")
		} else {
			fmt.Fprintf(tw, "user:\t%s (%s)\n", out.User.UserID, out.User.Username)
			fmt.Fprintf(tw, "email:\t%s\n", out.User.Email)
			fmt.Fprintf(tw, "role:\t%s\n", out.RoleLabel)
		}
		fmt.Fprintf(tw, "view:\t%s\n", view)
	})
}

type navigationOut struct {
	Requested  domain.View `json:"requested"  yaml:"requested"`
	View       domain.View `json:"view"       yaml:"view"`
	Redirected bool        `json:"redirected" yaml:"redirected"`
}

func (p printer) navigation(requested, resolved domain.View) error {
	out := navigationOut{Requested: requested, View: resolved, Redirected: requested != resolved}
	return p.emit(out, func(tw *tabwriter.Writer) {
		if out.Redirected {
			fmt.Fprintf(tw, "view:\t%s (requested %s)\n", resolved, requested)
			return
		}
		fmt.Fprintf(tw, "view:\t%s\n", resolved)
	})
}

type usersOut struct {
	Users []domain.RosterEntry `json:"users" yaml:"users"`
	Count int                  `json:"count" yaml:"count"`
}

func (p printer) users(entries []domain.RosterEntry) error {
	if entries == nil {
		entries = []domain.RosterEntry{}
	}
	out := usersOut{Users: entries, Count: len(entries)}
	return p.emit(out, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "ID\tUSERID\tUSERNAME\tEMAIL\tROLE\tACTIVE\tCREATED")
		for _, e := range entries {
			created := "-"
			if !e.CreatedAt.IsZero() {
				created = e.CreatedAt.Format(time.DateOnly)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				e.ID, e.UserID, orDash(e.Username), orDash(e.Email), e.Role.Label(), yesNo(e.IsActive), created)
		}
	})
}

func (p printer) result(res domain.MutationResult) error {
	return p.emit(res, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, res.Message)
	})
}
