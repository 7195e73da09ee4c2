package domain

import (
	"fmt"
	"strings"
)

// View identifies one of the screens a user can navigate to.
type View string

const (
	ViewHome     View = "home"
	ViewLogin    View = "login"
	ViewRegister View = "register"
	ViewAdmin    View = "admin"
)

// ParseView converts a navigation request into a View.
func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case ViewHome, ViewLogin, ViewRegister, ViewAdmin:
		return v, nil
	}
	return "", fmt.Errorf("unknown view %q", s)
}

func (v *View) UnmarshalText(b []byte) error {
	parsed, err := ParseView(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// AuthState is the in-memory authentication state: Anonymous when no user
// is held, Authenticated otherwise.
type AuthState struct {
	user *User
}

// Anonymous is the state with no session.
func Anonymous() AuthState { return AuthState{} }

// Authenticated is the state holding u.
func Authenticated(u User) AuthState { return AuthState{user: &u} }

func (a AuthState) Authenticated() bool { return a.user != nil }

// User returns a copy of the authenticated user.
func (a AuthState) User() (User, bool) {
	if a.user == nil {
		return User{}, false
	}
	return *a.user, true
}

// Role returns the authenticated user's role.
func (a AuthState) Role() (Role, bool) {
	if a.user == nil {
		return "", false
	}
	return a.user.Role, true
}

func (a AuthState) HasRole(r Role) bool {
	role, ok := a.Role()
	return ok && role == r
}

func (a AuthState) IsAdmin() bool { return a.HasRole(RoleAdmin) }

func (a AuthState) String() string {
	if a.user == nil {
		return "anonymous"
	}
	return fmt.Sprintf("authenticated(%s:%s)", a.user.UserID, a.user.Role)
}
