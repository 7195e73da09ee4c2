package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Role is the authorisation tier of an account. The set is closed: every
// switch over Role in this module lists all three values.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Roles lists the valid roles from least to most privileged.
var Roles = []Role{RoleUser, RoleModerator, RoleAdmin}

// ParseRole converts a wire value into a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleModerator, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// Label is the human readable name shown next to an account.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleModerator:
		return "Moderator"
	case RoleUser:
		return "User"
	}
	return "Unknown"
}

// Color is the palette key used to badge an account with its role.
func (r Role) Color() string {
	switch r {
	case RoleAdmin:
		return "error"
	case RoleModerator:
		return "warning"
	case RoleUser:
		return "primary"
	}
	return "default"
}

// UnmarshalText rejects roles outside the closed set, so a record carrying
// one never decodes.
func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// User is the server-owned account record. The client only holds copies.
type User struct {
	ID        string    `json:"id"        yaml:"id"`
	UserID    string    `json:"userid"    yaml:"userid"`
	Username  string    `json:"username"  yaml:"username"`
	Email     string    `json:"email"     yaml:"email"`
	Mobile    string    `json:"mobile"    yaml:"mobile"`
	Role      Role      `json:"role"      yaml:"role"`
	IsActive  bool      `json:"isActive"  yaml:"isActive"`
	CreatedAt Timestamp `json:"createdAt" yaml:"createdAt"`
}

// Valid reports whether u carries an identity and a known role.
func (u User) Valid() bool {
	return u.ID != "" && u.Role.Valid()
}

// RosterEntry is the admin-visible projection of a User.
type RosterEntry = User

// Session pairs the opaque token with the user it was issued to.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Valid reports whether s satisfies the session invariant: a non-empty
// token together with a well-formed user.
func (s Session) Valid() bool {
	return s.Token != "" && s.User.Valid()
}

// RegistrationProfile is the payload of a sign-up request.
type RegistrationProfile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

// MutationResult is the server acknowledgement of a roster mutation.
type MutationResult struct {
	Success bool   `json:"success" yaml:"success"`
	Message string `json:"message" yaml:"message"`
}

// APIInfo is the body of the backend's info probe.
type APIInfo struct {
	Message   string   `json:"message"             yaml:"message"`
	Status    string   `json:"status"              yaml:"status"`
	Endpoints []string `json:"endpoints,omitempty" yaml:"endpoints,omitempty"`
}

// Timestamp is a time that also accepts the zone-less ISO-8601 form some
// backends emit for naive datetimes. Zone-less values are read as UTC; an
// explicit offset is kept. Compare Timestamps with Equal: a parsed offset
// gets a fresh *time.Location, so == differs across decodes.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02",
}

// MarshalJSON and UnmarshalJSON shadow the methods promoted from time.Time
// so the tolerant layouts apply to JSON as well.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	b, err := t.MarshalText()
	if err != nil {
		return nil, err
	}
	return []byte(strconv.Quote(string(b))), nil
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		t.Time = time.Time{}
		return nil
	}
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("invalid timestamp %s", b)
	}
	return t.UnmarshalText([]byte(s))
}

func (t Timestamp) MarshalText() ([]byte, error) {
	if t.IsZero() {
		return []byte{}, nil
	}
	return []byte(t.Format(time.RFC3339Nano)), nil
}

func (t *Timestamp) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}
