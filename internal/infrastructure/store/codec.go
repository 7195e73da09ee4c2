// Package store holds the credential store implementations. Every backend
// keeps the session under the same two keys so a store written by one
// driver reads the same way through another.
package store

import (
	"encoding/json"
	"errors"

	"github.com/rolegate/portal-client/internal/core/domain"
)

const (
	TokenKey = "authToken"
	UserKey  = "current_user"
)

var errInvalidSession = errors.New("store: refusing to save an incomplete session")

// encode splits a session into its two persisted values.
func encode(s domain.Session) (token, user string, err error) {
	if !s.Valid() {
		return "", "", errInvalidSession
	}
	b, err := json.Marshal(s.User)
	if err != nil {
		return "", "", err
	}
	return s.Token, string(b), nil
}

// decode rebuilds a session from the two persisted values. Any missing or
// malformed half yields false.
func decode(token, user string) (domain.Session, bool) {
	if token == "" || user == "" {
		return domain.Session{}, false
	}
	var u domain.User
	if err := json.Unmarshal([]byte(user), &u); err != nil {
		return domain.Session{}, false
	}
	s := domain.Session{Token: token, User: u}
	if !s.Valid() {
		return domain.Session{}, false
	}
	return s, true
}
