package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rolegate/portal-client/internal/core/domain"
)

const (
	adminDeniedMessage = "Access denied. Admin privileges required."
	transportMessage   = "Unable to reach the server. Please check your connection."
	unexpectedMessage  = "An unexpected error occurred"
)

// errorBody covers the message fields the backend and its framework emit.
type errorBody struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
	Error   string `json:"error"`
}

func kindForStatus(status int) domain.Kind {
	switch status {
	case http.StatusUnauthorized:
		return domain.KindAuth
	case http.StatusForbidden:
		return domain.KindForbidden
	case http.StatusNotFound:
		return domain.KindNotFound
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return domain.KindValidation
	}
	return domain.KindServer
}

// statusError normalizes a non-2xx response. A server-supplied message wins
// over generic text, except for admin calls answered with 403, which always
// read the same way.
func statusError(status int, body []byte, admin bool) *domain.Error {
	kind := kindForStatus(status)
	if admin && kind == domain.KindForbidden {
		return domain.NewError(kind, status, adminDeniedMessage)
	}

	msg := serverMessage(body)
	if msg == "" {
		if text := http.StatusText(status); text != "" {
			msg = "Request failed: " + text
		} else {
			msg = unexpectedMessage
		}
	}
	return domain.NewError(kind, status, msg)
}

func serverMessage(body []byte) string {
	var eb errorBody
	if len(body) == 0 || json.Unmarshal(body, &eb) != nil {
		return ""
	}
	for _, m := range []string{eb.Message, eb.Detail, eb.Error} {
		if m = strings.TrimSpace(m); m != "" {
			return m
		}
	}
	return ""
}

func transportError(err error) *domain.Error {
	return &domain.Error{Kind: domain.KindTransport, Message: transportMessage, Err: err}
}

func payloadError(status int, message string, err error) *domain.Error {
	if message == "" {
		message = "Unexpected response from server"
	}
	return &domain.Error{Kind: domain.KindServer, Status: status, Message: message, Err: err}
}
