// Package gateway is the HTTP client for the account backend. It is the only
// code in the module that performs network I/O against the backend.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rolegate/portal-client/internal/core/domain"
	"github.com/rolegate/portal-client/internal/core/ports"
	"github.com/rolegate/portal-client/internal/metrics"
)

const (
	DefaultBaseURL = "http://localhost:8000/api"
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 1 << 20
)

// Options configures the transport.
type Options struct {
	BaseURL string
	// Timeout bounds each request; ignored when HTTPClient is set.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client implements ports.Gateway over HTTP/JSON.
type Client struct {
	baseURL string
	http    *http.Client
	store   ports.CredentialStore
	log     zerolog.Logger
}

var _ ports.Gateway = (*Client)(nil)

func New(opts Options, store ports.CredentialStore, log zerolog.Logger) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: base, http: hc, store: store, log: log}
}

// call describes one backend request.
type call struct {
	op     string
	method string
	path   string
	body   any
	// public requests never carry the stored token.
	public bool
	// admin requests report 403 with a fixed message.
	admin bool
}

type loginRequest struct {
	UserID   string `json:"userid"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *domain.User `json:"user"`
}

type registerResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    *domain.User `json:"user"`
}

type usersResponse struct {
	Users *[]domain.User `json:"users"`
}

type changeRoleRequest struct {
	UserID  string      `json:"userId"`
	NewRole domain.Role `json:"newRole"`
}

type toggleStatusRequest struct {
	UserID string `json:"userId"`
}

func (c *Client) Info(ctx context.Context) (domain.APIInfo, error) {
	var info domain.APIInfo
	err := c.do(ctx, call{op: "info", method: http.MethodGet, path: "/"}, &info)
	return info, err
}

func (c *Client) Login(ctx context.Context, userID, password string) (domain.Session, error) {
	var resp loginResponse
	err := c.do(ctx, call{
		op:     "login",
		method: http.MethodPost,
		path:   "/auth/login/",
		body:   loginRequest{UserID: userID, Password: password},
		public: true,
	}, &resp)
	if err != nil {
		return domain.Session{}, err
	}

	if !resp.Success || resp.Token == "" || resp.User == nil {
		return domain.Session{}, c.reject("login", payloadError(http.StatusOK, resp.Message, nil))
	}
	session := domain.Session{Token: resp.Token, User: *resp.User}
	if !session.Valid() {
		return domain.Session{}, c.reject("login", payloadError(http.StatusOK, "Server returned an incomplete user record", nil))
	}

	if err := c.store.Save(session); err != nil {
		return domain.Session{}, c.reject("login", &domain.Error{
			Kind:    domain.KindServer,
			Message: "Signed in, but the session could not be saved",
			Err:     err,
		})
	}
	c.log.Info().Str("userid", session.User.UserID).Str("role", string(session.User.Role)).Msg("session stored")
	return session, nil
}

func (c *Client) Register(ctx context.Context, profile domain.RegistrationProfile) (string, error) {
	var resp registerResponse
	err := c.do(ctx, call{
		op:     "register",
		method: http.MethodPost,
		path:   "/auth/register/",
		body:   profile,
		public: true,
	}, &resp)
	if err != nil {
		return "", err
	}
	if !resp.Success {
		return "", c.reject("register", payloadError(http.StatusOK, resp.Message, nil))
	}
	return resp.Message, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]domain.RosterEntry, error) {
	var resp usersResponse
	err := c.do(ctx, call{
		op:     "list_users",
		method: http.MethodGet,
		path:   "/auth/users/",
		admin:  true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Users == nil {
		return nil, c.reject("list_users", payloadError(http.StatusOK, "", nil))
	}
	return *resp.Users, nil
}

func (c *Client) ChangeRole(ctx context.Context, userID string, role domain.Role) (domain.MutationResult, error) {
	return c.mutate(ctx, call{
		op:     "change_role",
		method: http.MethodPost,
		path:   "/auth/change-role/",
		body:   changeRoleRequest{UserID: userID, NewRole: role},
		admin:  true,
	})
}

func (c *Client) ToggleStatus(ctx context.Context, userID string) (domain.MutationResult, error) {
	return c.mutate(ctx, call{
		op:     "toggle_status",
		method: http.MethodPost,
		path:   "/auth/toggle-status/",
		body:   toggleStatusRequest{UserID: userID},
		admin:  true,
	})
}

func (c *Client) Logout() error {
	if err := c.store.Clear(); err != nil {
		metrics.GatewayRequestsTotal.WithLabelValues("logout", domain.KindServer.String()).Inc()
		return &domain.Error{Kind: domain.KindServer, Message: "Could not clear the stored session", Err: err}
	}
	metrics.GatewayRequestsTotal.WithLabelValues("logout", "ok").Inc()
	return nil
}

func (c *Client) mutate(ctx context.Context, cl call) (domain.MutationResult, error) {
	var res domain.MutationResult
	if err := c.do(ctx, cl, &res); err != nil {
		return domain.MutationResult{}, err
	}
	if !res.Success {
		return domain.MutationResult{}, c.reject(cl.op, payloadError(http.StatusOK, res.Message, nil))
	}
	return res, nil
}

// reject records a failure detected after a 2xx response was decoded.
func (c *Client) reject(op string, e *domain.Error) *domain.Error {
	metrics.GatewayRequestsTotal.WithLabelValues(op, e.Kind.String()).Inc()
	c.log.Warn().Str("operation", op).Str("kind", e.Kind.String()).Msg(e.Message)
	return e
}

// do sends one request and decodes a 2xx body into out. Every failure is
// returned as a *domain.Error.
func (c *Client) do(ctx context.Context, cl call, out any) error {
	req, err := c.newRequest(ctx, cl)
	if err != nil {
		return c.fail(cl, 0, &domain.Error{Kind: domain.KindServer, Message: unexpectedMessage, Err: err})
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.GatewayRequestDuration.WithLabelValues(cl.op).Observe(time.Since(start).Seconds())
	if err != nil {
		return c.fail(cl, 0, transportError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return c.fail(cl, resp.StatusCode, transportError(err))
	}

	c.log.Debug().
		Str("operation", cl.op).
		Str("method", cl.method).
		Str("path", cl.path).
		Str("request_id", req.Header.Get("X-Request-ID")).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("backend response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(cl, resp.StatusCode, statusError(resp.StatusCode, body, cl.admin))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return c.fail(cl, resp.StatusCode, payloadError(resp.StatusCode, "", err))
		}
	}
	metrics.GatewayRequestsTotal.WithLabelValues(cl.op, "ok").Inc()
	return nil
}

func (c *Client) newRequest(ctx context.Context, cl call) (*http.Request, error) {
	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", cl.op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", cl.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	if !cl.public {
		if session, ok := c.store.Load(); ok {
			req.Header.Set("Authorization", "Token "+session.Token)
		}
	}
	return req, nil
}

func (c *Client) fail(cl call, status int, e *domain.Error) error {
	metrics.GatewayRequestsTotal.WithLabelValues(cl.op, e.Kind.String()).Inc()
	ev := c.log.Warn().
		Str("operation", cl.op).
		Str("kind", e.Kind.String()).
		Int("status", status)
	if e.Err != nil && !errors.Is(e.Err, context.Canceled) {
		ev = ev.Err(e.Err)
	}
	ev.Msg(e.Message)
	return e
}
