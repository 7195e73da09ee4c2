package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rolegate/portal-client/internal/apitest"
	"github.com/rolegate/portal-client/internal/api/handler"
	"github.com/rolegate/portal-client/internal/core/domain"
	"github.com/rolegate/portal-client/internal/core/service"
	"github.com/rolegate/portal-client/internal/infrastructure/gateway"
	"github.com/rolegate/portal-client/internal/infrastructure/store"
)

type shell struct {
	t       *testing.T
	backend *apitest.Backend
	store   *store.MemoryStore
	session *service.SessionController
	http    http.Handler
}

func newShell(t *testing.T) *shell {
	t.Helper()
	backend, baseURL := apitest.NewServer(t)
	st := store.NewMemoryStore()
	log := zerolog.Nop()
	gw := gateway.New(gateway.Options{BaseURL: baseURL}, st, log)
	session := service.NewSessionController(st, gw, nil, log)
	access := service.NewAccessController(session, log)
	roster := service.NewRosterService(gw, session, access, nil, nil, log)

	e := NewRouter(Deps{
		Session: session,
		Access:  access,
		Roster:  roster,
		Info:    gw,
		Checks: map[string]handler.Check{
			"backend": func(ctx context.Context) error { _, err := gw.Info(ctx); return err },
		},
	}, log)
	return &shell{t: t, backend: backend, store: st, session: session, http: e}
}

func (s *shell) do(method, path, body string) (int, map[string]any) {
	s.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.http.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			s.t.Fatalf("%s %s: invalid json %q", method, path, rec.Body.String())
		}
	}
	return rec.Code, out
}

func (s *shell) loginAdmin() {
	s.t.Helper()
	code, body := s.do(http.MethodPost, "/session/login", `{"userid":"admin","password":"admin123"}`)
	if code != http.StatusOK {
		s.t.Fatalf("login: %d %v", code, body)
	}
}

func TestShell_AnonymousSessionAndViews(t *testing.T) {
	s := newShell(t)

	code, body := s.do(http.MethodGet, "/session", "")
	if code != http.StatusOK || body["authenticated"] != false || body["view"] != "home" {
		t.Fatalf("unexpected session: %d %v", code, body)
	}

	code, body = s.do(http.MethodPost, "/view", `{"view":"admin"}`)
	if code != http.StatusOK || body["view"] != "home" || body["redirected"] != true {
		t.Fatalf("anonymous admin request: %d %v", code, body)
	}

	code, body = s.do(http.MethodPost, "/view", `{"view":"register"}`)
	if code != http.StatusOK || body["view"] != "register" {
		t.Fatalf("register view: %d %v", code, body)
	}
	if _, body = s.do(http.MethodGet, "/view", ""); body["view"] != "register" {
		t.Fatalf("current view: %v", body)
	}

	code, body = s.do(http.MethodPost, "/view", `{"view":"settings"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("unknown view: %d %v", code, body)
	}
}

func TestShell_LoginAdminScenario(t *testing.T) {
	s := newShell(t)

	code, body := s.do(http.MethodPost, "/session/login", `{"userid":"admin","password":"admin123"}`)
	if code != http.StatusOK {
		t.Fatalf("login: %d %v", code, body)
	}
	if body["view"] != "home" || body["authenticated"] != true || body["roleColor"] != "error" {
		t.Fatalf("unexpected login response: %v", body)
	}

	_, body = s.do(http.MethodPost, "/view", `{"view":"admin"}`)
	if body["view"] != "admin" || body["redirected"] != false {
		t.Fatalf("admin navigation: %v", body)
	}

	code, body = s.do(http.MethodPost, "/roster/refresh", "")
	if code != http.StatusOK || body["count"] != float64(1) {
		t.Fatalf("refresh: %d %v", code, body)
	}
}

func TestShell_LoginErrors(t *testing.T) {
	s := newShell(t)

	code, body := s.do(http.MethodPost, "/session/login", `{"userid":"admin"}`)
	if code != http.StatusBadRequest || body["error"] != "password is required" {
		t.Fatalf("missing password: %d %v", code, body)
	}

	code, body = s.do(http.MethodPost, "/session/login", `{"userid":"admin","password":"x"}`)
	if code != http.StatusUnauthorized || body["error"] != "Invalid credentials" {
		t.Fatalf("bad password: %d %v", code, body)
	}
}

func TestShell_RegisterMovesToLogin(t *testing.T) {
	s := newShell(t)

	code, body := s.do(http.MethodPost, "/register",
		`{"username":"erin","email":"erin@example.com","password":"pw","confirmPassword":"pw2"}`)
	if code != http.StatusBadRequest || body["error"] != "Passwords do not match" {
		t.Fatalf("mismatch: %d %v", code, body)
	}

	code, body = s.do(http.MethodPost, "/register",
		`{"username":"erin","email":"erin@example.com","mobile":"555","password":"pw","confirmPassword":"pw"}`)
	if code != http.StatusCreated || body["view"] != "login" {
		t.Fatalf("register: %d %v", code, body)
	}
	if s.session.State().Authenticated() {
		t.Fatalf("registration must not authenticate")
	}
}

func TestShell_RosterRequiresAdmin(t *testing.T) {
	s := newShell(t)

	if code, _ := s.do(http.MethodGet, "/roster", ""); code != http.StatusUnauthorized {
		t.Fatalf("anonymous roster: %d", code)
	}

	s.backend.AddUser("mod", "pw", domain.RoleModerator, true)
	if code, _ := s.do(http.MethodPost, "/session/login", `{"userid":"mod","password":"pw"}`); code != http.StatusOK {
		t.Fatalf("moderator login failed")
	}
	code, body := s.do(http.MethodPost, "/roster/refresh", "")
	if code != http.StatusForbidden || body["error"] != "Access denied. Admin privileges required." {
		t.Fatalf("moderator roster: %d %v", code, body)
	}
	if len(s.backend.RequestsTo("/api/auth/users/")) != 0 {
		t.Fatalf("local guard must not call the backend")
	}
}

func TestShell_RosterMutations(t *testing.T) {
	s := newShell(t)
	bob := s.backend.AddUser("bob", "pw", domain.RoleUser, true)
	s.loginAdmin()
	s.do(http.MethodPost, "/roster/refresh", "")

	code, body := s.do(http.MethodPost, "/roster/"+bob.ID+"/role", `{"role":"moderator"}`)
	if code != http.StatusOK || body["message"] != "User role updated to moderator successfully" {
		t.Fatalf("change role: %d %v", code, body)
	}

	code, body = s.do(http.MethodPost, "/roster/"+bob.ID+"/role", `{"role":"owner"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("invalid role: %d %v", code, body)
	}

	code, body = s.do(http.MethodPost, "/roster/"+s.backend.Admin().ID+"/toggle-status", "")
	if code != http.StatusBadRequest || body["error"] != "Cannot deactivate your own account" {
		t.Fatalf("self toggle: %d %v", code, body)
	}

	code, body = s.do(http.MethodPost, "/roster/missing/toggle-status", "")
	if code != http.StatusNotFound || body["error"] != "User not found" {
		t.Fatalf("missing user: %d %v", code, body)
	}

	_, body = s.do(http.MethodGet, "/roster", "")
	users, _ := body["users"].([]any)
	for _, raw := range users {
		u := raw.(map[string]any)
		if u["id"] == bob.ID && u["role"] != "moderator" {
			t.Fatalf("cache not updated: %v", u)
		}
	}
}

func TestShell_RevokedSessionIsInvalidated(t *testing.T) {
	s := newShell(t)
	s.loginAdmin()
	s.do(http.MethodPost, "/view", `{"view":"admin"}`)

	s.backend.SetRole(s.backend.Admin().ID, domain.RoleUser)
	code, _ := s.do(http.MethodPost, "/roster/refresh", "")
	if code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}

	_, body := s.do(http.MethodGet, "/session", "")
	if body["authenticated"] != false || body["view"] != "home" {
		t.Fatalf("expected anonymous on home, got %v", body)
	}
	if _, ok := s.store.Load(); ok {
		t.Fatalf("store must be cleared")
	}
}

func TestShell_Logout(t *testing.T) {
	s := newShell(t)
	s.loginAdmin()

	code, body := s.do(http.MethodPost, "/session/logout", "")
	if code != http.StatusOK || body["authenticated"] != false || body["view"] != "home" {
		t.Fatalf("logout: %d %v", code, body)
	}
	if _, ok := s.store.Load(); ok {
		t.Fatalf("store must be empty")
	}
}

func TestShell_InfoHealthMetrics(t *testing.T) {
	s := newShell(t)

	if code, body := s.do(http.MethodGet, "/api-info", ""); code != http.StatusOK || body["status"] != "success" {
		t.Fatalf("info: %d %v", code, body)
	}
	if code, body := s.do(http.MethodGet, "/health/ready", ""); code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("ready: %d %v", code, body)
	}

	rec := httptest.NewRecorder()
	s.http.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "rolegate_gateway_requests_total") {
		t.Fatalf("metrics missing gateway counter")
	}
}

func TestStatusForKind(t *testing.T) {
	cases := map[domain.Kind]int{
		domain.KindValidation: http.StatusBadRequest,
		domain.KindAuth:       http.StatusUnauthorized,
		domain.KindForbidden:  http.StatusForbidden,
		domain.KindNotFound:   http.StatusNotFound,
		domain.KindTransport:  http.StatusServiceUnavailable,
		domain.KindServer:     http.StatusBadGateway,
		domain.Kind(0):        http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := statusForKind(kind); got != want {
			t.Fatalf("statusForKind(%v) = %d, want %d", kind, got, want)
		}
	}
}

func TestResolveError_Pending(t *testing.T) {
	e := NewRouter(Deps{}, zerolog.Nop())
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	code, _ := resolveError(domain.ErrPending, zerolog.Nop(), c)
	if code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", code)
	}
	code, msg := resolveError(errors.New("boom"), zerolog.Nop(), c)
	if code != http.StatusInternalServerError || msg != "internal server error" {
		t.Fatalf("unexpected: %d %q", code, msg)
	}
}

func TestShell_DuplicateMutationConflicts(t *testing.T) {
	s := newShell(t)
	bob := s.backend.AddUser("bob", "pw", domain.RoleUser, true)
	s.loginAdmin()

	release := s.backend.Hold("/api/auth/toggle-status/")
	defer release()

	done := make(chan int, 1)
	go func() {
		code, _ := s.do(http.MethodPost, "/roster/"+bob.ID+"/toggle-status", "")
		done <- code
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(s.backend.RequestsTo("/api/auth/toggle-status/")) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("first toggle never reached the backend")
		}
		time.Sleep(5 * time.Millisecond)
	}

	code, _ := s.do(http.MethodPost, "/roster/"+bob.ID+"/role", `{"role":"admin"}`)
	if code != http.StatusConflict {
		t.Fatalf("expected 409 while the first mutation is in flight, got %d", code)
	}

	release()
	if code := <-done; code != http.StatusOK {
		t.Fatalf("first toggle: %d", code)
	}
	if len(s.backend.RequestsTo("/api/auth/change-role/")) != 0 {
		t.Fatalf("conflicting mutation must not reach the backend")
	}
}
