// Package apitest provides an in-memory implementation of the account
// backend's HTTP contract for tests. Tokens are HS256 JWTs sent with the
// "Token" scheme; the client treats them as opaque strings.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/rolegate/portal-client/internal/core/domain"
)

const (
	AdminUserID   = "admin"
	AdminPassword = "admin123"
)

type account struct {
	user         domain.User
	passwordHash []byte
}

// Request is a request the backend received.
type Request struct {
	Method        string
	Path          string
	Authorization string
}

type forcedResponse struct {
	status  int
	message string
}

// Backend is the fake server. Handlers are safe for concurrent use.
type Backend struct {
	mu       sync.Mutex
	accounts map[string]*account
	secret   []byte
	requests []Request
	forced   map[string]forcedResponse
	hold     map[string]chan struct{}
	admin    domain.User
	echo     *echo.Echo
}

// New returns a backend seeded with an active admin account.
func New() *Backend {
	b := &Backend{
		accounts: make(map[string]*account),
		secret:   []byte(uuid.NewString()),
		forced:   make(map[string]forcedResponse),
		hold:     make(map[string]chan struct{}),
	}
	b.admin = b.AddUser(AdminUserID, AdminPassword, domain.RoleAdmin, true)
	b.echo = b.routes()
	return b
}

// NewServer starts the backend on a loopback listener and returns the base
// URL the gateway should use (ending in /api).
func NewServer(t testing.TB) (*Backend, string) {
	t.Helper()
	b := New()
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return b, srv.URL + "/api"
}

func (b *Backend) Handler() http.Handler { return b.echo }

// Admin returns the seeded admin account.
func (b *Backend) Admin() domain.User { return b.admin }

// AddUser creates an account directly, bypassing registration.
func (b *Backend) AddUser(userID, password string, role domain.Role, active bool) domain.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	u := domain.User{
		ID:        uuid.NewString(),
		UserID:    userID,
		Username:  userID,
		Email:     userID + "@example.com",
		Role:      role,
		IsActive:  active,
		CreatedAt: domain.Timestamp{Time: time.Now().UTC().Truncate(time.Second)},
	}
	b.mu.Lock()
	b.accounts[u.ID] = &account{user: u, passwordHash: hash}
	b.mu.Unlock()
	return u
}

// User returns the server-side record for id.
func (b *Backend) User(id string) (domain.User, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[id]
	if !ok {
		return domain.User{}, false
	}
	return a.user, true
}

// SetRole changes a role behind the client's back.
func (b *Backend) SetRole(id string, role domain.Role) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a, ok := b.accounts[id]; ok {
		a.user.Role = role
	}
}

// FailNext makes the next request to path answer with status. An empty
// message produces an empty body.
func (b *Backend) FailNext(path string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.forced[path] = forcedResponse{status: status, message: message}
}

// Hold blocks requests to path until the returned func is called.
func (b *Backend) Hold(path string) (release func()) {
	ch := make(chan struct{})
	b.mu.Lock()
	b.hold[path] = ch
	b.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.hold, path)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Requests returns every request received so far.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// RequestsTo returns the requests received for path.
func (b *Backend) RequestsTo(path string) []Request {
	var out []Request
	for _, r := range b.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (b *Backend) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(b.record, b.inject)

	api := e.Group("/api")
	api.GET("/", b.info)
	api.POST("/auth/register/", b.register)
	api.POST("/auth/login/", b.login)

	admin := api.Group("/auth", b.authenticate, b.requireAdmin)
	admin.GET("/users/", b.listUsers)
	admin.POST("/change-role/", b.changeRole)
	admin.POST("/toggle-status/", b.toggleStatus)
	return e
}

func (b *Backend) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method:        req.Method,
			Path:          req.URL.Path,
			Authorization: req.Header.Get(echo.HeaderAuthorization),
		})
		hold := b.hold[req.URL.Path]
		b.mu.Unlock()
		if hold != nil {
			select {
			case <-hold:
			case <-req.Context().Done():
				return req.Context().Err()
			}
		}
		return next(c)
	}
}

func (b *Backend) inject(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Request().URL.Path
		b.mu.Lock()
		forced, ok := b.forced[path]
		delete(b.forced, path)
		b.mu.Unlock()
		if !ok {
			return next(c)
		}
		if forced.message == "" {
			return c.NoContent(forced.status)
		}
		return c.JSON(forced.status, map[string]any{"success": false, "message": forced.message})
	}
}

func (b *Backend) info(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"message": "Hello from the account API!",
		"status":  "success",
		"endpoints": []string{
			"/api/",
			"/api/auth/register/",
			"/api/auth/login/",
			"/api/auth/users/",
			"/api/auth/change-role/",
			"/api/auth/toggle-status/",
		},
	})
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
}

func (b *Backend) register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return reply(c, http.StatusBadRequest, "Invalid payload")
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return reply(c, http.StatusBadRequest, "Username, email, and password are required")
	}

	b.mu.Lock()
	for _, a := range b.accounts {
		if a.user.UserID == req.Username {
			b.mu.Unlock()
			return reply(c, http.StatusBadRequest, "Username already exists")
		}
		if strings.EqualFold(a.user.Email, req.Email) {
			b.mu.Unlock()
			return reply(c, http.StatusBadRequest, "Email already exists")
		}
	}
	b.mu.Unlock()

	u := b.AddUser(req.Username, req.Password, domain.RoleUser, true)
	b.mu.Lock()
	a := b.accounts[u.ID]
	a.user.Email = req.Email
	a.user.Mobile = req.Mobile
	u = a.user
	b.mu.Unlock()

	return c.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"message": "Registration successful! You can now login with your credentials.",
		"user":    u,
	})
}

type loginRequest struct {
	UserID   string `json:"userid"`
	Password string `json:"password"`
}

func (b *Backend) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return reply(c, http.StatusBadRequest, "Invalid payload")
	}
	if req.UserID == "" || req.Password == "" {
		return reply(c, http.StatusBadRequest, "User ID and password are required")
	}

	b.mu.Lock()
	var found *account
	for _, a := range b.accounts {
		if a.user.UserID == req.UserID {
			found = a
			break
		}
	}
	var user domain.User
	var hash []byte
	if found != nil {
		user, hash = found.user, found.passwordHash
	}
	b.mu.Unlock()

	if found == nil || bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil {
		return reply(c, http.StatusUnauthorized, "Invalid credentials")
	}
	if !user.IsActive {
		return reply(c, http.StatusUnauthorized, "Account is deactivated. Please contact administrator.")
	}

	token, err := b.issueToken(user)
	if err != nil {
		return reply(c, http.StatusInternalServerError, "Login failed: "+err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

func (b *Backend) issueToken(u domain.User) (string, error) {
	claims := jwt.MapClaims{
		"sub": u.ID,
		"jti": uuid.NewString(),
		"iat": time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
}

// authenticate resolves "Authorization: Token <jwt>" to an account. A
// request without credentials continues anonymously.
func (b *Backend) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" {
			return next(c)
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Token" {
			return detail(c, http.StatusUnauthorized, "Invalid token header.")
		}

		claims := jwt.MapClaims{}
		tkn, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return b.secret, nil
		})
		if err != nil || !tkn.Valid {
			return detail(c, http.StatusUnauthorized, "Invalid token.")
		}

		sub, _ := claims["sub"].(string)
		user, ok := b.User(sub)
		if !ok || !user.IsActive {
			return detail(c, http.StatusUnauthorized, "User inactive or deleted.")
		}
		c.Set("user", user)
		return next(c)
	}
}

func (b *Backend) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := c.Get("user").(domain.User)
		if !ok {
			return detail(c, http.StatusForbidden, "Authentication credentials were not provided.")
		}
		if user.Role != domain.RoleAdmin {
			return detail(c, http.StatusForbidden, "You do not have permission to perform this action.")
		}
		return next(c)
	}
}

func (b *Backend) listUsers(c echo.Context) error {
	b.mu.Lock()
	users := make([]domain.User, 0, len(b.accounts))
	for _, a := range b.accounts {
		users = append(users, a.user)
	}
	b.mu.Unlock()

	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt.Time) {
			return users[i].CreatedAt.Before(users[j].CreatedAt.Time)
		}
		return users[i].UserID < users[j].UserID
	})
	return c.JSON(http.StatusOK, map[string]any{"users": users})
}

type changeRoleRequest struct {
	UserID  string `json:"userId"`
	NewRole string `json:"newRole"`
}

func (b *Backend) changeRole(c echo.Context) error {
	var req changeRoleRequest
	if err := c.Bind(&req); err != nil || req.UserID == "" || req.NewRole == "" {
		return reply(c, http.StatusBadRequest, "User ID and new role are required")
	}
	role, err := domain.ParseRole(req.NewRole)
	if err != nil {
		return reply(c, http.StatusBadRequest, "Invalid role")
	}
	caller := c.Get("user").(domain.User)

	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[req.UserID]
	if !ok {
		return reply(c, http.StatusNotFound, "User not found")
	}
	if a.user.ID == caller.ID && role != domain.RoleAdmin {
		return reply(c, http.StatusForbidden, "Cannot change your own admin role")
	}
	a.user.Role = role
	return reply(c, http.StatusOK, "User role updated to "+string(role)+" successfully")
}

type toggleStatusRequest struct {
	UserID string `json:"userId"`
}

func (b *Backend) toggleStatus(c echo.Context) error {
	var req toggleStatusRequest
	if err := c.Bind(&req); err != nil || req.UserID == "" {
		return reply(c, http.StatusBadRequest, "User ID is required")
	}
	caller := c.Get("user").(domain.User)

	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[req.UserID]
	if !ok {
		return reply(c, http.StatusNotFound, "User not found")
	}
	if a.user.ID == caller.ID {
		return reply(c, http.StatusForbidden, "Cannot deactivate your own account")
	}
	a.user.IsActive = !a.user.IsActive
	state := "deactivated"
	if a.user.IsActive {
		state = "activated"
	}
	return reply(c, http.StatusOK, "User "+state+" successfully")
}

func reply(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]any{
		"success": status >= 200 && status < 300,
		"message": message,
	})
}

func detail(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"detail": message})
}
