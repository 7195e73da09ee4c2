package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rolegate/portal-client/internal/core/domain"
	"github.com/rolegate/portal-client/internal/core/ports"
)

type SessionHandler struct {
	session ports.SessionService
	access  ports.AccessService
}

func NewSessionHandler(session ports.SessionService, access ports.AccessService) *SessionHandler {
	return &SessionHandler{session: session, access: access}
}

type loginRequest struct {
	UserID   string `json:"userid"   validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Username        string `json:"username"        validate:"required"`
	Email           string `json:"email"           validate:"required,email"`
	Mobile          string `json:"mobile"`
	Password        string `json:"password"        validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

type sessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *domain.User `json:"user,omitempty"`
	RoleLabel     string       `json:"roleLabel,omitempty"`
	RoleColor     string       `json:"roleColor,omitempty"`
	View          domain.View  `json:"view"`
}

type registerResponse struct {
	Message string      `json:"message"`
	View    domain.View `json:"view"`
}

func sessionBody(state domain.AuthState, view domain.View) sessionResponse {
	resp := sessionResponse{View: view}
	if u, ok := state.User(); ok {
		resp.Authenticated = true
		resp.User = &u
		resp.RoleLabel = u.Role.Label()
		resp.RoleColor = u.Role.Color()
	}
	return resp
}

// Get reports the current auth state and view.
//
// @Summary      Current session
// @Tags         session
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Router       /session [get]
func (h *SessionHandler) Get(c echo.Context) error {
	return c.JSON(http.StatusOK, sessionBody(h.session.State(), h.access.Current()))
}

// Login authenticates against the backend and moves to the home view.
//
// @Summary      Login
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /session/login [post]
func (h *SessionHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if _, err := h.session.Login(c.Request().Context(), req.UserID, req.Password); err != nil {
		return err
	}
	view := h.access.AfterLogin()
	return c.JSON(http.StatusOK, sessionBody(h.session.State(), view))
}

// Logout discards the local session. It never contacts the backend.
//
// @Summary      Logout
// @Tags         session
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Router       /session/logout [post]
func (h *SessionHandler) Logout(c echo.Context) error {
	err := h.session.Logout()
	view := h.access.AfterLogout()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionBody(h.session.State(), view))
}

// Register creates an account and moves to the login view. It does not sign
// the caller in.
//
// @Summary      Register
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  registerResponse
// @Failure      400   {object}  map[string]string
// @Router       /register [post]
func (h *SessionHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	msg, err := h.session.Register(c.Request().Context(), domain.RegistrationProfile{
		Username: req.Username,
		Email:    req.Email,
		Mobile:   req.Mobile,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, registerResponse{Message: msg, View: h.access.AfterRegistration()})
}
