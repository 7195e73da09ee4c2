package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rolegate/portal-client/internal/core/domain"
	"github.com/rolegate/portal-client/internal/core/ports"
)

type RosterHandler struct {
	roster ports.RosterService
}

func NewRosterHandler(roster ports.RosterService) *RosterHandler {
	return &RosterHandler{roster: roster}
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,role"`
}

type rosterResponse struct {
	Users []domain.RosterEntry `json:"users"`
	Count int                  `json:"count"`
}

func rosterBody(entries []domain.RosterEntry) rosterResponse {
	if entries == nil {
		entries = []domain.RosterEntry{}
	}
	return rosterResponse{Users: entries, Count: len(entries)}
}

// List returns the cached roster without contacting the backend.
//
// @Summary      Cached roster
// @Tags         roster
// @Produce      json
// @Success      200  {object}  rosterResponse
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /roster [get]
func (h *RosterHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, rosterBody(h.roster.Entries()))
}

// Refresh reloads the roster from the backend.
//
// @Summary      Refresh roster
// @Tags         roster
// @Produce      json
// @Success      200  {object}  rosterResponse
// @Failure      403  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /roster/refresh [post]
func (h *RosterHandler) Refresh(c echo.Context) error {
	entries, err := h.roster.Refresh(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rosterBody(entries))
}

// ChangeRole sets an account's role.
//
// @Summary      Change role
// @Tags         roster
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "Account id"
// @Param        body  body      changeRoleRequest  true  "New role"
// @Success      200   {object}  domain.MutationResult
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /roster/{id}/role [post]
func (h *RosterHandler) ChangeRole(c echo.Context) error {
	var req changeRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return domain.Validation(err.Error())
	}

	res, err := h.roster.ChangeRole(c.Request().Context(), c.Param("id"), role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// ToggleStatus activates or deactivates an account.
//
// @Summary      Toggle status
// @Tags         roster
// @Produce      json
// @Param        id   path      string  true  "Account id"
// @Success      200  {object}  domain.MutationResult
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /roster/{id}/toggle-status [post]
func (h *RosterHandler) ToggleStatus(c echo.Context) error {
	res, err := h.roster.ToggleStatus(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}
