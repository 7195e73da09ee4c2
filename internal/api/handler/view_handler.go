package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rolegate/portal-client/internal/core/domain"
	"github.com/rolegate/portal-client/internal/core/ports"
)

type ViewHandler struct {
	access ports.AccessService
}

func NewViewHandler(access ports.AccessService) *ViewHandler {
	return &ViewHandler{access: access}
}

type navigateRequest struct {
	View string `json:"view" validate:"required"`
}

type viewResponse struct {
	Requested  domain.View `json:"requested,omitempty"`
	View       domain.View `json:"view"`
	Redirected bool        `json:"redirected"`
}

// Get returns the view to render.
//
// @Summary      Current view
// @Tags         view
// @Produce      json
// @Success      200  {object}  viewResponse
// @Router       /view [get]
func (h *ViewHandler) Get(c echo.Context) error {
	return c.JSON(http.StatusOK, viewResponse{View: h.access.Current()})
}

// Navigate requests a view. Requests the caller may not see are corrected,
// not refused.
//
// @Summary      Navigate
// @Tags         view
// @Accept       json
// @Produce      json
// @Param        body  body      navigateRequest  true  "Requested view"
// @Success      200   {object}  viewResponse
// @Failure      400   {object}  map[string]string
// @Router       /view [post]
func (h *ViewHandler) Navigate(c echo.Context) error {
	var req navigateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	requested, err := domain.ParseView(req.View)
	if err != nil {
		return domain.Validation(err.Error())
	}

	view := h.access.Navigate(requested)
	return c.JSON(http.StatusOK, viewResponse{Requested: requested, View: view, Redirected: view != requested})
}
