package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rolegate/portal-client/internal/core/domain"
)

// InfoProvider is satisfied by the gateway.
type InfoProvider interface {
	Info(ctx context.Context) (domain.APIInfo, error)
}

type InfoHandler struct {
	info InfoProvider
}

func NewInfoHandler(info InfoProvider) *InfoHandler {
	return &InfoHandler{info: info}
}

// Get proxies the backend's info probe.
//
// @Summary      Backend info
// @Tags         info
// @Produce      json
// @Success      200  {object}  domain.APIInfo
// @Failure      502  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api-info [get]
func (h *InfoHandler) Get(c echo.Context) error {
	info, err := h.info.Info(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, info)
}
