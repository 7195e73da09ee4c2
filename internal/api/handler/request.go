package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rolegate/portal-client/internal/core/domain"
)

// bindAndValidate decodes the body into req and runs its validate tags.
// Validation failures surface as domain validation errors.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			return de
		}
		return domain.Validation(err.Error())
	}
	return nil
}
