package handler

import (
	"errors"
	"net/http"
	"strconv"

	"marketplace-api/internal/client"
	"marketplace-api/internal/entitlement"
	"marketplace-api/internal/middleware"
	"marketplace-api/internal/model"
	"marketplace-api/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// httpError translates service errors into echo HTTP errors.
func httpError(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	var denied *entitlement.DeniedError
	switch {
	case errors.As(err, &denied):
		return echo.NewHTTPError(http.StatusForbidden, map[string]string{
			"error":  err.Error(),
			"reason": string(denied.Reason),
		})
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotCaptured):
		return echo.NewHTTPError(http.StatusPaymentRequired, err.Error())
	case errors.Is(err, client.ErrPaypalUnavailable):
		log.Error().Err(err).Msg("payment provider failed")
		return echo.NewHTTPError(http.StatusBadGateway, "payment provider unavailable")
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrPaymentSettled),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrAlreadyActive),
		errors.Is(err, service.ErrPackageMismatch):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	log.Error().Err(err).Msg("request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}

func actorFrom(c echo.Context) (model.Actor, error) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return model.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
	}
	return actor, nil
}

func uintParam(c echo.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return uint(v), nil
}
