package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/monument-sim/monument/pkg/engine"
	"github.com/monument-sim/monument/pkg/services"
	"github.com/monument-sim/monument/pkg/store"
)

// mapEngineError maps engine/store/namespace/service-layer sentinel errors
// to HTTP responses, preserving the exact substrings §7 requires agents to
// be able to classify on ("already submitted", "Context hash mismatch",
// "Supertick mismatch") in the response body.
func mapEngineError(err error) *echo.HTTPError {
	var validErr *services.ValidationError
	if errors.As(err, &validErr) {
		return echo.NewHTTPError(http.StatusBadRequest, validErr.Error())
	}

	switch {
	case errors.Is(err, services.ErrNamespaceNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "namespace not found")
	case errors.Is(err, services.ErrActorAlreadyExists):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrUnknownActor):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrAuthFailed):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, engine.ErrScopeDenied):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, engine.ErrPhaseMismatch):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrSupertickMismatch):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrContextHashMismatch):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrAlreadySubmitted):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrMalformedAction):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrNotPausedForScoring):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrEngineStopped):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, store.ErrInvalidNamespace):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrSchemaMismatch):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrBusy):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}

	slog.Error("unexpected engine error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
