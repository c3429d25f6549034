package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Skotchmaster/parts_market/internal/service"
	"github.com/Skotchmaster/parts_market/internal/transport"
	middleware "github.com/Skotchmaster/parts_market/pkg/middleware/auth"
	"github.com/labstack/echo/v4"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrStock),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrTransition):
		return http.StatusConflict
	case errors.Is(err, service.ErrPersistence):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrConsistency):
		return http.StatusAccepted
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(status int, err error) transport.ErrorResponse {
	switch status {
	case http.StatusInternalServerError:
		return transport.ErrorResponse{Error: "internal error"}
	case http.StatusServiceUnavailable:
		return transport.ErrorResponse{Error: "storage unavailable, retry later"}
	}

	body := transport.ErrorResponse{Error: err.Error()}
	var se *service.StockError
	if errors.As(err, &se) {
		body.PartID = se.PartID
		body.Available = &se.Available
		body.Requested = &se.Requested
	}
	return body
}

// respondError logs event at a level matching the status and writes the
// JSON error body.
func respondError(c echo.Context, l *slog.Logger, event string, err error) error {
	status := statusFor(err)
	if status >= 500 {
		l.Error(event, "status", status, "error", err)
	} else {
		l.Warn(event, "status", status, "error", err)
	}
	return c.JSON(status, errorBody(status, err))
}

func badRequest(c echo.Context, l *slog.Logger, event, msg string, err error) error {
	l.Warn(event, "status", 400, "reason", msg, "error", err)
	return c.JSON(http.StatusBadRequest, transport.ErrorResponse{Error: msg})
}

func actorFrom(c echo.Context) (service.Actor, error) {
	uid, _ := c.Get(middleware.CtxUserID).(string)
	if uid == "" {
		return service.Actor{}, service.ErrAuth
	}
	role, _ := c.Get(middleware.CtxRole).(string)
	name, _ := c.Get(middleware.CtxUserName).(string)
	email, _ := c.Get(middleware.CtxUserEmail).(string)
	return service.Actor{UserID: uid, Role: role, Name: name, Email: email}, nil
}

// ifMatch reads an optional cart version from If-Match ("3" or 3).
func ifMatch(c echo.Context) (*int64, error) {
	raw := strings.TrimSpace(c.Request().Header.Get("If-Match"))
	if raw == "" || raw == "*" {
		return nil, nil
	}
	raw = strings.TrimPrefix(raw, "W/")
	v, err := strconv.ParseInt(strings.Trim(raw, `"`), 10, 64)
	if err != nil || v < 0 {
		return nil, errors.New("If-Match must be a cart version")
	}
	return &v, nil
}

func etag(version int64) string {
	return `"` + strconv.FormatInt(version, 10) + `"`
}
