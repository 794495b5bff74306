package v1

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/mirrormatch/ai/insight"
	"github.com/hrygo/mirrormatch/matching"
	"github.com/hrygo/mirrormatch/matching/team"
	"github.com/hrygo/mirrormatch/server/service/matchmaker"
	"github.com/hrygo/mirrormatch/store"
)

const requestIDKey = "request_id"

func requestIDMiddleware() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			c.Set(requestIDKey, id)
		},
	})
}

func requestLogMiddleware(logErrorDetail bool) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				requestIDKey, c.Get(requestIDKey),
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
			}
			switch {
			case v.Status >= http.StatusInternalServerError:
				if v.Error != nil {
					attrs = append(attrs, "error", errorDetail(v.Error, logErrorDetail))
				}
				slog.Error("request failed", attrs...)
			case v.Error != nil:
				slog.Warn("request rejected", append(attrs, "error", v.Error.Error())...)
			default:
				slog.Info("request", attrs...)
			}
			return nil
		},
	})
}

func errorDetail(err error, detailed bool) string {
	var he *echo.HTTPError
	if detailed && errors.As(err, &he) && he.Internal != nil {
		return he.Internal.Error()
	}
	return err.Error()
}

// toHTTPError maps domain errors to status codes.
func toHTTPError(err error) error {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, matching.ErrInvalidContext),
		errors.Is(err, matching.ErrInvalidVector),
		errors.Is(err, team.ErrInvalidTeamSize),
		errors.Is(err, team.ErrInsufficientPool),
		errors.Is(err, team.ErrPoolTooLarge),
		errors.Is(err, team.ErrLengthMismatch),
		errors.Is(err, matchmaker.ErrInvalidRequest),
		errors.Is(err, insight.ErrNoQuizSignal):
		code = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, matchmaker.ErrBlurbsUnavailable):
		code = http.StatusServiceUnavailable
	}
	return echo.NewHTTPError(code, err.Error()).SetInternal(err)
}

func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}
	return nil
}

// parseContext defaults an empty context to hackathon.
func parseContext(raw string) (matching.Context, error) {
	if raw == "" {
		return matching.ContextHackathon, nil
	}
	return matching.ParseContext(raw)
}

func validateVectors(vectors ...*matching.PersonalityVector) error {
	for _, v := range vectors {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
