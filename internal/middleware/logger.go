package middleware

import (
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ContextKeyRequestID is the echo context key holding the request id.
const ContextKeyRequestID = "request_id"

// Logger tags each request with an id, reusing the caller's X-Request-ID when
// it is a uuid so a booking-service trace can be followed across services.
// Only the route pattern and the redirect status are logged: callback query
// strings carry provider signatures and must stay out of the logs.
func Logger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		requestID := requestIDFrom(c.Request())
		c.Set(ContextKeyRequestID, requestID)
		c.Response().Header().Set(echo.HeaderXRequestID, requestID)

		logger := log.With().Str("request_id", requestID).Logger()
		c.SetRequest(c.Request().WithContext(logger.WithContext(c.Request().Context())))

		// handled here so the logged status is the one the client receives
		if err := next(c); err != nil {
			c.Error(err)
		}

		res := c.Response()
		event := log.Ctx(c.Request().Context()).Info().
			Str("method", c.Request().Method).
			Str("route", c.Path()).
			Int("status", res.Status).
			Int64("latency", time.Since(start).Milliseconds())
		if res.Status == http.StatusFound {
			if outcome := redirectOutcome(res.Header().Get(echo.HeaderLocation)); outcome != "" {
				event = event.Str("outcome", outcome)
			}
		}
		event.Msg("Request processed")

		return nil
	}
}

func requestIDFrom(req *http.Request) string {
	if id, err := uuid.Parse(req.Header.Get(echo.HeaderXRequestID)); err == nil {
		return id.String()
	}
	return uuid.New().String()
}

// redirectOutcome reads the status param of a redirect target.
func redirectOutcome(location string) string {
	u, err := url.Parse(location)
	if err != nil {
		return ""
	}
	return u.Query().Get("status")
}
