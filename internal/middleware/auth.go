package middleware

import (
	"strings"

	"github.com/alimikegami/ticket-booking/payment-callback-service/pkg/errs"
	"github.com/alimikegami/ticket-booking/payment-callback-service/pkg/response"
	"github.com/alimikegami/ticket-booking/payment-callback-service/pkg/utils"
	"github.com/labstack/echo/v4"
)

const ServiceSubjectKey = "service_subject"

// ServiceAuth accepts only a bearer service token signed with jwtSecret.
func ServiceAuth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			tokenString, found := strings.CutPrefix(header, "Bearer ")
			if !found || tokenString == "" {
				return response.WriteErrorResponse(c, errs.ErrNotLoggedIn, nil)
			}

			claims, err := utils.ParseServiceToken(tokenString, jwtSecret)
			if err != nil {
				return response.WriteErrorResponse(c, err, nil)
			}

			c.Set(ServiceSubjectKey, claims.Subject)
			return next(c)
		}
	}
}
