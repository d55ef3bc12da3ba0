package controller

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"

	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/dto"
	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/infrastructure/metrics"
	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/service"
	"github.com/alimikegami/ticket-booking/payment-callback-service/pkg/errs"
	"github.com/alimikegami/ticket-booking/payment-callback-service/pkg/response"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const redirectBody = `<!DOCTYPE html><html><head><meta charset="utf-8"><title>Redirecting</title></head><body><a href="%s">Continue</a></body></html>`

type Controller struct {
	callbackService service.CallbackService
	ledgerService   service.LedgerService
	resultURL       string
}

func CreatePaymentController(g *echo.Group, callbackService service.CallbackService, ledgerService service.LedgerService, resultURL string, serviceAuth echo.MiddlewareFunc) {
	c := Controller{
		callbackService: callbackService,
		ledgerService:   ledgerService,
		resultURL:       resultURL,
	}

	g.GET("/payments/vnpay/return", c.VNPayReturn)
	g.GET("/payments/vnpay/ipn", c.VNPayIPN)
	g.POST("/payments/vnpay", c.CreatePaymentURL, serviceAuth)
	g.GET("/ledger/:txnRef", c.GetLedgerEntry, serviceAuth)
}

// VNPayReturn answers the browser with a redirect whatever happened; the
// frontend renders the status it is given.
func (c *Controller) VNPayReturn(e echo.Context) error {
	res := c.process(e, "return")
	location := buildResultURL(c.resultURL, res)

	e.Response().Header().Set(echo.HeaderLocation, location)
	e.Response().Header().Set(echo.HeaderCacheControl, "no-store")

	return e.HTML(http.StatusFound, fmt.Sprintf(redirectBody, html.EscapeString(location)))
}

// VNPayIPN acknowledges the provider's server-to-server notification. Any code
// other than 00 and 02 makes the provider retry.
func (c *Controller) VNPayIPN(e echo.Context) error {
	query, err := url.ParseQuery(e.Request().URL.RawQuery)
	if err != nil {
		metrics.Callbacks.WithLabelValues("ipn", dto.StatusInvalidRequest).Inc()
		return e.JSON(http.StatusOK, dto.IPNResponse{RspCode: dto.IPNUnknownError, Message: "Invalid request"})
	}

	res, err := c.callbackService.ProcessCallback(e.Request().Context(), query)
	metrics.Callbacks.WithLabelValues("ipn", res.Status).Inc()

	return e.JSON(http.StatusOK, ipnResponse(res, err))
}

func (c *Controller) CreatePaymentURL(e echo.Context) error {
	payload := dto.PaymentURLRequest{}
	err := e.Bind(&payload)
	if err != nil {
		log.Error().Err(err).Str("component", "CreatePaymentURL").Msg("")
		return response.WriteErrorResponse(e, errs.ErrClient, nil)
	}
	payload.IPAddr = e.RealIP()

	resp, err := c.callbackService.CreatePaymentURL(e.Request().Context(), payload)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "successfully created payment url", resp)
}

func (c *Controller) GetLedgerEntry(e echo.Context) error {
	resp, err := c.ledgerService.Get(e.Request().Context(), e.Param("txnRef"))
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "successfully retrieved ledger entry", resp)
}

func (c *Controller) process(e echo.Context, endpoint string) dto.CallbackResult {
	// url.Values from echo silently drops undecodable pairs, which would change
	// the signed parameter set
	query, err := url.ParseQuery(e.Request().URL.RawQuery)
	if err != nil {
		log.Ctx(e.Request().Context()).Warn().Err(err).Str("component", "VNPayReturn").Msg("undecodable query string")
		metrics.Callbacks.WithLabelValues(endpoint, dto.StatusInvalidRequest).Inc()
		return dto.CallbackResult{Status: dto.StatusInvalidRequest}
	}

	res, _ := c.callbackService.ProcessCallback(e.Request().Context(), query)
	metrics.Callbacks.WithLabelValues(endpoint, res.Status).Inc()

	return res
}

func ipnResponse(res dto.CallbackResult, err error) dto.IPNResponse {
	switch {
	case errors.Is(err, errs.ErrSignatureMismatch):
		return dto.IPNResponse{RspCode: dto.IPNInvalidChecksum, Message: "Invalid signature"}
	case errors.Is(err, errs.ErrMalformedRequest):
		return dto.IPNResponse{RspCode: dto.IPNUnknownError, Message: "Invalid request"}
	case err != nil:
		return dto.IPNResponse{RspCode: dto.IPNUnknownError, Message: "Unknown error"}
	case res.Created:
		return dto.IPNResponse{RspCode: dto.IPNConfirmed, Message: "Confirm Success"}
	case res.Status == dto.StatusSuccess || res.Status == dto.StatusFailed:
		return dto.IPNResponse{RspCode: dto.IPNAlreadyConfirmed, Message: "Order already confirmed"}
	default:
		return dto.IPNResponse{RspCode: dto.IPNUnknownError, Message: "Transaction status unknown"}
	}
}

// buildResultURL appends only txnRef, status and amount, in that order, so no
// provider field ever reaches the browser.
func buildResultURL(base string, res dto.CallbackResult) string {
	var b strings.Builder
	b.WriteString(base)

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	write := func(key, value string) {
		b.WriteString(sep)
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(value))
		sep = "&"
	}

	if res.TxnRef != "" {
		write("txnRef", res.TxnRef)
	}
	write("status", res.Status)
	if res.Amount != nil {
		write("amount", res.Amount.String())
	}

	return b.String()
}
