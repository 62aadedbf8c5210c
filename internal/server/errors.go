package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/aman-zulfiqar/solswap/internal/jupiter"
	"github.com/labstack/echo/v4"
)

// NotFoundJSON returns a custom HTTP error handler that returns JSON responses
// This ensures all errors (including 404s and auth failures) have consistent JSON format
func NotFoundJSON() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		if he, ok := err.(*echo.HTTPError); ok {
			_ = c.JSON(he.Code, ErrorResponse{
				Error: http.StatusText(he.Code),
				Code:  he.Code,
			})
			return
		}

		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  http.StatusInternalServerError,
		})
	}
}

// swapErr maps a quote client error to a response. Upstream rejections keep
// the upstream status and message; transport failures become 502.
func (h *Handlers) swapErr(c echo.Context, op string, err error) error {
	var (
		cfgErr *jupiter.ConfigurationError
		badReq *jupiter.InvalidRequestError
		qe     *jupiter.UpstreamQuoteError
		ee     *jupiter.UpstreamExecuteError
	)
	switch {
	case errors.As(err, &cfgErr):
		return h.err(c, http.StatusInternalServerError, "api key not configured", nil)
	case errors.As(err, &badReq):
		return h.err(c, http.StatusBadRequest, badReq.Error(), map[string]any{badReq.Field: badReq.Reason})
	case errors.As(err, &qe):
		return c.JSON(upstreamStatus(qe.Status), ErrorResponse{Error: qe.Message, Code: upstreamStatus(qe.Status), ErrorCode: qe.Code})
	case errors.As(err, &ee):
		resp := ErrorResponse{Error: ee.Message, Code: upstreamStatus(ee.Status), ErrorCode: ee.Code}
		if ee.Signature != "" {
			resp.Details = map[string]any{"signature": ee.Signature}
		}
		return c.JSON(resp.Code, resp)
	case errors.Is(err, context.DeadlineExceeded):
		return h.err(c, http.StatusGatewayTimeout, "jupiter "+op+" timed out", nil)
	default:
		h.Logger.WithError(err).WithField("op", op).Warn("jupiter request failed")
		return h.err(c, http.StatusBadGateway, "jupiter "+op+" failed", map[string]any{"err": err.Error()})
	}
}

// upstreamStatus passes upstream error statuses through. A rejection carried
// on a 2xx body is reported as a bad gateway.
func upstreamStatus(status int) int {
	if status >= 400 && status <= 599 {
		return status
	}
	return http.StatusBadGateway
}
