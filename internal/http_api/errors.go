package http_api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/core-coin/walletx/internal/ledger"
	"github.com/core-coin/walletx/internal/token"
	"github.com/core-coin/walletx/internal/walletx"
)

// statusFor maps an application error to the HTTP status it is served with.
func statusFor(err error) int {
	switch {
	case ledger.IsInsufficientFunds(err),
		errors.Is(err, ledger.ErrMultipleWallets),
		errors.Is(err, ledger.ErrMemberExists),
		errors.Is(err, token.ErrTransferAmountExceedsBalance),
		errors.Is(err, token.ErrInsufficientAllowance):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrNotAdmin),
		errors.Is(err, ledger.ErrNotMember),
		errors.Is(err, ledger.ErrMemberFrozen),
		errors.Is(err, walletx.ErrMintDisabled):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrMemberNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrNoAllowance):
		return http.StatusPaymentRequired
	case errors.Is(err, ledger.ErrZeroAmount),
		errors.Is(err, ledger.ErrInvalidReceiver),
		errors.Is(err, ledger.ErrInvalidMember),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrOverflow),
		errors.Is(err, token.ErrInvalidAmount),
		errors.Is(err, token.ErrZeroAddress):
		return http.StatusBadRequest
	case errors.Is(err, walletx.ErrNotWriter),
		errors.Is(err, walletx.ErrNotRunning):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// fail writes err as a JSON error body. Internal failures are logged and
// their detail is not returned.
func (s *HTTPServer) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{
			"success": false,
			"error":   "Internal server error",
		})
		return
	}

	body := gin.H{
		"success": false,
		"error":   err.Error(),
	}
	var shortfall *ledger.InsufficientFundsError
	if errors.As(err, &shortfall) {
		body["available"] = decimal(shortfall.Available)
		body["required"] = decimal(shortfall.Required)
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   msg,
	})
}
