package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"lendledger/internal/domain/loan"
	"lendledger/internal/domain/reminder"
	"lendledger/internal/ledger"
	loanuc "lendledger/internal/usecase/loan"
)

// statusFor maps domain errors onto HTTP codes. 0 means unexpected.
func statusFor(err error) int {
	switch {
	case errors.Is(err, loan.ErrNotFound), errors.Is(err, reminder.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, loan.ErrAlreadySettled), errors.Is(err, reminder.ErrLoanSettled):
		return http.StatusConflict
	case errors.Is(err, loan.ErrActiveLoanLimit), errors.Is(err, loan.ErrPremiumRequired):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrUnknownFilter):
		return http.StatusBadRequest
	case errors.Is(err, loan.ErrInvalidLoan), errors.Is(err, loanuc.ErrInvalidInput), errors.Is(err, reminder.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	}
	return 0
}

func writeError(c echo.Context, err error) error {
	if code := statusFor(err); code != 0 {
		return c.JSON(code, ErrorResponse{Error: err.Error()})
	}
	slog.Error("request failed", "method", c.Request().Method, "route", c.Path(), "err", err)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func invalidBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
}

func validationFailed(c echo.Context, err error) error {
	return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:   "validation failed",
		Details: ToFieldErrors(err),
	})
}
