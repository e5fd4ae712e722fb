package http

import (
	"bytes"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	mw "lendledger/internal/adapter/middleware"
	domain "lendledger/internal/domain/loan"
	"lendledger/internal/usecase/loan"
)

type LoanHandler struct {
	uc  *loan.Usecase
	now clock
}

func NewLoanHandler(uc *loan.Usecase) *LoanHandler { return &LoanHandler{uc: uc, now: systemClock} }

type createLoanReq struct {
	Direction         string           `json:"direction"          validate:"required,direction"`
	CounterpartyName  string           `json:"counterparty_name"  validate:"required,max=120"`
	CounterpartyEmail string           `json:"counterparty_email" validate:"omitempty,email,max=254"`
	CounterpartyPhone string           `json:"counterparty_phone" validate:"omitempty,max=32"`
	Principal         decimal.Decimal  `json:"principal"          validate:"gt=0,dec2"`
	Currency          string           `json:"currency"           validate:"omitempty,currency"`
	InterestRate      *decimal.Decimal `json:"interest_rate"      validate:"omitempty,gte=0,lte=100,dec2"`
	// YYYY-MM-DD (midnight UTC) or RFC3339
	DueDate string `json:"due_date" validate:"required,duedate"`
	Notes   string `json:"notes"    validate:"max=2000"`
}

func (h *LoanHandler) CreateLoan(c echo.Context) error {
	var req createLoanReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}
	due, _ := parseDue(req.DueDate)
	in := loan.CreateLoanInput{
		Direction:         domain.Direction(req.Direction),
		CounterpartyName:  req.CounterpartyName,
		CounterpartyEmail: req.CounterpartyEmail,
		CounterpartyPhone: req.CounterpartyPhone,
		Principal:         req.Principal,
		Currency:          req.Currency,
		InterestRate:      req.InterestRate,
		DueAt:             due,
		Notes:             strings.TrimSpace(req.Notes),
	}
	dto, err := h.uc.Create(c.Request().Context(), mw.OwnerID(c), in, h.now())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

// ListLoans: GET /loans?filter=overdue&q=john
func (h *LoanHandler) ListLoans(c echo.Context) error {
	dto, err := h.uc.List(c.Request().Context(), mw.OwnerID(c), c.QueryParam("filter"), c.QueryParam("q"), h.now())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	dto, err := h.uc.Get(c.Request().Context(), mw.OwnerID(c), c.Param("loan_id"), h.now())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) SettleLoan(c echo.Context) error {
	dto, err := h.uc.Settle(c.Request().Context(), mw.OwnerID(c), c.Param("loan_id"), h.now())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) DeleteLoan(c echo.Context) error {
	if err := h.uc.Delete(c.Request().Context(), mw.OwnerID(c), c.Param("loan_id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ExportCSV buffers the whole export so a plan error never leaves a half-written body.
func (h *LoanHandler) ExportCSV(c echo.Context) error {
	var buf bytes.Buffer
	if err := h.uc.ExportCSV(c.Request().Context(), mw.OwnerID(c), &buf, h.now()); err != nil {
		return writeError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="loans.csv"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *LoanHandler) Dashboard(c echo.Context) error {
	dto, err := h.uc.Dashboard(c.Request().Context(), mw.OwnerID(c), h.now())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) Counterparties(c echo.Context) error {
	out, err := h.uc.Counterparties(c.Request().Context(), mw.OwnerID(c), h.now())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": out, "count": len(out)})
}

func (h *LoanHandler) Reliability(c echo.Context) error {
	name := c.Param("name")
	// echo matches on RawPath when the client escaped more than the default
	// encoding does; params are still escaped then
	if c.Request().URL.RawPath != "" {
		if un, err := url.PathUnescape(name); err == nil {
			name = un
		}
	}
	if strings.TrimSpace(name) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing counterparty name"})
	}
	dto, err := h.uc.Reliability(c.Request().Context(), mw.OwnerID(c), name, h.now())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
