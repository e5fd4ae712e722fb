package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	mw "lendledger/internal/adapter/middleware"
	domain "lendledger/internal/domain/reminder"
	"lendledger/internal/usecase/reminder"
)

type ReminderHandler struct {
	uc  *reminder.Usecase
	now clock
}

func NewReminderHandler(uc *reminder.Usecase) *ReminderHandler {
	return &ReminderHandler{uc: uc, now: systemClock}
}

type scheduleReq struct {
	Frequency     string     `json:"frequency"      validate:"required,frequency"`
	Tone          string     `json:"tone"           validate:"required,tone"`
	StartAt       *time.Time `json:"start_at"`
	CustomMessage string     `json:"custom_message" validate:"max=500"`
}

type previewReq struct {
	Tone             string           `json:"tone"              validate:"omitempty,tone"`
	CounterpartyName string           `json:"counterparty_name" validate:"max=120"`
	Amount           *decimal.Decimal `json:"amount"            validate:"omitempty,gt=0"`
	Currency         string           `json:"currency"          validate:"omitempty,currency"`
}

func (h *ReminderHandler) Schedule(c echo.Context) error {
	var req scheduleReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}
	in := reminder.ScheduleInput{
		Frequency:     domain.Frequency(req.Frequency),
		Tone:          domain.Tone(req.Tone),
		CustomMessage: req.CustomMessage,
	}
	if req.StartAt != nil {
		in.StartAt = *req.StartAt
	}
	dto, err := h.uc.Schedule(c.Request().Context(), mw.OwnerID(c), c.Param("loan_id"), in, h.now())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *ReminderHandler) List(c echo.Context) error {
	out, err := h.uc.List(c.Request().Context(), mw.OwnerID(c), c.Param("loan_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": out, "count": len(out)})
}

// Preview renders the message for the new-loan form; nothing is stored.
func (h *ReminderHandler) Preview(c echo.Context) error {
	var req previewReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}
	dto := h.uc.Preview(reminder.PreviewInput{
		Tone:             domain.Tone(req.Tone),
		CounterpartyName: req.CounterpartyName,
		Amount:           req.Amount,
		Currency:         req.Currency,
	})
	return c.JSON(http.StatusOK, dto)
}
