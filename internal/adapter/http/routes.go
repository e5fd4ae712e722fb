package http

import (
	"github.com/labstack/echo/v4"
)

// Routes bundles what RegisterRoutes wires. Auth and Idempotency may be nil in tests.
type Routes struct {
	Health      *Handler
	Loans       *LoanHandler
	Reminders   *ReminderHandler
	Events      *EventsHandler
	Auth        echo.MiddlewareFunc
	Idempotency echo.MiddlewareFunc
}

func RegisterRoutes(e *echo.Echo, r Routes) {
	e.GET("/health", r.Health.Health)

	var mws []echo.MiddlewareFunc
	if r.Auth != nil {
		mws = append(mws, r.Auth)
	}
	if r.Idempotency != nil {
		mws = append(mws, r.Idempotency)
	}
	api := e.Group("/api/v1", mws...)

	api.POST("/loans", r.Loans.CreateLoan)
	api.GET("/loans", r.Loans.ListLoans)
	api.GET("/loans/export.csv", r.Loans.ExportCSV)
	api.GET("/loans/:loan_id", r.Loans.GetLoan)
	api.POST("/loans/:loan_id/settle", r.Loans.SettleLoan)
	api.DELETE("/loans/:loan_id", r.Loans.DeleteLoan)
	api.GET("/dashboard", r.Loans.Dashboard)
	api.GET("/counterparties", r.Loans.Counterparties)
	api.GET("/counterparties/:name/reliability", r.Loans.Reliability)

	api.POST("/loans/:loan_id/reminders", r.Reminders.Schedule)
	api.GET("/loans/:loan_id/reminders", r.Reminders.List)
	api.POST("/reminders/preview", r.Reminders.Preview)

	if r.Events != nil {
		api.GET("/events", r.Events.Stream)
	}
}
