package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	mw "lendledger/internal/adapter/middleware"
	"lendledger/internal/domain/loan"
)

// ChangeSubscriber is satisfied by notify.Notifier.
type ChangeSubscriber interface {
	Subscribe(ctx context.Context, ownerID string) (<-chan loan.ChangeEvent, func(), error)
}

type EventsHandler struct {
	sub       ChangeSubscriber
	keepAlive time.Duration
}

func NewEventsHandler(sub ChangeSubscriber, keepAlive time.Duration) *EventsHandler {
	if keepAlive <= 0 {
		keepAlive = 25 * time.Second
	}
	return &EventsHandler{sub: sub, keepAlive: keepAlive}
}

// Stream serves the owner's change events as server-sent events. Clients
// re-read the collection on every event.
// GET /api/v1/events
func (h *EventsHandler) Stream(c echo.Context) error {
	ctx := c.Request().Context()
	events, cancel, err := h.sub.Subscribe(ctx, mw.OwnerID(c))
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "event stream unavailable"})
	}
	defer cancel()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(res, ": connected\n\n")
	res.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_, _ = fmt.Fprint(res, ": ping\n\n")
			res.Flush()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			_, _ = fmt.Fprintf(res, "id: %s\nevent: %s\ndata: %s\n\n", ev.EventID, ev.Kind, data)
			res.Flush()
		}
	}
}
