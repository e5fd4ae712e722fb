// Package notify fans loan change events out over Redis Pub/Sub, one
// channel per owner.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"lendledger/internal/domain/loan"
)

func Channel(ownerID string) string { return "lendledger:loans:" + ownerID }

type Notifier struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb, log: slog.Default().With("component", "notify")}
}

func (n *Notifier) PublishChange(ctx context.Context, ev loan.ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := n.rdb.Publish(ctx, Channel(ev.OwnerID), payload).Err(); err != nil {
		return fmt.Errorf("publish change %s: %w", ev.EventID, err)
	}
	return nil
}

// Subscribe returns the owner's event stream. The channel closes when ctx is
// done or cancel is called; malformed payloads are dropped.
func (n *Notifier) Subscribe(ctx context.Context, ownerID string) (<-chan loan.ChangeEvent, func(), error) {
	ps := n.rdb.Subscribe(ctx, Channel(ownerID))
	// wait for the subscription to be confirmed so no event after return is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", ownerID, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan loan.ChangeEvent, 16)
	go func() {
		defer close(out)
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				var ev loan.ChangeEvent
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					n.log.Warn("dropping malformed change event", "channel", m.Channel, "err", err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, cancel, nil
}
