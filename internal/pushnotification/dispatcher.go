package pushnotification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kazz187/microwin/internal/eventbus"
)

// Dispatcher turns milestone events into push notifications.
type Dispatcher struct {
	eventBus *eventbus.Bus
	sender   *Sender
}

func NewDispatcher(eventBus *eventbus.Bus, sender *Sender) *Dispatcher {
	return &Dispatcher{
		eventBus: eventBus,
		sender:   sender,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	subID, ch := d.eventBus.Subscribe(256)
	defer d.eventBus.Unsubscribe(subID)

	slog.InfoContext(ctx, "push notification dispatcher started")
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "push notification dispatcher stopped")
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if p := payloadFor(ev); p != nil {
				d.sender.SendToAll(ctx, p)
			}
		}
	}
}

func payloadFor(ev *eventbus.Event) *NotificationPayload {
	switch ev.Type {
	case eventbus.EventMilestoneReached:
		body := fmt.Sprintf("%s steps done", ev.Metadata["completed_count"])
		if ev.Payload != "" {
			body += ": " + ev.Payload
		}
		return &NotificationPayload{
			Title: "Milestone reached!",
			Body:  body,
			URL:   "/",
			Tag:   ev.ResourceID + "-" + ev.Metadata["completed_count"],
		}
	case eventbus.EventTaskArchived:
		return &NotificationPayload{
			Title: "Task finished",
			Body:  "Nice work. The task has been moved to your history.",
			URL:   "/history",
			Tag:   ev.ResourceID,
		}
	}
	return nil
}
