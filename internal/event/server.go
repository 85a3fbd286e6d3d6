package event

import (
	"context"

	"connectrpc.com/connect"

	"github.com/kazz187/microwin/internal/api"
	"github.com/kazz187/microwin/internal/eventbus"
)

var _ api.EventServiceHandler = (*Server)(nil)

type Server struct {
	eventBus *eventbus.Bus
}

func NewServer(eventBus *eventbus.Bus) *Server {
	return &Server{eventBus: eventBus}
}

func (s *Server) SubscribeEvents(ctx context.Context, req *connect.Request[api.SubscribeEventsRequest], stream *connect.ServerStream[api.Event]) error {
	subID, ch := s.eventBus.Subscribe(64)
	defer s.eventBus.Unsubscribe(subID)

	typeFilter := make(map[eventbus.EventType]struct{}, len(req.Msg.EventTypes))
	for _, et := range req.Msg.EventTypes {
		typeFilter[eventbus.EventType(et)] = struct{}{}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if len(typeFilter) > 0 {
				if _, match := typeFilter[ev.Type]; !match {
					continue
				}
			}
			if err := stream.Send(toAPI(ev)); err != nil {
				return err
			}
		}
	}
}

func toAPI(ev *eventbus.Event) *api.Event {
	return &api.Event{
		ID:         ev.ID,
		Type:       string(ev.Type),
		ResourceID: ev.ResourceID,
		Payload:    ev.Payload,
		Metadata:   ev.Metadata,
		CreatedAt:  ev.CreatedAt,
	}
}
