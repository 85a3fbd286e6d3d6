package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const EventServiceName = "microwin.v1.EventService"

const EventServiceSubscribeEventsProcedure = "/microwin.v1.EventService/SubscribeEvents"

type EventServiceHandler interface {
	SubscribeEvents(context.Context, *connect.Request[SubscribeEventsRequest], *connect.ServerStream[Event]) error
}

func NewEventServiceHandler(svc EventServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(EventServiceSubscribeEventsProcedure, connect.NewServerStreamHandler(EventServiceSubscribeEventsProcedure, svc.SubscribeEvents, opts...))
	return "/" + EventServiceName + "/", mux
}

type EventServiceClient struct {
	subscribeEvents *connect.Client[SubscribeEventsRequest, Event]
}

func NewEventServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *EventServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	return &EventServiceClient{
		subscribeEvents: connect.NewClient[SubscribeEventsRequest, Event](httpClient, baseURL+EventServiceSubscribeEventsProcedure, clientOptions(opts)...),
	}
}

func (c *EventServiceClient) SubscribeEvents(ctx context.Context, req *connect.Request[SubscribeEventsRequest]) (*connect.ServerStreamForClient[Event], error) {
	return c.subscribeEvents.CallServerStream(ctx, req)
}
