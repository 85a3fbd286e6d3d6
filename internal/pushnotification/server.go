package pushnotification

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"github.com/oklog/ulid/v2"

	"github.com/kazz187/microwin/internal/api"
	"github.com/kazz187/microwin/internal/config"
	"github.com/kazz187/microwin/internal/pushsubscription"
	"github.com/kazz187/microwin/pkg/cerr"
)

var _ api.PushNotificationServiceHandler = (*Server)(nil)

type Server struct {
	vapidEnv *config.VAPIDEnv
	repo     pushsubscription.Repository
	sender   *Sender
}

func NewServer(vapidEnv *config.VAPIDEnv, repo pushsubscription.Repository, sender *Sender) *Server {
	return &Server{
		vapidEnv: vapidEnv,
		repo:     repo,
		sender:   sender,
	}
}

func (s *Server) GetVapidPublicKey(_ context.Context, _ *connect.Request[api.GetVapidPublicKeyRequest]) (*connect.Response[api.GetVapidPublicKeyResponse], error) {
	if !s.vapidEnv.Configured() {
		return nil, cerr.NewError(cerr.FailedPrecondition, "VAPID keys not configured", nil)
	}
	return connect.NewResponse(&api.GetVapidPublicKeyResponse{
		PublicKey: s.vapidEnv.VAPIDPublicKey,
	}), nil
}

func (s *Server) RegisterPushSubscription(ctx context.Context, req *connect.Request[api.RegisterPushSubscriptionRequest]) (*connect.Response[api.RegisterPushSubscriptionResponse], error) {
	sub := &pushsubscription.Subscription{
		ID:        ulid.Make().String(),
		Endpoint:  req.Msg.Endpoint,
		P256dhKey: req.Msg.P256dhKey,
		AuthKey:   req.Msg.AuthKey,
		CreatedAt: time.Now(),
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, sub); err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.RegisterPushSubscriptionResponse{}), nil
}

func (s *Server) UnregisterPushSubscription(ctx context.Context, req *connect.Request[api.UnregisterPushSubscriptionRequest]) (*connect.Response[api.UnregisterPushSubscriptionResponse], error) {
	if req.Msg.Endpoint == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "endpoint is required", nil)
	}
	if err := s.repo.DeleteByEndpoint(ctx, req.Msg.Endpoint); err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.UnregisterPushSubscriptionResponse{}), nil
}

func (s *Server) SendTestNotification(ctx context.Context, _ *connect.Request[api.SendTestNotificationRequest]) (*connect.Response[api.SendTestNotificationResponse], error) {
	s.sender.SendToAll(ctx, &NotificationPayload{
		Title: "microwin test",
		Body:  "Push notifications are working!",
	})
	return connect.NewResponse(&api.SendTestNotificationResponse{}), nil
}
