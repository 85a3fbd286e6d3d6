package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const PushNotificationServiceName = "microwin.v1.PushNotificationService"

const (
	PushNotificationServiceGetVapidPublicKeyProcedure          = "/microwin.v1.PushNotificationService/GetVapidPublicKey"
	PushNotificationServiceRegisterPushSubscriptionProcedure   = "/microwin.v1.PushNotificationService/RegisterPushSubscription"
	PushNotificationServiceUnregisterPushSubscriptionProcedure = "/microwin.v1.PushNotificationService/UnregisterPushSubscription"
	PushNotificationServiceSendTestNotificationProcedure       = "/microwin.v1.PushNotificationService/SendTestNotification"
)

type PushNotificationServiceHandler interface {
	GetVapidPublicKey(context.Context, *connect.Request[GetVapidPublicKeyRequest]) (*connect.Response[GetVapidPublicKeyResponse], error)
	RegisterPushSubscription(context.Context, *connect.Request[RegisterPushSubscriptionRequest]) (*connect.Response[RegisterPushSubscriptionResponse], error)
	UnregisterPushSubscription(context.Context, *connect.Request[UnregisterPushSubscriptionRequest]) (*connect.Response[UnregisterPushSubscriptionResponse], error)
	SendTestNotification(context.Context, *connect.Request[SendTestNotificationRequest]) (*connect.Response[SendTestNotificationResponse], error)
}

func NewPushNotificationServiceHandler(svc PushNotificationServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(PushNotificationServiceGetVapidPublicKeyProcedure, connect.NewUnaryHandler(PushNotificationServiceGetVapidPublicKeyProcedure, svc.GetVapidPublicKey, opts...))
	mux.Handle(PushNotificationServiceRegisterPushSubscriptionProcedure, connect.NewUnaryHandler(PushNotificationServiceRegisterPushSubscriptionProcedure, svc.RegisterPushSubscription, opts...))
	mux.Handle(PushNotificationServiceUnregisterPushSubscriptionProcedure, connect.NewUnaryHandler(PushNotificationServiceUnregisterPushSubscriptionProcedure, svc.UnregisterPushSubscription, opts...))
	mux.Handle(PushNotificationServiceSendTestNotificationProcedure, connect.NewUnaryHandler(PushNotificationServiceSendTestNotificationProcedure, svc.SendTestNotification, opts...))
	return "/" + PushNotificationServiceName + "/", mux
}

type PushNotificationServiceClient struct {
	getVapidPublicKey          *connect.Client[GetVapidPublicKeyRequest, GetVapidPublicKeyResponse]
	registerPushSubscription   *connect.Client[RegisterPushSubscriptionRequest, RegisterPushSubscriptionResponse]
	unregisterPushSubscription *connect.Client[UnregisterPushSubscriptionRequest, UnregisterPushSubscriptionResponse]
	sendTestNotification       *connect.Client[SendTestNotificationRequest, SendTestNotificationResponse]
}

func NewPushNotificationServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *PushNotificationServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &PushNotificationServiceClient{
		getVapidPublicKey:          connect.NewClient[GetVapidPublicKeyRequest, GetVapidPublicKeyResponse](httpClient, baseURL+PushNotificationServiceGetVapidPublicKeyProcedure, opts...),
		registerPushSubscription:   connect.NewClient[RegisterPushSubscriptionRequest, RegisterPushSubscriptionResponse](httpClient, baseURL+PushNotificationServiceRegisterPushSubscriptionProcedure, opts...),
		unregisterPushSubscription: connect.NewClient[UnregisterPushSubscriptionRequest, UnregisterPushSubscriptionResponse](httpClient, baseURL+PushNotificationServiceUnregisterPushSubscriptionProcedure, opts...),
		sendTestNotification:       connect.NewClient[SendTestNotificationRequest, SendTestNotificationResponse](httpClient, baseURL+PushNotificationServiceSendTestNotificationProcedure, opts...),
	}
}

func (c *PushNotificationServiceClient) GetVapidPublicKey(ctx context.Context, req *connect.Request[GetVapidPublicKeyRequest]) (*connect.Response[GetVapidPublicKeyResponse], error) {
	return c.getVapidPublicKey.CallUnary(ctx, req)
}

func (c *PushNotificationServiceClient) RegisterPushSubscription(ctx context.Context, req *connect.Request[RegisterPushSubscriptionRequest]) (*connect.Response[RegisterPushSubscriptionResponse], error) {
	return c.registerPushSubscription.CallUnary(ctx, req)
}

func (c *PushNotificationServiceClient) UnregisterPushSubscription(ctx context.Context, req *connect.Request[UnregisterPushSubscriptionRequest]) (*connect.Response[UnregisterPushSubscriptionResponse], error) {
	return c.unregisterPushSubscription.CallUnary(ctx, req)
}

func (c *PushNotificationServiceClient) SendTestNotification(ctx context.Context, req *connect.Request[SendTestNotificationRequest]) (*connect.Response[SendTestNotificationResponse], error) {
	return c.sendTestNotification.CallUnary(ctx, req)
}
