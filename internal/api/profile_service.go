package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const ProfileServiceName = "microwin.v1.ProfileService"

const (
	ProfileServiceGetProfileProcedure    = "/microwin.v1.ProfileService/GetProfile"
	ProfileServiceUpdateProfileProcedure = "/microwin.v1.ProfileService/UpdateProfile"
)

type ProfileServiceHandler interface {
	GetProfile(context.Context, *connect.Request[GetProfileRequest]) (*connect.Response[GetProfileResponse], error)
	UpdateProfile(context.Context, *connect.Request[UpdateProfileRequest]) (*connect.Response[UpdateProfileResponse], error)
}

func NewProfileServiceHandler(svc ProfileServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(ProfileServiceGetProfileProcedure, connect.NewUnaryHandler(ProfileServiceGetProfileProcedure, svc.GetProfile, opts...))
	mux.Handle(ProfileServiceUpdateProfileProcedure, connect.NewUnaryHandler(ProfileServiceUpdateProfileProcedure, svc.UpdateProfile, opts...))
	return "/" + ProfileServiceName + "/", mux
}

type ProfileServiceClient struct {
	getProfile    *connect.Client[GetProfileRequest, GetProfileResponse]
	updateProfile *connect.Client[UpdateProfileRequest, UpdateProfileResponse]
}

func NewProfileServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ProfileServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &ProfileServiceClient{
		getProfile:    connect.NewClient[GetProfileRequest, GetProfileResponse](httpClient, baseURL+ProfileServiceGetProfileProcedure, opts...),
		updateProfile: connect.NewClient[UpdateProfileRequest, UpdateProfileResponse](httpClient, baseURL+ProfileServiceUpdateProfileProcedure, opts...),
	}
}

func (c *ProfileServiceClient) GetProfile(ctx context.Context, req *connect.Request[GetProfileRequest]) (*connect.Response[GetProfileResponse], error) {
	return c.getProfile.CallUnary(ctx, req)
}

func (c *ProfileServiceClient) UpdateProfile(ctx context.Context, req *connect.Request[UpdateProfileRequest]) (*connect.Response[UpdateProfileResponse], error) {
	return c.updateProfile.CallUnary(ctx, req)
}
