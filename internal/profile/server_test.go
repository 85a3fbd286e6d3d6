package profile_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/microwin/internal/api"
	"github.com/kazz187/microwin/internal/profile"
	"github.com/kazz187/microwin/internal/profile/repositoryimpl"
	"github.com/kazz187/microwin/pkg/cerr"
	"github.com/kazz187/microwin/pkg/storage"
)

func newClient(t *testing.T) *api.ProfileServiceClient {
	t.Helper()
	repo := repositoryimpl.NewYAMLRepository(storage.NewMemoryStorage())
	mux := http.NewServeMux()
	mux.Handle(api.NewProfileServiceHandler(profile.NewServer(repo),
		connect.WithInterceptors(cerr.NewConvertConnectErrorInterceptor())))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return api.NewProfileServiceClient(srv.Client(), srv.URL)
}

func TestServer_UpdateThenGet(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	got, err := client.GetProfile(ctx, connect.NewRequest(&api.GetProfileRequest{}))
	require.NoError(t, err)
	assert.Empty(t, got.Msg.Profile.GranularityPreference)

	updated, err := client.UpdateProfile(ctx, connect.NewRequest(&api.UpdateProfileRequest{
		Profile: &api.Profile{GranularityPreference: "high", SupportStyle: " short steps "},
	}))
	require.NoError(t, err)
	assert.Equal(t, "short steps", updated.Msg.Profile.SupportStyle)
	assert.False(t, updated.Msg.Profile.UpdatedAt.IsZero())

	got, err = client.GetProfile(ctx, connect.NewRequest(&api.GetProfileRequest{}))
	require.NoError(t, err)
	assert.Equal(t, "high", got.Msg.Profile.GranularityPreference)
}

func TestServer_UpdateRejectsUnknownGranularity(t *testing.T) {
	client := newClient(t)

	_, err := client.UpdateProfile(context.Background(), connect.NewRequest(&api.UpdateProfileRequest{
		Profile: &api.Profile{GranularityPreference: "extreme"},
	}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestServer_UpdateRequiresProfile(t *testing.T) {
	client := newClient(t)

	_, err := client.UpdateProfile(context.Background(), connect.NewRequest(&api.UpdateProfileRequest{}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}
