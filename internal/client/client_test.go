package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/microwin/internal/api"
)

// fakeTasks implements only the calls exercised here.
type fakeTasks struct {
	api.TaskServiceHandler
	gotKey string
}

func (f *fakeTasks) GetCurrentTask(_ context.Context, req *connect.Request[api.GetCurrentTaskRequest]) (*connect.Response[api.TaskResult], error) {
	f.gotKey = req.Header().Get("X-API-Key")
	return connect.NewResponse(&api.TaskResult{Task: &api.Task{ID: "t1", MainTask: "clean the kitchen"}}), nil
}

func (f *fakeTasks) ArchiveTask(context.Context, *connect.Request[api.ArchiveTaskRequest]) (*connect.Response[api.ArchiveTaskResponse], error) {
	return nil, connect.NewError(connect.CodeFailedPrecondition, nil)
}

func TestClient_SendsAPIKey(t *testing.T) {
	fake := &fakeTasks{}
	mux := http.NewServeMux()
	mux.Handle(api.NewTaskServiceHandler(fake))
	hs := httptest.NewServer(mux)
	t.Cleanup(hs.Close)

	c := New(hs.Client(), hs.URL, "secret")
	res, err := c.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "clean the kitchen", res.Task.MainTask)
	assert.Equal(t, "secret", fake.gotKey)
}

func TestClient_WrapsErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle(api.NewTaskServiceHandler(&fakeTasks{}))
	hs := httptest.NewServer(mux)
	t.Cleanup(hs.Close)

	_, err := New(hs.Client(), hs.URL, "secret").Archive(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to archive task")
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))
}
