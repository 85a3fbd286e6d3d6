package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/microwin/internal/api"
	"github.com/kazz187/microwin/internal/config"
	"github.com/kazz187/microwin/internal/decompose"
	"github.com/kazz187/microwin/internal/event"
	"github.com/kazz187/microwin/internal/eventbus"
	"github.com/kazz187/microwin/internal/orchestrator"
	"github.com/kazz187/microwin/internal/profile"
	profilerepo "github.com/kazz187/microwin/internal/profile/repositoryimpl"
	"github.com/kazz187/microwin/internal/pushnotification"
	pushsubrepo "github.com/kazz187/microwin/internal/pushsubscription/repositoryimpl"
	"github.com/kazz187/microwin/internal/task"
	"github.com/kazz187/microwin/internal/taskstore/repositoryimpl"
	"github.com/kazz187/microwin/pkg/storage"
)

const testAPIKey = "secret"

type cannedGenerator struct{}

func (cannedGenerator) GenerateSteps(context.Context, decompose.TaskRequest) ([]task.Draft, error) {
	return []task.Draft{
		{Description: "Gather the laundry", EstimatedMinutes: 3},
		{Description: "Sort by colour", EstimatedMinutes: 4},
		{Description: "Start the washer", EstimatedMinutes: 2},
		{Description: "Hang it up", EstimatedMinutes: 8},
		{Description: "Fold and put away", EstimatedMinutes: 10},
	}, nil
}

func (cannedGenerator) GenerateSubSteps(_ context.Context, req decompose.StepRequest) ([]task.Draft, error) {
	third := req.ParentEstimatedMinutes / 3
	return []task.Draft{
		{Description: "first", EstimatedMinutes: third},
		{Description: "second", EstimatedMinutes: third},
		{Description: "third", EstimatedMinutes: req.ParentEstimatedMinutes - 2*third},
	}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	env := &config.Env{BaseEnv: config.BaseEnv{APIKey: testAPIKey}}
	store := storage.NewMemoryStorage()
	bus := eventbus.New()
	profiles := profilerepo.NewYAMLRepository(store)
	pushRepo := pushsubrepo.NewYAMLRepository(store)

	orch := orchestrator.New(bus, decompose.NewClient(cannedGenerator{}), repositoryimpl.NewYAMLRepository(store),
		orchestrator.WithProfiles(profiles))
	_, err := orch.Load(ctx)
	require.NoError(t, err)

	sender := pushnotification.NewSender(&env.VAPIDEnv, pushRepo)
	srv := NewServer(env,
		orch,
		orchestrator.NewServer(orch, 0),
		profile.NewServer(profiles),
		event.NewServer(bus),
		pushnotification.NewServer(&env.VAPIDEnv, pushRepo, sender),
	)
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	return hs
}

func authorized() connect.ClientOption {
	return connect.WithInterceptors(connect.UnaryInterceptorFunc(func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			req.Header().Set("X-API-Key", testAPIKey)
			return next(ctx, req)
		}
	}))
}

func TestServer_RequiresAPIKey(t *testing.T) {
	hs := newTestServer(t)

	resp, err := hs.Client().Get(hs.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	client := api.NewTaskServiceClient(hs.Client(), hs.URL)
	_, err = client.GetCurrentTask(context.Background(), connect.NewRequest(&api.GetCurrentTaskRequest{}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	req, err := http.NewRequest(http.MethodGet, hs.URL+"/api/progress", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = hs.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_RPCAndProgressEndpoint(t *testing.T) {
	ctx := context.Background()
	hs := newTestServer(t)
	client := api.NewTaskServiceClient(hs.Client(), hs.URL, authorized())

	created, err := client.CreateTask(ctx, connect.NewRequest(&api.CreateTaskRequest{Text: "do the laundry"}))
	require.NoError(t, err)
	require.Len(t, created.Msg.Task.Steps, 5)

	_, err = client.ToggleStep(ctx, connect.NewRequest(&api.ToggleStepRequest{StepID: created.Msg.Task.Steps[0].ID}))
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, hs.URL+"/api/progress", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", testAPIKey)
	resp, err := hs.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		MainTask string `json:"mainTask"`
		Progress struct {
			CompletedCount int `json:"completedCount"`
			TotalCount     int `json:"totalCount"`
		} `json:"progress"`
		NextStep string `json:"nextStep"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "do the laundry", body.MainTask)
	assert.Equal(t, 1, body.Progress.CompletedCount)
	assert.Equal(t, 5, body.Progress.TotalCount)
	assert.Equal(t, "Sort by colour", body.NextStep)
}

func TestServer_UnknownAPIPathIsJSONNotFound(t *testing.T) {
	hs := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, hs.URL+"/api/nope", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", testAPIKey)
	resp, err := hs.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
}
