package orchestrator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/microwin/internal/api"
	"github.com/kazz187/microwin/internal/profile"
	"github.com/kazz187/microwin/internal/task"
	"github.com/kazz187/microwin/pkg/cerr"
)

func newTaskClient(t *testing.T, srv *Server) *api.TaskServiceClient {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle(api.NewTaskServiceHandler(srv, connect.WithInterceptors(cerr.NewConvertConnectErrorInterceptor())))
	hs := httptest.NewServer(mux)
	t.Cleanup(hs.Close)
	return api.NewTaskServiceClient(hs.Client(), hs.URL)
}

func TestServer_TaskLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &fakeDecomposer{
		steps: kitchenSteps,
		subSteps: []task.Draft{
			{Description: "Fill the sink", EstimatedMinutes: 4},
			{Description: "Scrub the pans", EstimatedMinutes: 2.5},
			{Description: "Dry and store", EstimatedMinutes: 2.5},
		},
	})
	client := newTaskClient(t, NewServer(f.orch, 0))

	created, err := client.CreateTask(ctx, connect.NewRequest(&api.CreateTaskRequest{Text: "clean the kitchen"}))
	require.NoError(t, err)
	require.Len(t, created.Msg.Task.Steps, 6)
	assert.Equal(t, 6, created.Msg.Progress.TotalCount)
	require.NotNil(t, created.Msg.NextStep)
	assert.Equal(t, "Clear the counters", created.Msg.NextStep.Text)
	assert.False(t, created.Msg.Unsaved)

	first := created.Msg.Task.Steps[0].ID
	third := created.Msg.Task.Steps[2].ID

	expanded, err := client.ExpandStep(ctx, connect.NewRequest(&api.ExpandStepRequest{StepID: third}))
	require.NoError(t, err)
	assert.Len(t, expanded.Msg.Task.Steps[2].SubSteps, 3)
	assert.Equal(t, 9, expanded.Msg.Progress.TotalCount)

	state, err := client.GetRequestState(ctx, connect.NewRequest(&api.GetRequestStateRequest{StepID: third}))
	require.NoError(t, err)
	assert.Equal(t, string(StateIdle), state.Msg.Status.State)
	assert.Equal(t, string(StateApplied), state.Msg.Status.Outcome)

	toggled, err := client.ToggleStep(ctx, connect.NewRequest(&api.ToggleStepRequest{StepID: first}))
	require.NoError(t, err)
	assert.True(t, toggled.Msg.Task.Steps[0].Completed)
	assert.Equal(t, 1, toggled.Msg.Progress.CompletedCount)
	assert.Equal(t, "Load the dishwasher", toggled.Msg.NextStep.Text)

	cleared, err := client.ClearCompleted(ctx, connect.NewRequest(&api.ClearCompletedRequest{}))
	require.NoError(t, err)
	assert.Len(t, cleared.Msg.Task.Steps, 5)

	current, err := client.GetCurrentTask(ctx, connect.NewRequest(&api.GetCurrentTaskRequest{}))
	require.NoError(t, err)
	assert.Equal(t, cleared.Msg.Task.ID, current.Msg.Task.ID)

	archived, err := client.ArchiveTask(ctx, connect.NewRequest(&api.ArchiveTaskRequest{}))
	require.NoError(t, err)
	assert.Equal(t, current.Msg.Task.ID, archived.Msg.Task.ID)

	current, err = client.GetCurrentTask(ctx, connect.NewRequest(&api.GetCurrentTaskRequest{}))
	require.NoError(t, err)
	assert.Nil(t, current.Msg.Task)
	assert.Nil(t, current.Msg.NextStep)

	history, err := client.ListHistory(ctx, connect.NewRequest(&api.ListHistoryRequest{NewestFirst: true}))
	require.NoError(t, err)
	require.Len(t, history.Msg.Tasks, 1)

	_, err = client.DeleteHistoryTask(ctx, connect.NewRequest(&api.DeleteHistoryTaskRequest{TaskID: archived.Msg.Task.ID}))
	require.NoError(t, err)
	history, err = client.ListHistory(ctx, connect.NewRequest(&api.ListHistoryRequest{}))
	require.NoError(t, err)
	assert.Empty(t, history.Msg.Tasks)
}

func TestServer_ErrorCodes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &fakeDecomposer{steps: kitchenSteps})
	client := newTaskClient(t, NewServer(f.orch, 0))

	_, err := client.CreateTask(ctx, connect.NewRequest(&api.CreateTaskRequest{Text: "  "}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = client.ToggleStep(ctx, connect.NewRequest(&api.ToggleStepRequest{StepID: "missing"}))
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	_, err = client.CreateTask(ctx, connect.NewRequest(&api.CreateTaskRequest{Text: "clean the kitchen"}))
	require.NoError(t, err)

	_, err = client.CreateTask(ctx, connect.NewRequest(&api.CreateTaskRequest{Text: "do the laundry"}))
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	_, err = client.ExpandStep(ctx, connect.NewRequest(&api.ExpandStepRequest{StepID: "missing"}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	_, err = client.DeleteHistoryTask(ctx, connect.NewRequest(&api.DeleteHistoryTaskRequest{TaskID: "missing"}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestServer_UnsavedChangeIsAWarning(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &fakeDecomposer{steps: kitchenSteps})
	client := newTaskClient(t, NewServer(f.orch, 0))

	created, err := client.CreateTask(ctx, connect.NewRequest(&api.CreateTaskRequest{Text: "clean the kitchen"}))
	require.NoError(t, err)

	f.store.failures.Store(100)
	toggled, err := client.ToggleStep(ctx, connect.NewRequest(&api.ToggleStepRequest{StepID: created.Msg.Task.Steps[0].ID}))
	require.NoError(t, err)
	assert.True(t, toggled.Msg.Unsaved)
	assert.NotEmpty(t, toggled.Msg.Warning)
	assert.True(t, toggled.Msg.Task.Steps[0].Completed)

	current, err := client.GetCurrentTask(ctx, connect.NewRequest(&api.GetCurrentTaskRequest{}))
	require.NoError(t, err)
	assert.True(t, current.Msg.Unsaved)

	_, err = client.SyncTask(ctx, connect.NewRequest(&api.SyncTaskRequest{}))
	require.Error(t, err)

	f.store.failures.Store(0)
	synced, err := client.SyncTask(ctx, connect.NewRequest(&api.SyncTaskRequest{}))
	require.NoError(t, err)
	assert.False(t, synced.Msg.Unsaved)
}

// blockingDecomposer waits for the request context to end.
type blockingDecomposer struct{}

func (blockingDecomposer) DecomposeTask(ctx context.Context, _ string, _ *profile.Profile) ([]task.Draft, error) {
	<-ctx.Done()
	return nil, cerr.NewError(cerr.DeadlineExceeded, "the planner took too long", ctx.Err())
}

func (blockingDecomposer) DecomposeStep(ctx context.Context, _ string, _ float64, _ *profile.Profile) ([]task.Draft, error) {
	<-ctx.Done()
	return nil, cerr.NewError(cerr.DeadlineExceeded, "the planner took too long", ctx.Err())
}

func TestServer_DecomposeTimeout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.orch.decomposer = blockingDecomposer{}
	client := newTaskClient(t, NewServer(f.orch, 20*time.Millisecond))

	_, err := client.CreateTask(ctx, connect.NewRequest(&api.CreateTaskRequest{Text: "clean the kitchen"}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeDeadlineExceeded, connect.CodeOf(err))

	state, err := client.GetRequestState(ctx, connect.NewRequest(&api.GetRequestStateRequest{}))
	require.NoError(t, err)
	assert.Equal(t, string(StateFailed), state.Msg.Status.Outcome)
	assert.Equal(t, string(StateIdle), state.Msg.Status.State)
}
