package orchestrator

import (
	"context"
	"time"

	"connectrpc.com/connect"

	"github.com/kazz187/microwin/internal/api"
	"github.com/kazz187/microwin/internal/profile"
	"github.com/kazz187/microwin/internal/progress"
	"github.com/kazz187/microwin/internal/task"
	"github.com/kazz187/microwin/pkg/cerr"
)

var _ api.TaskServiceHandler = (*Server)(nil)

type Server struct {
	orch *Orchestrator
	// decomposeTimeout bounds CreateTask and ExpandStep; 0 disables it.
	decomposeTimeout time.Duration
}

func NewServer(orch *Orchestrator, decomposeTimeout time.Duration) *Server {
	return &Server{orch: orch, decomposeTimeout: decomposeTimeout}
}

func (s *Server) CreateTask(ctx context.Context, req *connect.Request[api.CreateTaskRequest]) (*connect.Response[api.TaskResult], error) {
	ctx, cancel := s.withDecomposeTimeout(ctx)
	defer cancel()
	t, err := s.orch.CreateTask(ctx, req.Msg.Text, profile.FromAPI(req.Msg.Profile))
	return taskResponse(t, err)
}

func (s *Server) ExpandStep(ctx context.Context, req *connect.Request[api.ExpandStepRequest]) (*connect.Response[api.TaskResult], error) {
	if req.Msg.StepID == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "step id is required", nil)
	}
	ctx, cancel := s.withDecomposeTimeout(ctx)
	defer cancel()
	t, err := s.orch.ExpandStep(ctx, req.Msg.StepID, profile.FromAPI(req.Msg.Profile))
	return taskResponse(t, err)
}

func (s *Server) ToggleStep(ctx context.Context, req *connect.Request[api.ToggleStepRequest]) (*connect.Response[api.TaskResult], error) {
	t, err := s.orch.ToggleStep(ctx, req.Msg.StepID)
	return taskResponse(t, err)
}

func (s *Server) ToggleSubStep(ctx context.Context, req *connect.Request[api.ToggleSubStepRequest]) (*connect.Response[api.TaskResult], error) {
	t, err := s.orch.ToggleSubStep(ctx, req.Msg.StepID, req.Msg.SubStepID)
	return taskResponse(t, err)
}

func (s *Server) ClearCompleted(ctx context.Context, _ *connect.Request[api.ClearCompletedRequest]) (*connect.Response[api.TaskResult], error) {
	t, err := s.orch.ClearCompleted(ctx)
	return taskResponse(t, err)
}

func (s *Server) GetCurrentTask(_ context.Context, _ *connect.Request[api.GetCurrentTaskRequest]) (*connect.Response[api.TaskResult], error) {
	res := ToAPIResult(s.orch.Current())
	if s.orch.Dirty() {
		res.Unsaved = true
	}
	return connect.NewResponse(res), nil
}

func (s *Server) ArchiveTask(ctx context.Context, _ *connect.Request[api.ArchiveTaskRequest]) (*connect.Response[api.ArchiveTaskResponse], error) {
	t, err := s.orch.Archive(ctx)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.ArchiveTaskResponse{Task: ToAPITask(t)}), nil
}

func (s *Server) ListHistory(ctx context.Context, req *connect.Request[api.ListHistoryRequest]) (*connect.Response[api.ListHistoryResponse], error) {
	history, err := s.orch.History(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.NewestFirst {
		history = progress.NewestFirst(history)
	}
	return connect.NewResponse(&api.ListHistoryResponse{Tasks: ToAPITasks(history)}), nil
}

func (s *Server) DeleteHistoryTask(ctx context.Context, req *connect.Request[api.DeleteHistoryTaskRequest]) (*connect.Response[api.DeleteHistoryTaskResponse], error) {
	if req.Msg.TaskID == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "task id is required", nil)
	}
	if err := s.orch.DeleteFromHistory(ctx, req.Msg.TaskID); err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.DeleteHistoryTaskResponse{}), nil
}

func (s *Server) GetRequestState(_ context.Context, req *connect.Request[api.GetRequestStateRequest]) (*connect.Response[api.GetRequestStateResponse], error) {
	target := TaskTarget
	if req.Msg.StepID != "" {
		target = StepTarget(req.Msg.StepID)
	}
	return connect.NewResponse(&api.GetRequestStateResponse{Status: toAPIStatus(s.orch.State(target))}), nil
}

func (s *Server) SyncTask(ctx context.Context, _ *connect.Request[api.SyncTaskRequest]) (*connect.Response[api.SyncTaskResponse], error) {
	if err := s.orch.Sync(ctx); err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.SyncTaskResponse{Unsaved: s.orch.Dirty()}), nil
}

func (s *Server) withDecomposeTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.decomposeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.decomposeTimeout)
}

// taskResponse turns an orchestrator result into a response. A change that
// was applied but not persisted is reported as a warning, not an error.
func taskResponse(t *task.Task, err error) (*connect.Response[api.TaskResult], error) {
	if err != nil && t == nil {
		return nil, err
	}
	res := ToAPIResult(t)
	if err != nil {
		res.Unsaved = true
		res.Warning = cerr.Message(err)
	}
	return connect.NewResponse(res), nil
}
