package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const TaskServiceName = "microwin.v1.TaskService"

const (
	TaskServiceCreateTaskProcedure        = "/microwin.v1.TaskService/CreateTask"
	TaskServiceExpandStepProcedure        = "/microwin.v1.TaskService/ExpandStep"
	TaskServiceToggleStepProcedure        = "/microwin.v1.TaskService/ToggleStep"
	TaskServiceToggleSubStepProcedure     = "/microwin.v1.TaskService/ToggleSubStep"
	TaskServiceClearCompletedProcedure    = "/microwin.v1.TaskService/ClearCompleted"
	TaskServiceGetCurrentTaskProcedure    = "/microwin.v1.TaskService/GetCurrentTask"
	TaskServiceArchiveTaskProcedure       = "/microwin.v1.TaskService/ArchiveTask"
	TaskServiceListHistoryProcedure       = "/microwin.v1.TaskService/ListHistory"
	TaskServiceDeleteHistoryTaskProcedure = "/microwin.v1.TaskService/DeleteHistoryTask"
	TaskServiceGetRequestStateProcedure   = "/microwin.v1.TaskService/GetRequestState"
	TaskServiceSyncTaskProcedure          = "/microwin.v1.TaskService/SyncTask"
)

type TaskServiceHandler interface {
	CreateTask(context.Context, *connect.Request[CreateTaskRequest]) (*connect.Response[TaskResult], error)
	ExpandStep(context.Context, *connect.Request[ExpandStepRequest]) (*connect.Response[TaskResult], error)
	ToggleStep(context.Context, *connect.Request[ToggleStepRequest]) (*connect.Response[TaskResult], error)
	ToggleSubStep(context.Context, *connect.Request[ToggleSubStepRequest]) (*connect.Response[TaskResult], error)
	ClearCompleted(context.Context, *connect.Request[ClearCompletedRequest]) (*connect.Response[TaskResult], error)
	GetCurrentTask(context.Context, *connect.Request[GetCurrentTaskRequest]) (*connect.Response[TaskResult], error)
	ArchiveTask(context.Context, *connect.Request[ArchiveTaskRequest]) (*connect.Response[ArchiveTaskResponse], error)
	ListHistory(context.Context, *connect.Request[ListHistoryRequest]) (*connect.Response[ListHistoryResponse], error)
	DeleteHistoryTask(context.Context, *connect.Request[DeleteHistoryTaskRequest]) (*connect.Response[DeleteHistoryTaskResponse], error)
	GetRequestState(context.Context, *connect.Request[GetRequestStateRequest]) (*connect.Response[GetRequestStateResponse], error)
	SyncTask(context.Context, *connect.Request[SyncTaskRequest]) (*connect.Response[SyncTaskResponse], error)
}

func NewTaskServiceHandler(svc TaskServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(TaskServiceCreateTaskProcedure, connect.NewUnaryHandler(TaskServiceCreateTaskProcedure, svc.CreateTask, opts...))
	mux.Handle(TaskServiceExpandStepProcedure, connect.NewUnaryHandler(TaskServiceExpandStepProcedure, svc.ExpandStep, opts...))
	mux.Handle(TaskServiceToggleStepProcedure, connect.NewUnaryHandler(TaskServiceToggleStepProcedure, svc.ToggleStep, opts...))
	mux.Handle(TaskServiceToggleSubStepProcedure, connect.NewUnaryHandler(TaskServiceToggleSubStepProcedure, svc.ToggleSubStep, opts...))
	mux.Handle(TaskServiceClearCompletedProcedure, connect.NewUnaryHandler(TaskServiceClearCompletedProcedure, svc.ClearCompleted, opts...))
	mux.Handle(TaskServiceGetCurrentTaskProcedure, connect.NewUnaryHandler(TaskServiceGetCurrentTaskProcedure, svc.GetCurrentTask, opts...))
	mux.Handle(TaskServiceArchiveTaskProcedure, connect.NewUnaryHandler(TaskServiceArchiveTaskProcedure, svc.ArchiveTask, opts...))
	mux.Handle(TaskServiceListHistoryProcedure, connect.NewUnaryHandler(TaskServiceListHistoryProcedure, svc.ListHistory, opts...))
	mux.Handle(TaskServiceDeleteHistoryTaskProcedure, connect.NewUnaryHandler(TaskServiceDeleteHistoryTaskProcedure, svc.DeleteHistoryTask, opts...))
	mux.Handle(TaskServiceGetRequestStateProcedure, connect.NewUnaryHandler(TaskServiceGetRequestStateProcedure, svc.GetRequestState, opts...))
	mux.Handle(TaskServiceSyncTaskProcedure, connect.NewUnaryHandler(TaskServiceSyncTaskProcedure, svc.SyncTask, opts...))
	return "/" + TaskServiceName + "/", mux
}

type TaskServiceClient struct {
	createTask        *connect.Client[CreateTaskRequest, TaskResult]
	expandStep        *connect.Client[ExpandStepRequest, TaskResult]
	toggleStep        *connect.Client[ToggleStepRequest, TaskResult]
	toggleSubStep     *connect.Client[ToggleSubStepRequest, TaskResult]
	clearCompleted    *connect.Client[ClearCompletedRequest, TaskResult]
	getCurrentTask    *connect.Client[GetCurrentTaskRequest, TaskResult]
	archiveTask       *connect.Client[ArchiveTaskRequest, ArchiveTaskResponse]
	listHistory       *connect.Client[ListHistoryRequest, ListHistoryResponse]
	deleteHistoryTask *connect.Client[DeleteHistoryTaskRequest, DeleteHistoryTaskResponse]
	getRequestState   *connect.Client[GetRequestStateRequest, GetRequestStateResponse]
	syncTask          *connect.Client[SyncTaskRequest, SyncTaskResponse]
}

func NewTaskServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *TaskServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &TaskServiceClient{
		createTask:        connect.NewClient[CreateTaskRequest, TaskResult](httpClient, baseURL+TaskServiceCreateTaskProcedure, opts...),
		expandStep:        connect.NewClient[ExpandStepRequest, TaskResult](httpClient, baseURL+TaskServiceExpandStepProcedure, opts...),
		toggleStep:        connect.NewClient[ToggleStepRequest, TaskResult](httpClient, baseURL+TaskServiceToggleStepProcedure, opts...),
		toggleSubStep:     connect.NewClient[ToggleSubStepRequest, TaskResult](httpClient, baseURL+TaskServiceToggleSubStepProcedure, opts...),
		clearCompleted:    connect.NewClient[ClearCompletedRequest, TaskResult](httpClient, baseURL+TaskServiceClearCompletedProcedure, opts...),
		getCurrentTask:    connect.NewClient[GetCurrentTaskRequest, TaskResult](httpClient, baseURL+TaskServiceGetCurrentTaskProcedure, opts...),
		archiveTask:       connect.NewClient[ArchiveTaskRequest, ArchiveTaskResponse](httpClient, baseURL+TaskServiceArchiveTaskProcedure, opts...),
		listHistory:       connect.NewClient[ListHistoryRequest, ListHistoryResponse](httpClient, baseURL+TaskServiceListHistoryProcedure, opts...),
		deleteHistoryTask: connect.NewClient[DeleteHistoryTaskRequest, DeleteHistoryTaskResponse](httpClient, baseURL+TaskServiceDeleteHistoryTaskProcedure, opts...),
		getRequestState:   connect.NewClient[GetRequestStateRequest, GetRequestStateResponse](httpClient, baseURL+TaskServiceGetRequestStateProcedure, opts...),
		syncTask:          connect.NewClient[SyncTaskRequest, SyncTaskResponse](httpClient, baseURL+TaskServiceSyncTaskProcedure, opts...),
	}
}

func (c *TaskServiceClient) CreateTask(ctx context.Context, req *connect.Request[CreateTaskRequest]) (*connect.Response[TaskResult], error) {
	return c.createTask.CallUnary(ctx, req)
}

func (c *TaskServiceClient) ExpandStep(ctx context.Context, req *connect.Request[ExpandStepRequest]) (*connect.Response[TaskResult], error) {
	return c.expandStep.CallUnary(ctx, req)
}

func (c *TaskServiceClient) ToggleStep(ctx context.Context, req *connect.Request[ToggleStepRequest]) (*connect.Response[TaskResult], error) {
	return c.toggleStep.CallUnary(ctx, req)
}

func (c *TaskServiceClient) ToggleSubStep(ctx context.Context, req *connect.Request[ToggleSubStepRequest]) (*connect.Response[TaskResult], error) {
	return c.toggleSubStep.CallUnary(ctx, req)
}

func (c *TaskServiceClient) ClearCompleted(ctx context.Context, req *connect.Request[ClearCompletedRequest]) (*connect.Response[TaskResult], error) {
	return c.clearCompleted.CallUnary(ctx, req)
}

func (c *TaskServiceClient) GetCurrentTask(ctx context.Context, req *connect.Request[GetCurrentTaskRequest]) (*connect.Response[TaskResult], error) {
	return c.getCurrentTask.CallUnary(ctx, req)
}

func (c *TaskServiceClient) ArchiveTask(ctx context.Context, req *connect.Request[ArchiveTaskRequest]) (*connect.Response[ArchiveTaskResponse], error) {
	return c.archiveTask.CallUnary(ctx, req)
}

func (c *TaskServiceClient) ListHistory(ctx context.Context, req *connect.Request[ListHistoryRequest]) (*connect.Response[ListHistoryResponse], error) {
	return c.listHistory.CallUnary(ctx, req)
}

func (c *TaskServiceClient) DeleteHistoryTask(ctx context.Context, req *connect.Request[DeleteHistoryTaskRequest]) (*connect.Response[DeleteHistoryTaskResponse], error) {
	return c.deleteHistoryTask.CallUnary(ctx, req)
}

func (c *TaskServiceClient) GetRequestState(ctx context.Context, req *connect.Request[GetRequestStateRequest]) (*connect.Response[GetRequestStateResponse], error) {
	return c.getRequestState.CallUnary(ctx, req)
}

func (c *TaskServiceClient) SyncTask(ctx context.Context, req *connect.Request[SyncTaskRequest]) (*connect.Response[SyncTaskResponse], error) {
	return c.syncTask.CallUnary(ctx, req)
}
