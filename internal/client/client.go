// Package client is the RPC client used by the command line tool.
package client

import (
	"context"
	"fmt"
	"net/http"

	"connectrpc.com/connect"

	"github.com/kazz187/microwin/internal/api"
)

type Client struct {
	tasks    *api.TaskServiceClient
	profiles *api.ProfileServiceClient
	events   *api.EventServiceClient
}

func New(httpClient connect.HTTPClient, baseURL, apiKey string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := connect.WithInterceptors(&apiKeyInterceptor{apiKey: apiKey})
	return &Client{
		tasks:    api.NewTaskServiceClient(httpClient, baseURL, opts),
		profiles: api.NewProfileServiceClient(httpClient, baseURL, opts),
		events:   api.NewEventServiceClient(httpClient, baseURL, opts),
	}
}

func (c *Client) CreateTask(ctx context.Context, text string) (*api.TaskResult, error) {
	resp, err := c.tasks.CreateTask(ctx, connect.NewRequest(&api.CreateTaskRequest{Text: text}))
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return resp.Msg, nil
}

func (c *Client) Current(ctx context.Context) (*api.TaskResult, error) {
	resp, err := c.tasks.GetCurrentTask(ctx, connect.NewRequest(&api.GetCurrentTaskRequest{}))
	if err != nil {
		return nil, fmt.Errorf("failed to get current task: %w", err)
	}
	return resp.Msg, nil
}

func (c *Client) ExpandStep(ctx context.Context, stepID string) (*api.TaskResult, error) {
	resp, err := c.tasks.ExpandStep(ctx, connect.NewRequest(&api.ExpandStepRequest{StepID: stepID}))
	if err != nil {
		return nil, fmt.Errorf("failed to break down step: %w", err)
	}
	return resp.Msg, nil
}

func (c *Client) ToggleStep(ctx context.Context, stepID string) (*api.TaskResult, error) {
	resp, err := c.tasks.ToggleStep(ctx, connect.NewRequest(&api.ToggleStepRequest{StepID: stepID}))
	if err != nil {
		return nil, fmt.Errorf("failed to toggle step: %w", err)
	}
	return resp.Msg, nil
}

func (c *Client) ToggleSubStep(ctx context.Context, stepID, subStepID string) (*api.TaskResult, error) {
	resp, err := c.tasks.ToggleSubStep(ctx, connect.NewRequest(&api.ToggleSubStepRequest{StepID: stepID, SubStepID: subStepID}))
	if err != nil {
		return nil, fmt.Errorf("failed to toggle sub-step: %w", err)
	}
	return resp.Msg, nil
}

func (c *Client) ClearCompleted(ctx context.Context) (*api.TaskResult, error) {
	resp, err := c.tasks.ClearCompleted(ctx, connect.NewRequest(&api.ClearCompletedRequest{}))
	if err != nil {
		return nil, fmt.Errorf("failed to clear completed steps: %w", err)
	}
	return resp.Msg, nil
}

func (c *Client) Archive(ctx context.Context) (*api.Task, error) {
	resp, err := c.tasks.ArchiveTask(ctx, connect.NewRequest(&api.ArchiveTaskRequest{}))
	if err != nil {
		return nil, fmt.Errorf("failed to archive task: %w", err)
	}
	return resp.Msg.Task, nil
}

// History lists archived tasks, newest first.
func (c *Client) History(ctx context.Context) ([]*api.Task, error) {
	resp, err := c.tasks.ListHistory(ctx, connect.NewRequest(&api.ListHistoryRequest{NewestFirst: true}))
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return resp.Msg.Tasks, nil
}

func (c *Client) DeleteFromHistory(ctx context.Context, taskID string) error {
	if _, err := c.tasks.DeleteHistoryTask(ctx, connect.NewRequest(&api.DeleteHistoryTaskRequest{TaskID: taskID})); err != nil {
		return fmt.Errorf("failed to delete task from history: %w", err)
	}
	return nil
}

func (c *Client) Sync(ctx context.Context) (bool, error) {
	resp, err := c.tasks.SyncTask(ctx, connect.NewRequest(&api.SyncTaskRequest{}))
	if err != nil {
		return true, fmt.Errorf("failed to sync task: %w", err)
	}
	return resp.Msg.Unsaved, nil
}

func (c *Client) Profile(ctx context.Context) (*api.Profile, error) {
	resp, err := c.profiles.GetProfile(ctx, connect.NewRequest(&api.GetProfileRequest{}))
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return resp.Msg.Profile, nil
}

func (c *Client) UpdateProfile(ctx context.Context, p *api.Profile) (*api.Profile, error) {
	resp, err := c.profiles.UpdateProfile(ctx, connect.NewRequest(&api.UpdateProfileRequest{Profile: p}))
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return resp.Msg.Profile, nil
}

// Watch streams events to fn until ctx is done or the stream fails.
func (c *Client) Watch(ctx context.Context, eventTypes []string, fn func(*api.Event)) error {
	stream, err := c.events.SubscribeEvents(ctx, connect.NewRequest(&api.SubscribeEventsRequest{EventTypes: eventTypes}))
	if err != nil {
		return fmt.Errorf("failed to subscribe to events: %w", err)
	}
	defer stream.Close()
	for stream.Receive() {
		fn(stream.Msg())
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("event stream ended: %w", err)
	}
	return nil
}

type apiKeyInterceptor struct {
	apiKey string
}

func (i *apiKeyInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			req.Header().Set("X-API-Key", i.apiKey)
		}
		return next(ctx, req)
	}
}

func (i *apiKeyInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return func(ctx context.Context, spec connect.Spec) connect.StreamingClientConn {
		conn := next(ctx, spec)
		conn.RequestHeader().Set("X-API-Key", i.apiKey)
		return conn
	}
}

func (i *apiKeyInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}
