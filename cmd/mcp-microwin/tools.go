package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kazz187/microwin/internal/client"
)

type CreateTaskInput struct {
	Text string `json:"text" jsonschema:"what the user wants to get done, in their own words"`
}

type ItemInput struct {
	Item string `json:"item" jsonschema:"1-based step number, or step.sub-step such as 3.2"`
}

type NoInput struct{}

type tools struct {
	client *client.Client
}

func register(server *mcp.Server, t *tools) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "microwin_get_current_task",
		Title:       "microwin: Current Task",
		Description: "Show the current task with its numbered steps, sub-steps, estimates and progress.",
	}, t.getCurrentTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "microwin_next_step",
		Title:       "microwin: Next Step",
		Description: "Show only the next step the user should work on.",
	}, t.nextStep)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "microwin_create_task",
		Title:       "microwin: Create Task",
		Description: "Break a new task into 5 to 7 small steps. Fails while another task is current.",
	}, t.createTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "microwin_break_down_step",
		Title:       "microwin: Break Down Step",
		Description: "Split one step into exactly three sub-steps that share its time estimate.",
	}, t.breakDownStep)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "microwin_toggle",
		Title:       "microwin: Toggle Done",
		Description: "Mark a step or sub-step as done, or undo it.",
	}, t.toggle)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "microwin_list_history",
		Title:       "microwin: History",
		Description: "List archived tasks, newest first.",
	}, t.listHistory)
}

func (t *tools) getCurrentTask(ctx context.Context, _ *mcp.CallToolRequest, _ NoInput) (*mcp.CallToolResult, any, error) {
	res, err := t.client.Current(ctx)
	if err != nil {
		return nil, nil, err
	}
	if res.Task == nil {
		return text("There is no current task."), nil, nil
	}
	return jsonText(res)
}

func (t *tools) nextStep(ctx context.Context, _ *mcp.CallToolRequest, _ NoInput) (*mcp.CallToolResult, any, error) {
	res, err := t.client.Current(ctx)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case res.Task == nil:
		return text("There is no current task."), nil, nil
	case res.NextStep == nil:
		return text("Every step is done."), nil, nil
	}
	return jsonText(res.NextStep)
}

func (t *tools) createTask(ctx context.Context, _ *mcp.CallToolRequest, in CreateTaskInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, nil, fmt.Errorf("text is required")
	}
	res, err := t.client.CreateTask(ctx, in.Text)
	if err != nil {
		return nil, nil, err
	}
	return jsonText(res)
}

func (t *tools) breakDownStep(ctx context.Context, _ *mcp.CallToolRequest, in ItemInput) (*mcp.CallToolResult, any, error) {
	cur, err := t.client.Current(ctx)
	if err != nil {
		return nil, nil, err
	}
	stepID, subStepID, err := client.ResolveRef(cur.Task, in.Item)
	if err != nil {
		return nil, nil, err
	}
	if subStepID != "" {
		return nil, nil, fmt.Errorf("only steps can be broken down")
	}
	res, err := t.client.ExpandStep(ctx, stepID)
	if err != nil {
		return nil, nil, err
	}
	return jsonText(res)
}

func (t *tools) toggle(ctx context.Context, _ *mcp.CallToolRequest, in ItemInput) (*mcp.CallToolResult, any, error) {
	cur, err := t.client.Current(ctx)
	if err != nil {
		return nil, nil, err
	}
	stepID, subStepID, err := client.ResolveRef(cur.Task, in.Item)
	if err != nil {
		return nil, nil, err
	}
	if subStepID != "" {
		res, err := t.client.ToggleSubStep(ctx, stepID, subStepID)
		if err != nil {
			return nil, nil, err
		}
		return jsonText(res)
	}
	res, err := t.client.ToggleStep(ctx, stepID)
	if err != nil {
		return nil, nil, err
	}
	return jsonText(res)
}

func (t *tools) listHistory(ctx context.Context, _ *mcp.CallToolRequest, _ NoInput) (*mcp.CallToolResult, any, error) {
	tasks, err := t.client.History(ctx)
	if err != nil {
		return nil, nil, err
	}
	return jsonText(map[string]any{"tasks": tasks})
}

func text(s string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: s}}}
}

func jsonText(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return text(string(data)), nil, nil
}
