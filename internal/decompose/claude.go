package decompose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	claudeagent "github.com/kazz187/claude-agent-sdk-go"

	"github.com/kazz187/microwin/internal/profile"
	"github.com/kazz187/microwin/internal/task"
)

const systemPrompt = "You break overwhelming tasks into small, concrete, time-boxed actions " +
	"for someone who struggles to get started. Reply with JSON only, no prose, no code fences."

// QueryFunc sends one prompt and returns the model's final text.
type QueryFunc func(ctx context.Context, prompt string, opts *claudeagent.ClaudeAgentOptions) (string, error)

var _ Generator = (*ClaudeGenerator)(nil)

// ClaudeGenerator asks Claude for step lists in a fixed JSON shape.
type ClaudeGenerator struct {
	workDir  string
	maxTurns int
	query    QueryFunc
}

type ClaudeOption func(*ClaudeGenerator)

func WithQueryFunc(q QueryFunc) ClaudeOption {
	return func(g *ClaudeGenerator) {
		g.query = q
	}
}

func NewClaudeGenerator(workDir string, maxTurns int, opts ...ClaudeOption) *ClaudeGenerator {
	if maxTurns <= 0 {
		maxTurns = 1
	}
	g := &ClaudeGenerator{
		workDir:  workDir,
		maxTurns: maxTurns,
		query:    runQuery,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func runQuery(ctx context.Context, prompt string, opts *claudeagent.ClaudeAgentOptions) (string, error) {
	result, err := claudeagent.RunQuerySync(ctx, prompt, opts)
	if err != nil {
		return "", err
	}
	if result.Result == nil {
		return "", errors.New("claude returned no result")
	}
	if result.Result.IsError {
		return "", fmt.Errorf("claude returned error: %s", result.Result.Result)
	}
	return result.Result.Result, nil
}

func (g *ClaudeGenerator) GenerateSteps(ctx context.Context, req TaskRequest) ([]task.Draft, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Break this task into %d to %d sequential steps.\n", MinTaskSteps, MaxTaskSteps)
	b.WriteString("Each step needs a realistic estimate in minutes that already includes a 20 to 30 percent buffer.\n")
	writeProfile(&b, req.Profile)
	writeFormat(&b)
	fmt.Fprintf(&b, "\nTask: %s", req.TaskText)
	return g.generate(ctx, b.String())
}

func (g *ClaudeGenerator) GenerateSubSteps(ctx context.Context, req StepRequest) ([]task.Draft, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Break this step into exactly %d smaller actions.\n", StepBreakdowns)
	fmt.Fprintf(&b, "The step is budgeted %g minutes. The estimates of the %d actions must add up to exactly %g; fractional minutes are allowed.\n",
		req.ParentEstimatedMinutes, StepBreakdowns, req.ParentEstimatedMinutes)
	writeProfile(&b, req.Profile)
	writeFormat(&b)
	fmt.Fprintf(&b, "\nStep: %s", req.StepText)
	return g.generate(ctx, b.String())
}

func (g *ClaudeGenerator) generate(ctx context.Context, prompt string) ([]task.Draft, error) {
	maxTurns := g.maxTurns
	opts := &claudeagent.ClaudeAgentOptions{
		SystemPrompt: systemPrompt,
		Cwd:          g.workDir,
		MaxTurns:     &maxTurns,
	}
	text, err := g.query(ctx, prompt, opts)
	if err != nil {
		return nil, err
	}
	return parseDrafts(text)
}

func writeProfile(b *strings.Builder, p *profile.Profile) {
	if p.IsZero() {
		return
	}
	b.WriteString("\nAbout the person:\n")
	if v := strings.TrimSpace(p.GranularityPreference); v != "" {
		fmt.Fprintf(b, "- preferred step granularity: %s\n", v)
	}
	if v := strings.TrimSpace(p.TriggersToAvoid); v != "" {
		fmt.Fprintf(b, "- avoid wording or actions involving: %s\n", v)
	}
	if v := strings.TrimSpace(p.SupportStyle); v != "" {
		fmt.Fprintf(b, "- support style that helps: %s\n", v)
	}
}

func writeFormat(b *strings.Builder) {
	b.WriteString("\nRespond with a JSON object of the form ")
	b.WriteString(`{"steps":[{"description":"...","estimated_minutes":3}]}`)
	b.WriteString(".\n")
}

type draftsResponse struct {
	Steps []task.Draft `json:"steps"`
}

// parseDrafts extracts the JSON object from a model reply, tolerating code
// fences and surrounding prose.
func parseDrafts(text string) ([]task.Draft, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: response contains no JSON object", ErrContractViolation)
	}
	var resp draftsResponse
	if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON response: %w", ErrContractViolation, err)
	}
	return resp.Steps, nil
}
