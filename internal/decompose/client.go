package decompose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/kazz187/microwin/internal/profile"
	"github.com/kazz187/microwin/internal/task"
	"github.com/kazz187/microwin/pkg/cerr"
)

var _ Decomposer = (*Client)(nil)

// Client enforces the structural and numeric contracts on a Generator.
// Failed calls are never retried here.
type Client struct {
	gen Generator
}

func NewClient(gen Generator) *Client {
	return &Client{gen: gen}
}

func (c *Client) DecomposeTask(ctx context.Context, description string, p *profile.Profile) ([]task.Draft, error) {
	if strings.TrimSpace(description) == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "task description is required", nil)
	}
	drafts, err := c.gen.GenerateSteps(ctx, TaskRequest{TaskText: description, Profile: p})
	if err != nil {
		return nil, generatorError(err)
	}
	if err := ValidateSteps(drafts); err != nil {
		slog.WarnContext(ctx, "rejected task decomposition", "count", len(drafts), "error", err)
		return nil, err
	}
	return drafts, nil
}

func (c *Client) DecomposeStep(ctx context.Context, description string, parentMinutes float64, p *profile.Profile) ([]task.Draft, error) {
	if strings.TrimSpace(description) == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "step description is required", nil)
	}
	if !isPositive(parentMinutes) {
		return nil, cerr.NewError(cerr.InvalidArgument, "parent estimate must be positive", fmt.Errorf("parent minutes %v", parentMinutes))
	}
	drafts, err := c.gen.GenerateSubSteps(ctx, StepRequest{
		StepText:               description,
		ParentEstimatedMinutes: parentMinutes,
		Profile:                p,
	})
	if err != nil {
		return nil, generatorError(err)
	}
	if err := ValidateSubSteps(drafts, parentMinutes); err != nil {
		slog.WarnContext(ctx, "rejected step decomposition", "count", len(drafts), "parent_minutes", parentMinutes, "error", err)
		return nil, err
	}
	return drafts, nil
}

// ValidateSteps checks an initial decomposition.
func ValidateSteps(drafts []task.Draft) error {
	if len(drafts) == 0 {
		return emptyError()
	}
	var violations []string
	if len(drafts) < MinTaskSteps || len(drafts) > MaxTaskSteps {
		violations = append(violations, fmt.Sprintf("expected %d to %d steps, got %d", MinTaskSteps, MaxTaskSteps, len(drafts)))
	}
	violations = append(violations, entryViolations(drafts)...)
	return violationError(violations)
}

// ValidateSubSteps checks a further breakdown of a step budgeted parentMinutes.
func ValidateSubSteps(drafts []task.Draft, parentMinutes float64) error {
	if len(drafts) == 0 {
		return emptyError()
	}
	var violations []string
	if len(drafts) != StepBreakdowns {
		violations = append(violations, fmt.Sprintf("expected exactly %d sub-steps, got %d", StepBreakdowns, len(drafts)))
	}
	entries := entryViolations(drafts)
	violations = append(violations, entries...)
	if len(entries) == 0 {
		var sum float64
		for _, d := range drafts {
			sum += d.EstimatedMinutes
		}
		if math.Abs(sum-parentMinutes) > SumTolerance {
			violations = append(violations, fmt.Sprintf("sub-step minutes sum to %g, expected %g", sum, parentMinutes))
		}
	}
	return violationError(violations)
}

func entryViolations(drafts []task.Draft) []string {
	var violations []string
	for i, d := range drafts {
		if strings.TrimSpace(d.Description) == "" {
			violations = append(violations, fmt.Sprintf("entry %d has an empty description", i+1))
		}
		if !isPositive(d.EstimatedMinutes) {
			violations = append(violations, fmt.Sprintf("entry %d has a non-positive estimate %g", i+1, d.EstimatedMinutes))
		}
	}
	return violations
}

func isPositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func emptyError() error {
	return cerr.NewError(cerr.FailedPrecondition, "no steps were generated, try rephrasing", ErrEmpty)
}

func violationError(violations []string) error {
	if len(violations) == 0 {
		return nil
	}
	e := cerr.NewError(cerr.Aborted, "generated breakdown was malformed, try again",
		fmt.Errorf("%w: %s", ErrContractViolation, strings.Join(violations, "; ")))
	for _, v := range violations {
		e.AddDetailMessage(v)
	}
	return e
}

func generatorError(err error) error {
	switch {
	case errors.Is(err, ErrContractViolation):
		e := cerr.NewError(cerr.Aborted, "generated breakdown was malformed, try again", err)
		return e.AddDetailMessage(err.Error())
	case errors.Is(err, ErrEmpty):
		return cerr.NewError(cerr.FailedPrecondition, "no steps were generated, try rephrasing", err)
	case errors.Is(err, context.Canceled):
		return cerr.NewError(cerr.Canceled, "decomposition canceled", fmt.Errorf("%w: %w", ErrUnavailable, err))
	case errors.Is(err, context.DeadlineExceeded):
		return cerr.NewError(cerr.DeadlineExceeded, "decomposition timed out", fmt.Errorf("%w: %w", ErrUnavailable, err))
	}
	return cerr.NewError(cerr.Unavailable, "decomposition service is unavailable", fmt.Errorf("%w: %w", ErrUnavailable, err))
}
