package decompose

import (
	"context"
	"errors"

	"github.com/kazz187/microwin/internal/profile"
	"github.com/kazz187/microwin/internal/task"
)

const (
	MinTaskSteps   = 5
	MaxTaskSteps   = 7
	StepBreakdowns = 3

	// SumTolerance bounds the difference between the sum of a breakdown and
	// the parent estimate.
	SumTolerance = 1e-6
)

var (
	ErrEmpty             = errors.New("decomposition returned no entries")
	ErrContractViolation = errors.New("decomposition contract violated")
	ErrUnavailable       = errors.New("decomposition service unavailable")
)

// Decomposer turns task or step text into structured units of work.
type Decomposer interface {
	// DecomposeTask returns between MinTaskSteps and MaxTaskSteps drafts.
	DecomposeTask(ctx context.Context, description string, p *profile.Profile) ([]task.Draft, error)
	// DecomposeStep returns exactly StepBreakdowns drafts whose estimates sum
	// to parentMinutes.
	DecomposeStep(ctx context.Context, description string, parentMinutes float64, p *profile.Profile) ([]task.Draft, error)
}

type TaskRequest struct {
	TaskText string
	Profile  *profile.Profile
}

type StepRequest struct {
	StepText               string
	ParentEstimatedMinutes float64
	Profile                *profile.Profile
}

// Generator is the raw generative service. Its answers are not trusted to
// satisfy any count or sum contract.
type Generator interface {
	GenerateSteps(ctx context.Context, req TaskRequest) ([]task.Draft, error)
	GenerateSubSteps(ctx context.Context, req StepRequest) ([]task.Draft, error)
}
