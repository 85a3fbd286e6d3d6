package decompose

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/microwin/internal/profile"
	"github.com/kazz187/microwin/internal/task"
	"github.com/kazz187/microwin/pkg/cerr"
)

type fakeGenerator struct {
	steps    []task.Draft
	subSteps []task.Draft
	err      error

	lastTask TaskRequest
	lastStep StepRequest
}

func (f *fakeGenerator) GenerateSteps(_ context.Context, req TaskRequest) ([]task.Draft, error) {
	f.lastTask = req
	return f.steps, f.err
}

func (f *fakeGenerator) GenerateSubSteps(_ context.Context, req StepRequest) ([]task.Draft, error) {
	f.lastStep = req
	return f.subSteps, f.err
}

func drafts(minutes ...float64) []task.Draft {
	out := make([]task.Draft, len(minutes))
	for i, m := range minutes {
		out[i] = task.Draft{Description: "do something", EstimatedMinutes: m}
	}
	return out
}

func TestClient_CleanTheKitchen(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{
		steps: []task.Draft{
			{Description: "Clear the counters", EstimatedMinutes: 5},
			{Description: "Load the dishwasher", EstimatedMinutes: 6},
			{Description: "Wash the pans", EstimatedMinutes: 9},
			{Description: "Wipe the surfaces", EstimatedMinutes: 4},
			{Description: "Sweep the floor", EstimatedMinutes: 5},
			{Description: "Take out the trash", EstimatedMinutes: 2},
		},
		subSteps: []task.Draft{
			{Description: "Fill the sink", EstimatedMinutes: 4},
			{Description: "Scrub the pans", EstimatedMinutes: 2.5},
			{Description: "Dry and store", EstimatedMinutes: 2.5},
		},
	}
	c := NewClient(gen)

	steps, err := c.DecomposeTask(ctx, "clean the kitchen", nil)
	require.NoError(t, err)
	assert.Len(t, steps, 6)
	assert.Equal(t, "clean the kitchen", gen.lastTask.TaskText)

	subs, err := c.DecomposeStep(ctx, steps[2].Description, steps[2].EstimatedMinutes, nil)
	require.NoError(t, err)
	require.Len(t, subs, 3)
	var sum float64
	for _, s := range subs {
		sum += s.EstimatedMinutes
	}
	assert.InDelta(t, 9, sum, SumTolerance)
	assert.Equal(t, 9.0, gen.lastStep.ParentEstimatedMinutes)
}

func TestClient_PassesProfile(t *testing.T) {
	gen := &fakeGenerator{steps: drafts(1, 1, 1, 1, 1)}
	p := &profile.Profile{SupportStyle: "short sentences"}

	_, err := NewClient(gen).DecomposeTask(context.Background(), "write the report", p)
	require.NoError(t, err)
	assert.Same(t, p, gen.lastTask.Profile)
}

func TestClient_DecomposeTaskContract(t *testing.T) {
	tests := []struct {
		name  string
		steps []task.Draft
		code  cerr.Code
		want  error
	}{
		{name: "empty", steps: nil, code: cerr.FailedPrecondition, want: ErrEmpty},
		{name: "too few", steps: drafts(1, 2, 3, 4), code: cerr.Aborted, want: ErrContractViolation},
		{name: "too many", steps: drafts(1, 1, 1, 1, 1, 1, 1, 1), code: cerr.Aborted, want: ErrContractViolation},
		{name: "zero minutes", steps: drafts(1, 1, 0, 1, 1), code: cerr.Aborted, want: ErrContractViolation},
		{name: "blank description", steps: append(drafts(1, 1, 1, 1), task.Draft{Description: "  ", EstimatedMinutes: 2}), code: cerr.Aborted, want: ErrContractViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(&fakeGenerator{steps: tt.steps}).DecomposeTask(context.Background(), "task", nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, cerr.IsCode(err, tt.code))
		})
	}
}

func TestClient_DecomposeStepContract(t *testing.T) {
	tests := []struct {
		name string
		subs []task.Draft
		want error
	}{
		{name: "empty", subs: nil, want: ErrEmpty},
		{name: "two entries", subs: drafts(4, 5), want: ErrContractViolation},
		{name: "four entries", subs: drafts(3, 3, 2, 1), want: ErrContractViolation},
		{name: "sum too small", subs: drafts(3, 3, 2), want: ErrContractViolation},
		{name: "sum too large", subs: drafts(3, 3, 3.001), want: ErrContractViolation},
		{name: "negative entry", subs: drafts(12, -1, -2), want: ErrContractViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(&fakeGenerator{subSteps: tt.subs}).DecomposeStep(context.Background(), "step", 9, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClient_ViolationDetails(t *testing.T) {
	_, err := NewClient(&fakeGenerator{subSteps: drafts(1, 1)}).DecomposeStep(context.Background(), "step", 3, nil)
	require.Error(t, err)

	var ce *cerr.Error
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.DetailMessages(), "expected exactly 3 sub-steps, got 2")
}

func TestClient_FractionalSumWithinTolerance(t *testing.T) {
	subs := drafts(1.0/3, 1.0/3, 1.0/3)
	got, err := NewClient(&fakeGenerator{subSteps: subs}).DecomposeStep(context.Background(), "step", 1, nil)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestClient_InvalidParentMinutes(t *testing.T) {
	gen := &fakeGenerator{subSteps: drafts(1, 1, 1)}
	_, err := NewClient(gen).DecomposeStep(context.Background(), "step", 0, nil)
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
	assert.Empty(t, gen.lastStep.StepText)
}

func TestClient_GeneratorFailureIsUnavailable(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("connection reset")}

	_, err := NewClient(gen).DecomposeTask(context.Background(), "task", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, cerr.IsCode(err, cerr.Unavailable))

	_, err = NewClient(gen).DecomposeStep(context.Background(), "step", 3, nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_MalformedGeneratorOutput(t *testing.T) {
	_, err := parseDrafts("sorry, I cannot help")
	require.Error(t, err)

	_, err = NewClient(&fakeGenerator{err: err}).DecomposeTask(context.Background(), "task", nil)
	assert.ErrorIs(t, err, ErrContractViolation)
	assert.True(t, cerr.IsCode(err, cerr.Aborted))
}

func TestClient_EmptyDescription(t *testing.T) {
	gen := &fakeGenerator{steps: drafts(1, 1, 1, 1, 1)}
	_, err := NewClient(gen).DecomposeTask(context.Background(), "   ", nil)
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
}
