package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/microwin/internal/task"
)

func sampleTask() *task.Task {
	tk := task.New("clean the kitchen", []task.Draft{
		{Description: "a", EstimatedMinutes: 2},
		{Description: "b", EstimatedMinutes: 9},
		{Description: "c", EstimatedMinutes: 4},
	}, time.Now())
	return task.AppendSubSteps(tk, tk.Steps[1].ID, task.SubStepsFromDrafts([]task.Draft{
		{Description: "b1", EstimatedMinutes: 3},
		{Description: "b2", EstimatedMinutes: 3},
		{Description: "b3", EstimatedMinutes: 3},
	}))
}

func TestFlatten_DocumentOrder(t *testing.T) {
	tk := sampleTask()
	nodes := Flatten(tk)

	require.Len(t, nodes, 6)
	texts := make([]string, len(nodes))
	for i, n := range nodes {
		texts[i] = n.Text
	}
	assert.Equal(t, []string{"a", "b", "b1", "b2", "b3", "c"}, texts)
	assert.True(t, nodes[1].IsStep())
	assert.Equal(t, tk.Steps[1].ID, nodes[2].ParentStepID)
}

func TestCompletionStats(t *testing.T) {
	assert.Equal(t, Stats{}, CompletionStats(&task.Task{Steps: []task.Step{}}))
	assert.Equal(t, Stats{}, CompletionStats(nil))

	tk := sampleTask()
	tk = task.ToggleStep(tk, tk.Steps[1].ID)

	st := CompletionStats(tk)
	assert.Equal(t, 4, st.CompletedCount)
	assert.Equal(t, 6, st.TotalCount)
	assert.InDelta(t, 66.666666, st.Percent, 1e-4)
}

func TestNextActionableStep(t *testing.T) {
	tk := sampleTask()

	next, ok := NextActionableStep(tk)
	require.True(t, ok)
	assert.Equal(t, "a", next.Text)

	tk = task.ToggleStep(tk, tk.Steps[0].ID)
	next, ok = NextActionableStep(tk)
	require.True(t, ok)
	assert.Equal(t, "b", next.Text)

	tk = task.ToggleStep(tk, tk.Steps[1].ID)
	tk = task.ToggleStep(tk, tk.Steps[2].ID)
	_, ok = NextActionableStep(tk)
	assert.False(t, ok)
}

func TestNextActionableStep_CompletedStepWithOpenSubSteps(t *testing.T) {
	tk := &task.Task{Steps: []task.Step{
		{ID: "1", Text: "odd", Completed: true, SubSteps: []task.SubStep{{ID: "1a"}}},
		{ID: "2", Text: "next"},
	}}
	next, ok := NextActionableStep(tk)
	require.True(t, ok)
	assert.Equal(t, "1", next.ID)
}

func TestIsMilestone(t *testing.T) {
	for n, want := range map[int]bool{0: false, 1: false, 4: false, 5: true, 10: true, 11: false} {
		assert.Equal(t, want, IsMilestone(n), "count %d", n)
	}
}

func TestNewestFirst(t *testing.T) {
	a := &task.Task{ID: "a", CreatedAt: 1}
	b := &task.Task{ID: "b", CreatedAt: 3}
	c := &task.Task{ID: "c", CreatedAt: 2}
	history := []*task.Task{a, b, c}

	assert.Equal(t, []*task.Task{b, c, a}, NewestFirst(history))
	assert.Equal(t, []*task.Task{a, b, c}, history)
}
