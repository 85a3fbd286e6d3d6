package orchestrator

import (
	"github.com/kazz187/microwin/internal/api"
	"github.com/kazz187/microwin/internal/progress"
	"github.com/kazz187/microwin/internal/task"
)

func ToAPITask(t *task.Task) *api.Task {
	if t == nil {
		return nil
	}
	out := &api.Task{
		ID:        t.ID,
		MainTask:  t.MainTask,
		Steps:     make([]*api.Step, 0, len(t.Steps)),
		CreatedAt: t.CreatedAt,
	}
	for _, s := range t.Steps {
		out.Steps = append(out.Steps, toAPIStep(s))
	}
	return out
}

func toAPIStep(s task.Step) *api.Step {
	out := &api.Step{
		ID:               s.ID,
		Text:             s.Text,
		EstimatedMinutes: s.EstimatedMinutes,
		Completed:        s.Completed,
		SubSteps:         make([]*api.SubStep, 0, len(s.SubSteps)),
	}
	for _, sub := range s.SubSteps {
		out.SubSteps = append(out.SubSteps, &api.SubStep{
			ID:               sub.ID,
			Text:             sub.Text,
			EstimatedMinutes: sub.EstimatedMinutes,
			Completed:        sub.Completed,
		})
	}
	return out
}

// ToAPIResult bundles t with its derived progress and next step.
func ToAPIResult(t *task.Task) *api.TaskResult {
	st := progress.CompletionStats(t)
	res := &api.TaskResult{
		Task: ToAPITask(t),
		Progress: api.Progress{
			CompletedCount: st.CompletedCount,
			TotalCount:     st.TotalCount,
			Percent:        st.Percent,
		},
	}
	if next, ok := progress.NextActionableStep(t); ok {
		res.NextStep = toAPIStep(next)
	}
	return res
}

func ToAPITasks(ts []*task.Task) []*api.Task {
	out := make([]*api.Task, 0, len(ts))
	for _, t := range ts {
		out = append(out, ToAPITask(t))
	}
	return out
}

func toAPIStatus(st Status) *api.RequestStatus {
	return &api.RequestStatus{
		Target:    st.Target,
		State:     string(st.State),
		Outcome:   string(st.Outcome),
		Error:     st.Error,
		SettledAt: st.SettledAt,
	}
}
