package task

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// New builds a Task from an initial decomposition. Every Step gets a fresh
// identifier and starts incomplete with no sub-steps.
func New(mainTask string, drafts []Draft, now time.Time) *Task {
	steps := make([]Step, len(drafts))
	for i, d := range drafts {
		steps[i] = Step{
			ID:               ulid.Make().String(),
			Text:             d.Description,
			EstimatedMinutes: Minutes(d.EstimatedMinutes),
			SubSteps:         []SubStep{},
		}
	}
	return &Task{
		ID:        ulid.Make().String(),
		MainTask:  mainTask,
		Steps:     steps,
		CreatedAt: now.UnixMilli(),
	}
}

// SubStepsFromDrafts assigns identifiers to a step breakdown.
func SubStepsFromDrafts(drafts []Draft) []SubStep {
	subs := make([]SubStep, len(drafts))
	for i, d := range drafts {
		subs[i] = SubStep{
			ID:               ulid.Make().String(),
			Text:             d.Description,
			EstimatedMinutes: Minutes(d.EstimatedMinutes),
		}
	}
	return subs
}

// ToggleStep flips a Step's completed flag and cascades the new value to all
// of its sub-steps. An unknown stepID yields an unchanged copy.
func ToggleStep(t *Task, stepID string) *Task {
	return mapStep(t, stepID, func(s *Step) {
		s.Completed = !s.Completed
		for i := range s.SubSteps {
			s.SubSteps[i].Completed = s.Completed
		}
	})
}

// ToggleSubStep flips one sub-step. The parent is complete exactly when all
// of its sub-steps are.
func ToggleSubStep(t *Task, stepID, subStepID string) *Task {
	return mapStep(t, stepID, func(s *Step) {
		found := false
		for i := range s.SubSteps {
			if s.SubSteps[i].ID == subStepID {
				s.SubSteps[i].Completed = !s.SubSteps[i].Completed
				found = true
				break
			}
		}
		// an unknown subStepID leaves the step as it was
		if found {
			s.Completed = s.AllSubStepsCompleted()
		}
	})
}

// AppendSubSteps adds newSubSteps after the Step's existing sub-steps and
// marks the Step incomplete, since unfinished work was just added.
func AppendSubSteps(t *Task, stepID string, newSubSteps []SubStep) *Task {
	return mapStep(t, stepID, func(s *Step) {
		for _, sub := range newSubSteps {
			sub.EstimatedMinutes = cloneMinutes(sub.EstimatedMinutes)
			s.SubSteps = append(s.SubSteps, sub)
		}
		s.Completed = false
	})
}

// ClearCompleted drops completed sub-steps everywhere and completed Steps
// entirely.
func ClearCompleted(t *Task) *Task {
	out := t.Clone()
	steps := make([]Step, 0, len(out.Steps))
	for _, s := range out.Steps {
		if s.Completed {
			continue
		}
		subs := make([]SubStep, 0, len(s.SubSteps))
		for _, sub := range s.SubSteps {
			if !sub.Completed {
				subs = append(subs, sub)
			}
		}
		s.SubSteps = subs
		steps = append(steps, s)
	}
	out.Steps = steps
	return out
}

func mapStep(t *Task, stepID string, fn func(s *Step)) *Task {
	out := t.Clone()
	for i := range out.Steps {
		if out.Steps[i].ID == stepID {
			fn(&out.Steps[i])
			break
		}
	}
	return out
}
