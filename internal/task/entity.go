package task

import "time"

// DefaultStepMinutes is the budget conserved when a Step without an estimate
// is broken down.
const DefaultStepMinutes = 3.0

// Task is the root of a decomposition tree. Values are treated as immutable:
// every transformation in this package returns a new Task and leaves its
// input untouched.
type Task struct {
	ID       string `yaml:"id" json:"id"`
	MainTask string `yaml:"main_task" json:"mainTask"`
	Steps    []Step `yaml:"steps" json:"steps"`
	// CreatedAt is in epoch milliseconds.
	CreatedAt int64 `yaml:"created_at" json:"createdAt"`
}

type Step struct {
	ID               string    `yaml:"id" json:"id"`
	Text             string    `yaml:"text" json:"text"`
	EstimatedMinutes *float64  `yaml:"estimated_minutes,omitempty" json:"estimatedMinutes,omitempty"`
	Completed        bool      `yaml:"completed" json:"completed"`
	SubSteps         []SubStep `yaml:"sub_steps" json:"subSteps"`
}

type SubStep struct {
	ID               string   `yaml:"id" json:"id"`
	Text             string   `yaml:"text" json:"text"`
	EstimatedMinutes *float64 `yaml:"estimated_minutes,omitempty" json:"estimatedMinutes,omitempty"`
	Completed        bool     `yaml:"completed" json:"completed"`
}

// Draft is one generated unit of work before it is given an identity.
type Draft struct {
	Description      string  `json:"description"`
	EstimatedMinutes float64 `json:"estimated_minutes"`
}

func (t *Task) Created() time.Time {
	return time.UnixMilli(t.CreatedAt)
}

// Step returns a copy of the step with the given id.
func (t *Task) Step(id string) (Step, bool) {
	for _, s := range t.Steps {
		if s.ID == id {
			return s.clone(), true
		}
	}
	return Step{}, false
}

// TotalMinutes sums the recorded Step estimates.
func (t *Task) TotalMinutes() float64 {
	var total float64
	for _, s := range t.Steps {
		if s.EstimatedMinutes != nil {
			total += *s.EstimatedMinutes
		}
	}
	return total
}

// Budget is the minutes a breakdown of s must conserve.
func (s Step) Budget() float64 {
	if s.EstimatedMinutes == nil {
		return DefaultStepMinutes
	}
	return *s.EstimatedMinutes
}

// AllSubStepsCompleted reports whether s has sub-steps and all of them are done.
func (s Step) AllSubStepsCompleted() bool {
	if len(s.SubSteps) == 0 {
		return false
	}
	for _, sub := range s.SubSteps {
		if !sub.Completed {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of t.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	out := *t
	out.Steps = make([]Step, len(t.Steps))
	for i, s := range t.Steps {
		out.Steps[i] = s.clone()
	}
	return &out
}

func (s Step) clone() Step {
	s.EstimatedMinutes = cloneMinutes(s.EstimatedMinutes)
	subs := make([]SubStep, len(s.SubSteps))
	for i, sub := range s.SubSteps {
		sub.EstimatedMinutes = cloneMinutes(sub.EstimatedMinutes)
		subs[i] = sub
	}
	s.SubSteps = subs
	return s
}

func cloneMinutes(m *float64) *float64 {
	if m == nil {
		return nil
	}
	v := *m
	return &v
}

// Minutes returns a pointer to m, for building estimates inline.
func Minutes(m float64) *float64 {
	return &m
}

// Equal reports whether a and b describe the same tree. Nil and empty
// slices compare equal, so values survive a storage round trip.
func Equal(a, b *Task) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.ID != b.ID || a.MainTask != b.MainTask || a.CreatedAt != b.CreatedAt || len(a.Steps) != len(b.Steps) {
		return false
	}
	for i := range a.Steps {
		if !stepEqual(a.Steps[i], b.Steps[i]) {
			return false
		}
	}
	return true
}

func stepEqual(a, b Step) bool {
	if a.ID != b.ID || a.Text != b.Text || a.Completed != b.Completed ||
		!minutesEqual(a.EstimatedMinutes, b.EstimatedMinutes) || len(a.SubSteps) != len(b.SubSteps) {
		return false
	}
	for i, sub := range a.SubSteps {
		other := b.SubSteps[i]
		if sub.ID != other.ID || sub.Text != other.Text || sub.Completed != other.Completed ||
			!minutesEqual(sub.EstimatedMinutes, other.EstimatedMinutes) {
			return false
		}
	}
	return true
}

func minutesEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
