// Package progress derives completion state from a task tree.
package progress

import (
	"sort"

	"github.com/kazz187/microwin/internal/task"
)

// MilestoneEvery is the number of completions between celebrations.
const MilestoneEvery = 5

// Node is one entry of a flattened tree: a Step, or a SubStep together with
// the id of the Step that owns it.
type Node struct {
	ID           string
	ParentStepID string // empty for Steps
	Text         string
	Completed    bool
}

func (n Node) IsStep() bool {
	return n.ParentStepID == ""
}

type Stats struct {
	CompletedCount int     `json:"completedCount"`
	TotalCount     int     `json:"totalCount"`
	Percent        float64 `json:"percent"`
}

// Flatten lists every Step followed immediately by its SubSteps.
func Flatten(t *task.Task) []Node {
	if t == nil {
		return nil
	}
	var nodes []Node
	for _, s := range t.Steps {
		nodes = append(nodes, Node{ID: s.ID, Text: s.Text, Completed: s.Completed})
		for _, sub := range s.SubSteps {
			nodes = append(nodes, Node{
				ID:           sub.ID,
				ParentStepID: s.ID,
				Text:         sub.Text,
				Completed:    sub.Completed,
			})
		}
	}
	return nodes
}

func CompletionStats(t *task.Task) Stats {
	var st Stats
	for _, n := range Flatten(t) {
		st.TotalCount++
		if n.Completed {
			st.CompletedCount++
		}
	}
	if st.TotalCount > 0 {
		st.Percent = float64(st.CompletedCount) / float64(st.TotalCount) * 100
	}
	return st
}

// NextActionableStep returns the first Step that is not completed or still
// has unfinished sub-steps.
func NextActionableStep(t *task.Task) (task.Step, bool) {
	if t == nil {
		return task.Step{}, false
	}
	for _, s := range t.Steps {
		if !s.Completed {
			return t.Step(s.ID)
		}
		for _, sub := range s.SubSteps {
			if !sub.Completed {
				return t.Step(s.ID)
			}
		}
	}
	return task.Step{}, false
}

func IsMilestone(completedCount int) bool {
	return completedCount > 0 && completedCount%MilestoneEvery == 0
}

// NewestFirst returns history in display order: most recently created first,
// archive order breaking ties.
func NewestFirst(history []*task.Task) []*task.Task {
	out := make([]*task.Task, len(history))
	copy(out, history)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out
}
