package client

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kazz187/microwin/internal/api"
)

var ErrNoTask = errors.New("there is no current task")

// ResolveRef maps a 1-based position such as "3" or "3.2" to step and
// sub-step ids. subStepID is empty when ref names a step.
func ResolveRef(t *api.Task, ref string) (stepID, subStepID string, err error) {
	if t == nil {
		return "", "", ErrNoTask
	}
	stepPart, subPart, hasSub := strings.Cut(strings.TrimSpace(ref), ".")
	si, err := position(stepPart, len(t.Steps))
	if err != nil {
		return "", "", fmt.Errorf("step %q: %w", stepPart, err)
	}
	step := t.Steps[si]
	if !hasSub {
		return step.ID, "", nil
	}
	ssi, err := position(subPart, len(step.SubSteps))
	if err != nil {
		return "", "", fmt.Errorf("sub-step %q of step %d: %w", subPart, si+1, err)
	}
	return step.ID, step.SubSteps[ssi].ID, nil
}

func position(s string, n int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("not a number")
	}
	if i < 1 || i > n {
		return 0, fmt.Errorf("must be between 1 and %d", n)
	}
	return i - 1, nil
}
