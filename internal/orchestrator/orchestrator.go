package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kazz187/microwin/internal/decompose"
	"github.com/kazz187/microwin/internal/eventbus"
	"github.com/kazz187/microwin/internal/profile"
	"github.com/kazz187/microwin/internal/progress"
	"github.com/kazz187/microwin/internal/task"
	"github.com/kazz187/microwin/internal/taskstore"
	"github.com/kazz187/microwin/pkg/cerr"
)

const (
	ActionCreate    = "create"
	ActionBreakdown = "breakdown"
	ActionSave      = "save"
	ActionArchive   = "archive"
	ActionDelete    = "delete"
)

var (
	ErrInFlight      = errors.New("decomposition already in flight")
	ErrNoCurrentTask = errors.New("no current task")
	ErrTaskExists    = errors.New("a task is already in progress")
)

// Redactor strips identifying fragments from text before it leaves the
// process.
type Redactor interface {
	Redact(text string) string
}

// Orchestrator owns the current task. It is the only writer of the store's
// current slot, and every write replaces the whole task.
type Orchestrator struct {
	eventBus   *eventbus.Bus
	decomposer decompose.Decomposer
	store      taskstore.Store
	profiles   profile.Repository
	redactor   Redactor

	saveRetries int
	saveBackoff time.Duration
	now         func() time.Time

	mu           sync.Mutex
	current      *task.Task
	version      uint64
	savedVersion uint64
	inflight     map[string]struct{}
	outcomes     map[string]Status

	// saveMu orders writes to the store.
	saveMu sync.Mutex
}

type Option func(*Orchestrator)

func WithProfiles(r profile.Repository) Option {
	return func(o *Orchestrator) {
		o.profiles = r
	}
}

func WithRedactor(r Redactor) Option {
	return func(o *Orchestrator) {
		o.redactor = r
	}
}

// WithSaveRetry sets how many times a failed store write is retried before
// the failure is surfaced. The wait grows linearly with backoff.
func WithSaveRetry(retries int, backoff time.Duration) Option {
	return func(o *Orchestrator) {
		o.saveRetries = retries
		o.saveBackoff = backoff
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

func New(eventBus *eventbus.Bus, decomposer decompose.Decomposer, store taskstore.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		eventBus:    eventBus,
		decomposer:  decomposer,
		store:       store,
		saveRetries: 2,
		saveBackoff: 200 * time.Millisecond,
		now:         time.Now,
		inflight:    make(map[string]struct{}),
		outcomes:    make(map[string]Status),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Load reads the current task from the store.
func (o *Orchestrator) Load(ctx context.Context) (*task.Task, error) {
	t, err := o.store.LoadCurrent(ctx)
	if err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.current = t
	o.version++
	o.savedVersion = o.version
	slog.InfoContext(ctx, "orchestrator loaded current task", "has_task", t != nil)
	return t.Clone(), nil
}

func (o *Orchestrator) Current() *task.Task {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current.Clone()
}

// Dirty reports whether the in-memory task is ahead of the store.
func (o *Orchestrator) Dirty() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.version != o.savedVersion
}

func (o *Orchestrator) State(target string) Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.outcomes[target]
	if !ok {
		st = Status{Target: target}
	}
	st.State = StateIdle
	if _, busy := o.inflight[target]; busy {
		st.State = StateRequesting
	}
	return st
}

// CreateTask decomposes text into a new current task. Only one creation may
// be in flight at a time, and none is allowed while a task is current.
func (o *Orchestrator) CreateTask(ctx context.Context, text string, p *profile.Profile) (*task.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "task description is required", nil)
	}

	o.mu.Lock()
	if o.current != nil {
		o.mu.Unlock()
		return nil, taskExistsError()
	}
	if err := o.begin(TaskTarget); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	o.mu.Unlock()

	drafts, err := o.decomposer.DecomposeTask(ctx, o.redact(text), o.resolveProfile(ctx, p))
	if err != nil {
		o.fail(ctx, TaskTarget, ActionCreate, "", err)
		return nil, err
	}
	t := task.New(text, drafts, o.now())

	o.mu.Lock()
	if o.current != nil {
		o.mu.Unlock()
		err := taskExistsError()
		o.fail(ctx, TaskTarget, ActionCreate, "", err)
		return nil, err
	}
	o.setCurrent(t)
	o.mu.Unlock()

	o.settle(TaskTarget)
	slog.InfoContext(ctx, "task created", "task_id", t.ID, "steps", len(t.Steps))
	o.eventBus.PublishNew(eventbus.EventTaskCreated, t.ID, "", nil)
	return o.save(ctx, t)
}

// ExpandStep breaks a step into sub-steps that conserve its budget and
// appends them to the step.
func (o *Orchestrator) ExpandStep(ctx context.Context, stepID string, p *profile.Profile) (*task.Task, error) {
	target := StepTarget(stepID)

	o.mu.Lock()
	step, err := o.stepLocked(stepID)
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}
	if err := o.begin(target); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	o.mu.Unlock()

	drafts, err := o.decomposer.DecomposeStep(ctx, o.redact(step.Text), step.Budget(), o.resolveProfile(ctx, p))
	if err != nil {
		o.fail(ctx, target, ActionBreakdown, stepID, err)
		return nil, err
	}

	// the tree may have changed while the request was out
	o.mu.Lock()
	if _, err := o.stepLocked(stepID); err != nil {
		o.mu.Unlock()
		o.fail(ctx, target, ActionBreakdown, stepID, err)
		return nil, err
	}
	next := task.AppendSubSteps(o.current, stepID, task.SubStepsFromDrafts(drafts))
	o.setCurrent(next)
	o.mu.Unlock()

	o.settle(target)
	slog.InfoContext(ctx, "step expanded", "task_id", next.ID, "step_id", stepID, "sub_steps", len(drafts))
	o.eventBus.PublishNew(eventbus.EventStepExpanded, next.ID, "", map[string]string{"step_id": stepID})
	return o.save(ctx, next)
}

func (o *Orchestrator) ToggleStep(ctx context.Context, stepID string) (*task.Task, error) {
	return o.mutate(ctx, map[string]string{"step_id": stepID}, func(cur *task.Task) (*task.Task, error) {
		if _, ok := cur.Step(stepID); !ok {
			return nil, stepNotFoundError(stepID)
		}
		return task.ToggleStep(cur, stepID), nil
	})
}

func (o *Orchestrator) ToggleSubStep(ctx context.Context, stepID, subStepID string) (*task.Task, error) {
	return o.mutate(ctx, map[string]string{"step_id": stepID, "sub_step_id": subStepID}, func(cur *task.Task) (*task.Task, error) {
		step, ok := cur.Step(stepID)
		if !ok {
			return nil, stepNotFoundError(stepID)
		}
		found := false
		for _, sub := range step.SubSteps {
			if sub.ID == subStepID {
				found = true
				break
			}
		}
		if !found {
			return nil, cerr.NewError(cerr.NotFound, "sub-step not found", fmt.Errorf("sub-step %s of step %s", subStepID, stepID))
		}
		return task.ToggleSubStep(cur, stepID, subStepID), nil
	})
}

// ClearCompleted drops finished steps and sub-steps from the current task.
func (o *Orchestrator) ClearCompleted(ctx context.Context) (*task.Task, error) {
	return o.mutate(ctx, map[string]string{"action": "clear_completed"}, func(cur *task.Task) (*task.Task, error) {
		return task.ClearCompleted(cur), nil
	})
}

func (o *Orchestrator) mutate(ctx context.Context, metadata map[string]string, fn func(cur *task.Task) (*task.Task, error)) (*task.Task, error) {
	o.mu.Lock()
	if o.current == nil {
		o.mu.Unlock()
		return nil, noCurrentTaskError()
	}
	before := progress.CompletionStats(o.current)
	next, err := fn(o.current)
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}
	o.setCurrent(next)
	o.mu.Unlock()

	o.eventBus.PublishNew(eventbus.EventTaskUpdated, next.ID, "", metadata)
	after := progress.CompletionStats(next)
	if m, ok := reachedMilestone(before.CompletedCount, after.CompletedCount); ok {
		slog.InfoContext(ctx, "milestone reached", "task_id", next.ID, "completed", m)
		o.eventBus.PublishNew(eventbus.EventMilestoneReached, next.ID, next.MainTask, map[string]string{
			"completed_count": strconv.Itoa(m),
			"total_count":     strconv.Itoa(after.TotalCount),
		})
	}
	return o.save(ctx, next)
}

// reachedMilestone returns the highest milestone passed when the completed
// count moves from before to after.
func reachedMilestone(before, after int) (int, bool) {
	for n := after; n > before; n-- {
		if progress.IsMilestone(n) {
			return n, true
		}
	}
	return 0, false
}

// Archive moves the current task to the history and empties the slot.
func (o *Orchestrator) Archive(ctx context.Context) (*task.Task, error) {
	o.mu.Lock()
	cur := o.current
	o.mu.Unlock()
	if cur == nil {
		return nil, noCurrentTaskError()
	}

	o.saveMu.Lock()
	defer o.saveMu.Unlock()

	o.mu.Lock()
	cur = o.current
	o.mu.Unlock()
	if cur == nil {
		return nil, noCurrentTaskError()
	}

	if err := o.store.Archive(ctx, cur); err != nil {
		o.publishFailure(ctx, ActionArchive, cur.ID, err)
		return nil, err
	}

	o.mu.Lock()
	if o.current == cur {
		o.current = nil
		o.version++
		o.savedVersion = o.version
	}
	o.mu.Unlock()

	slog.InfoContext(ctx, "task archived", "task_id", cur.ID)
	o.eventBus.PublishNew(eventbus.EventTaskArchived, cur.ID, "", nil)
	return cur.Clone(), nil
}

func (o *Orchestrator) History(ctx context.Context) ([]*task.Task, error) {
	return o.store.ListHistory(ctx)
}

func (o *Orchestrator) DeleteFromHistory(ctx context.Context, taskID string) error {
	if err := o.store.DeleteFromHistory(ctx, taskID); err != nil {
		if !cerr.IsCode(err, cerr.NotFound) {
			o.publishFailure(ctx, ActionDelete, taskID, err)
		}
		return err
	}
	o.eventBus.PublishNew(eventbus.EventHistoryDeleted, taskID, "", nil)
	return nil
}

// Sync writes the current task if the last save did not reach the store.
func (o *Orchestrator) Sync(ctx context.Context) error {
	if err := o.persist(ctx); err != nil {
		o.mu.Lock()
		id := ""
		if o.current != nil {
			id = o.current.ID
		}
		o.mu.Unlock()
		o.publishFailure(ctx, ActionSave, id, err)
		return err
	}
	return nil
}

// save persists the latest task. On failure the in-memory task is kept and
// returned together with the error.
func (o *Orchestrator) save(ctx context.Context, t *task.Task) (*task.Task, error) {
	if err := o.persist(ctx); err != nil {
		o.publishFailure(ctx, ActionSave, t.ID, err)
		return t.Clone(), err
	}
	return t.Clone(), nil
}

// persist writes the newest version not yet in the store. Writes are
// serialized so an older version never overwrites a newer one.
func (o *Orchestrator) persist(ctx context.Context) error {
	o.saveMu.Lock()
	defer o.saveMu.Unlock()

	o.mu.Lock()
	cur, ver := o.current, o.version
	done := ver == o.savedVersion
	o.mu.Unlock()
	if done || cur == nil {
		return nil
	}

	var err error
	for attempt := 0; attempt <= o.saveRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(o.saveBackoff * time.Duration(attempt)):
			case <-ctx.Done():
				return taskstore.WriteError("current task", ctx.Err())
			}
		}
		if err = o.store.SaveCurrent(ctx, cur); err == nil {
			o.mu.Lock()
			if ver > o.savedVersion {
				o.savedVersion = ver
			}
			o.mu.Unlock()
			return nil
		}
		slog.WarnContext(ctx, "failed to save current task", "task_id", cur.ID, "attempt", attempt+1, "error", err)
	}
	return err
}

// Watch applies changes pushed by the store, such as edits from another
// device. Pushes are ignored while local writes are pending. It blocks until
// ctx is done.
func (o *Orchestrator) Watch(ctx context.Context, sub taskstore.Subscriber) {
	subID, ch := sub.Subscribe(64)
	defer sub.Unsubscribe(subID)

	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-ch:
			if !ok {
				return
			}
			o.applyChange(ctx, c)
		}
	}
}

func (o *Orchestrator) applyChange(ctx context.Context, c taskstore.Change) {
	switch c.Kind {
	case taskstore.ChangeCurrent:
		if !o.saveMu.TryLock() {
			return
		}
		defer o.saveMu.Unlock()

		o.mu.Lock()
		if o.version != o.savedVersion || task.Equal(o.current, c.Current) {
			o.mu.Unlock()
			return
		}
		o.current = c.Current.Clone()
		o.version++
		o.savedVersion = o.version
		o.mu.Unlock()

		id := ""
		if c.Current != nil {
			id = c.Current.ID
		}
		slog.InfoContext(ctx, "applied pushed task change", "task_id", id)
		o.eventBus.PublishNew(eventbus.EventTaskUpdated, id, "", map[string]string{"source": "store"})
	case taskstore.ChangeHistory:
		o.eventBus.PublishNew(eventbus.EventHistoryChanged, "", "", map[string]string{"count": strconv.Itoa(len(c.History))})
	case taskstore.ChangeError:
		o.mu.Lock()
		// the store lost a write we counted as saved
		o.savedVersion = 0
		id := ""
		if o.current != nil {
			id = o.current.ID
		}
		o.mu.Unlock()
		o.publishFailure(ctx, ActionSave, id, c.Err)
	}
}

// begin moves target to StateRequesting. Callers hold o.mu.
func (o *Orchestrator) begin(target string) error {
	if _, busy := o.inflight[target]; busy {
		return cerr.NewError(cerr.AlreadyExists, "a request for this item is already running", fmt.Errorf("%w: %s", ErrInFlight, target))
	}
	o.inflight[target] = struct{}{}
	return nil
}

func (o *Orchestrator) settle(target string) {
	o.finish(target, Status{Target: target, Outcome: StateApplied})
}

func (o *Orchestrator) fail(ctx context.Context, target, action, resourceID string, err error) {
	o.finish(target, Status{Target: target, Outcome: StateFailed, Error: cerr.Message(err)})
	o.publishFailure(ctx, action, resourceID, err)
}

func (o *Orchestrator) finish(target string, st Status) {
	st.SettledAt = o.now()
	o.mu.Lock()
	delete(o.inflight, target)
	o.outcomes[target] = st
	o.mu.Unlock()
}

func (o *Orchestrator) publishFailure(ctx context.Context, action, resourceID string, err error) {
	slog.WarnContext(ctx, "action failed", "action", action, "resource_id", resourceID, "error", err)
	o.eventBus.PublishNew(eventbus.EventActionFailed, resourceID, cerr.Message(err), map[string]string{"action": action})
}

// setCurrent replaces the current task. Callers hold o.mu.
func (o *Orchestrator) setCurrent(t *task.Task) {
	o.current = t
	o.version++
}

// stepLocked returns a copy of a step of the current task. Callers hold o.mu.
func (o *Orchestrator) stepLocked(stepID string) (task.Step, error) {
	if o.current == nil {
		return task.Step{}, noCurrentTaskError()
	}
	step, ok := o.current.Step(stepID)
	if !ok {
		return task.Step{}, stepNotFoundError(stepID)
	}
	return step, nil
}

func (o *Orchestrator) redact(text string) string {
	if o.redactor == nil {
		return text
	}
	return o.redactor.Redact(text)
}

// resolveProfile falls back to the stored profile when the request carries
// none.
func (o *Orchestrator) resolveProfile(ctx context.Context, p *profile.Profile) *profile.Profile {
	if p != nil || o.profiles == nil {
		return p
	}
	stored, err := o.profiles.Get(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to load profile, decomposing without it", "error", err)
		return nil
	}
	if stored.IsZero() {
		return nil
	}
	return stored
}

func noCurrentTaskError() error {
	return cerr.NewError(cerr.FailedPrecondition, "there is no current task", ErrNoCurrentTask)
}

func taskExistsError() error {
	return cerr.NewError(cerr.FailedPrecondition, "archive the current task before starting a new one", ErrTaskExists)
}

func stepNotFoundError(stepID string) error {
	return cerr.NewError(cerr.NotFound, "step not found", fmt.Errorf("step %s", stepID))
}
