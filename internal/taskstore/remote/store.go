// Package remote adapts an eventually consistent, network-reached Store to
// the synchronous-looking contract the orchestrator expects. Writes return
// immediately and are applied in order by a background writer; remote
// changes are polled and pushed to subscribers.
package remote

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/kazz187/microwin/internal/task"
	"github.com/kazz187/microwin/internal/taskstore"
)

const (
	DefaultPollInterval = 5 * time.Second
	queueSize           = 64
)

var (
	_ taskstore.Store      = (*Store)(nil)
	_ taskstore.Subscriber = (*Store)(nil)
)

var ErrClosed = errors.New("remote store closed")

type op struct {
	name string
	fn   func(ctx context.Context) error
}

type Store struct {
	remote taskstore.Store
	*taskstore.Hub

	pollInterval time.Duration

	mu      sync.RWMutex
	loaded  bool
	current *task.Task
	history []*task.Task
	pending int
	// gen counts buffered writes. A fetch started under an older gen may
	// predate a local write and is discarded.
	gen uint64

	ops chan op
	// closeMu orders enqueues against Close so that every accepted write is
	// seen by the writer's final drain.
	closeMu  sync.RWMutex
	isClosed bool
	closed   chan struct{}
	once     sync.Once
	wg       conc.WaitGroup
}

type Option func(*Store)

func WithPollInterval(d time.Duration) Option {
	return func(s *Store) {
		s.pollInterval = d
	}
}

func New(remote taskstore.Store, opts ...Option) *Store {
	s := &Store{
		remote:       remote,
		Hub:          taskstore.NewHub(),
		pollInterval: DefaultPollInterval,
		ops:          make(chan op, queueSize),
		closed:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the writer and the poller. The poller stops with ctx; the
// writer keeps applying writes until Close, so a save issued during shutdown
// still reaches the remote.
func (s *Store) Start(ctx context.Context) {
	writeCtx := context.WithoutCancel(ctx)
	s.wg.Go(func() { s.writeLoop(writeCtx) })
	if s.pollInterval > 0 {
		s.wg.Go(func() { s.pollLoop(ctx) })
	}
}

// Close stops accepting writes and waits for queued ones to be applied.
func (s *Store) Close() {
	s.once.Do(func() {
		s.closeMu.Lock()
		s.isClosed = true
		close(s.closed)
		s.closeMu.Unlock()
	})
	s.wg.Wait()
	s.Hub.Close()
}

func (s *Store) LoadCurrent(ctx context.Context) (*task.Task, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone(), nil
}

func (s *Store) SaveCurrent(ctx context.Context, t *task.Task) error {
	snapshot := t.Clone()
	return s.enqueue(ctx, op{name: "save", fn: func(ctx context.Context) error {
		return s.remote.SaveCurrent(ctx, snapshot)
	}}, func() bool {
		s.current = snapshot
		return true
	})
}

func (s *Store) ClearCurrent(ctx context.Context) error {
	return s.enqueue(ctx, op{name: "clear", fn: s.remote.ClearCurrent}, func() bool {
		s.current = nil
		return true
	})
}

func (s *Store) Archive(ctx context.Context, t *task.Task) error {
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	snapshot := t.Clone()
	return s.enqueue(ctx, op{name: "archive", fn: func(ctx context.Context) error {
		return s.remote.Archive(ctx, snapshot)
	}}, func() bool {
		s.history = append(s.history, snapshot)
		if s.current != nil && s.current.ID == snapshot.ID {
			s.current = nil
		}
		return true
	})
}

func (s *Store) ListHistory(ctx context.Context) ([]*task.Task, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*task.Task, len(s.history))
	for i, t := range s.history {
		out[i] = t.Clone()
	}
	return out, nil
}

func (s *Store) DeleteFromHistory(ctx context.Context, taskID string) error {
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	found := false
	err := s.enqueue(ctx, op{name: "delete", fn: func(ctx context.Context) error {
		return s.remote.DeleteFromHistory(ctx, taskID)
	}}, func() bool {
		n := len(s.history)
		s.history = slices.DeleteFunc(s.history, func(t *task.Task) bool { return t.ID == taskID })
		found = len(s.history) != n
		return found
	})
	if err != nil {
		return err
	}
	if !found {
		return taskstore.NotFoundError(taskID)
	}
	return nil
}

// Pending reports the number of writes not yet applied remotely.
func (s *Store) Pending() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending
}

func (s *Store) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	current, history, err := s.fetch(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}
	// Only the current slot can be written before the first load, and a
	// local write is newer than anything the fetch saw.
	if s.gen == 0 {
		s.current = current
	}
	s.history = history
	s.loaded = true
	return nil
}

func (s *Store) fetch(ctx context.Context) (*task.Task, []*task.Task, error) {
	current, err := s.remote.LoadCurrent(ctx)
	if err != nil {
		return nil, nil, err
	}
	history, err := s.remote.ListHistory(ctx)
	if err != nil {
		return nil, nil, err
	}
	return current, history, nil
}

// enqueue applies update to the buffer and queues o for the writer. update
// runs under s.mu; when it reports false nothing is queued.
func (s *Store) enqueue(ctx context.Context, o op, update func() bool) error {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.isClosed {
		return taskstore.WriteError(o.name, ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return taskstore.WriteError(o.name, err)
	}

	s.mu.Lock()
	if !update() {
		s.mu.Unlock()
		return nil
	}
	s.pending++
	s.gen++
	s.mu.Unlock()

	select {
	case s.ops <- o:
		return nil
	case <-ctx.Done():
	}
	s.mu.Lock()
	s.pending--
	s.mu.Unlock()
	return taskstore.WriteError(o.name, ctx.Err())
}

func (s *Store) writeLoop(ctx context.Context) {
	for {
		select {
		case o := <-s.ops:
			s.apply(ctx, o)
		case <-s.closed:
			s.drain(ctx)
			return
		}
	}
}

func (s *Store) drain(ctx context.Context) {
	for {
		select {
		case o := <-s.ops:
			s.apply(ctx, o)
		default:
			return
		}
	}
}

func (s *Store) apply(ctx context.Context, o op) {
	err := o.fn(ctx)
	s.mu.Lock()
	s.pending--
	s.mu.Unlock()
	if err != nil {
		slog.ErrorContext(ctx, "remote write failed", "op", o.name, "error", err)
		s.Publish(taskstore.Change{Kind: taskstore.ChangeError, Err: err})
	}
}

func (s *Store) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closed:
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

// Refresh pulls the remote state and pushes whatever differs from the
// buffered value. It is skipped while local writes are queued, and its result
// is dropped if a local write was buffered while the fetch was in flight.
func (s *Store) Refresh(ctx context.Context) {
	s.mu.RLock()
	pending, gen := s.pending, s.gen
	s.mu.RUnlock()
	if pending > 0 {
		return
	}
	current, history, err := s.fetch(ctx)
	if err != nil {
		slog.WarnContext(ctx, "remote poll failed", "error", err)
		return
	}

	s.mu.Lock()
	if s.pending > 0 || s.gen != gen {
		s.mu.Unlock()
		slog.DebugContext(ctx, "discarding remote poll overtaken by a local write")
		return
	}
	currentChanged := !s.loaded || !task.Equal(s.current, current)
	historyChanged := !s.loaded || !historyEqual(s.history, history)
	s.current = current
	s.history = history
	s.loaded = true
	s.mu.Unlock()

	if currentChanged {
		s.Publish(taskstore.Change{Kind: taskstore.ChangeCurrent, Current: current.Clone()})
	}
	if historyChanged {
		out := make([]*task.Task, len(history))
		for i, t := range history {
			out[i] = t.Clone()
		}
		s.Publish(taskstore.Change{Kind: taskstore.ChangeHistory, History: out})
	}
}

func historyEqual(a, b []*task.Task) bool {
	return slices.EqualFunc(a, b, task.Equal)
}
