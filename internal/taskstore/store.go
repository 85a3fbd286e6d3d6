package taskstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/kazz187/microwin/internal/task"
	"github.com/kazz187/microwin/pkg/cerr"
)

var (
	ErrWriteFailed = errors.New("task store write failed")
	ErrReadFailed  = errors.New("task store read failed")
)

// Store persists the single current task and the archive.
type Store interface {
	// LoadCurrent returns nil without error when no task is current.
	LoadCurrent(ctx context.Context) (*task.Task, error)
	SaveCurrent(ctx context.Context, t *task.Task) error
	ClearCurrent(ctx context.Context) error
	// Archive appends t to the history. If t is the current task the current
	// slot is cleared as part of the same call.
	Archive(ctx context.Context, t *task.Task) error
	// ListHistory returns archived tasks in insertion order.
	ListHistory(ctx context.Context) ([]*task.Task, error)
	DeleteFromHistory(ctx context.Context, taskID string) error
}

type ChangeKind string

const (
	ChangeCurrent ChangeKind = "current"
	ChangeHistory ChangeKind = "history"
	// ChangeError reports a write that failed after the caller returned.
	ChangeError ChangeKind = "error"
)

// Change is pushed to subscribers when persisted state changes outside the
// caller's control.
type Change struct {
	Kind    ChangeKind
	Current *task.Task
	History []*task.Task
	Err     error
}

type Subscriber interface {
	Subscribe(bufSize int) (string, <-chan Change)
	Unsubscribe(id string)
}

// WriteError and ReadError mark err with ErrWriteFailed or ErrReadFailed.
// A read of a missing record keeps the NotFound code.
func WriteError(target string, err error) error {
	return cerr.WrapStorageWriteError(target, fmt.Errorf("%w: %w", ErrWriteFailed, err))
}

func ReadError(target string, err error) error {
	return cerr.WrapStorageReadError(target, fmt.Errorf("%w: %w", ErrReadFailed, err))
}

func NotFoundError(taskID string) error {
	return cerr.NewError(cerr.NotFound, "task not found in history", fmt.Errorf("history task %s", taskID))
}
