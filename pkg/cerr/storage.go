package cerr

import (
	"errors"
	"fmt"

	"github.com/kazz187/microwin/pkg/storage"
)

// The Wrap*Error helpers name the failed action in the user message and keep
// the storage cause for logs. storage.ErrNotFound maps to NotFound on reads
// and deletes.

func WrapStorageReadError(target string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return NewError(NotFound, fmt.Sprintf("%s not found", target), err)
	}
	return NewError(Internal, fmt.Sprintf("failed to load %s", target), err)
}

func WrapStorageWriteError(target string, err error) error {
	return NewError(Internal, fmt.Sprintf("failed to save %s", target), err)
}

func WrapStorageDeleteError(target string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return NewError(NotFound, fmt.Sprintf("%s not found", target), err)
	}
	return NewError(Internal, fmt.Sprintf("failed to delete %s", target), err)
}
