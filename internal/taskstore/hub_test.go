package taskstore

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/microwin/pkg/cerr"
	"github.com/kazz187/microwin/pkg/storage"
)

func TestHub_PublishAndClose(t *testing.T) {
	h := NewHub()
	_, ch := h.Subscribe(2)

	h.Publish(Change{Kind: ChangeError, Err: errors.New("boom")})
	c := <-ch
	assert.Equal(t, ChangeError, c.Kind)

	h.Close()
	_, ok := <-ch
	assert.False(t, ok)
}

func TestErrorHelpers(t *testing.T) {
	err := WriteError("current task", errors.New("disk full"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.True(t, cerr.IsCode(err, cerr.Internal))
	assert.Equal(t, "failed to save current task", cerr.Message(err))

	err = ReadError("history", errors.New("permission denied"))
	assert.ErrorIs(t, err, ErrReadFailed)
	assert.Equal(t, "failed to load history", cerr.Message(err))

	err = ReadError("history entry", fmt.Errorf("gone: %w", storage.ErrNotFound))
	assert.ErrorIs(t, err, ErrReadFailed)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))

	assert.True(t, cerr.IsCode(NotFoundError("x"), cerr.NotFound))
}
