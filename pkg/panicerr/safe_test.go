package panicerr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/microwin/pkg/cerr"
)

func TestSafe_PassesThroughErrors(t *testing.T) {
	want := errors.New("boom")
	assert.ErrorIs(t, Safe(func() error { return want })(), want)
	assert.NoError(t, Safe(func() error { return nil })())
}

func TestSafe_RecoversPanic(t *testing.T) {
	err := Safe(func() error { panic("kaboom") })()
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.Internal))
	assert.Contains(t, err.Error(), "kaboom")

	var e *cerr.Error
	require.ErrorAs(t, err, &e)
	assert.NotEmpty(t, e.Stack)
}

func TestSafeContext_Loop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ran := false
	err := SafeContext(Loop(func(ctx context.Context) {
		<-ctx.Done()
		ran = true
	}))(ctx)
	assert.NoError(t, err)
	assert.True(t, ran)

	err = SafeContext(Loop(func(context.Context) { panic("loop died") }))(ctx)
	assert.True(t, cerr.IsCode(err, cerr.Internal))
}
