package peer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoff_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	b := backoff{attempts: 3, initial: time.Millisecond, max: 2 * time.Millisecond}
	err := b.do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestBackoff_GivesUp(t *testing.T) {
	calls := 0
	refused := errors.New("refused")
	b := backoff{attempts: 2, initial: time.Millisecond}
	err := b.do(context.Background(), func() error {
		calls++
		return refused
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, refused)
	assert.Equal(t, 2, calls)
}

func TestBackoff_SingleAttemptByDefault(t *testing.T) {
	calls := 0
	err := backoff{}.do(context.Background(), func() error {
		calls++
		return errors.New("refused")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestBackoff_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	b := backoff{attempts: 5, initial: time.Hour}
	err := b.do(ctx, func() error {
		calls++
		cancel()
		return errors.New("refused")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
