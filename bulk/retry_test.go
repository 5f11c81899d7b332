package bulk

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/gradebook/core"
	"github.com/poiesic/gradebook/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond}
}

func TestRetryWithBackoff_Success(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), fastPolicy(3), func(context.Context) error {
		attempts++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts, "should succeed on first try")
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), fastPolicy(5), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "should succeed on third attempt")
}

func TestRetryWithBackoff_AllAttemptsFail(t *testing.T) {
	attempts := 0
	expectedErr := errors.New("persistent error")
	err := RetryWithBackoff(context.Background(), fastPolicy(3), func(context.Context) error {
		attempts++
		return expectedErr
	})
	assert.Equal(t, expectedErr, err, "should return the last error")
	assert.Equal(t, 3, attempts, "should attempt exactly MaxAttempts times")
}

func TestRetryWithBackoff_PermanentErrorStops(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), fastPolicy(5), func(context.Context) error {
		attempts++
		return fmt.Errorf("%w: users \"a\"", storage.ErrDuplicateKey)
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_CustomRetryable(t *testing.T) {
	attempts := 0
	policy := fastPolicy(4)
	policy.Retryable = func(error) bool { return false }
	err := RetryWithBackoff(context.Background(), policy, func(context.Context) error {
		attempts++
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := RetryWithBackoff(ctx, fastPolicy(10), func(context.Context) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, attempts, 2, "should stop when context is canceled")
}

func TestRetryWithBackoff_InvalidMaxAttempts(t *testing.T) {
	for _, attempts := range []int{0, -1} {
		err := RetryWithBackoff(context.Background(), fastPolicy(attempts), func(context.Context) error {
			return nil
		})
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
	}
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{BaseDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond}
	assert.Equal(t, 10*time.Millisecond, p.delay(1))
	assert.Equal(t, 20*time.Millisecond, p.delay(2))
	assert.Equal(t, 40*time.Millisecond, p.delay(3))
	assert.Equal(t, 50*time.Millisecond, p.delay(4))
	assert.Equal(t, 50*time.Millisecond, p.delay(10))

	uncapped := RetryPolicy{BaseDelay: time.Millisecond}
	assert.Equal(t, 8*time.Millisecond, uncapped.delay(4))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"store failure", fmt.Errorf("%w: insert users: disk full", storage.ErrStore), true},
		{"unknown", errors.New("connection reset"), true},
		{"configuration", storage.ErrConfiguration, false},
		{"duplicate", storage.ErrDuplicateKey, false},
		{"invalid document", fmt.Errorf("%w: bad", core.ErrInvalidDocument), false},
		{"reserved field", core.ErrReservedField, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
