// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package bulk

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/gradebook/core"
	"github.com/poiesic/gradebook/storage"
)

// RetryPolicy controls RetryWithBackoff.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the wait after the first failure. It doubles on each retry.
	BaseDelay time.Duration
	// MaxDelay caps the wait between attempts. Zero means no cap.
	MaxDelay time.Duration
	// Retryable decides whether an error is worth another attempt.
	// Nil means IsTransient.
	Retryable func(error) bool
}

// DefaultRetryPolicy returns three attempts starting at 100ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// IsTransient reports whether err may succeed on retry. Validation,
// configuration and duplicate key errors never do, nor does a cancelled
// context.
func IsTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, storage.ErrConfiguration),
		errors.Is(err, storage.ErrDuplicateKey),
		errors.Is(err, storage.ErrSerializationFailed):
		return false
	case errors.Is(err, core.ErrInvalidDocument),
		errors.Is(err, core.ErrInvalidCondition),
		errors.Is(err, core.ErrInvalidPatch),
		errors.Is(err, core.ErrInvalidID),
		errors.Is(err, core.ErrReservedField),
		errors.Is(err, core.ErrInvalidOperator):
		return false
	}
	return true
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	// baseDelay * 2^(attempt-1)
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// RetryWithBackoff runs operation until it succeeds, returns an error the
// policy does not retry, or runs out of attempts. The last error is returned.
func RetryWithBackoff(ctx context.Context, policy RetryPolicy, operation func(context.Context) error) error {
	if policy.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	retryable := policy.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = operation(ctx)
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}

		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", policy.MaxAttempts, "error", lastErr)
		if attempt == policy.MaxAttempts {
			break
		}

		timer := time.NewTimer(policy.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
