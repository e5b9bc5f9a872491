// Package optlock runs an external side effect at most once per row, using a
// single column as an optimistic lock: empty -> sentinel while a worker owns the
// row, then sentinel -> result on success or sentinel -> empty on failure.
//
// It needs nothing from the store beyond atomic single-row conditional updates.
package optlock

import (
	"context"
	"fmt"
)

// Sentinel is written into the lock column while a worker holds the claim.
const Sentinel = "PENDING"

// Lock is one row's lock column.
type Lock interface {
	// Claim flips the column from empty to Sentinel. It reports false when
	// the conditional update did not affect exactly one row.
	Claim(ctx context.Context) (bool, error)
	// Commit replaces Sentinel with the final value.
	Commit(ctx context.Context, value string) error
	// Release puts Sentinel back to empty. It is a no-op after Commit.
	Release(ctx context.Context) error
}

// Work performs the side effect. ok=false means there was nothing to commit.
type Work func(ctx context.Context) (value string, ok bool, err error)

type Outcome int

const (
	// Another worker owns the row, or it already holds a value.
	NotClaimed Outcome = iota
	// The work succeeded and its value is stored.
	Committed
	// The claim was dropped; a later call may retry.
	Released
)

func (o Outcome) String() string {
	switch o {
	case NotClaimed:
		return "not_claimed"
	case Committed:
		return "committed"
	case Released:
		return "released"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Do claims l, runs work and commits its value. Release is always attempted on
// the way out so a crash-free failure anywhere leaves the row retryable.
func Do(ctx context.Context, l Lock, work Work) (out Outcome, err error) {
	claimed, err := l.Claim(ctx)
	if err != nil {
		return NotClaimed, fmt.Errorf("claim: %w", err)
	}
	if !claimed {
		return NotClaimed, nil
	}

	defer func() {
		// Release is keyed on the sentinel, so after a commit it matches nothing.
		if relErr := l.Release(context.WithoutCancel(ctx)); relErr != nil && err == nil {
			err = fmt.Errorf("release: %w", relErr)
		}
	}()

	value, ok, err := work(ctx)
	if err != nil {
		return Released, err
	}
	if !ok {
		return Released, nil
	}
	if err := l.Commit(ctx, value); err != nil {
		return Released, fmt.Errorf("commit: %w", err)
	}
	return Committed, nil
}
