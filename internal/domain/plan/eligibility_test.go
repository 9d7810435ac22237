package plan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCanBeModified(t *testing.T) {
	assert.False(t, CanBeModified(nil))
	assert.True(t, CanBeModified(&Plan{Status: StatusActive}))
	assert.True(t, CanBeModified(&Plan{Status: StatusHold}))
	assert.False(t, CanBeModified(&Plan{Status: StatusCanceled}))
	assert.False(t, CanBeModified(&Plan{Status: StatusDeleted}))
}

func TestCanBeReinstated(t *testing.T) {
	assert.False(t, CanBeReinstated(nil))
	assert.True(t, CanBeReinstated(&Plan{Status: StatusCanceled}))
	assert.False(t, CanBeReinstated(&Plan{Status: StatusActive}))
	assert.False(t, CanBeReinstated(&Plan{Status: StatusDeleted}))
}

func TestTransferAndUpgradeEligibility(t *testing.T) {
	for _, status := range []Status{StatusActive, StatusUpcoming} {
		assert.True(t, CanBeTransferred(&Plan{Status: status}), "status %s", status)
		assert.True(t, CanBeUpgraded(&Plan{Status: status}), "status %s", status)
	}
	for _, status := range []Status{StatusHold, StatusCanceled, StatusExpired, StatusExpiredLimit, StatusDeleted, StatusPending} {
		assert.False(t, CanBeTransferred(&Plan{Status: status}), "status %s", status)
		assert.False(t, CanBeUpgraded(&Plan{Status: status}), "status %s", status)
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusActive, StatusHold))
	assert.True(t, CanTransition(StatusHold, StatusActive))
	assert.True(t, CanTransition(StatusCanceled, StatusActive))
	assert.False(t, CanTransition(StatusExpired, StatusActive))
	assert.False(t, CanTransition(StatusDeleted, StatusActive))

	// Soft delete is reachable from everywhere except itself.
	assert.True(t, CanTransition(StatusExpired, StatusDeleted))
	assert.True(t, CanTransition(StatusCanceled, StatusDeleted))
	assert.False(t, CanTransition(StatusDeleted, StatusDeleted))
}

func TestTransitionTo_IllegalIsInvariantViolation(t *testing.T) {
	p := &Plan{Status: StatusExpired}
	err := p.TransitionTo(StatusActive)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvariantViolation)
	assert.Equal(t, StatusExpired, p.Status)
}

func TestCurrentStatus(t *testing.T) {
	now := date(2026, 3, 15)

	t.Run("upcoming before start stays upcoming", func(t *testing.T) {
		p := &Plan{Status: StatusUpcoming, StartDate: date(2026, 3, 20), EndDate: date(2026, 4, 19)}
		assert.Equal(t, StatusUpcoming, p.CurrentStatus(now))
	})

	t.Run("upcoming past start reads as active", func(t *testing.T) {
		p := &Plan{Status: StatusUpcoming, StartDate: date(2026, 3, 10), EndDate: date(2026, 4, 9)}
		assert.Equal(t, StatusActive, p.CurrentStatus(now))
	})

	t.Run("stale upcoming past its end reads as expired", func(t *testing.T) {
		p := &Plan{Status: StatusUpcoming, StartDate: date(2026, 1, 1), EndDate: date(2026, 1, 31)}
		assert.Equal(t, StatusExpired, p.CurrentStatus(now))
	})

	t.Run("end date itself is still a valid day", func(t *testing.T) {
		p := &Plan{Status: StatusActive, StartDate: date(2026, 2, 14), EndDate: date(2026, 3, 15)}
		assert.Equal(t, StatusActive, p.CurrentStatus(now))
		assert.Equal(t, StatusExpired, p.CurrentStatus(date(2026, 3, 16)))
	})

	t.Run("exhausted quota reads as expired_limit", func(t *testing.T) {
		p := &Plan{Status: StatusActive, StartDate: date(2026, 3, 1), EndDate: date(2026, 5, 29), TotalQuota: intPtr(10), TotalQuotaConsumed: 10}
		assert.Equal(t, StatusExpiredLimit, p.CurrentStatus(now))
	})

	t.Run("terminal statuses pass through", func(t *testing.T) {
		for _, status := range []Status{StatusCanceled, StatusDeleted, StatusExpired, StatusExpiredLimit, StatusHold, StatusPending} {
			p := &Plan{Status: status, EndDate: date(2020, 1, 1)}
			assert.Equal(t, status, p.CurrentStatus(now))
		}
	})
}

func TestRemainingDays(t *testing.T) {
	p := &Plan{Status: StatusActive, StartDate: date(2026, 3, 1), EndDate: date(2026, 3, 30)}
	// Inclusive end date: the last day still counts.
	assert.Equal(t, 1, p.RemainingDays(date(2026, 3, 30)))
	assert.Equal(t, 16, p.RemainingDays(date(2026, 3, 15)))
	assert.Equal(t, 0, p.RemainingDays(date(2026, 4, 1)))
}
