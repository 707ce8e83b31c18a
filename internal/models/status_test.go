package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var allStatuses = []Status{
	StatusCart,
	StatusUnfunded,
	StatusFailed,
	StatusWaiting,
	StatusPaymentPending,
	StatusPaymentFailed,
	StatusCancelled,
	StatusShipped,
	StatusAbandoned,
	StatusInProcess,
	StatusBeingPacked,
}

func allowed(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func TestUpdateStatusTable(t *testing.T) {
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			ci := CartItem{Status: from}
			err := ci.UpdateStatus(to)
			if allowed(from, to) {
				require.NoError(t, err, "%s -> %s should be legal", from, to)
				require.Equal(t, to, ci.Status)
			} else {
				require.ErrorIs(t, err, ErrIllegalTransition, "%s -> %s should be illegal", from, to)
				require.Equal(t, from, ci.Status, "illegal transition must not change status")
			}
		}
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	for _, s := range []Status{StatusShipped, StatusCancelled, StatusAbandoned, StatusFailed} {
		require.Empty(t, validTransitions[s], "%s must be terminal", s)
	}
}

func TestCheckoutEntryPoints(t *testing.T) {
	// From the cart an item can only go to one of the three
	// post-checkout entry statuses.
	require.ElementsMatch(t,
		[]Status{StatusUnfunded, StatusPaymentPending, StatusInProcess},
		validTransitions[StatusCart])
}

func TestStatusDescriptions(t *testing.T) {
	for _, s := range allStatuses {
		require.NotEmpty(t, s.Description(), "missing description for %s", s)
	}
	require.Equal(t, "Payment Not Yet Processed", StatusPaymentPending.Description())
}
