package models

import (
	"errors"
	"fmt"
)

// Status is the per-line-item fulfillment state.
type Status string

const (
	StatusCart           Status = "cart"
	StatusUnfunded       Status = "unfunded"
	StatusFailed         Status = "failed"
	StatusWaiting        Status = "waiting"
	StatusPaymentPending Status = "payment pending"
	StatusPaymentFailed  Status = "payment failed"
	StatusCancelled      Status = "cancelled"
	StatusShipped        Status = "shipped"
	StatusAbandoned      Status = "abandoned"
	StatusInProcess      Status = "in process"
	StatusBeingPacked    Status = "being packed"
)

var statusDescriptions = map[Status]string{
	StatusCart:           "Pre-checkout",
	StatusUnfunded:       "Project Not Yet Funded",
	StatusFailed:         "Project Failed To Fund",
	StatusWaiting:        "Waiting for Items",
	StatusPaymentPending: "Payment Not Yet Processed",
	StatusPaymentFailed:  "Payment Failed",
	StatusCancelled:      "Cancelled",
	StatusShipped:        "Shipped",
	StatusAbandoned:      "Abandoned",
	StatusInProcess:      "In Process",
	StatusBeingPacked:    "Being Packed",
}

// Description is the human-readable label for this status.
func (s Status) Description() string {
	return statusDescriptions[s]
}

// validTransitions maps each status to the set of statuses it may move
// to. Statuses with no entry (shipped, cancelled, abandoned, failed)
// are terminal.
var validTransitions = map[Status][]Status{
	StatusCart:           {StatusUnfunded, StatusPaymentPending, StatusInProcess},
	StatusUnfunded:       {StatusFailed, StatusCancelled, StatusPaymentPending},
	StatusPaymentPending: {StatusCancelled, StatusWaiting, StatusPaymentFailed},
	StatusPaymentFailed:  {StatusWaiting, StatusCancelled, StatusAbandoned},
	StatusWaiting:        {StatusCancelled, StatusInProcess, StatusBeingPacked, StatusShipped},
	StatusInProcess:      {StatusCancelled, StatusBeingPacked, StatusShipped},
	StatusBeingPacked:    {StatusShipped},
}

var ErrIllegalTransition = errors.New("illegal status transition")

// UpdateStatus moves this item to next, validating against the
// transition table. An attempt outside the table is a programming or
// data error and fails loudly rather than clamping.
func (ci *CartItem) UpdateStatus(next Status) error {
	for _, allowed := range validTransitions[ci.Status] {
		if next == allowed {
			ci.Status = next
			return nil
		}
	}
	return fmt.Errorf("cannot %q -> %q: %w", ci.Status, next, ErrIllegalTransition)
}
