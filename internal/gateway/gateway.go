// Package gateway defines the contract the capture orchestrator
// requires from a payment processor, and a registry that selects a
// processor by an explicit string key.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// CaptureRequest carries the amount due plus the human-readable
// descriptors and fraud-signal metadata a processor expects.
type CaptureRequest struct {
	Amount              int64
	Description         string
	StatementDescriptor string
	IP                  string
	UserAgent           string
	Referrer            string
}

// CaptureResult is what a successful authorize-and-capture reports.
type CaptureResult struct {
	TransactionID    string
	AVSAddressResult string
	AVSZipResult     string
	CCVResult        string
	CardType         string
}

// Profile is a resolved payment method ready to be charged.
type Profile interface {
	AuthorizeAndCapture(ctx context.Context, req CaptureRequest) (*CaptureResult, error)
}

// Gateway resolves stored payment method references into chargeable
// profiles.
type Gateway interface {
	ResolveProfile(ctx context.Context, methodRef string) (Profile, error)
}

// DeclinedError is a processor-reported decline. It is an expected
// business outcome: the orchestrator handles it inline and never
// records a payment for it.
type DeclinedError struct {
	Reason string
}

func (e *DeclinedError) Error() string {
	return "transaction declined: " + e.Reason
}

func IsDeclined(err error) bool {
	var d *DeclinedError
	return errors.As(err, &d)
}

// UncertainError wraps a gateway call whose outcome is unknown, such as
// a timeout after the request may have been sent. It must never be
// conflated with a decline: the order is parked for manual
// reconciliation instead of being retried.
type UncertainError struct {
	Cause error
}

func (e *UncertainError) Error() string {
	return "gateway outcome uncertain: " + e.Cause.Error()
}

func (e *UncertainError) Unwrap() error { return e.Cause }

func IsUncertain(err error) bool {
	var u *UncertainError
	return errors.As(err, &u)
}

// Registry is the explicit lookup table from processor key to gateway.
type Registry struct {
	mu       sync.RWMutex
	gateways map[string]Gateway
}

func NewRegistry() *Registry {
	return &Registry{gateways: make(map[string]Gateway)}
}

func (r *Registry) Register(name string, gw Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[name] = gw
}

func (r *Registry) Lookup(name string) (Gateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gw, ok := r.gateways[name]
	if !ok {
		return nil, fmt.Errorf("unknown payment gateway %q", name)
	}
	return gw, nil
}
