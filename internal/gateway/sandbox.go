package gateway

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Sandbox is the development processor: it approves everything except
// method references suffixed "-declined", which it declines. Useful for
// local environments and smoke tests; never register it in production.
type Sandbox struct{}

func (Sandbox) ResolveProfile(ctx context.Context, methodRef string) (Profile, error) {
	return sandboxProfile{methodRef: methodRef}, nil
}

type sandboxProfile struct {
	methodRef string
}

func (p sandboxProfile) AuthorizeAndCapture(ctx context.Context, req CaptureRequest) (*CaptureResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &UncertainError{Cause: err}
	}
	if strings.HasSuffix(p.methodRef, "-declined") {
		return nil, &DeclinedError{Reason: "sandbox decline"}
	}
	return &CaptureResult{
		TransactionID:    uuid.NewString(),
		AVSAddressResult: "Y",
		AVSZipResult:     "Y",
		CCVResult:        "M",
		CardType:         "Visa",
	}, nil
}
