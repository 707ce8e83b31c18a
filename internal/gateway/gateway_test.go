package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSandboxApproves(t *testing.T) {
	ctx := context.Background()

	profile, err := Sandbox{}.ResolveProfile(ctx, "pm-1")
	require.NoError(t, err)

	result, err := profile.AuthorizeAndCapture(ctx, CaptureRequest{Amount: 1000})
	require.NoError(t, err)
	require.NotEmpty(t, result.TransactionID)
	require.Equal(t, "Visa", result.CardType)
}

func TestSandboxDeclines(t *testing.T) {
	ctx := context.Background()

	profile, err := Sandbox{}.ResolveProfile(ctx, "pm-1-declined")
	require.NoError(t, err)

	_, err = profile.AuthorizeAndCapture(ctx, CaptureRequest{Amount: 1000})
	require.True(t, IsDeclined(err))
	require.False(t, IsUncertain(err))
}

func TestSandboxCancelledContextIsUncertain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	profile, err := Sandbox{}.ResolveProfile(context.Background(), "pm-1")
	require.NoError(t, err)

	_, err = profile.AuthorizeAndCapture(ctx, CaptureRequest{Amount: 1000})
	require.True(t, IsUncertain(err))
	require.False(t, IsDeclined(err))
	require.ErrorIs(t, err, context.Canceled)
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()
	reg.Register("sandbox", Sandbox{})

	gw, err := reg.Lookup("sandbox")
	require.NoError(t, err)
	require.NotNil(t, gw)

	_, err = reg.Lookup("stripe")
	require.Error(t, err)
}

func TestDeclinedErrorMatching(t *testing.T) {
	err := error(&DeclinedError{Reason: "card expired"})
	wrapped := errors.Join(errors.New("outer"), err)
	require.True(t, IsDeclined(wrapped))
	require.False(t, IsDeclined(errors.New("plain")))
	require.False(t, IsDeclined(nil))
}
