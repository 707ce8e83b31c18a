package funds

import (
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUpdateTokenRoundTrip(t *testing.T) {
	s := NewTokenSigner([]byte("secret"), "https://shop.example")

	token := s.UpdateToken(42, 7, 1750000000)
	require.True(t, s.VerifyUpdateToken(token, 42, 7, 1750000000))

	// Any changed parameter invalidates the signature.
	require.False(t, s.VerifyUpdateToken(token, 43, 7, 1750000000))
	require.False(t, s.VerifyUpdateToken(token, 42, 8, 1750000000))
	require.False(t, s.VerifyUpdateToken(token, 42, 7, 1750000001))
	require.False(t, s.VerifyUpdateToken(token+"ff", 42, 7, 1750000000))
}

func TestUpdateTokenKeyDependent(t *testing.T) {
	a := NewTokenSigner([]byte("key-a"), "")
	b := NewTokenSigner([]byte("key-b"), "")
	require.NotEqual(t, a.UpdateToken(1, 1, 1), b.UpdateToken(1, 1, 1))
}

func TestUpdatePaymentURL(t *testing.T) {
	s := NewTokenSigner([]byte("secret"), "https://shop.example")
	now := time.Unix(1750000000, 0)

	link := s.UpdatePaymentURL(42, 7, now)

	u, err := url.Parse(link)
	require.NoError(t, err)
	require.Equal(t, "/update-payment", u.Path)

	q := u.Query()
	require.Equal(t, "42", q.Get("order_id"))
	require.Equal(t, "7", q.Get("project_id"))

	ts, err := strconv.ParseInt(q.Get("timestamp"), 10, 64)
	require.NoError(t, err)
	require.True(t, s.VerifyUpdateToken(q.Get("sig"), 42, 7, ts))
}
