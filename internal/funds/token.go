// Package funds holds the payment-update resume link: a signed token
// that lets a backer return to fix a failed payment without being
// logged in.
package funds

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

type TokenSigner struct {
	secret  []byte
	baseURL string
}

func NewTokenSigner(secret []byte, baseURL string) *TokenSigner {
	return &TokenSigner{secret: secret, baseURL: baseURL}
}

// UpdateToken signs (order, project, timestamp) so the payment-update
// page can trust query parameters arriving from an email link.
func (s *TokenSigner) UpdateToken(orderID, projectID uint, timestamp int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%d:%d:%d", orderID, projectID, timestamp)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *TokenSigner) VerifyUpdateToken(token string, orderID, projectID uint, timestamp int64) bool {
	want := s.UpdateToken(orderID, projectID, timestamp)
	return hmac.Equal([]byte(token), []byte(want))
}

// UpdatePaymentURL builds the signed resume link embedded in a
// payment-update-due notification.
func (s *TokenSigner) UpdatePaymentURL(orderID, projectID uint, now time.Time) string {
	ts := now.Unix()
	v := url.Values{}
	v.Set("order_id", strconv.FormatUint(uint64(orderID), 10))
	v.Set("project_id", strconv.FormatUint(uint64(projectID), 10))
	v.Set("timestamp", strconv.FormatInt(ts, 10))
	v.Set("sig", s.UpdateToken(orderID, projectID, ts))
	return s.baseURL + "/update-payment?" + v.Encode()
}
