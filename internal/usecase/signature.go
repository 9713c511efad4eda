package usecase

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Signer computes and checks gateway callback signatures: hex(HMAC-SHA256(secret, orderID|paymentID)).
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

func (s *Signer) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Valid compares in constant time.
func (s *Signer) Valid(orderID, paymentID, signature string) bool {
	expected := s.Sign(orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
