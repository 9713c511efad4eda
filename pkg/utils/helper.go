package utils

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// ParseInt converts string to int with default value
func ParseInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}

	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	if result < 1 {
		return defaultValue
	}

	return result
}

// GenerateOTP creates a numeric OTP of specified length
func GenerateOTP(length int) (string, error) {
	if length <= 0 {
		length = 6
	}

	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteString(n.String())
	}

	return b.String(), nil
}

// NewULID returns a lexically sortable identifier stamped with t.
func NewULID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
}

// GenerateReceipt creates the merchant receipt sent with a gateway order (max 40 chars).
func GenerateReceipt(now time.Time) string {
	return "rcpt_" + NewULID(now)
}
