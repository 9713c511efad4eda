package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSigner(t *testing.T) {
	s := NewSigner("secret")

	sig := s.Sign("order_1", "pay_1")
	assert.Len(t, sig, 64)
	assert.True(t, s.Valid("order_1", "pay_1", sig))
	assert.True(t, s.Valid("order_1", "pay_1", strings.ToUpper(sig)))

	assert.False(t, s.Valid("order_1", "pay_2", sig))
	assert.False(t, s.Valid("order_2", "pay_1", sig))
	assert.False(t, NewSigner("other").Valid("order_1", "pay_1", sig))
	assert.False(t, s.Valid("order_1", "pay_1", ""))

	// the separator keeps ("ab","c") and ("a","bc") apart
	assert.NotEqual(t, s.Sign("ab", "c"), s.Sign("a", "bc"))
}
