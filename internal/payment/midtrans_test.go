package payment

import (
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	service := NewMidtransService("server-key", false)

	orderID := "ORDER-100-5"
	statusCode := "200"
	grossAmount := "50000.00"
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + "server-key"))
	signature := hex.EncodeToString(sum[:])

	t.Run("Valid signature", func(t *testing.T) {
		assert.True(t, service.VerifySignature(orderID, statusCode, grossAmount, signature))
	})

	t.Run("Tampered payload", func(t *testing.T) {
		assert.False(t, service.VerifySignature("ORDER-100-6", statusCode, grossAmount, signature))
	})

	t.Run("Wrong signature", func(t *testing.T) {
		assert.False(t, service.VerifySignature(orderID, statusCode, grossAmount, "deadbeef"))
	})

	t.Run("Verification disabled without a server key", func(t *testing.T) {
		unconfigured := &MidtransService{}
		assert.True(t, unconfigured.VerifySignature(orderID, statusCode, grossAmount, "anything"))
	})
}
