package message

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reconstruct(t *testing.T, origin Origin, sender *uint, status DeliveryStatus) *Message {
	t.Helper()
	msg, err := ReconstructMessage(1, origin, "wamid.test", 10, sender, "hello", TypeText, status, time.Now())
	require.NoError(t, err)
	return msg
}

func TestNewLocalMessage(t *testing.T) {
	msg, err := NewLocalMessage(10, 3, "hello farmer", TypeText)
	require.NoError(t, err)

	assert.Equal(t, OriginUser, msg.Origin())
	assert.NotEmpty(t, msg.WAMessageID())
	assert.Equal(t, DeliveryQueued, msg.DeliveryStatus())
	require.NotNil(t, msg.SenderUserID())
	assert.Equal(t, uint(3), *msg.SenderUserID())
}

func TestReconstructMessage_SenderInvariants(t *testing.T) {
	sender := uint(3)

	t.Run("user message requires sender", func(t *testing.T) {
		_, err := ReconstructMessage(1, OriginUser, "wamid.1", 10, nil, "x", TypeText, DeliverySent, time.Now())
		assert.Error(t, err)
	})

	t.Run("customer message cannot carry sender", func(t *testing.T) {
		_, err := ReconstructMessage(1, OriginCustomer, "wamid.1", 10, &sender, "x", TypeText, DeliverySent, time.Now())
		assert.Error(t, err)
	})

	t.Run("system message cannot carry sender", func(t *testing.T) {
		_, err := ReconstructMessage(1, OriginSystem, "wamid.1", 10, &sender, "x", TypeWhisper, DeliverySent, time.Now())
		assert.Error(t, err)
	})
}

func TestMessage_UpdateDeliveryStatus(t *testing.T) {
	sender := uint(3)

	t.Run("moves forward along the success path", func(t *testing.T) {
		msg := reconstruct(t, OriginUser, &sender, DeliveryQueued)

		require.NoError(t, msg.UpdateDeliveryStatus(DeliverySent))
		require.NoError(t, msg.UpdateDeliveryStatus(DeliveryDelivered))
		require.NoError(t, msg.UpdateDeliveryStatus(DeliveryRead))
		assert.Equal(t, DeliveryRead, msg.DeliveryStatus())
	})

	t.Run("ignores out-of-order regressions", func(t *testing.T) {
		msg := reconstruct(t, OriginUser, &sender, DeliveryRead)

		require.NoError(t, msg.UpdateDeliveryStatus(DeliveryDelivered))
		assert.Equal(t, DeliveryRead, msg.DeliveryStatus())
	})

	t.Run("failure is terminal", func(t *testing.T) {
		msg := reconstruct(t, OriginUser, &sender, DeliverySent)

		require.NoError(t, msg.UpdateDeliveryStatus(DeliveryFailed))
		assert.Error(t, msg.UpdateDeliveryStatus(DeliveryDelivered))
		assert.Equal(t, DeliveryFailed, msg.DeliveryStatus())
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		msg := reconstruct(t, OriginUser, &sender, DeliverySent)
		assert.Error(t, msg.UpdateDeliveryStatus(DeliveryStatus("bogus")))
	})
}

func TestMessage_IsDisplayable(t *testing.T) {
	assert.True(t, reconstruct(t, OriginCustomer, nil, DeliveryDelivered).IsDisplayable())
	assert.False(t, reconstruct(t, OriginCustomer, nil, DeliveryFailed).IsDisplayable())
	assert.False(t, reconstruct(t, OriginCustomer, nil, DeliveryUndelivered).IsDisplayable())
}
