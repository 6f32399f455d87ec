package queue_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailroom-io/mailroom/internal/queue"
)

func TestDeliveryRequest_RoundTrip(t *testing.T) {
	original := queue.DeliveryRequest{
		To:      "a@example.com",
		Subject: "Confirmation email",
		Body:    `Please confirm your account by <a href="https://example.com/confirm?t=1">clicking here</a>.`,
	}

	payload, err := original.Encode()
	require.NoError(t, err)

	decoded, err := queue.DecodeDeliveryRequest(payload)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDeliveryRequest_WireFieldNames(t *testing.T) {
	payload, err := queue.DeliveryRequest{To: "a@b.c", Subject: "s", Body: "b"}.Encode()
	require.NoError(t, err)

	// Field names are the contract between producer and consumer.
	assert.JSONEq(t, `{"to":"a@b.c","subject":"s","body":"b"}`, string(payload))
}

func TestDecodeDeliveryRequest_Malformed(t *testing.T) {
	_, err := queue.DecodeDeliveryRequest([]byte("not json at all"))
	require.Error(t, err)
}

func TestDecodeDeliveryRequest_MissingRecipient(t *testing.T) {
	_, err := queue.DecodeDeliveryRequest([]byte(`{"subject":"s","body":"b"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no recipient")
}

func TestDecodeDeliveryRequest_EmptyFieldsPreserved(t *testing.T) {
	decoded, err := queue.DecodeDeliveryRequest([]byte(`{"to":"a@b.c","subject":"","body":""}`))
	require.NoError(t, err)
	assert.Equal(t, queue.DeliveryRequest{To: "a@b.c"}, decoded)
}
