// Package queue connects producers and the delivery worker through a Kafka
// topic: the DeliveryRequest wire schema, a publisher, and the processor
// that turns queued requests into mail transmissions.
package queue

import (
	"encoding/json"
	"fmt"
)

// DeliveryRequest is the unit of work for one email, shared by producer and
// consumer across the queue boundary. Field names are part of the wire
// contract; both sides must agree on them exactly.
type DeliveryRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Encode serializes the request to its JSON wire form.
func (r DeliveryRequest) Encode() ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding delivery request: %w", err)
	}
	return b, nil
}

// DecodeDeliveryRequest parses the JSON wire form back into a
// DeliveryRequest. A payload without a recipient is rejected: it could
// never be sent and would otherwise fail deep inside the transport.
func DecodeDeliveryRequest(payload []byte) (DeliveryRequest, error) {
	var r DeliveryRequest
	if err := json.Unmarshal(payload, &r); err != nil {
		return DeliveryRequest{}, fmt.Errorf("decoding delivery request: %w", err)
	}
	if r.To == "" {
		return DeliveryRequest{}, fmt.Errorf("delivery request has no recipient")
	}
	return r, nil
}
