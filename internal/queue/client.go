package queue

import "context"

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// Delivery is one received message awaiting acknowledgement.
type Delivery struct {
	MessageID     string
	ReceiptHandle string
	Body          string
	ReceiveCount  int
}

// Receiver long-polls a queue and acknowledges processed deliveries.
type Receiver interface {
	Receive(ctx context.Context) ([]Delivery, error)
	Delete(ctx context.Context, receiptHandle string) error
}
