package stream

import "context"

// Consumer pulls validate requests off a message stream and runs them
// through the guard. Implementations ack each message exactly once.
type Consumer interface {
	Setup(ctx context.Context) error
	Start(ctx context.Context) error
	Stop() error
}
