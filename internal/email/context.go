package email

import (
	"context"
	"time"
)

// DefaultSendTimeout bounds a single delivery attempt.
const DefaultSendTimeout = 10 * time.Second

func newEmailContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	// Detach cancellation so a client disconnect doesn't abort a send in flight.
	parent = context.WithoutCancel(parent)
	return context.WithTimeout(parent, timeout)
}

// SendDetached sends msg on a context that ignores parent cancellation but
// keeps its values and applies timeout.
func SendDetached(parent context.Context, sender EmailSender, msg Message, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	ctx, cancel := newEmailContext(parent, timeout)
	defer cancel()
	return sender.Send(ctx, msg)
}
