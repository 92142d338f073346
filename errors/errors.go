package errors

import "fmt"

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrPublisherNotReady  = fmt.Errorf("action publisher not ready")
	ErrPublishFailed      = fmt.Errorf("failed to publish action")
	ErrInvalidAction      = fmt.Errorf("invalid client action")
	ErrDecode             = fmt.Errorf("failed to decode delivery")
	ErrUnknownEventType   = fmt.Errorf("unknown event type")
	ErrSubscriptionClosed = fmt.Errorf("subscription closed")
	ErrSessionClosed      = fmt.Errorf("session closed")
)
