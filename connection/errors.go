package connection

import "fmt"

// SubscriptionError means every candidate resource path was rejected. On its
// own this is not fatal: subscriptions are only required for socket mode, so
// the negotiator falls back to polling.
type SubscriptionError struct {
	Resource string
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("all subscription candidates rejected for resource %s", e.Resource)
}

func (e *SubscriptionError) Unwrap() error { return nil }

// TransportError means neither the socket nor the polling path could even
// start, or an established transport died. Fatal to the current attempt.
type TransportError struct {
	Reason string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %s", e.Reason)
}

func (e *TransportError) Unwrap() error { return nil }
