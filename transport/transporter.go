/*
The transport package defines the surface the acquisition loop reads telemetry
through. Exactly one transporter is active per connection attempt: either the
event-driven websocket stream or the fixed-interval poller. Both feed raw
payload bytes into Inbound and report their demise through Done/Err, which is
what lets the connection loop stay transport-agnostic.
*/
package transport

import (
	"context"
	"net/http"
	"net/url"
)

type Transporter interface {
	Done() <-chan struct{}
	Err() error
	Inbound() <-chan *[]byte
	Dial(connUrl *url.URL, headers http.Header, ctx context.Context) (err error)
	Close(reason error)
}

// Mode identifies which transport won negotiation for a connection attempt
type Mode string

const (
	ModeUnset   Mode = ""
	ModeSocket  Mode = "socket"
	ModePolling Mode = "polling"
)
