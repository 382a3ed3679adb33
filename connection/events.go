package connection

import (
	"github.com/LuxL-lux/ABB-Unity-App-sub000/telemetry"
	"github.com/LuxL-lux/ABB-Unity-App-sub000/transport"
)

// Callbacks is how the host observes the client. All callbacks are optional
// and fire synchronously from the client's goroutines; hosts that need to do
// real work should hand off to their own scheduling.
type Callbacks struct {
	OnConnected    func(mode transport.Mode)
	OnDisconnected func(reason string)
	OnError        func(message string)
	OnSample       func(sample telemetry.Sample)
}

func (c Callbacks) fireConnected(mode transport.Mode) {
	if c.OnConnected != nil {
		c.OnConnected(mode)
	}
}

func (c Callbacks) fireDisconnected(reason string) {
	if c.OnDisconnected != nil {
		c.OnDisconnected(reason)
	}
}

func (c Callbacks) fireError(message string) {
	if c.OnError != nil {
		c.OnError(message)
	}
}

func (c Callbacks) fireSample(sample telemetry.Sample) {
	if c.OnSample != nil {
		c.OnSample(sample)
	}
}
