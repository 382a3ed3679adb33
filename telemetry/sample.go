/*
The telemetry package turns raw controller payloads into joint-state samples
and hands the freshest one to the consumer. Its parser is deliberately
lenient: for a soft-real-time visualization consumer, partial telemetry beats
no telemetry, so a missing joint field defaults to zero and a malformed
payload costs us one message, never the stream.
*/
package telemetry

import (
	"time"
)

const JointCount = 6

// Sample is one joint-state reading. Immutable once constructed; the relay
// hands out copies, never shared pointers.
type Sample struct {
	// Joint angles in degrees, axis 1 through 6
	JointAngles [JointCount]float64

	CapturedAt time.Time
}
