package connection

import (
	"strings"
	"time"
)

const (
	minPollingInterval     = 10 * time.Millisecond
	defaultPollingInterval = 100 * time.Millisecond
	defaultRequestTimeout  = 5 * time.Second

	// Placeholders expanded at connect time
	taskPlaceholder         = "{task}"
	subscriptionPlaceholder = "{subscription}"
)

// Options tunes one connection attempt. The candidate path lists are
// configuration on purpose: which spelling a controller accepts depends on
// its firmware revision, and the right list was found by trial against real
// cabinets. The defaults cover the revisions we have run against.
type Options struct {
	// Interval between poll request starts in polling mode; floored at 10ms
	PollingInterval time.Duration

	// Try the event socket before falling back to polling
	PreferSocket bool

	// Per-request timeout for authentication, subscription, socket handshake
	// and poll requests
	RequestTimeout time.Duration

	// Candidate resource paths for the joint-target subscription, probed in
	// order; {task} expands to the endpoint's mechanical unit
	ResourcePaths []string

	// Candidate socket endpoint paths, probed in order; {subscription}
	// expands to the server-assigned subscription id
	SocketEndpoints []string

	// Resource fetched each interval in polling mode
	PollingPath string

	// Subscription priority reported to the controller
	Priority int
}

func DefaultOptions() Options {
	return Options{
		PollingInterval: defaultPollingInterval,
		PreferSocket:    true,
		RequestTimeout:  defaultRequestTimeout,
		ResourcePaths: []string{
			"/rw/motionsystem/mechunits/{task}/jointtarget",
			"/rw/motionsystem/mechunits/{task}/jointtarget;state",
			"/rw/rapid/tasks/{task}/motion",
		},
		SocketEndpoints: []string{
			"/poll",
			"/poll/{subscription}",
			"/subscription/{subscription}/poll",
		},
		PollingPath: "/rw/motionsystem/mechunits/{task}/jointtarget",
		Priority:    1,
	}
}

// withDefaults fills in anything the caller left zeroed and enforces floors
func (o Options) withDefaults() Options {
	defaults := DefaultOptions()

	if o.PollingInterval == 0 {
		o.PollingInterval = defaults.PollingInterval
	}
	if o.PollingInterval < minPollingInterval {
		o.PollingInterval = minPollingInterval
	}
	if o.RequestTimeout == 0 {
		o.RequestTimeout = defaults.RequestTimeout
	}
	if len(o.ResourcePaths) == 0 {
		o.ResourcePaths = defaults.ResourcePaths
	}
	if len(o.SocketEndpoints) == 0 {
		o.SocketEndpoints = defaults.SocketEndpoints
	}
	if o.PollingPath == "" {
		o.PollingPath = defaults.PollingPath
	}
	if o.Priority == 0 {
		o.Priority = defaults.Priority
	}

	return o
}

func expandTask(path string, task string) string {
	return strings.ReplaceAll(path, taskPlaceholder, task)
}

func expandSubscription(path string, subscriptionId string) string {
	return strings.ReplaceAll(path, subscriptionPlaceholder, subscriptionId)
}
