/*
The connection package is the lifecycle owner for one controller link: it
authenticates, negotiates a transport, runs the acquisition loop, and tears
everything down. It is the only surface the host talks to.

States move Disconnected -> Connecting -> Connected and always exit through
Stopping -> Disconnected so cleanup runs exactly once, whether the attempt
ended by Stop(), by error, or by the peer hanging up. The core never retries
on its own; a host that wants reconnection calls Start again.
*/
package connection

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/tomb.v2"

	"github.com/LuxL-lux/ABB-Unity-App-sub000/auth"
	"github.com/LuxL-lux/ABB-Unity-App-sub000/logger"
	"github.com/LuxL-lux/ABB-Unity-App-sub000/subscription"
	"github.com/LuxL-lux/ABB-Unity-App-sub000/telemetry"
	"github.com/LuxL-lux/ABB-Unity-App-sub000/transport"
	"github.com/LuxL-lux/ABB-Unity-App-sub000/transport/polling"
	"github.com/LuxL-lux/ABB-Unity-App-sub000/transport/websocket"
)

type Status struct {
	State    State              `json:"state"`
	Mode     transport.Mode     `json:"transport"`
	Counters telemetry.Snapshot `json:"counters"`
}

type Client struct {
	logger    *logger.Logger
	callbacks Callbacks

	relay   *telemetry.Relay
	tracker *telemetry.Tracker

	mu    sync.Mutex
	state State
	mode  transport.Mode
	tmb   *tomb.Tomb

	// Seams for tests; production wiring in New
	socketFactory func(logger *logger.Logger) transport.Transporter
	pollerFactory func(logger *logger.Logger, client *http.Client, interval time.Duration, timeout time.Duration, observer polling.Observer) transport.Transporter
	authenticate  func(ctx context.Context, logger *logger.Logger, endpoint auth.Endpoint, credentials auth.Credentials, timeout time.Duration) (*auth.Session, error)
}

func New(logger *logger.Logger, callbacks Callbacks) *Client {
	return &Client{
		logger:        logger,
		callbacks:     callbacks,
		relay:         telemetry.NewRelay(),
		tracker:       telemetry.NewTracker(),
		state:         Disconnected,
		socketFactory: websocket.New,
		pollerFactory: polling.New,
		authenticate:  auth.Authenticate,
	}
}

// Start begins one connection attempt in the background. Calling it while
// already connecting or connected is a no-op.
func (c *Client) Start(endpoint auth.Endpoint, credentials auth.Credentials, opts Options) error {
	c.mu.Lock()

	switch c.state {
	case Connecting, Connected:
		c.mu.Unlock()
		c.logger.Infof("Start called while %s; ignoring", c.state)
		return nil
	case Error, Stopping:
		// The failing attempt's teardown is still in flight; a new attempt now
		// would see its Connecting state stomped by the old epilogue
		c.mu.Unlock()
		return fmt.Errorf("cannot start while the previous attempt is stopping")
	}

	c.state = Connecting
	c.mode = transport.ModeUnset
	c.relay.Reset()
	c.tracker.Reset()

	attemptTomb := &tomb.Tomb{}
	c.tmb = attemptTomb
	c.mu.Unlock()

	opts = opts.withDefaults()
	attemptLogger := c.logger.AddField("attempt", uuid.New().String())

	attemptTomb.Go(func() error {
		return c.run(attemptTomb, attemptLogger, endpoint, credentials, opts)
	})

	return nil
}

// Stop requests a graceful shutdown and blocks until the state machine has
// reached Disconnected. Safe to call from any state.
func (c *Client) Stop() {
	c.mu.Lock()
	attemptTomb := c.tmb
	state := c.state
	c.mu.Unlock()

	if attemptTomb == nil || state == Disconnected {
		return
	}

	attemptTomb.Kill(nil)
	attemptTomb.Wait()
}

// LatestSample is the non-blocking read of the freshest joint state; false
// until the first sample of the current attempt has been acquired
func (c *Client) LatestSample() (telemetry.Sample, bool) {
	return c.relay.Latest()
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) Mode() transport.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Client) Status() Status {
	c.mu.Lock()
	state := c.state
	mode := c.mode
	c.mu.Unlock()

	return Status{
		State:    state,
		Mode:     mode,
		Counters: c.tracker.Snapshot(),
	}
}

// run is one complete connection attempt: authenticate, negotiate, acquire,
// clean up. It is the only writer of lifecycle transitions past Connecting.
func (c *Client) run(attemptTomb *tomb.Tomb, attemptLogger *logger.Logger, endpoint auth.Endpoint, credentials auth.Credentials, opts Options) error {
	// Tie a context to the attempt's tomb so Stop unblocks in-flight I/O
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-ctx.Done():
		case <-attemptTomb.Dying():
			cancel()
		}
	}()

	var (
		manager        *subscription.Manager
		subscriptionId string
		transporter    transport.Transporter
		attemptErr     error
	)

	// Cleanup is unconditional on attempt termination: no error path may
	// leak the subscription or the transport
	defer func() {
		if attemptErr != nil {
			c.setState(Error)
			c.callbacks.fireError(attemptErr.Error())
		}

		c.setState(Stopping)

		// The attempt context is already cancelled by now, so teardown
		// requests get their own short deadline
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), opts.RequestTimeout)
		defer cleanupCancel()

		if manager != nil && subscriptionId != "" {
			manager.Delete(cleanupCtx, subscriptionId)
		}
		if transporter != nil {
			transporter.Close(fmt.Errorf("connection attempt ended"))
		}

		c.setState(Disconnected)

		reason := "stop requested"
		if attemptErr != nil {
			reason = attemptErr.Error()
		}
		c.callbacks.fireDisconnected(reason)
	}()

	session, err := c.authenticate(ctx, attemptLogger.GetComponentLogger("Auth"), endpoint, credentials, opts.RequestTimeout)
	if err != nil {
		attemptErr = err
		return nil
	}

	manager = subscription.NewManager(attemptLogger.GetComponentLogger("Subscription"), session, opts.RequestTimeout)

	transporter, mode, subId, err := c.negotiate(ctx, attemptLogger, session, manager, endpoint, opts)
	if err != nil {
		attemptErr = err
		return nil
	}
	subscriptionId = subId
	c.setMode(mode)

	// Socket payloads must carry our subscription id; polled bodies have no
	// subscription envelope to check
	expectedSubscription := ""
	if mode == transport.ModeSocket {
		expectedSubscription = subscriptionId
	}

	for {
		select {
		case <-attemptTomb.Dying():
			return nil

		case <-transporter.Done():
			reason := "transport closed"
			if err := transporter.Err(); err != nil && err != tomb.ErrDying {
				reason = err.Error()
			}
			attemptErr = &TransportError{Reason: reason}
			return nil

		case raw := <-transporter.Inbound():
			if mode == transport.ModeSocket {
				// The poller counts its own request attempts
				c.tracker.ObserveAttempt()
			}

			sample, err := telemetry.Parse(*raw, expectedSubscription)
			if err != nil {
				// Per-message failures cost one message, never the stream
				attemptLogger.Debugf("dropping payload: %s", err)
				continue
			}

			c.tracker.ObserveSuccess()

			// The first acquired sample is what completes the transition
			// to Connected; nothing is published before that
			if c.State() != Connected {
				c.setState(Connected)
				c.callbacks.fireConnected(mode)
			}

			c.relay.Publish(sample)
			c.callbacks.fireSample(sample)
		}
	}
}

func (c *Client) setState(next State) {
	c.mu.Lock()
	prev := c.state
	c.state = next
	c.mu.Unlock()

	if prev != next {
		c.logger.Infof("Connection state %s -> %s", prev, next)
	}
}

func (c *Client) setMode(mode transport.Mode) {
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
}
