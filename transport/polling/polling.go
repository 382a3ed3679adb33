/*
The polling package is the fallback transport: when no event socket can be
established we fetch the joint-target resource on a fixed interval over plain
HTTP. Each response body goes up the same Inbound channel the socket would
feed, so the acquisition loop cannot tell the difference.

The cadence is start-to-start: sleep time is interval minus the time the
request took, floored at zero, so jitter from slow requests does not compound.
*/
package polling

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"gopkg.in/tomb.v2"

	"github.com/LuxL-lux/ABB-Unity-App-sub000/logger"
	"github.com/LuxL-lux/ABB-Unity-App-sub000/transport"
)

const (
	// Extra sleep after a failed request so a dead controller doesn't spin us
	// into a tight error loop
	errorGuardDelay = 500 * time.Millisecond

	// Consecutive failures after which we declare the transport dead
	failureThreshold = 5
)

// Observer is notified of every request attempt, successful or not. It feeds
// the connection's performance counters.
type Observer interface {
	ObserveAttempt()
}

type Poller struct {
	tmb    tomb.Tomb
	logger *logger.Logger

	// The session's http client; carries cookies and the digest transport
	client *http.Client

	interval time.Duration
	timeout  time.Duration
	observer Observer

	targetUrl string
	inbound   chan *[]byte
}

func New(logger *logger.Logger, client *http.Client, interval time.Duration, timeout time.Duration, observer Observer) transport.Transporter {
	return &Poller{
		logger:   logger,
		client:   client,
		interval: interval,
		timeout:  timeout,
		observer: observer,
		inbound:  make(chan *[]byte, 200),
	}
}

func (p *Poller) Close(reason error) {
	if p.tmb.Alive() {
		p.logger.Infof("Polling stopped because: %s", reason)
		p.tmb.Kill(reason)
		p.tmb.Wait()
	} else {
		p.logger.Infof("Close was called while in a dying state")
	}
}

func (p *Poller) Done() <-chan struct{} {
	return p.tmb.Dead()
}

func (p *Poller) Err() error {
	return p.tmb.Err()
}

func (p *Poller) Inbound() <-chan *[]byte {
	return p.inbound
}

// Dial validates the polling endpoint with one immediate request and then
// starts the interval loop. A failed first request means polling cannot even
// start, which the negotiator treats as total transport exhaustion.
func (p *Poller) Dial(connUrl *url.URL, headers http.Header, ctx context.Context) error {
	p.targetUrl = connUrl.String()

	body, err := p.fetch(ctx)
	if err != nil {
		return fmt.Errorf("polling endpoint unreachable: %w", err)
	}
	p.inbound <- &body

	// Reinitialize in case this is post death
	p.tmb = tomb.Tomb{}

	p.tmb.Go(p.loop)

	return nil
}

func (p *Poller) loop() error {
	defer p.logger.Infof("Polling loop exited")
	p.logger.Infof("Polling loop started with interval %s", p.interval)

	consecutiveFailures := 0

	for {
		started := time.Now()

		body, err := p.fetch(context.Background())
		if err != nil {
			consecutiveFailures++
			p.logger.Errorf("poll request failed (%d in a row): %s", consecutiveFailures, err)

			if consecutiveFailures >= failureThreshold {
				return fmt.Errorf("polling failed %d consecutive times: %w", consecutiveFailures, err)
			}

			if !p.sleep(p.remaining(started) + errorGuardDelay) {
				return nil
			}
			continue
		}

		consecutiveFailures = 0

		select {
		case p.inbound <- &body:
		case <-p.tmb.Dying():
			return nil
		}

		if !p.sleep(p.remaining(started)) {
			return nil
		}
	}
}

// remaining computes how long to sleep so that request starts are one interval
// apart; a request slower than the interval means we go again immediately
func (p *Poller) remaining(started time.Time) time.Duration {
	elapsed := time.Since(started)
	if elapsed >= p.interval {
		return 0
	}
	return p.interval - elapsed
}

// sleep waits for the given duration but wakes promptly when the poller is
// being killed; it reports whether we should keep looping
func (p *Poller) sleep(d time.Duration) bool {
	if d <= 0 {
		select {
		case <-p.tmb.Dying():
			return false
		default:
			return true
		}
	}

	select {
	case <-time.After(d):
		return true
	case <-p.tmb.Dying():
		return false
	}
}

func (p *Poller) fetch(ctx context.Context) ([]byte, error) {
	if p.observer != nil {
		p.observer.ObserveAttempt()
	}

	requestCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(requestCtx, http.MethodGet, p.targetUrl, nil)
	if err != nil {
		return nil, err
	}

	response, err := p.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("GET request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("GET request failed with status %s", response.Status)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read poll response: %w", err)
	}

	return body, nil
}
