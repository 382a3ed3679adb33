package connection

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/LuxL-lux/ABB-Unity-App-sub000/auth"
	"github.com/LuxL-lux/ABB-Unity-App-sub000/logger"
	"github.com/LuxL-lux/ABB-Unity-App-sub000/subscription"
	"github.com/LuxL-lux/ABB-Unity-App-sub000/transport"
)

// negotiate picks the transport for this attempt: the event socket when it is
// preferred and can be established, otherwise fixed-interval polling. The
// decision is final for the attempt's lifetime: a transport that dies later
// ends the attempt rather than re-negotiating.
//
// Returns the active transporter, its mode, and the subscription id when one
// is attached (socket mode only).
func (c *Client) negotiate(
	ctx context.Context,
	attemptLogger *logger.Logger,
	session *auth.Session,
	manager *subscription.Manager,
	endpoint auth.Endpoint,
	opts Options,
) (transport.Transporter, transport.Mode, string, error) {

	if opts.PreferSocket {
		if transporter, subscriptionId, ok := c.attemptSocket(ctx, attemptLogger, session, manager, endpoint, opts); ok {
			return transporter, transport.ModeSocket, subscriptionId, nil
		}
		attemptLogger.Infof("Event socket unavailable, falling back to polling")
	}

	transporter, err := c.attemptPolling(ctx, attemptLogger, session, endpoint, opts)
	if err != nil {
		return nil, transport.ModeUnset, "", &TransportError{Reason: err.Error()}
	}

	return transporter, transport.ModePolling, "", nil
}

// attemptSocket creates the joint-target subscription and then walks the
// candidate socket endpoints in order. Each candidate gets a fresh transporter
// because a websocket object is not reusable after a failed handshake. The
// subscription is torn down again when no candidate reaches the open state.
func (c *Client) attemptSocket(
	ctx context.Context,
	attemptLogger *logger.Logger,
	session *auth.Session,
	manager *subscription.Manager,
	endpoint auth.Endpoint,
	opts Options,
) (transport.Transporter, string, bool) {

	resource := subscription.Resource{
		Name:           "joint-target",
		CandidatePaths: expandTaskPaths(opts.ResourcePaths, endpoint.Task),
		Priority:       opts.Priority,
	}

	subscriptionId := manager.Create(ctx, resource)
	if subscriptionId == "" {
		// Not fatal on its own: subscriptions are only needed for the socket
		subErr := &SubscriptionError{Resource: resource.Name}
		attemptLogger.Errorf("%s", subErr)
		return nil, "", false
	}

	for _, candidate := range opts.SocketEndpoints {
		socketUrl, err := url.Parse(session.BaseUrl())
		if err != nil {
			attemptLogger.Errorf("invalid base url %s: %s", session.BaseUrl(), err)
			break
		}
		socketUrl.Path = path.Join(socketUrl.Path, expandSubscription(candidate, subscriptionId))

		// Cookies are path-scoped, so the jar must be asked about the actual
		// upgrade url, not the bare base
		headers := sessionCookieHeader(session, socketUrl)

		// One transporter per candidate attempt, constructed fresh
		transporter := c.socketFactory(attemptLogger.GetComponentLogger("Websocket"))

		if err := transporter.Dial(socketUrl, headers, ctx); err != nil {
			attemptLogger.Infof("Socket candidate %s failed handshake: %s", candidate, err)
			continue
		}

		attemptLogger.Infof("Event socket established via %s", candidate)
		return transporter, subscriptionId, true
	}

	// No candidate reached the open state; the subscription is useless
	// without a socket attached
	manager.Delete(ctx, subscriptionId)
	return nil, "", false
}

func (c *Client) attemptPolling(
	ctx context.Context,
	attemptLogger *logger.Logger,
	session *auth.Session,
	endpoint auth.Endpoint,
	opts Options,
) (transport.Transporter, error) {

	pollUrl, err := url.Parse(session.BaseUrl())
	if err != nil {
		return nil, err
	}
	pollUrl.Path = path.Join(pollUrl.Path, expandTask(opts.PollingPath, endpoint.Task))

	// JSON response hint so the controller skips the xhtml rendering
	params := url.Values{}
	params.Set("json", "1")
	pollUrl.RawQuery = params.Encode()

	transporter := c.pollerFactory(
		attemptLogger.GetComponentLogger("Polling"),
		session.Client(),
		opts.PollingInterval,
		opts.RequestTimeout,
		c.tracker,
	)

	if err := transporter.Dial(pollUrl, http.Header{}, ctx); err != nil {
		return nil, err
	}

	attemptLogger.Infof("Polling transport established with interval %s", opts.PollingInterval)
	return transporter, nil
}

func expandTaskPaths(paths []string, task string) []string {
	expanded := make([]string, 0, len(paths))
	for _, p := range paths {
		expanded = append(expanded, expandTask(p, task))
	}
	return expanded
}

// Websocket libraries do not consult cookie jars, so the session cookies are
// placed on the upgrade request by hand. The jar is queried with the upgrade
// url itself: a handshake cookie scoped to a sub-path would be invisible at
// the bare base url.
func sessionCookieHeader(session *auth.Session, socketUrl *url.URL) http.Header {
	headers := http.Header{}

	cookies := session.Cookies(socketUrl)
	if len(cookies) == 0 {
		return headers
	}

	pairs := make([]string, 0, len(cookies))
	for _, cookie := range cookies {
		pairs = append(pairs, cookie.String())
	}
	headers.Set("Cookie", strings.Join(pairs, "; "))

	return headers
}
