/*
The auth package owns the digest handshake against the controller and the
resulting session. A session is just an http.Client whose transport answers
digest challenges and whose cookie jar holds whatever the controller set
during the handshake. Every later request reuses that jar, the websocket
upgrade included, which is what keeps us authenticated.

Authentication is attempted exactly once per call; retry policy belongs to
whoever drives the connection lifecycle.
*/
package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/LuxL-lux/ABB-Unity-App-sub000/httpclient"
	"github.com/LuxL-lux/ABB-Unity-App-sub000/logger"
	"github.com/icholy/digest"
)

// Lightweight resource whose only job is to trigger the digest challenge
const systemInfoEndpoint = "/rw/system"

type Endpoint struct {
	Host string
	Port int

	// Mechanical unit / RAPID task whose joint state we monitor, e.g. ROB_1
	Task string
}

func (e Endpoint) BaseUrl() string {
	return fmt.Sprintf("http://%s:%d", e.Host, e.Port)
}

type Credentials struct {
	Username string
	Password string
}

// Session is the authenticated context for one connection attempt. The jar is
// read-only after Authenticate returns; nobody mutates cookies mid-attempt.
type Session struct {
	client        *http.Client
	baseUrl       string
	establishedAt time.Time
}

// Client returns the http client carrying the session's cookies and digest transport
func (s *Session) Client() *http.Client {
	return s.client
}

func (s *Session) BaseUrl() string {
	return s.baseUrl
}

func (s *Session) EstablishedAt() time.Time {
	return s.establishedAt
}

// Cookies returns a copy of the session cookies for the given url. The socket
// dialer needs these because websocket libraries do not consult cookie jars.
func (s *Session) Cookies(u *url.URL) []*http.Cookie {
	if s.client.Jar == nil {
		return nil
	}
	return s.client.Jar.Cookies(u)
}

type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthenticationError) Unwrap() error { return nil }

// Authenticate performs the challenge/response handshake against the
// controller's system-info resource and returns a reusable session.
func Authenticate(
	ctx context.Context,
	logger *logger.Logger,
	endpoint Endpoint,
	credentials Credentials,
	timeout time.Duration,
) (*Session, error) {

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	client := &http.Client{
		Jar: jar,
		Transport: &digest.Transport{
			Username: credentials.Username,
			Password: credentials.Password,
		},
	}

	probe, err := httpclient.New(logger, client, endpoint.BaseUrl(), httpclient.HTTPOptions{
		Endpoint: systemInfoEndpoint,
		Timeout:  timeout,
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("Authenticating against %s", endpoint.BaseUrl())

	response, err := probe.Get(ctx)
	if response != nil {
		defer response.Body.Close()
	}
	if err != nil {
		if response != nil && response.StatusCode == http.StatusUnauthorized {
			return nil, &AuthenticationError{Reason: "controller rejected credentials"}
		}
		return nil, &AuthenticationError{Reason: err.Error()}
	}

	// Drain so the connection can be reused
	io.Copy(io.Discard, response.Body)

	logger.Infof("Authentication successful")

	return &Session{
		client:        client,
		baseUrl:       endpoint.BaseUrl(),
		establishedAt: time.Now(),
	}, nil
}
