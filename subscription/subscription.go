/*
The subscription package registers server-side subscriptions so the controller
will push resource changes over the event socket. Controller firmware revisions
expose the same logical resource under different paths, so creation probes an
ordered candidate list and takes the first path the server accepts. Deletion is
fire-and-forget: teardown failures are logged and swallowed because they must
never block shutdown.
*/
package subscription

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/LuxL-lux/ABB-Unity-App-sub000/auth"
	"github.com/LuxL-lux/ABB-Unity-App-sub000/httpclient"
	"github.com/LuxL-lux/ABB-Unity-App-sub000/logger"
)

const subscriptionEndpoint = "/subscription"

// Resource is one logical controller resource we want pushed over the socket.
// The candidate paths are configuration, not constants: the accepted spelling
// depends on the controller's firmware revision.
type Resource struct {
	Name           string
	CandidatePaths []string
	Priority       int
}

type Manager struct {
	logger  *logger.Logger
	session *auth.Session
	timeout time.Duration
}

func NewManager(logger *logger.Logger, session *auth.Session, timeout time.Duration) *Manager {
	return &Manager{
		logger:  logger,
		session: session,
		timeout: timeout,
	}
}

// Create probes the resource's candidate paths in order and returns the id the
// server assigned to the first accepted one. An empty id means every candidate
// was rejected; the caller decides whether that is fatal.
func (m *Manager) Create(ctx context.Context, resource Resource) string {
	for _, candidate := range resource.CandidatePaths {
		id, err := m.create(ctx, candidate, resource.Priority)
		if err != nil {
			m.logger.Debugf("Subscription candidate %s rejected: %s", candidate, err)
			continue
		}

		m.logger.Infof("Subscribed to %s via %s with id %s", resource.Name, candidate, id)
		return id
	}

	m.logger.Errorf("every subscription candidate for %s was rejected", resource.Name)
	return ""
}

func (m *Manager) create(ctx context.Context, resourcePath string, priority int) (string, error) {
	form := url.Values{}
	form.Set("resources", "1")
	form.Set("1", resourcePath)
	form.Set("1-p", strconv.Itoa(priority))

	client, err := httpclient.New(m.logger, m.session.Client(), m.session.BaseUrl(), httpclient.HTTPOptions{
		Endpoint: subscriptionEndpoint,
		Body:     strings.NewReader(form.Encode()),
		Headers: http.Header{
			"Content-Type": {"application/x-www-form-urlencoded"},
		},
		Timeout: m.timeout,
	})
	if err != nil {
		return "", err
	}

	response, err := client.Post(ctx)
	if response != nil {
		// A rejected candidate still carries a body
		defer response.Body.Close()
	}
	if err != nil {
		return "", err
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read subscription response: %w", err)
	}

	id, err := parseSubscriptionId(body)
	if err != nil {
		return "", fmt.Errorf("accepted but no parsable subscription id: %w", err)
	}

	return id, nil
}

// Delete tears down a subscription. Errors are logged, never returned: a
// failed delete must not stand in the way of shutdown.
func (m *Manager) Delete(ctx context.Context, id string) {
	if id == "" {
		return
	}

	client, err := httpclient.New(m.logger, m.session.Client(), m.session.BaseUrl(), httpclient.HTTPOptions{
		Endpoint: subscriptionEndpoint + "/" + id,
		Timeout:  m.timeout,
	})
	if err != nil {
		m.logger.Errorf("failed to build subscription delete request: %s", err)
		return
	}

	response, err := client.Delete(ctx)
	if response != nil {
		response.Body.Close()
	}
	if err != nil {
		m.logger.Errorf("failed to delete subscription %s: %s", id, err)
		return
	}

	m.logger.Infof("Deleted subscription %s", id)
}
