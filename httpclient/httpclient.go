package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/LuxL-lux/ABB-Unity-App-sub000/logger"
)

const defaultTimeout = 5 * time.Second

type HTTPOptions struct {
	Endpoint string
	Body     io.Reader
	Headers  http.Header
	Params   url.Values

	// Overrides the default per-request timeout when set
	Timeout time.Duration
}

type HttpClient struct {
	logger *logger.Logger

	// The underlying client carries the authenticated session's cookie jar
	// and digest round-tripper; we never build our own
	client *http.Client

	targetUrl string
	body      io.Reader
	headers   http.Header
	params    url.Values
	timeout   time.Duration
}

func New(
	logger *logger.Logger,
	client *http.Client,
	serviceUrl string,
	options HTTPOptions,
) (*HttpClient, error) {

	if options.Endpoint != "" {
		combo, err := url.ParseRequestURI(serviceUrl)
		if err != nil {
			return nil, err
		}
		combo.Path = path.Join(combo.Path, options.Endpoint)
		serviceUrl = combo.String()
	}

	if options.Headers == nil {
		options.Headers = http.Header{}
	}

	if options.Params == nil {
		options.Params = url.Values{}
	}

	if options.Timeout == 0 {
		options.Timeout = defaultTimeout
	}

	return &HttpClient{
		logger:    logger,
		client:    client,
		targetUrl: serviceUrl,
		body:      options.Body,
		headers:   options.Headers,
		params:    options.Params,
		timeout:   options.Timeout,
	}, nil
}

func (h *HttpClient) Get(ctx context.Context) (*http.Response, error) {
	return h.request(http.MethodGet, ctx)
}

func (h *HttpClient) Post(ctx context.Context) (*http.Response, error) {
	return h.request(http.MethodPost, ctx)
}

func (h *HttpClient) Delete(ctx context.Context) (*http.Response, error) {
	return h.request(http.MethodDelete, ctx)
}

func (h *HttpClient) request(method string, ctx context.Context) (*http.Response, error) {
	request, err := http.NewRequestWithContext(ctx, method, h.targetUrl, h.body)
	if err != nil {
		return nil, err
	}
	request.Header = h.headers.Clone()

	// Add params to request URL
	request.URL.RawQuery = h.params.Encode()

	// Shallow copy so the timeout applies per request while the jar and
	// digest transport stay shared with the session
	client := *h.client
	client.Timeout = h.timeout

	response, err := client.Do(request)
	if err != nil {
		return response, fmt.Errorf("%s request failed: %w", method, err)
	}

	// Check if request was successful
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return response, fmt.Errorf("%s request failed with status %s", method, response.Status)
	}

	return response, nil
}
