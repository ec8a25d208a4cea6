// Package ckan is a minimal client for the remote catalog's action API. It
// covers the show/create/update/patch actions the ingestion run needs and
// translates the API's "Not Found Error" responses into errors.ErrNotFound,
// which is the signal that drives create-instead-of-update branching.
package ckan

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/espaidedades/ingest/pkg/errors"
)

const (
	// DefaultTimeout bounds each catalog request.
	DefaultTimeout = 30 * time.Second

	// defaultRetryMax bounds retries of transient network failures.
	defaultRetryMax = 2

	notFoundType = "Not Found Error"
)

// Client talks to one CKAN instance.
type Client struct {
	baseURL string
	apiKey  string
	http    *retryablehttp.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.HTTPClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client. Used by tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http.HTTPClient = httpClient
	}
}

// New creates a client for the catalog at baseURL. The API key is applied to
// every request; pass "" for anonymous reads.
func New(baseURL, apiKey string, opts ...Option) *Client {
	retry := retryablehttp.NewClient()
	retry.RetryMax = defaultRetryMax
	retry.Logger = nil // request logging happens at the reconciler level
	retry.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	// Retry transport-level failures only. HTTP error statuses must reach
	// the caller intact: the not-found/other distinction drives the
	// create-vs-update decision.
	retry.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return err != nil, nil
	}

	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    retry,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// envelope is the CKAN action API response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   *fault          `json:"error"`
}

// fault is the error shape inside an unsuccessful envelope.
type fault struct {
	Type    string `json:"__type"`
	Message string `json:"message"`
}

// get performs a read action with an id query parameter.
func (c *Client) get(ctx context.Context, action, id string, result any) error {
	endpoint := c.actionURL(action) + "?id=" + url.QueryEscape(id)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.WrapResource("create", "request", action, err)
	}
	return c.do(req, action, result)
}

// post performs a mutating action with a JSON payload.
func (c *Client) post(ctx context.Context, action string, payload any, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.WrapResource("encode", "payload", action, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.actionURL(action), bytes.NewReader(body))
	if err != nil {
		return errors.WrapResource("create", "request", action, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, action, result)
}

func (c *Client) actionURL(action string) string {
	return c.baseURL + "/api/3/action/" + action
}

func (c *Client) do(req *retryablehttp.Request, action string, result any) error {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr == context.Canceled {
			return errors.ErrCanceled
		}
		return &errors.APIError{Action: action, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errors.APIError{Action: action, StatusCode: resp.StatusCode, Message: "reading response body", Err: err}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		// A non-JSON body still carries the HTTP status, which is enough
		// to distinguish not-found from everything else.
		return errors.NewAPIError(action, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if !env.Success {
		message := resp.Status
		statusCode := resp.StatusCode
		if env.Error != nil {
			message = env.Error.Message
			if env.Error.Type == notFoundType {
				statusCode = http.StatusNotFound
			}
		}
		return errors.NewAPIError(action, statusCode, message)
	}

	if result != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, result); err != nil {
			return &errors.APIError{Action: action, StatusCode: resp.StatusCode, Message: "decoding result", Err: err}
		}
	}
	return nil
}
