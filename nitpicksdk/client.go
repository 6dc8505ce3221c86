// Package nitpicksdk is the typed HTTP client for the nitpickd API.
package nitpicksdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/xerrors"
)

// SessionTokenHeader is the custom header to use for authentication.
const SessionTokenHeader = "Nitpick-Session-Token"

// New creates a client for the nitpickd API at the given URL.
func New(serverURL *url.URL) *Client {
	return &Client{
		URL:        serverURL,
		HTTPClient: &http.Client{},
	}
}

// Client is an HTTP caller for methods of the nitpickd API.
type Client struct {
	mu           sync.RWMutex
	sessionToken string

	HTTPClient *http.Client
	URL        *url.URL
}

// SessionToken returns the currently set token for the client.
func (c *Client) SessionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionToken
}

// SetSessionToken sets the session token for subsequent requests.
func (c *Client) SetSessionToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionToken = token
}

// RequestOption is a function that modifies an HTTP request.
type RequestOption func(*http.Request)

// WithQueryParam adds a query parameter to the request.
func WithQueryParam(key, value string) RequestOption {
	return func(r *http.Request) {
		if value == "" {
			return
		}
		q := r.URL.Query()
		q.Add(key, value)
		r.URL.RawQuery = q.Encode()
	}
}

// Request performs a HTTP request against the API. The response body must
// be closed by the caller.
func (c *Client) Request(ctx context.Context, method, path string, body interface{}, opts ...RequestOption) (*http.Response, error) {
	serverURL, err := c.URL.Parse(path)
	if err != nil {
		return nil, xerrors.Errorf("parse url: %w", err)
	}

	var r io.Reader
	if body != nil {
		switch data := body.(type) {
		case io.Reader:
			r = data
		case []byte:
			r = bytes.NewReader(data)
		default:
			buf, err := json.Marshal(body)
			if err != nil {
				return nil, xerrors.Errorf("marshal request body: %w", err)
			}
			r = bytes.NewReader(buf)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, serverURL.String(), r)
	if err != nil {
		return nil, xerrors.Errorf("create request: %w", err)
	}
	if token := c.SessionToken(); token != "" {
		req.Header.Set(SessionTokenHeader, token)
	}
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, xerrors.Errorf("do request: %w", err)
	}
	return resp, nil
}

// Response represents a generic HTTP response.
type Response struct {
	// Message is an actionable message that depicts actions the request took.
	// It should be human-readable.
	Message string `json:"message"`
	// Detail is a debug message that provides further insight into why the
	// action failed.
	Detail string `json:"detail,omitempty"`
	// Validations are form field-specific friendly error messages.
	Validations []ValidationError `json:"validations,omitempty"`
}

// ValidationError represents a scoped error to a user input.
type ValidationError struct {
	Field  string `json:"field"`
	Detail string `json:"detail"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("field: %s detail: %s", e.Field, e.Detail)
}

// Error represents an unaccepted or invalid request to the API.
type Error struct {
	Response

	statusCode int
	method     string
	url        string
}

func (e *Error) StatusCode() int {
	return e.statusCode
}

func (e *Error) Error() string {
	var builder strings.Builder
	if e.method != "" && e.url != "" {
		_, _ = fmt.Fprintf(&builder, "%v %v: ", e.method, e.url)
	}
	_, _ = fmt.Fprintf(&builder, "unexpected status code %d: %s", e.statusCode, e.Message)
	if e.Detail != "" {
		_, _ = fmt.Fprintf(&builder, "\n\tError: %s", e.Detail)
	}
	for _, err := range e.Validations {
		_, _ = fmt.Fprintf(&builder, "\n\t%s: %s", err.Field, err.Detail)
	}
	return builder.String()
}

// ReadBodyAsError reads the response as a Response, wrapping it in an Error
// that surfaces the status code.
func ReadBodyAsError(res *http.Response) error {
	var method, u string
	if res.Request != nil {
		method = res.Request.Method
		if res.Request.URL != nil {
			u = res.Request.URL.String()
		}
	}

	var apiError Response
	err := json.NewDecoder(res.Body).Decode(&apiError)
	if err != nil {
		return &Error{
			statusCode: res.StatusCode,
			method:     method,
			url:        u,
			Response: Response{
				Message: "unexpected non-JSON response",
			},
		}
	}

	return &Error{
		Response:   apiError,
		statusCode: res.StatusCode,
		method:     method,
		url:        u,
	}
}

// AsError unwraps err as an *Error if possible. Convenient for tests that
// assert on status codes.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if !xerrors.As(err, &apiErr) {
		return nil, false
	}
	return apiErr, true
}
