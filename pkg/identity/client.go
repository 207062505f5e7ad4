// Package identity drives the identity provider's Frontend API in
// native-client mode: sign-up, email verification, password sign-in and the
// OAuth redirect. Backend API calls go through the provider's Go SDK instead.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	FrontendAPIURL string
	HTTPClient     *http.Client
}

type Client struct {
	frontendURL string
	http        *http.Client
}

func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		frontendURL: strings.TrimRight(cfg.FrontendAPIURL, "/"),
		http:        httpClient,
	}
}

// APIError is the provider's error envelope.
type APIError struct {
	Status int          `json:"-"`
	Errors []ErrorEntry `json:"errors"`
}

type ErrorEntry struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	LongMessage string `json:"long_message"`
	Meta        struct {
		ParamName string `json:"param_name"`
	} `json:"meta"`
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("identity provider returned status %d", e.Status)
	}
	first := e.Errors[0]
	msg := first.LongMessage
	if msg == "" {
		msg = first.Message
	}
	return fmt.Sprintf("identity provider returned status %d: %s (%s)", e.Status, msg, first.Code)
}

// UserMessage is the first human-readable message, suitable for showing in a form.
func (e *APIError) UserMessage() string {
	for _, entry := range e.Errors {
		if entry.LongMessage != "" {
			return entry.LongMessage
		}
		if entry.Message != "" {
			return entry.Message
		}
	}
	return "Something went wrong. Please try again."
}

type request struct {
	method      string
	url         string
	form        url.Values
	clientToken string
}

type response struct {
	header http.Header
}

func (c *Client) do(ctx context.Context, r request, out any) (*response, error) {
	var body io.Reader
	if r.form != nil {
		body = strings.NewReader(r.form.Encode())
	}

	httpReq, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("build identity request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if r.form != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if r.clientToken != "" {
		httpReq.Header.Set("Authorization", r.clientToken)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("identity request %s %s: %w", r.method, httpReq.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return nil, apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("decode identity response: %w", err)
		}
	}
	return &response{header: resp.Header}, nil
}

// nativeURL targets the Frontend API in native-client mode, where the client
// token travels in the Authorization header instead of a browser cookie.
func (c *Client) nativeURL(path string) string {
	return c.frontendURL + path + "?_is_native=1"
}
