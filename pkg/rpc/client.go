package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const HeaderSource = "x-trpc-source"

type ClientConfig struct {
	// URL is the transport mount point, e.g. http://localhost:8080/trpc.
	URL string
	// Source is sent as x-trpc-source ("server" or "client").
	Source     string
	HTTPClient *http.Client
	// Headers returns request headers to forward, such as the caller's cookie.
	Headers func(ctx context.Context) http.Header
}

// Client calls a Router over HTTP using the batch transport.
type Client struct {
	baseURL    string
	source     string
	httpClient *http.Client
	headers    func(ctx context.Context) http.Header
}

func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		source:     cfg.Source,
		httpClient: httpClient,
		headers:    cfg.Headers,
	}
}

// Call is one entry of a batch. Out receives the decoded result; Err is set
// when that procedure failed.
type Call struct {
	Path  string
	Input any
	Out   any
	Err   error
}

func (c *Client) Query(ctx context.Context, path string, input, out any) error {
	call := &Call{Path: path, Input: input, Out: out}
	if err := c.Batch(ctx, call); err != nil {
		return err
	}
	return call.Err
}

// Batch sends every call in one request. The returned error reports transport
// failures only; per-procedure failures land in each Call.Err.
func (c *Client) Batch(ctx context.Context, calls ...*Call) error {
	if len(calls) == 0 {
		return nil
	}

	paths := make([]string, len(calls))
	inputs := make(map[string]Payload, len(calls))
	for i, call := range calls {
		paths[i] = call.Path
		p, err := Encode(call.Input)
		if err != nil {
			return fmt.Errorf("encode input for %s: %w", call.Path, err)
		}
		inputs[strconv.Itoa(i)] = p
	}
	rawInput, err := json.Marshal(inputs)
	if err != nil {
		return fmt.Errorf("encode batch input: %w", err)
	}

	q := url.Values{}
	q.Set("batch", "1")
	q.Set("input", string(rawInput))
	endpoint := c.baseURL + "/" + strings.Join(paths, ",") + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build rpc request: %w", err)
	}
	if c.headers != nil {
		for k, vs := range c.headers(ctx) {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
	}
	if c.source != "" {
		req.Header.Set(HeaderSource, c.source)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rpc request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read rpc response: %w", err)
	}

	var envs []resultEnvelope
	if err := json.Unmarshal(body, &envs); err != nil {
		return fmt.Errorf("decode rpc response (status %d): %w", resp.StatusCode, err)
	}
	if len(envs) != len(calls) {
		return fmt.Errorf("rpc response has %d results for %d calls", len(envs), len(calls))
	}

	for i, env := range envs {
		calls[i].Err = decodeEnvelope(env, calls[i].Out)
	}
	return nil
}

func decodeEnvelope(env resultEnvelope, out any) error {
	if env.Error != nil {
		var shape errorShape
		if err := json.Unmarshal(env.Error.JSON, &shape); err != nil {
			return fmt.Errorf("decode rpc error: %w", err)
		}
		code := shape.Data.Code
		if code == "" {
			code = codeFromJSONRPC(shape.Code)
		}
		return &Error{Code: code, Message: shape.Message}
	}
	if env.Result == nil {
		return fmt.Errorf("rpc response has neither result nor error")
	}
	return Decode(env.Result.Data, out)
}
