// internal/fetch/client.go
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client is the resilient HTTP primitive every provider adapter goes
// through: bounded retries with exponential backoff, typed failures, and
// JSON/JSON-RPC/GraphQL helpers on top of a single request path.
type Client struct {
	httpClient *http.Client
	policy     RetryPolicy
	logger     *zap.Logger
	sleep      func(context.Context, time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithRetryPolicy replaces the default retry envelope.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.policy = p }
}

// WithHTTPClient replaces the underlying transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a fetch client with the default retry policy.
func NewClient(logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		policy:     DefaultRetryPolicy(),
		logger:     logger.Named("fetch"),
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RequestOptions shapes a single request. A nil value means GET with the
// client's default retry policy.
type RequestOptions struct {
	Method  string
	Headers map[string]string
	Query   url.Values
	Body    []byte
	Retry   *RetryPolicy
}

// Response is the raw outcome of a successful request.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Do issues a request, retrying on network-class failures and retryable
// statuses per the policy. Non-retryable HTTP errors fail immediately with a
// *RequestError carrying the status and body.
func (c *Client) Do(ctx context.Context, rawURL string, opts *RequestOptions) (*Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}
	policy := c.policy
	if opts.Retry != nil {
		policy = *opts.Retry
	}
	// at least one attempt regardless of how the policy was configured
	if policy.MaxRetries < 1 {
		policy.MaxRetries = 1
	}

	reqURL := rawURL
	if len(opts.Query) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		reqURL = rawURL + sep + opts.Query.Encode()
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxRetries; attempt++ {
		resp, err := c.once(ctx, method, reqURL, opts)
		if err == nil {
			return resp, nil
		}

		var reqErr *RequestError
		if errors.As(err, &reqErr) && reqErr.Status != 0 && !policy.Retryable(reqErr.Status) {
			return nil, err
		}

		lastErr = err
		if attempt == policy.MaxRetries {
			break
		}

		delay := policy.Delay(attempt)
		c.logger.Debug("request failed, retrying",
			zap.String("url", reqURL),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("all %d attempts failed: %w", policy.MaxRetries, lastErr)
}

func (c *Client) once(ctx context.Context, method, reqURL string, opts *RequestOptions) (*Response, error) {
	var body io.Reader
	if len(opts.Body) > 0 {
		body = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, &RequestError{URL: reqURL, Err: err}
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{URL: reqURL, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{URL: reqURL, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RequestError{
			URL:    reqURL,
			Status: resp.StatusCode,
			Body:   string(payload),
			Err:    fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: payload}, nil
}

// JSON issues the request and decodes the response body into T.
func JSON[T any](ctx context.Context, c *Client, rawURL string, opts *RequestOptions) (T, error) {
	var out T
	resp, err := c.Do(ctx, rawURL, opts)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, &RequestError{URL: rawURL, Status: resp.Status, Body: string(resp.Body), Err: fmt.Errorf("decode response: %w", err)}
	}
	return out, nil
}

type jsonRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// JSONRPC issues a JSON-RPC 2.0 call and decodes the result into out.
func (c *Client) JSONRPC(ctx context.Context, rawURL, method string, params, out interface{}) error {
	body, err := json.Marshal(jsonRPCRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("marshal rpc request: %w", err)
	}

	resp, err := c.Do(ctx, rawURL, &RequestOptions{
		Method:  http.MethodPost,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	})
	if err != nil {
		return err
	}

	var rpcResp jsonRPCResponse
	if err := json.Unmarshal(resp.Body, &rpcResp); err != nil {
		return fmt.Errorf("decode rpc response: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("decode rpc result: %w", err)
		}
	}
	return nil
}

type graphQLRequest struct {
	Query     string      `json:"query"`
	Variables interface{} `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// GraphQL issues a GraphQL query and decodes the data payload into out.
func (c *Client) GraphQL(ctx context.Context, rawURL, query string, variables, out interface{}) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal graphql request: %w", err)
	}

	resp, err := c.Do(ctx, rawURL, &RequestOptions{
		Method:  http.MethodPost,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	})
	if err != nil {
		return err
	}

	var gqlResp graphQLResponse
	if err := json.Unmarshal(resp.Body, &gqlResp); err != nil {
		return fmt.Errorf("decode graphql response: %w", err)
	}
	if len(gqlResp.Errors) > 0 {
		return fmt.Errorf("graphql error: %s", gqlResp.Errors[0].Message)
	}
	if out != nil {
		if err := json.Unmarshal(gqlResp.Data, out); err != nil {
			return fmt.Errorf("decode graphql data: %w", err)
		}
	}
	return nil
}

// CacheKey derives a cache key from the normalized URL and query. Encoding
// sorts the query parameters so equivalent requests share one key.
func CacheKey(rawURL string, query url.Values) string {
	if len(query) == 0 {
		return rawURL
	}
	return rawURL + "?" + query.Encode()
}
