package vcs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
)

// Session is an authenticated HTTP client for one provider account
type Session struct {
	client *retryablehttp.Client
}

// Response is a fully read provider response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// DecodeJSON unmarshals the response body into v
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// NewSession wraps httpClient (usually an oauth2 client) with retries on
// transport errors and 5xx responses.
func NewSession(httpClient *http.Client, retryMax int) *Session {
	return &Session{client: NewRetryClient(httpClient, retryMax)}
}

// NewRetryClient builds the retrying client used by every provider call
func NewRetryClient(httpClient *http.Client, retryMax int) *retryablehttp.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	if httpClient != nil {
		retryClient.HTTPClient = httpClient
	}
	retryClient.Logger = stdlog.New(io.Discard, "", stdlog.LstdFlags)
	retryClient.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		log.Trace().
			Str(req.Method, req.URL.String()).
			Int("attempt", attempt).
			Msg("provider request")
	}
	retryClient.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if resp == nil {
			return true, err
		}
		// auth and client errors are never retried
		return resp.StatusCode >= 500, nil
	}
	// hand the last response back instead of an error once retries are exhausted
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return retryClient
}

// StandardClient exposes the session as a plain *http.Client for SDKs
func (s *Session) StandardClient() *http.Client {
	return s.client.StandardClient()
}

// Do sends a request with an optional JSON body and reads the full response
func (s *Session) Do(ctx context.Context, method, url string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func (s *Session) Get(ctx context.Context, url string) (*Response, error) {
	return s.Do(ctx, http.MethodGet, url, nil)
}

func (s *Session) Post(ctx context.Context, url string, body any) (*Response, error) {
	return s.Do(ctx, http.MethodPost, url, body)
}

func (s *Session) Put(ctx context.Context, url string, body any) (*Response, error) {
	return s.Do(ctx, http.MethodPut, url, body)
}
