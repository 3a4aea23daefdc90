package vcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"strings"
)

// SyncError reports a provider page that could not be read as expected
type SyncError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *SyncError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("sync error: %v", e.Err)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("sync error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("sync error for %s: %v", e.URL, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

var (
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrMissingValues    = errors.New("page has no values")
)

// Pagination splits one page into its items and the next page URL
type Pagination interface {
	Page(resp *Response) (items []json.RawMessage, next string, err error)
}

// LinkHeaderPagination reads JSON array pages and follows Link rel="next"
type LinkHeaderPagination struct{}

func (LinkHeaderPagination) Page(resp *Response) ([]json.RawMessage, string, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(resp.Body, &items); err != nil {
		return nil, "", fmt.Errorf("page is not a JSON array: %w", err)
	}
	return items, NextLink(resp.Header.Get("Link")), nil
}

// BodyCursorPagination reads {"values": [...], "next": url} pages
type BodyCursorPagination struct{}

func (BodyCursorPagination) Page(resp *Response) ([]json.RawMessage, string, error) {
	var page struct {
		Values *[]json.RawMessage `json:"values"`
		Next   string             `json:"next"`
	}
	if err := json.Unmarshal(resp.Body, &page); err != nil {
		return nil, "", fmt.Errorf("failed to decode page: %w", err)
	}
	if page.Values == nil {
		return nil, "", ErrMissingValues
	}
	return *page.Values, page.Next, nil
}

// Paginate lazily yields every item across all pages starting at rawURL.
// query is applied to the first request only; next links are followed as given.
// The first error is yielded once and iteration stops.
func (s *Session) Paginate(ctx context.Context, rawURL string, query url.Values, pagination Pagination) iter.Seq2[json.RawMessage, error] {
	return func(yield func(json.RawMessage, error) bool) {
		next, err := withQuery(rawURL, query)
		if err != nil {
			yield(nil, &SyncError{URL: rawURL, Err: err})
			return
		}

		for next != "" {
			pageURL := next
			resp, err := s.Get(ctx, pageURL)
			if err != nil {
				yield(nil, &SyncError{URL: pageURL, Err: err})
				return
			}
			if !resp.OK() {
				yield(nil, &SyncError{URL: pageURL, StatusCode: resp.StatusCode, Err: ErrUnexpectedStatus})
				return
			}

			items, nextURL, err := pagination.Page(resp)
			if err != nil {
				yield(nil, &SyncError{URL: pageURL, StatusCode: resp.StatusCode, Err: err})
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
			next = nextURL
		}
	}
}

func withQuery(rawURL string, query url.Values) (string, error) {
	if len(query) == 0 {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	values := u.Query()
	for key, vals := range query {
		for _, v := range vals {
			values.Add(key, v)
		}
	}
	u.RawQuery = values.Encode()
	return u.String(), nil
}

// NextLink returns the rel="next" target of an RFC 8288 Link header
func NextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, param := range segments[1:] {
			key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok || !strings.EqualFold(strings.TrimSpace(key), "rel") {
				continue
			}
			for _, rel := range strings.Fields(strings.Trim(strings.TrimSpace(value), `"`)) {
				if rel == "next" {
					return target[1 : len(target)-1]
				}
			}
		}
	}
	return ""
}
