package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// Client is the part of *http.Client GetJSON needs.
type Client interface {
	Do(req *http.Request) (*http.Response, error)
}

// maxBody bounds how much of a response GetJSON reads.
const maxBody = 4 << 20

// GetJSON fetches url and decodes the JSON body into v. A non-2xx status is
// an error carrying the ErrorBody message when the server sent one.
func GetJSON(ctx context.Context, c Client, url string, v any) error {
	if c == nil {
		c = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("GET %s: failed to read body: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e ErrorBody
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return fmt.Errorf("GET %s: %s: %s", url, resp.Status, e.Error)
		}
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("GET %s: failed to decode body: %w", url, err)
	}
	return nil
}

// StubClient replays queued responses in order and records every request.
// Once the queue is drained it answers 200 with an empty body.
type StubClient struct {
	mu        sync.Mutex
	Requests  []*http.Request
	responses []stubResponse
}

type stubResponse struct {
	status int
	body   string
	err    error
}

// NewStubClient returns an empty StubClient.
func NewStubClient() *StubClient { return &StubClient{} }

// Respond queues a response.
func (s *StubClient) Respond(status int, body string) *StubClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, stubResponse{status: status, body: body})
	return s
}

// Fail queues a transport error.
func (s *StubClient) Fail(err error) *StubClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, stubResponse{err: err})
	return s
}

func (s *StubClient) Do(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Requests = append(s.Requests, req)

	next := stubResponse{status: http.StatusOK}
	if len(s.responses) > 0 {
		next = s.responses[0]
		s.responses = s.responses[1:]
	}
	if next.err != nil {
		return nil, next.err
	}
	return &http.Response{
		StatusCode: next.status,
		Status:     fmt.Sprintf("%d %s", next.status, http.StatusText(next.status)),
		Body:       io.NopCloser(bytes.NewBufferString(next.body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}
