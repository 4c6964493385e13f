// Package client talks to the challenge server: it fetches test problems and
// submits graded solutions.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
)

// Order is the wire representation of an order as served by /new.
type Order struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Temp      string  `json:"temp"`
	Price     float64 `json:"price"`
	Freshness int64   `json:"freshness"`
}

// Action is the wire representation of one ledger entry.
type Action struct {
	Timestamp int64  `json:"timestamp"`
	ID        string `json:"id"`
	Action    string `json:"action"`
	Target    string `json:"target"`
}

// Options echoes the run's timing parameters, in microseconds.
type Options struct {
	Rate int64 `json:"rate"`
	Min  int64 `json:"min"`
	Max  int64 `json:"max"`
}

type solution struct {
	Options Options  `json:"options"`
	Actions []Action `json:"actions"`
}

// ErrUnauthorized is returned when /new rejects the auth token.
var ErrUnauthorized = errors.New("challenge server rejected the auth token (check the token and retry)")

// ErrAlreadySubmitted is returned when /solve reports the test was already
// submitted. Replays should pass --skip-submission.
var ErrAlreadySubmitted = errors.New("test was already submitted (use --skip-submission to replay)")

// ProtocolError is any other non-success response from the server.
type ProtocolError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Client fetches and solves challenge test problems.
type Client struct {
	BaseURL   *url.URL
	Transport *http.Client

	auth string
	log  zerolog.Logger
}

func NewClient(endpoint, auth string, log zerolog.Logger) (*Client, error) {
	base, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid challenge endpoint %q: %w", endpoint, err)
	}
	return &Client{
		BaseURL:   base,
		Transport: http.DefaultClient,
		auth:      auth,
		log:       log.With().Str("component", "client").Logger(),
	}, nil
}

// New fetches a test problem. It returns the test id from the x-test-id
// header and the problem's orders. A zero seed lets the server pick one.
func (c *Client) New(ctx context.Context, seed int64) (string, []Order, error) {
	uri := fmt.Sprintf("%s/new?auth=%s", c.BaseURL, url.QueryEscape(c.auth))
	if seed != 0 {
		uri = fmt.Sprintf("%s&seed=%d", uri, seed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", nil, err
	}
	resp, err := c.Transport.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return "", nil, protocolError(uri, resp)
	}

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read /new body: %w", err)
	}
	var orders []Order
	if err := json.Unmarshal(buf, &orders); err != nil {
		return "", nil, &ProtocolError{URL: uri, StatusCode: resp.StatusCode, Body: excerpt(buf)}
	}
	id := resp.Header.Get("x-test-id")
	c.log.Info().Str("test", id).Int("orders", len(orders)).Msg("fetched test problem")
	return id, orders, nil
}

// Solve submits the run's options and sorted actions for grading and returns
// the grader's verdict body.
func (c *Client) Solve(ctx context.Context, id string, opts Options, actions []Action) (string, error) {
	uri := fmt.Sprintf("%s/solve?auth=%s", c.BaseURL, url.QueryEscape(c.auth))

	body, err := json.Marshal(solution{Options: opts, Actions: actions})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-test-id", id)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Transport.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return "", ErrAlreadySubmitted
	}
	if resp.StatusCode != http.StatusOK {
		return "", protocolError(uri, resp)
	}

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	result := string(buf)
	c.log.Info().Str("test", id).Str("result", result).Msg("submitted solution")
	return result, nil
}

func protocolError(uri string, resp *http.Response) error {
	buf, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &ProtocolError{URL: uri, StatusCode: resp.StatusCode, Body: excerpt(buf)}
}

func excerpt(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
