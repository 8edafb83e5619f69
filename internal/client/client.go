// Package client is a JSON-over-HTTP client for the timerlist REST API.
//
// Requests take a context for cancellation. Non-2xx statuses are returned
// as errors carrying the method, path and status text.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"timerlist/internal/protocol"
	"timerlist/internal/timers"
)

// Client talks to a single timerlist server. HTTP may be replaced before
// first use, e.g. to set timeouts.
type Client struct {
	Base string
	HTTP *http.Client
}

// New returns a Client for the server at base, using http.DefaultClient.
func New(base string) *Client {
	return &Client{Base: strings.TrimRight(base, "/"), HTTP: http.DefaultClient}
}

// State fetches the current snapshot.
func (c *Client) State(ctx context.Context) (timers.State, error) {
	var out timers.State
	err := c.do(ctx, http.MethodGet, "/timers", nil, &out)
	return out, err
}

// History fetches retained change events with a sequence number after
// since. Zero returns everything the server still holds.
func (c *Client) History(ctx context.Context, since uint64) ([]timers.ChangeEvent, error) {
	path := "/timers/history"
	if since > 0 {
		path += "?since=" + strconv.FormatUint(since, 10)
	}
	var out []timers.ChangeEvent
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// AddTimer submits a name and duration as given.
func (c *Client) AddTimer(ctx context.Context, name, duration string) (timers.State, error) {
	var out timers.State
	err := c.do(ctx, http.MethodPost, "/timers", protocol.TimersAddPayload{Name: name, Duration: duration}, &out)
	return out, err
}

// Start sets the timer set running.
func (c *Client) Start(ctx context.Context) (timers.State, error) {
	var out timers.State
	err := c.do(ctx, http.MethodPost, "/timers/start", nil, &out)
	return out, err
}

// Stop sets the timer set stopped.
func (c *Client) Stop(ctx context.Context) (timers.State, error) {
	var out timers.State
	err := c.do(ctx, http.MethodPost, "/timers/stop", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return err
		}
		body = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.Base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("timerlist %s %s: %s", method, path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
