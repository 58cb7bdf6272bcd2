// Package remote talks to a running nudge server.
package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/lazypower/nudge/internal/engine"
	"github.com/lazypower/nudge/internal/store"
)

const (
	defaultServerURL = "http://127.0.0.1:8080"
	httpTimeout      = 90 * time.Second
)

// Client is a small JSON client for the nudge HTTP API.
type Client struct {
	http      *http.Client
	serverURL string
}

// NewClient creates a client for serverURL. An empty serverURL falls back to
// $NUDGE_URL, then http://127.0.0.1:8080.
func NewClient(serverURL string) *Client {
	if serverURL == "" {
		serverURL = os.Getenv("NUDGE_URL")
	}
	if serverURL == "" {
		serverURL = defaultServerURL
	}
	return &Client{
		// Trigger waits for the oracle and the send, so the timeout is generous.
		http:      &http.Client{Timeout: httpTimeout},
		serverURL: serverURL,
	}
}

// Post sends a POST request with JSON body. Returns response body.
func (c *Client) Post(path string, body []byte) ([]byte, error) {
	resp, err := c.http.Post(c.serverURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	return readBody(resp, "POST", path)
}

// Get sends a GET request. Returns response body.
func (c *Client) Get(path string) ([]byte, error) {
	resp, err := c.http.Get(c.serverURL + path)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	return readBody(resp, "GET", path)
}

func readBody(resp *http.Response, method, path string) ([]byte, error) {
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		return data, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	return data, nil
}

// Healthy checks if the server is reachable.
func (c *Client) Healthy() bool {
	resp, err := c.http.Get(c.serverURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// TriggerReminders asks the server for one decision and delivery run.
func (c *Client) TriggerReminders() (engine.RunResult, error) {
	var res engine.RunResult
	data, err := c.Post("/api/trigger-reminders", nil)
	if err != nil {
		return res, err
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return res, fmt.Errorf("decode run result: %w", err)
	}
	return res, nil
}

// Memories lists every memory on the server.
func (c *Client) Memories() ([]store.Item, error) {
	data, err := c.Get("/api/memories")
	if err != nil {
		return nil, err
	}
	var items []store.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode memories: %w", err)
	}
	return items, nil
}

// Command sends reply text to the server's command interpreter.
func (c *Client) Command(text string) (string, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", err
	}
	data, err := c.Post("/api/commands", body)
	if err != nil {
		return "", err
	}
	var resp struct {
		Reply string `json:"reply"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("decode reply: %w", err)
	}
	return resp.Reply, nil
}
