// Package client talks to the task API and mirrors its rows locally.
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
	"time"

	"task-tracker/pkg/task"
)

// APIError is a response whose envelope reported success=false.
type APIError struct {
	StatusCode int
	Message    string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (%d): %s", e.Message, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.StatusCode)
}

// NotFound reports whether the server answered 404.
func (e *APIError) NotFound() bool { return e.StatusCode == http.StatusNotFound }

// Client is a typed HTTP client for /api/tasks.
type Client struct {
	base string
	http *http.Client
}

// New returns a Client rooted at base, e.g. "http://localhost:5000/".
// A nil hc uses a client with a 10 second timeout.
func New(base string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &Client{base: base, http: hc}
}

// List fetches every task, newest first.
func (c *Client) List(ctx context.Context) ([]task.Task, error) {
	var tasks []task.Task
	if err := c.do(ctx, http.MethodGet, "api/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Add creates a task and returns the stored row.
func (c *Client) Add(ctx context.Context, title string) (*task.Task, error) {
	var t task.Task
	if err := c.do(ctx, http.MethodPost, "api/tasks", task.AddInput{Title: title}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Update applies a partial update and returns the stored row.
func (c *Client) Update(ctx context.Context, id int64, fields task.UpdateFields) (*task.Task, error) {
	var t task.Task
	if err := c.do(ctx, http.MethodPut, taskPath(id), fields, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Delete removes a task.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

// Status fetches the server-side counts.
func (c *Client) Status(ctx context.Context) (task.Summary, error) {
	var s task.Summary
	err := c.do(ctx, http.MethodGet, "api/status", nil, &s)
	return s, err
}

func taskPath(id int64) string {
	return "api/tasks/" + strconv.FormatInt(id, 10)
}

// do sends body as JSON and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var env task.Envelope[json.RawMessage]
	if err := json.Unmarshal(raw, &env); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: "Unexpected response", Detail: err.Error()}
	}
	if !env.Success {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message, Detail: env.Error}
	}
	if out == nil || env.Data == nil {
		return nil
	}
	if err := json.Unmarshal(*env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
