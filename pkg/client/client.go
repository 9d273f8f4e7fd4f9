// Package client is a Go SDK for the student-progress-system API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gyssa-prince/student-progress-system/internal/models"
)

// Client is a Go SDK for the progress-server API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new progress-server client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SyncAllResult carries both stage summaries of a sync-all run.
type SyncAllResult struct {
	Sync   *models.SyncRunSummary   `json:"sync"`
	Notify *models.NotifyRunSummary `json:"notify"`
}

// ListOptions contains options for listing students
type ListOptions struct {
	Limit  int
	Offset int
}

// CreateStudent registers a new student
func (c *Client) CreateStudent(ctx context.Context, req models.CreateStudentRequest) (*models.Student, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, "POST", "/api/v1/students", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var st models.Student
	if err := decodeEnvelope(resp, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// GetStudent retrieves a student by ID
func (c *Client) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	resp, err := c.doRequest(ctx, "GET", fmt.Sprintf("/api/v1/students/%s", id), nil)
	if err != nil {
		return nil, err
	}

	var st models.Student
	if err := decodeEnvelope(resp, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// ListStudents returns registered students
func (c *Client) ListStudents(ctx context.Context, opts ListOptions) ([]*models.Student, error) {
	params := url.Values{}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}

	path := "/api/v1/students"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	resp, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var data struct {
		Students []*models.Student `json:"students"`
		Total    int               `json:"total"`
	}
	if err := decodeEnvelope(resp, &data); err != nil {
		return nil, err
	}
	return data.Students, nil
}

// DeleteStudent removes a student
func (c *Client) DeleteStudent(ctx context.Context, id string) error {
	resp, err := c.doRequest(ctx, "DELETE", fmt.Sprintf("/api/v1/students/%s", id), nil)
	if err != nil {
		return err
	}
	return decodeEnvelope(resp, nil)
}

// ToggleReminder flips the student's reminder opt-out and returns the new
// value of the flag.
func (c *Client) ToggleReminder(ctx context.Context, id string) (bool, error) {
	resp, err := c.doRequest(ctx, "POST", fmt.Sprintf("/api/v1/students/%s/reminder-toggle", id), nil)
	if err != nil {
		return false, err
	}

	var data struct {
		ReminderDisabled bool `json:"reminder_disabled"`
	}
	if err := decodeEnvelope(resp, &data); err != nil {
		return false, err
	}
	return data.ReminderDisabled, nil
}

// SyncAll triggers a full sync run followed by the inactivity check and
// returns both summaries. The call blocks until the run completes.
func (c *Client) SyncAll(ctx context.Context) (*SyncAllResult, error) {
	resp, err := c.doRequest(ctx, "POST", "/api/v1/sync-all", nil)
	if err != nil {
		return nil, err
	}

	var result SyncAllResult
	if err := decodeEnvelope(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// doRequest performs an HTTP request and returns the raw response body
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return data, nil
}

// decodeEnvelope unpacks the API's {success, data, error} envelope into out.
// A nil out discards the data field.
func decodeEnvelope(resp []byte, out interface{}) error {
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(resp, &envelope); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !envelope.Success {
		if envelope.Error != nil {
			return fmt.Errorf("API error: %s - %s", envelope.Error.Code, envelope.Error.Message)
		}
		return fmt.Errorf("API error: request failed")
	}

	if out != nil && envelope.Data != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to unmarshal data: %w", err)
		}
	}

	return nil
}
