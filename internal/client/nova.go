package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/orbitshot/api/internal/config"
	"github.com/orbitshot/api/internal/generation"
	"github.com/orbitshot/api/internal/model"
)

// NovaClient talks to the Nova multi-view generation API: one POST to
// submit an angle job, then a server-sent event stream per job for
// lifecycle updates. It implements generation.Backend.
type NovaClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// submitRequest is the wire shape of a job submission
type submitRequest struct {
	Image     string  `json:"image"`
	Azimuth   string  `json:"azimuth"`
	Elevation string  `json:"elevation"`
	Distance  string  `json:"distance"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	TokenType string  `json:"token_type,omitempty"`
	Strength  float64 `json:"strength,omitempty"`
}

// submitResponse is the wire shape of a submission acknowledgment
type submitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// NewNovaClient creates a new Nova API client
func NewNovaClient(cfg *config.NovaConfig) *NovaClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &NovaClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// IsConfigured returns true if the client has valid configuration
func (c *NovaClient) IsConfigured() bool {
	return c.apiKey != ""
}

// Submit sends one generation job and returns its job id
func (c *NovaClient) Submit(ctx context.Context, req generation.SubmitRequest) (string, error) {
	body := submitRequest{
		Image:     req.Image,
		Azimuth:   string(req.Azimuth),
		Elevation: string(req.Elevation),
		Distance:  string(req.Distance),
		Width:     req.Width,
		Height:    req.Height,
		TokenType: string(req.TokenType),
		Strength:  req.Strength,
	}
	var result submitResponse
	if err := c.post(ctx, "/v1/angles/generate", body, &result); err != nil {
		return "", err
	}
	if result.JobID == "" {
		return "", fmt.Errorf("nova API returned no job id")
	}
	return result.JobID, nil
}

// Subscribe attaches to a job's event stream and delivers decoded events
// until the stream ends or the returned unsubscribe is called.
// Unsubscribing never cancels the remote job, it only stops reading.
func (c *NovaClient) Subscribe(jobID string, onEvent func(model.JobEvent), onTransportError func(error)) generation.UnsubscribeFunc {
	ctx, cancel := context.WithCancel(context.Background())
	go c.readEvents(ctx, jobID, onEvent, onTransportError)
	return generation.UnsubscribeFunc(cancel)
}

func (c *NovaClient) readEvents(ctx context.Context, jobID string, onEvent func(model.JobEvent), onTransportError func(error)) {
	endpoint := fmt.Sprintf("%s/v1/angles/jobs/%s/events", c.baseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		onTransportError(fmt.Errorf("failed to create request: %w", err))
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	// The event stream outlives the client's request timeout, so it gets
	// a transport without one; lifetime is bounded by ctx instead.
	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			onTransportError(fmt.Errorf("failed to open event stream: %w", err))
		}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		onTransportError(fmt.Errorf("nova API error (status %d): %s", resp.StatusCode, string(body)))
		return
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		ev, err := model.DecodeJobEvent([]byte(payload))
		if err != nil {
			log.Printf("[Nova API] job %s: skipping undecodable event: %v", jobID, err)
			continue
		}
		onEvent(ev)
		if ev.Terminal() {
			return
		}
	}
	if ctx.Err() != nil {
		return
	}
	if err := scanner.Err(); err != nil {
		onTransportError(fmt.Errorf("event stream broke: %w", err))
		return
	}
	// Clean EOF before any terminal event: the scan loop only returns
	// early on completed/error, so reaching here means the job is still
	// unresolved and the subscriber would wait forever.
	onTransportError(errors.New("event stream ended without a terminal event"))
}

// post sends a POST request with JSON body
func (c *NovaClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// doRequest executes an HTTP request and parses the response
func (c *NovaClient) doRequest(req *http.Request, result interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	log.Printf("[Nova API] → %s %s", req.Method, req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("nova API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
