package mcpserver

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
)

// Config holds the configuration for connecting to the stream engine API.
type Config struct {
	APIURL    string // Base URL, e.g. "http://localhost:8080"
	APIKey    string // API key, e.g. "sk_..."
	OwnerAddr string // caller's owner address, e.g. "0x..."
}

// StreamClient is a pure HTTP client for the stream engine API.
type StreamClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewStreamClient creates a new client for the stream engine API.
func NewStreamClient(cfg Config) *StreamClient {
	return &StreamClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the engine.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP request to the engine and returns the response body.
func (c *StreamClient) doRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

// QueryStream returns the current state of a single stream by ID.
func (c *StreamClient) QueryStream(ctx context.Context, streamID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/streams/"+streamID, nil, nil)
}

// ListStreams pages through registered streams.
func (c *StreamClient) ListStreams(ctx context.Context, startAfter string, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if startAfter != "" {
		q.Set("start_after", startAfter)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/streams", q, nil)
}

// QueryPosition returns an owner's position in a stream.
func (c *StreamClient) QueryPosition(ctx context.Context, streamID, owner string) (json.RawMessage, error) {
	path := "/v1/streams/" + streamID + "/positions/" + owner
	return c.doRequest(ctx, http.MethodGet, path, nil, nil)
}

// AveragePrice returns a stream's current and lifetime-average price.
func (c *StreamClient) AveragePrice(ctx context.Context, streamID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/streams/"+streamID+"/analytics", nil, nil)
}

// RegistryParams returns the protocol-wide registry parameters.
func (c *StreamClient) RegistryParams(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/registry/params", nil, nil)
}

// Subscribe deposits inDenom into a stream on behalf of the configured owner.
func (c *StreamClient) Subscribe(ctx context.Context, streamID, amount, inDenom string) (json.RawMessage, error) {
	body := map[string]string{
		"owner":     c.cfg.OwnerAddr,
		"in_amount": amount,
		"in_denom":  inDenom,
	}
	return c.doRequest(ctx, http.MethodPost, "/v1/streams/"+streamID+"/subscribe", nil, body)
}

// Withdraw returns the unspent in_denom of a stream position to its owner.
func (c *StreamClient) Withdraw(ctx context.Context, streamID string) (json.RawMessage, error) {
	body := map[string]string{"owner": c.cfg.OwnerAddr}
	return c.doRequest(ctx, http.MethodPost, "/v1/streams/"+streamID+"/withdraw", nil, body)
}
