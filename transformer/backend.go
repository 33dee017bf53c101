package transformer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"listingpilot/header"
)

const (
	optimizePath  = "/api/optimize"
	smartEditPath = "/api/smart-edit"
)

type BackendConfig struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient httpDoer
}

// BackendClient calls the optimize/smart-edit HTTP backend.
type BackendClient struct {
	baseURL    string
	userAgent  string
	httpClient httpDoer
}

func NewBackendClient(cfg BackendConfig) (*BackendClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("backend URL is required")
	}

	parsedBase, err := url.Parse(baseURL)
	if err != nil || parsedBase.Scheme == "" || parsedBase.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q", cfg.BaseURL)
	}

	doer := cfg.HTTPClient
	if doer == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		doer = &http.Client{Timeout: timeout}
	}

	return &BackendClient{
		baseURL:    baseURL,
		userAgent:  strings.TrimSpace(cfg.UserAgent),
		httpClient: doer,
	}, nil
}

func (c *BackendClient) Optimize(ctx context.Context, req OptimizeRequest) (*Optimization, error) {
	var out Optimization
	if err := c.doJSON(ctx, http.MethodPost, optimizePath, req, &out); err != nil {
		return nil, err
	}
	return checkOptimization(&out)
}

func (c *BackendClient) SmartEdit(ctx context.Context, record header.Record, instruction string) (header.Updates, error) {
	var out smartEditResponse
	body := smartEditRequest{Record: record, Instruction: instruction}
	if err := c.doJSON(ctx, http.MethodPost, smartEditPath, body, &out); err != nil {
		return nil, err
	}
	return checkUpdates(&out)
}

func (c *BackendClient) doJSON(ctx context.Context, method, endpointPath string, body any, out any) error {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpointPath, bodyReader)
	if err != nil {
		return fmt.Errorf("create request %s %s: %w", method, endpointPath, err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, endpointPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		responseBody, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(responseBody)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrInvalidResponse, endpointPath, err)
	}
	return nil
}
