package transformer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"listingpilot/header"
)

const defaultChatBaseURL = "https://openrouter.ai/api/v1"

type ChatConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	HTTPClient  httpDoer
}

// ChatClient implements Transformer directly on top of an OpenAI-compatible
// chat completions endpoint, without the intermediate backend service.
type ChatClient struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	httpClient  httpDoer
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func NewChatClient(cfg ChatConfig) (*ChatClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("chat API key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("chat model is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultChatBaseURL
	}

	doer := cfg.HTTPClient
	if doer == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		doer = &http.Client{Timeout: timeout}
	}

	return &ChatClient{
		baseURL:     baseURL,
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       strings.TrimSpace(cfg.Model),
		temperature: cfg.Temperature,
		httpClient:  doer,
	}, nil
}

func (c *ChatClient) Optimize(ctx context.Context, req OptimizeRequest) (*Optimization, error) {
	content, err := c.complete(ctx, optimizePrompt(req))
	if err != nil {
		return nil, err
	}

	var out Optimization
	if err := json.Unmarshal([]byte(stripFences(content)), &out); err != nil {
		return nil, fmt.Errorf("%w: decode optimization: %v", ErrInvalidResponse, err)
	}
	return checkOptimization(&out)
}

func (c *ChatClient) SmartEdit(ctx context.Context, record header.Record, instruction string) (header.Updates, error) {
	prompt, err := smartEditPrompt(record, instruction)
	if err != nil {
		return nil, err
	}
	content, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var resp smartEditResponse
	if err := json.Unmarshal([]byte(stripFences(content)), &resp.UpdatedFields); err != nil {
		return nil, fmt.Errorf("%w: decode updated fields: %v", ErrInvalidResponse, err)
	}
	return checkUpdates(&resp)
}

func (c *ChatClient) complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return "", &APIError{StatusCode: resp.StatusCode, Message: chatErrorMessage(body)}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode chat response: %v", ErrInvalidResponse, err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: empty chat completion", ErrInvalidResponse)
	}
	return out.Choices[0].Message.Content, nil
}

// chatErrorMessage reads {"error": {"message": ...}} bodies and falls back to
// the backend detail format.
func chatErrorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && strings.TrimSpace(envelope.Error.Message) != "" {
		return strings.TrimSpace(envelope.Error.Message)
	}
	return errorMessage(body)
}
