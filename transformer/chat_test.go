package transformer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"listingpilot/header"
)

func newChatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected authorization %q", got)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "test/model" || len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected chat request: %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(content))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestChat(t *testing.T, baseURL string) *ChatClient {
	t.Helper()
	client, err := NewChatClient(ChatConfig{BaseURL: baseURL, APIKey: "secret", Model: "test/model"})
	if err != nil {
		t.Fatalf("new chat client: %v", err)
	}
	return client
}

func TestChatClient_OptimizeStripsFences(t *testing.T) {
	t.Parallel()

	server := newChatServer(t, http.StatusOK, "```json\n{\"newTitle\":\"Router TP-Link AC1200\",\"newDescription\":\"Doble banda\",\"tips\":\"\"}\n```")
	client := newTestChat(t, server.URL)

	out, err := client.Optimize(context.Background(), OptimizeRequest{CurrentTitle: "router", Category: "General"})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if out.NewTitle != "Router TP-Link AC1200" || out.NewDescription != "Doble banda" {
		t.Fatalf("unexpected optimization: %+v", out)
	}
}

func TestChatClient_SmartEditReturnsChangedColumns(t *testing.T) {
	t.Parallel()

	server := newChatServer(t, http.StatusOK, "```\n{\"Color\": \"Negro\", \"Marca\": \"Sony\"}\n```")
	client := newTestChat(t, server.URL)

	updates, err := client.SmartEdit(context.Background(), header.Record{"SKU": "WH-1000", "Color": ""}, "completa color y marca")
	if err != nil {
		t.Fatalf("smart edit: %v", err)
	}
	if got := strings.Join(updates.Names(), ","); got != "Color,Marca" {
		t.Fatalf("unexpected update order %q", got)
	}
	if v, _ := updates.Get("Marca"); v != "Sony" {
		t.Fatalf("unexpected brand %q", v)
	}
}

func TestChatClient_InvalidContent(t *testing.T) {
	t.Parallel()

	server := newChatServer(t, http.StatusOK, "Lo siento, no puedo ayudar con eso.")
	client := newTestChat(t, server.URL)

	if _, err := client.Optimize(context.Background(), OptimizeRequest{}); !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
	if _, err := client.SmartEdit(context.Background(), header.Record{}, "x"); !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestChatClient_ProviderError(t *testing.T) {
	t.Parallel()

	server := newChatServer(t, http.StatusUnauthorized, `{"error":{"message":"No auth credentials found","code":401}}`)
	client := newTestChat(t, server.URL)

	_, err := client.Optimize(context.Background(), OptimizeRequest{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != "No auth credentials found" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestNewChatClient_RequiresKeyAndModel(t *testing.T) {
	t.Parallel()

	if _, err := NewChatClient(ChatConfig{Model: "m"}); err == nil {
		t.Fatal("expected missing key error")
	}
	if _, err := NewChatClient(ChatConfig{APIKey: "k"}); err == nil {
		t.Fatal("expected missing model error")
	}
	client, err := NewChatClient(ChatConfig{APIKey: "k", Model: "m"})
	if err != nil {
		t.Fatalf("new chat client: %v", err)
	}
	if client.baseURL != defaultChatBaseURL {
		t.Fatalf("unexpected default base URL %q", client.baseURL)
	}
}

func TestStripFences(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"{\"a\":1}":               "{\"a\":1}",
		"```json\n{\"a\":1}\n```": "{\"a\":1}",
		"  ```\n{\"a\":1}```  \n": "{\"a\":1}",
	}
	for in, want := range cases {
		if got := stripFences(in); got != want {
			t.Fatalf("stripFences(%q) = %q, want %q", in, got, want)
		}
	}
}
