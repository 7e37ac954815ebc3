package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		wantErr bool
	}{
		{"valid key", "test-api-key", false},
		{"empty key", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.apiKey)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewClient() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && client == nil {
				t.Error("NewClient() returned nil client")
			}
		})
	}
}

func TestClientOptions(t *testing.T) {
	client, err := NewClient("test-key",
		WithBaseURL("https://custom.api.com"),
		WithDebug(true),
		WithTimeout(time.Second),
	)
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}

	if client.baseURL != "https://custom.api.com" {
		t.Errorf("WithBaseURL() = %v, want https://custom.api.com", client.baseURL)
	}
	if !client.debug {
		t.Error("WithDebug(true) did not enable debug mode")
	}
	if client.httpClient.Timeout != time.Second {
		t.Errorf("WithTimeout() = %v, want 1s", client.httpClient.Timeout)
	}
}

func TestWithBaseURL_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantURL string
	}{
		{"empty", "", BaseURL},
		{"invalid scheme", "ftp://example.com", BaseURL},
		{"no host", "http://", BaseURL},
		{"valid http", "http://localhost:8080", "http://localhost:8080"},
		{"trailing slash", "https://api.example.com/", "https://api.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := NewClient("test-key", WithBaseURL(tt.url))
			if client.baseURL != tt.wantURL {
				t.Errorf("WithBaseURL(%q) = %v, want %v", tt.url, client.baseURL, tt.wantURL)
			}
		})
	}
}

func TestInstruction(t *testing.T) {
	tests := []struct {
		name   string
		system string
		prompt string
		want   string
	}{
		{"prompt only", "", "Describe this image.", "Describe this image."},
		{"with system", "You are a tagger.", "Describe this image.", "You are a tagger.\n\nDescribe this image."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &CaptionRequest{SystemInstructions: tt.system, Prompt: tt.prompt}
			if got := r.Instruction(); got != tt.want {
				t.Errorf("Instruction() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestModelDisplayName(t *testing.T) {
	if got := ModelDisplayName(ModelGemini3Pro); got != "Gemini 3 Pro" {
		t.Errorf("ModelDisplayName(pro) = %q", got)
	}
	if got := ModelDisplayName("custom-model"); got != "custom-model" {
		t.Errorf("ModelDisplayName(custom) = %q, want passthrough", got)
	}
}

func textResponse(text string) GenerateContentResponse {
	return GenerateContentResponse{
		Candidates: []*Candidate{
			{
				Content:      &Content{Parts: []*Part{{Text: text}}},
				FinishReason: "STOP",
			},
		},
	}
}

func TestCaption_MockServer(t *testing.T) {
	var got GenerateContentRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/models/gemini-3-flash-preview:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("x-goog-api-key = %q", r.Header.Get("x-goog-api-key"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(textResponse("a red bicycle"))
	}))
	defer server.Close()

	client, _ := NewClient("test-key", WithBaseURL(server.URL))

	text, err := client.Caption(context.Background(), &CaptionRequest{
		SystemInstructions: "Be brief.",
		Prompt:             "Caption it.",
		MIMEType:           "image/png",
		Data:               []byte("fake png data"),
	})
	if err != nil {
		t.Fatalf("Caption() failed: %v", err)
	}
	if text != "a red bicycle" {
		t.Errorf("Caption() = %q", text)
	}

	if len(got.Contents) != 1 || len(got.Contents[0].Parts) != 2 {
		t.Fatalf("unexpected request shape: %+v", got)
	}
	inline := got.Contents[0].Parts[0].InlineData
	if inline == nil || inline.MIMEType != "image/png" {
		t.Fatalf("first part should be inline image, got %+v", got.Contents[0].Parts[0])
	}
	if inline.Data != base64.StdEncoding.EncodeToString([]byte("fake png data")) {
		t.Error("inline data is not the base64 image")
	}
	if got.Contents[0].Parts[1].Text != "Be brief.\n\nCaption it." {
		t.Errorf("text part = %q", got.Contents[0].Parts[1].Text)
	}
	if got.GenerationConfig != nil {
		t.Error("generationConfig should be omitted without thinking")
	}
}

func TestCaption_Thinking(t *testing.T) {
	tests := []struct {
		model      string
		wantLevel  string
		wantBudget bool
	}{
		{ModelGemini3Pro, "HIGH", false},
		{ModelGeminiFlashLatest, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			var got GenerateContentRequest
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewDecoder(r.Body).Decode(&got)
				json.NewEncoder(w).Encode(textResponse("ok"))
			}))
			defer server.Close()

			client, _ := NewClient("k", WithBaseURL(server.URL))
			_, err := client.Caption(context.Background(), &CaptionRequest{
				Model: tt.model, Prompt: "p", MIMEType: "image/png", Data: []byte{1}, Thinking: true,
			})
			if err != nil {
				t.Fatalf("Caption() failed: %v", err)
			}
			if got.GenerationConfig == nil || got.GenerationConfig.ThinkingConfig == nil {
				t.Fatal("thinkingConfig missing")
			}
			tc := got.GenerationConfig.ThinkingConfig
			if tc.ThinkingLevel != tt.wantLevel {
				t.Errorf("thinkingLevel = %q, want %q", tc.ThinkingLevel, tt.wantLevel)
			}
			if tt.wantBudget && (tc.ThinkingBudget == nil || *tc.ThinkingBudget != -1) {
				t.Errorf("thinkingBudget = %v, want -1", tc.ThinkingBudget)
			}
		})
	}
}

func TestCaption_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"api message", 400, `{"error":{"code":400,"message":"API key not valid"}}`, "API key not valid"},
		{"status fallback", 503, `upstream unavailable`, "HTTP 503"},
		{"in-band error", 200, `{"error":{"code":500}}`, "API error"},
		{"in-band message", 200, `{"error":{"message":"quota exceeded"}}`, "quota exceeded"},
		{"empty text", 200, `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`, "Empty response from API"},
		{"no candidates", 200, `{"candidates":[]}`, "Empty response from API"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, _ := NewClient("k", WithBaseURL(server.URL))
			_, err := client.Caption(context.Background(), &CaptionRequest{
				Prompt: "p", MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8},
			})

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Caption() error = %v, want *APIError", err)
			}
			if apiErr.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", apiErr.Message, tt.wantMsg)
			}
			if errors.Is(err, ErrAborted) {
				t.Error("failure must not be reported as aborted")
			}
		})
	}
}

func TestCaption_Aborted(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	client, _ := NewClient("k", WithBaseURL(server.URL))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := client.Caption(ctx, &CaptionRequest{Prompt: "p", MIMEType: "image/png", Data: []byte{1}})
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("Caption() error = %v, want ErrAborted", err)
	}
}

func TestCaption_Validation(t *testing.T) {
	client, _ := NewClient("test-key")

	_, err := client.Caption(context.Background(), &CaptionRequest{Prompt: "p"})
	if err == nil {
		t.Error("Caption() should fail with empty image data")
	}

	_, err = client.Caption(context.Background(), &CaptionRequest{Prompt: "p", Data: make([]byte, MaxFileSize+1)})
	if err == nil {
		t.Error("Caption() should fail with an oversized image")
	}
}
