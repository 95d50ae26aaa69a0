package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
)

func newTestAnalyzer(url, apiKey string) *Analyzer {
	return NewAnalyzer(New(Config{BaseURL: url, TextModel: "llama3.1", VisionModel: "llava", APIKey: apiKey}, nil))
}

func TestAnalyzeTextSendsSchemaAndPrompt(t *testing.T) {
	var payload chatRequest
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"Here you go: {\"documentType\":\"invoice\",\"documentTypeConfidence\":0.9}"}}`))
	}))
	defer server.Close()

	got, err := newTestAnalyzer(server.URL, "secret").AnalyzeText(context.Background(), "Factura F-1 Iberdrola")
	if err != nil {
		t.Fatalf("AnalyzeText() error = %v", err)
	}
	if got != `{"documentType":"invoice","documentTypeConfidence":0.9}` {
		t.Fatalf("unexpected content %q", got)
	}
	if payload.Model != "llama3.1" || payload.Stream {
		t.Fatalf("unexpected request %+v", payload)
	}
	if len(payload.Messages) != 2 || !strings.Contains(payload.Messages[1].Content, "Factura F-1 Iberdrola") {
		t.Fatalf("unexpected messages %+v", payload.Messages)
	}
	if payload.Format["type"] != "object" {
		t.Fatalf("expected json schema format, got %+v", payload.Format)
	}
	if auth != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", auth)
	}
}

func TestAnalyzeImageUsesVisionModel(t *testing.T) {
	var payload chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if r.Header.Get("Authorization") != "" {
			t.Fatalf("no auth header expected without api key")
		}
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"{}"}}`))
	}))
	defer server.Close()

	image := []byte{0xff, 0xd8, 0xff, 0x00}
	if _, err := newTestAnalyzer(server.URL, "").AnalyzeImage(context.Background(), image, "image/jpeg"); err != nil {
		t.Fatalf("AnalyzeImage() error = %v", err)
	}
	if payload.Model != "llava" {
		t.Fatalf("expected vision model, got %s", payload.Model)
	}
	images := payload.Messages[1].Images
	if len(images) != 1 || images[0] != base64.StdEncoding.EncodeToString(image) {
		t.Fatalf("unexpected images %v", images)
	}
}

func TestAnalyzerAvailability(t *testing.T) {
	if newTestAnalyzer("", "").Available() {
		t.Fatalf("expected unavailable analyzer without url")
	}
	if !newTestAnalyzer("http://ollama:11434", "").Available() {
		t.Fatalf("expected available analyzer")
	}
	if _, err := newTestAnalyzer("", "").AnalyzeText(context.Background(), "x"); err == nil {
		t.Fatalf("expected error when unconfigured")
	}
}

func TestChatErrorClassification(t *testing.T) {
	cases := []struct {
		status        int
		wantTemporary bool
	}{
		{http.StatusBadGateway, true},
		{http.StatusTooManyRequests, true},
		{http.StatusBadRequest, false},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model unavailable", tc.status)
		}))

		_, err := newTestAnalyzer(server.URL, "").AnalyzeText(context.Background(), "x")
		server.Close()
		if err == nil {
			t.Fatalf("status %d: expected error", tc.status)
		}
		if !strings.Contains(err.Error(), "model unavailable") {
			t.Fatalf("status %d: expected response body in error, got %v", tc.status, err)
		}
		if got := domain.IsKind(err, domain.ErrTemporary); got != tc.wantTemporary {
			t.Fatalf("status %d: temporary = %v, want %v", tc.status, got, tc.wantTemporary)
		}
	}
}

func TestChatIsNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, _ = newTestAnalyzer(server.URL, "").AnalyzeText(context.Background(), "x")
	if calls != 1 {
		t.Fatalf("expected single call, got %d", calls)
	}
}

func TestChatErrorUsesOllamaMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"llama3.2\" not found, try pulling it first"}`))
	}))
	defer server.Close()

	_, err := newTestAnalyzer(server.URL, "").AnalyzeText(context.Background(), "x")
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusNotFound || !strings.HasPrefix(statusErr.Body, `model "llama3.2" not found`) {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
}
