package ollama

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/faktugo/invoice-pipeline/internal/infrastructure/resilience"
)

const chatOperation = "ollama_chat"

type Config struct {
	BaseURL     string
	TextModel   string
	VisionModel string
	APIKey      string
	Timeout     time.Duration
}

type Client struct {
	baseURL     string
	textModel   string
	visionModel string
	apiKey      string
	httpClient  *http.Client
	executor    *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	vision := strings.TrimSpace(cfg.VisionModel)
	if vision == "" {
		vision = cfg.TextModel
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.ProviderConfig())
	}
	return &Client{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		textModel:   cfg.TextModel,
		visionModel: vision,
		apiKey:      strings.TrimSpace(cfg.APIKey),
		httpClient:  &http.Client{Timeout: timeout},
		executor:    executor,
	}
}

// Analyzer asks the model for the invoice extraction JSON.
type Analyzer struct {
	client *Client
}

func NewAnalyzer(client *Client) *Analyzer {
	return &Analyzer{client: client}
}

// Available is false when no model endpoint is configured.
func (a *Analyzer) Available() bool {
	return a != nil && a.client != nil && a.client.baseURL != ""
}

func (a *Analyzer) AnalyzeImage(ctx context.Context, data []byte, contentType string) (string, error) {
	if !a.Available() {
		return "", errors.New("ollama is not configured")
	}
	msg := chatMessage{
		Role:    "user",
		Content: buildImagePrompt(contentType),
		Images:  []string{base64.StdEncoding.EncodeToString(data)},
	}
	return a.client.chat(ctx, a.client.visionModel, msg)
}

func (a *Analyzer) AnalyzeText(ctx context.Context, text string) (string, error) {
	if !a.Available() {
		return "", errors.New("ollama is not configured")
	}
	msg := chatMessage{
		Role:    "user",
		Content: buildTextPrompt(text),
	}
	return a.client.chat(ctx, a.client.textModel, msg)
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   map[string]any `json:"format"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

func (c *Client) chat(ctx context.Context, model string, msg chatMessage) (string, error) {
	request := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			msg,
		},
		Stream:  false,
		Format:  extractionSchema,
		Options: map[string]any{"temperature": 0},
	}

	var response chatResponse
	err := c.executor.Execute(ctx, chatOperation, func(ctx context.Context) error {
		var err error
		response, err = c.postChat(ctx, request)
		return err
	}, classifyOllamaError)
	if err != nil {
		return "", wrapTemporaryIfNeeded("ollama chat", err)
	}
	return extractJSONObject(strings.TrimSpace(response.Message.Content)), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
