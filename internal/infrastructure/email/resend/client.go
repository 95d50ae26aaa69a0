package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
	"github.com/faktugo/invoice-pipeline/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL = "https://api.resend.com"
	sendOperation  = "resend_send"
)

type Config struct {
	BaseURL string
	APIKey  string
	// From is the verified sender address; the display name comes per message.
	From    string
	Timeout time.Duration
}

// Client sends transactional e-mail through the Resend REST API.
type Client struct {
	baseURL    string
	apiKey     string
	from       string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.ProviderConfig())
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		from:       strings.TrimSpace(cfg.From),
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.apiKey != "" && c.from != ""
}

type attachment struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
}

type sendRequest struct {
	From        string       `json:"from"`
	To          []string     `json:"to"`
	ReplyTo     string       `json:"reply_to,omitempty"`
	Subject     string       `json:"subject"`
	HTML        string       `json:"html,omitempty"`
	Text        string       `json:"text,omitempty"`
	Attachments []attachment `json:"attachments,omitempty"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// APIError is a non-2xx answer from the provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("resend status %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Send delivers msg once and returns the provider message id.
func (c *Client) Send(ctx context.Context, msg domain.OutboundEmail) (string, error) {
	if !c.Configured() {
		return "", errors.New("resend is not configured")
	}
	if len(msg.To) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "resend send", errors.New("no recipients"))
	}

	payload := sendRequest{
		From:    c.fromHeader(msg.FromName),
		To:      msg.To,
		ReplyTo: strings.TrimSpace(msg.ReplyTo),
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	}
	for _, a := range msg.Attachments {
		payload.Attachments = append(payload.Attachments, attachment{Path: a.Path, Filename: a.Filename})
	}

	var response sendResponse
	err := c.executor.Execute(ctx, sendOperation, func(ctx context.Context) error {
		return c.post(ctx, "/emails", payload, &response)
	}, classifyResendError)
	if err != nil {
		if classifyResendError(err).Retryable {
			return "", domain.WrapError(domain.ErrTemporary, "resend send", err)
		}
		return "", err
	}
	if strings.TrimSpace(response.ID) == "" {
		return "", errors.New("resend response without message id")
	}
	return response.ID, nil
}

func (c *Client) fromHeader(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return c.from
	}
	return (&mail.Address{Name: name, Address: c.from}).String()
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal resend request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create resend request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("resend request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode resend response: %w", err)
	}
	return nil
}

func classifyResendError(err error) resilience.ErrorClassification {
	return resilience.ClassifyHTTPCall(err, func(err error) (int, bool) {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return apiErr.StatusCode, true
		}
		return 0, false
	})
}
