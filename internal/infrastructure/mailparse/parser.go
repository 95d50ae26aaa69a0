package mailparse

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
)

// recipientHeaders are read in order; Delivered-To covers BCC copies relayed by the MX.
var recipientHeaders = []string{"To", "Cc", "Delivered-To", "X-Original-To"}

const defaultMaxPartBytes = 25 << 20

// Parser reads raw RFC 5322 messages received on the inbound aliases.
type Parser struct {
	maxPartBytes int64
}

func NewParser() *Parser {
	return &Parser{maxPartBytes: defaultMaxPartBytes}
}

func (p *Parser) Parse(raw []byte) (*domain.InboundMessage, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && (mr == nil || !tolerable(err)) {
		return nil, fmt.Errorf("read message: %w", err)
	}
	defer mr.Close()

	out := &domain.InboundMessage{Recipients: recipients(mr.Header)}
	out.Subject, _ = mr.Header.Subject()
	out.MessageID, _ = mr.Header.MessageID()
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		out.From = strings.ToLower(from[0].Address)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !tolerable(err) {
			return nil, fmt.Errorf("read part: %w", err)
		}
		if part == nil {
			break
		}

		limit := p.maxPartBytes
		if limit <= 0 {
			limit = defaultMaxPartBytes
		}
		body, err := io.ReadAll(io.LimitReader(part.Body, limit+1))
		if err != nil {
			return nil, fmt.Errorf("read part body: %w", err)
		}
		if int64(len(body)) > limit {
			// A cut document would be ingested as if complete.
			contentType := part.Header.Get("Content-Type")
			slog.Warn("inbound_attachment_too_large",
				"message_id", out.MessageID,
				"content_type", contentType,
				"limit_bytes", limit,
			)
			continue
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, params, _ := h.ContentType()
			switch {
			case contentType == "text/html" && out.HTML == "":
				out.HTML = string(body)
			case contentType == "text/plain" && out.Text == "":
				out.Text = string(body)
			case strings.HasPrefix(contentType, "image/") || contentType == "application/pdf":
				// Inline images and PDFs without a disposition still count as documents.
				out.Attachments = append(out.Attachments, domain.InboundAttachment{
					Filename:    params["name"],
					ContentType: contentType,
					Data:        body,
				})
			}
		case *mail.AttachmentHeader:
			contentType, params, _ := h.ContentType()
			filename, _ := h.Filename()
			if filename == "" {
				filename = params["name"]
			}
			out.Attachments = append(out.Attachments, domain.InboundAttachment{
				Filename:    filename,
				ContentType: contentType,
				Data:        body,
			})
		}
	}
	return out, nil
}

func recipients(h mail.Header) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, key := range recipientHeaders {
		list, err := h.AddressList(key)
		if err != nil {
			continue
		}
		for _, addr := range list {
			address := strings.ToLower(strings.TrimSpace(addr.Address))
			if address == "" {
				continue
			}
			if _, ok := seen[address]; ok {
				continue
			}
			seen[address] = struct{}{}
			out = append(out, address)
		}
	}
	return out
}

// tolerable reports decoding problems that still leave a readable entity.
func tolerable(err error) bool {
	return message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)
}
