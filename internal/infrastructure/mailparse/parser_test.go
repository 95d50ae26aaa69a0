package mailparse

import (
	"encoding/base64"
	"strings"
	"testing"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func TestParseMultipartWithAttachment(t *testing.T) {
	pdf := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 fake"))
	raw := crlf(`From: Iberdrola <facturas@iberdrola.es>
To: "Talleres" <talleres-perez-ab12@in.faktugo.com>
Cc: otro@example.com, TALLERES-PEREZ-AB12@in.faktugo.com
Subject: =?utf-8?q?Su_factura_de_marzo?=
Message-ID: <abc123@iberdrola.es>
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="outer"

--outer
Content-Type: multipart/alternative; boundary="inner"

--inner
Content-Type: text/plain; charset=utf-8

Adjuntamos su factura.
--inner
Content-Type: text/html; charset=utf-8

<p>Adjuntamos su factura.</p>
--inner--
--outer
Content-Type: application/pdf; name="factura.pdf"
Content-Disposition: attachment; filename="factura-marzo.pdf"
Content-Transfer-Encoding: base64

` + pdf + `
--outer--
`)

	msg, err := NewParser().Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if msg.Subject != "Su factura de marzo" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if msg.MessageID != "abc123@iberdrola.es" {
		t.Fatalf("unexpected message id %q", msg.MessageID)
	}
	if msg.From != "facturas@iberdrola.es" {
		t.Fatalf("unexpected from %q", msg.From)
	}
	if len(msg.Recipients) != 2 || msg.Recipients[0] != "talleres-perez-ab12@in.faktugo.com" || msg.Recipients[1] != "otro@example.com" {
		t.Fatalf("unexpected recipients %v", msg.Recipients)
	}
	if !strings.Contains(msg.HTML, "<p>Adjuntamos") || !strings.Contains(msg.Text, "Adjuntamos") {
		t.Fatalf("unexpected bodies html=%q text=%q", msg.HTML, msg.Text)
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("expected one attachment, got %d", len(msg.Attachments))
	}
	att := msg.Attachments[0]
	if att.Filename != "factura-marzo.pdf" || att.ContentType != "application/pdf" || string(att.Data) != "%PDF-1.4 fake" {
		t.Fatalf("unexpected attachment %+v", att)
	}
}

func TestParseHTMLOnlyMessage(t *testing.T) {
	raw := crlf(`From: tienda@example.com
To: alias@in.faktugo.com
Subject: Ticket
Content-Type: text/html; charset=utf-8

<html><body>Total 12,50 EUR</body></html>
`)

	msg, err := NewParser().Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(msg.Attachments) != 0 {
		t.Fatalf("expected no attachments, got %d", len(msg.Attachments))
	}
	if !strings.Contains(msg.HTML, "Total 12,50 EUR") {
		t.Fatalf("unexpected html %q", msg.HTML)
	}
	if len(msg.Recipients) != 1 || msg.Recipients[0] != "alias@in.faktugo.com" {
		t.Fatalf("unexpected recipients %v", msg.Recipients)
	}
}

func TestParseGarbage(t *testing.T) {
	if _, err := NewParser().Parse([]byte("not a header line without colon\r\n\r\n")); err == nil {
		t.Fatalf("expected error for malformed header")
	}
}

func TestParseSkipsPartsOverLimit(t *testing.T) {
	big := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 far too long for the limit"))
	exact := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 sixteen"))
	raw := crlf(`From: proveedor@example.com
To: acme-ab12@in.faktugo.com
Subject: Facturas
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="b"

--b
Content-Type: text/plain; charset=utf-8

Adjuntamos.
--b
Content-Type: application/pdf
Content-Disposition: attachment; filename="grande.pdf"
Content-Transfer-Encoding: base64

` + big + `
--b
Content-Type: application/pdf
Content-Disposition: attachment; filename="justa.pdf"
Content-Transfer-Encoding: base64

` + exact + `
--b--
`)

	msg, err := (&Parser{maxPartBytes: 16}).Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(msg.Attachments) != 1 || msg.Attachments[0].Filename != "justa.pdf" {
		t.Fatalf("expected only the attachment within the limit, got %+v", msg.Attachments)
	}
	if string(msg.Attachments[0].Data) != "%PDF-1.4 sixteen" {
		t.Fatalf("attachment must be complete, got %q", msg.Attachments[0].Data)
	}
	if strings.TrimSpace(msg.Text) != "Adjuntamos." {
		t.Fatalf("unexpected text %q", msg.Text)
	}
}
