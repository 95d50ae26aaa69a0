package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONLoggerCarriesService(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "faktugo-api", "info", "json").Info("invoice_ingested", "invoice_id", "inv-1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json line, got %q: %v", buf.String(), err)
	}
	if entry["service"] != "faktugo-api" || entry["msg"] != "invoice_ingested" || entry["invoice_id"] != "inv-1" {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func TestTextLoggerAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "faktugo-worker", "warn", "text")
	logger.Info("dropped")
	logger.Warn("alias_collision", "attempt", 2)

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info line should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "alias_collision") || !strings.Contains(out, "faktugo-worker") {
		t.Fatalf("unexpected text output %q", out)
	}
}
