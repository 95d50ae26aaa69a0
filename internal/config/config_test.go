package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"OLLAMA_URL", "INBOUND_EMAIL_DOMAIN", "LEGACY_INBOUND_DOMAINS", "LEGACY_ALIAS_PREFIXES",
		"ACCEPTANCE_CONFIDENCE_THRESHOLD", "SIGNED_URL_TTL", "ALIAS_MAX_ATTEMPTS", "ARCHIVE_ROOT_FOLDER",
		"PDF_MIN_TEXT_CHARS", "AI_TEXT_MAX_CHARS", "DB_ENSURE_SCHEMA",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.OllamaURL != "" {
		t.Fatalf("expected AI disabled by default, got %q", cfg.OllamaURL)
	}
	if cfg.InboundEmailDomain != "in.faktugo.com" || cfg.ArchiveRootFolder != "/FaktuGo" {
		t.Fatalf("unexpected defaults %q %q", cfg.InboundEmailDomain, cfg.ArchiveRootFolder)
	}
	if !reflect.DeepEqual(cfg.LegacyAliasPrefixes, []string{"u-", "user-"}) {
		t.Fatalf("unexpected legacy prefixes %v", cfg.LegacyAliasPrefixes)
	}
	if cfg.AcceptanceThreshold != 0.7 || cfg.AliasMaxAttempts != 5 {
		t.Fatalf("unexpected policy defaults %v %d", cfg.AcceptanceThreshold, cfg.AliasMaxAttempts)
	}
	if cfg.SignedURLTTL != 7*24*time.Hour {
		t.Fatalf("unexpected signed url ttl %v", cfg.SignedURLTTL)
	}
	if cfg.PDFMinTextChars != 50 || cfg.AITextMaxChars != 8000 {
		t.Fatalf("unexpected text limits %d %d", cfg.PDFMinTextChars, cfg.AITextMaxChars)
	}
	if !cfg.EnsureSchema {
		t.Fatalf("expected schema bootstrap enabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("OLLAMA_URL", "http://ollama:11434")
	t.Setenv("LEGACY_INBOUND_DOMAINS", " old.faktugo.com , faktugo.app ,")
	t.Setenv("LEGACY_ALIAS_PREFIXES", "-")
	t.Setenv("ACCEPTANCE_CONFIDENCE_THRESHOLD", "0.85")
	t.Setenv("SIGNED_URL_TTL", "48h")
	t.Setenv("ALIAS_MAX_ATTEMPTS", "8")
	t.Setenv("DB_ENSURE_SCHEMA", "false")

	cfg := Load()
	if cfg.OllamaURL != "http://ollama:11434" {
		t.Fatalf("unexpected ollama url %q", cfg.OllamaURL)
	}
	if !reflect.DeepEqual(cfg.LegacyInboundDomains, []string{"old.faktugo.com", "faktugo.app"}) {
		t.Fatalf("unexpected legacy domains %v", cfg.LegacyInboundDomains)
	}
	if len(cfg.LegacyAliasPrefixes) != 0 {
		t.Fatalf("expected legacy prefixes disabled, got %v", cfg.LegacyAliasPrefixes)
	}
	if cfg.AcceptanceThreshold != 0.85 || cfg.SignedURLTTL != 48*time.Hour || cfg.AliasMaxAttempts != 8 {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
	if cfg.EnsureSchema {
		t.Fatalf("expected schema bootstrap disabled")
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("ALIAS_SLUG_MAX_LEN", "abc")
	t.Setenv("SIGNED_URL_TTL", "-1h")
	t.Setenv("ACCEPTANCE_CONFIDENCE_THRESHOLD", "high")

	cfg := Load()
	if cfg.AliasSlugMaxLen != 20 || cfg.SignedURLTTL != 7*24*time.Hour || cfg.AcceptanceThreshold != 0.7 {
		t.Fatalf("expected fallbacks, got %d %v %v", cfg.AliasSlugMaxLen, cfg.SignedURLTTL, cfg.AcceptanceThreshold)
	}
}
