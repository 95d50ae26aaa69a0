package i18n

import "testing"

func TestDetectLanguage(t *testing.T) {
	if DetectLanguage("en-US,en;q=0.9") != "en" {
		t.Fatalf("expected en")
	}
	if DetectLanguage("fr-FR,en;q=0.5") != "en" {
		t.Fatalf("expected first supported language")
	}
	if DetectLanguage("fr-FR") != "es" {
		t.Fatalf("expected es fallback")
	}
	if DetectLanguage("") != "es" {
		t.Fatalf("expected default es")
	}
}

func TestTranslations(t *testing.T) {
	if T("en", "doctype.quote") != "Quote" {
		t.Fatalf("expected Quote")
	}
	if T("es", "doctype.quote") != "Presupuesto" {
		t.Fatalf("expected Presupuesto")
	}
	if T("de", "doctype.invoice") != "Factura" {
		t.Fatalf("expected es fallback for unknown language")
	}
	if T("en", "__nope__") != "__nope__" {
		t.Fatalf("expected fallback to key")
	}
	if got := T("en", "dispatch.link_expiry", 7); got != "The link expires in 7 days." {
		t.Fatalf("unexpected formatted message %q", got)
	}
}

func TestCatalogLanguagesShareKeys(t *testing.T) {
	for key := range catalog[DefaultLang] {
		if _, ok := catalog["en"][key]; !ok {
			t.Fatalf("missing en translation for %s", key)
		}
	}
}
