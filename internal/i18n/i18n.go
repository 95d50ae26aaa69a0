// Package i18n holds the user-facing message catalog. Spanish is the default
// language; unknown languages fall back to it and unknown keys to the key itself.
package i18n

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultLang = "es"

//go:embed messages.yaml
var rawCatalog []byte

var catalog = mustLoad(rawCatalog)

func mustLoad(raw []byte) map[string]map[string]string {
	out := map[string]map[string]string{}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		panic(fmt.Sprintf("i18n: parse catalog: %v", err))
	}
	return out
}

// DetectLanguage picks a supported language from an Accept-Language header.
func DetectLanguage(acceptLanguage string) string {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := strings.ToLower(strings.TrimSpace(strings.SplitN(part, ";", 2)[0]))
		base := strings.SplitN(tag, "-", 2)[0]
		if _, ok := catalog[base]; ok && base != "" {
			return base
		}
	}
	return DefaultLang
}

// T translates key into lang, formatting args when given.
func T(lang, key string, args ...any) string {
	msg, ok := catalog[lang][key]
	if !ok {
		msg, ok = catalog[DefaultLang][key]
	}
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}
