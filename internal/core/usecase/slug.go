package usecase

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
)

const (
	placeholderName     = "cliente"
	defaultSlugMaxLen   = 20
	aliasSuffixLen      = 4
	aliasSuffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// AliasBaseName is the company name when set, else "first last", else the
// placeholder. The account type does not change the order.
func AliasBaseName(profile *domain.UserProfile) string {
	if profile == nil {
		return placeholderName
	}
	if name := strings.TrimSpace(profile.CompanyName); name != "" {
		return name
	}
	if name := profile.PersonName(); name != "" {
		return name
	}
	return placeholderName
}

// Slugify folds diacritics, lowercases and collapses every run of characters
// outside [a-z0-9] into one hyphen. The result is at most maxLen bytes and
// never starts or ends with a hyphen.
func Slugify(name string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = defaultSlugMaxLen
	}

	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	pendingHyphen := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	slug := b.String()
	if len(slug) > maxLen {
		slug = strings.TrimRight(slug[:maxLen], "-")
	}
	if slug == "" {
		return placeholderName
	}
	return slug
}

// aliasSuffix keeps the first lowercase alphanumerics of token.
func aliasSuffix(token string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(token) {
		if strings.ContainsRune(aliasSuffixAlphabet, r) {
			b.WriteRune(r)
			if b.Len() == aliasSuffixLen {
				break
			}
		}
	}
	for b.Len() < aliasSuffixLen {
		b.WriteByte('0')
	}
	return b.String()
}
