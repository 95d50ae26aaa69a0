// Package period buckets invoice dates into month or ISO-week archive periods.
//
// Every caller that needs a period key or folder path goes through Compute so
// the month/week math lives in one place.
package period

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/faktugo/invoice-pipeline/internal/core/domain"
)

const DefaultRootFolder = "/FaktuGo"

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006",
	"02-01-2006",
}

var keyPattern = regexp.MustCompile(`^\d{4}-(\d{2}|S\d{2})$`)

// Compute maps dateStr to its period. When the date does not parse the
// returned PeriodInfo has no key and FolderPath is rootFolder unchanged; the
// error (kind domain.ErrInvalidDate) lets callers tell computed from
// defaulted results. Ignoring the error is the supported soft-failure path.
func Compute(dateStr string, mode domain.PeriodMode, rootFolder string) (domain.PeriodInfo, error) {
	mode = NormalizeMode(mode)
	if rootFolder == "" {
		rootFolder = DefaultRootFolder
	}

	t, err := ParseDate(dateStr)
	if err != nil {
		return domain.PeriodInfo{PeriodType: mode, FolderPath: rootFolder}, domain.WrapError(domain.ErrInvalidDate, "compute period", err)
	}

	key := Key(t, mode)
	return domain.PeriodInfo{
		PeriodType: mode,
		PeriodKey:  key,
		FolderPath: strings.TrimRight(rootFolder, "/") + "/" + key,
	}, nil
}

// Assign is Compute without the error.
func Assign(dateStr string, mode domain.PeriodMode, rootFolder string) domain.PeriodInfo {
	info, _ := Compute(dateStr, mode, rootFolder)
	return info
}

// Ensure fills the period fields of inv when they are absent.
func Ensure(inv *domain.Invoice, mode domain.PeriodMode, rootFolder string) {
	if inv == nil || inv.FolderPath != "" {
		return
	}
	inv.ApplyPeriod(Assign(inv.Date, mode, rootFolder))
}

// Key formats t as YYYY-MM or, in week mode, YYYY-SWW using ISO-8601 weeks.
func Key(t time.Time, mode domain.PeriodMode) string {
	if NormalizeMode(mode) == domain.PeriodWeek {
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-S%02d", year, week)
	}
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// ParseDate accepts ISO dates, RFC3339 timestamps and dd/mm/yyyy. Calendar
// fields are kept as written, no timezone conversion is applied.
func ParseDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

func NormalizeMode(mode domain.PeriodMode) domain.PeriodMode {
	if domain.PeriodMode(strings.ToLower(strings.TrimSpace(string(mode)))) == domain.PeriodWeek {
		return domain.PeriodWeek
	}
	return domain.PeriodMonth
}

// ValidKey reports whether key looks like a month or week period key.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}
