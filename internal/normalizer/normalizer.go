// Package normalizer turns raw roster entries into canonical records.
//
// It is pure: no I/O, no clock, no logging. Unusable entries come back as
// rejections carrying the failing fields so callers can count and log them
// per run instead of dropping records silently.
package normalizer

import (
	"strings"
	"time"
	"unicode"

	"rosterwatch/internal/models"
)

// Rejection explains why one raw record could not be normalized.
type Rejection struct {
	Fields []string
	Reason string
}

// placeholders are source values that mean "no data". They normalize to
// absent, never to an error.
var placeholders = map[string]bool{
	"":        true,
	"TBD":     true,
	"UNKNOWN": true,
	"N/A":     true,
	"NA":      true,
	"NONE":    true,
	"NULL":    true,
}

// dateLayouts are tried in order for non-numeric-ambiguous forms.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"January 2, 2006",
	"January 2 2006",
	"2 January 2006",
}

// Normalize converts one raw roster entry into a canonical record.
// A record without a usable name is rejected: the name is the anchor of the
// identity key and nothing downstream can use an anonymous entry.
func Normalize(raw models.RawRecord) (models.RosterRecord, *Rejection) {
	display := CollapseWhitespace(raw.Name)
	normalized := NormalizeName(raw.Name)
	if normalized == "" {
		return models.RosterRecord{}, &Rejection{
			Fields: []string{"name"},
			Reason: "missing or placeholder name",
		}
	}

	return models.RosterRecord{
		Name:           display,
		NormalizedName: normalized,
		DateOfBirth:    ParseDate(raw.DateOfBirth),
		Sex:            normalizeToken(raw.Sex),
		Race:           normalizeToken(raw.Race),
		ArrestDate:     ParseDate(raw.ArrestDate),
		CellBlock:      CollapseWhitespace(raw.CellBlock),
		HoldingAgency:  CollapseWhitespace(raw.HoldingAgency),
		Charges:        CollapseWhitespace(raw.Charges),
		Mugshot:        strings.TrimSpace(raw.Mugshot),
		IsJuvenile:     raw.IsJuvenile,
	}, nil
}

// ParseDate parses the date formats seen across facility feeds and returns
// an ISO date ("2006-01-02"), or "" when the value is absent, a placeholder
// or unparseable. Time components and timezones are dropped.
func ParseDate(value string) string {
	v := strings.TrimSpace(value)
	if placeholders[strings.ToUpper(v)] {
		return ""
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("2006-01-02")
		}
	}

	if iso, ok := parseNumericDate(v, "/"); ok {
		return iso
	}
	if iso, ok := parseNumericDate(v, "-"); ok {
		return iso
	}

	return ""
}

// parseNumericDate handles MM/DD/YYYY, MM-DD-YYYY and DD/MM/YYYY. The two
// slash forms are ambiguous; US-style month-first is assumed unless the
// first component cannot be a month.
func parseNumericDate(v, sep string) (string, bool) {
	parts := strings.Split(v, sep)
	if len(parts) != 3 {
		return "", false
	}

	a, okA := atoi(parts[0])
	b, okB := atoi(parts[1])
	year, okY := atoi(parts[2])
	if !okA || !okB || !okY || len(parts[2]) != 4 {
		return "", false
	}

	month, day := a, b
	if a > 12 && b <= 12 {
		month, day = b, a
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (e.g. month 13); reject anything that
	// did not round-trip.
	if int(t.Month()) != month || t.Day() != day || t.Year() != year {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

func atoi(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

// NormalizeName produces the identity-matching form of a name: trimmed,
// inner whitespace collapsed, upper-cased. Placeholder names normalize
// to "".
func NormalizeName(name string) string {
	collapsed := CollapseWhitespace(name)
	upper := strings.ToUpper(collapsed)
	if placeholders[upper] {
		return ""
	}
	return upper
}

// CollapseWhitespace trims a string and collapses runs of inner whitespace
// to single spaces, preserving casing for display.
func CollapseWhitespace(s string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

func normalizeToken(s string) string {
	v := strings.ToUpper(CollapseWhitespace(s))
	if placeholders[v] {
		return ""
	}
	return v
}
