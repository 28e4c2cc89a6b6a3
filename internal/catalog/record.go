package catalog

import (
	"strings"
	"time"

	"emailbuilder/internal/domain"
)

var expiryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseExpiry(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// labelDiscount marks a discount whose expiry is already past. The label is
// what pickers display; the code itself is left alone.
func labelDiscount(rec domain.PickedRecord, now time.Time) domain.PickedRecord {
	code := domain.Content(rec).String("code")
	rec["expired"] = false
	rec["label"] = code
	exp := domain.Content(rec).String("expiresAt")
	if exp == "" {
		return rec
	}
	t, ok := parseExpiry(exp)
	if !ok {
		return rec
	}
	rec["expiresAt"] = t.UTC().Format(time.RFC3339)
	if t.Before(now) {
		rec["expired"] = true
		rec["label"] = code + " (expired)"
	}
	return rec
}

// compact drops empty string fields so the record only carries what the
// catalog actually holds.
func compact(rec domain.PickedRecord) domain.PickedRecord {
	for k, v := range rec {
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			delete(rec, k)
		}
	}
	return rec
}
