package expiry

import (
	"strconv"
	"time"
)

// State is a product's expiry classification.
type State string

const (
	StateExpired      State = "expired"
	StateNear         State = "near"
	StateFresh        State = "fresh"
	StateUnclassified State = "unclassified"
)

// DefaultHorizon is the forward near-expiry window.
const DefaultHorizon = 7 * 24 * time.Hour

// FieldCandidates lists the expiry-date attribute spellings accumulated over
// the catalog's history, in priority order. The first present, non-nil,
// non-empty value is authoritative for a record.
var FieldCandidates = []string{
	"tanggal_expired",
	"tanggal_expire",
	"expiredDate",
	"expired_at",
	"expired_date",
	"expired",
}

// Classification is the result of classifying one product.
type Classification struct {
	State State
	// ExpiresAt is the resolved expiry instant; zero when unclassified.
	ExpiresAt time.Time
}

// Classify resolves a product's expiry instant from its raw document fields
// and places it relative to now. Expired requires strictly before now; the
// near window is inclusive on both ends, so an instant exactly equal to now
// or to now+horizon classifies as near.
func Classify(fields map[string]any, now time.Time, horizon time.Duration) Classification {
	raw := resolveField(fields)
	if raw == nil {
		return Classification{State: StateUnclassified}
	}

	t, ok := parseInstant(raw)
	if !ok {
		return Classification{State: StateUnclassified}
	}

	switch {
	case t.Before(now):
		return Classification{State: StateExpired, ExpiresAt: t}
	case !t.After(now.Add(horizon)):
		return Classification{State: StateNear, ExpiresAt: t}
	default:
		return Classification{State: StateFresh, ExpiresAt: t}
	}
}

// resolveField returns the first candidate field carrying a usable value.
func resolveField(fields map[string]any) any {
	for _, name := range FieldCandidates {
		v, ok := fields[name]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			continue
		}
		return v
	}
	return nil
}

// stringLayouts are tried in order when the expiry value is a string.
var stringLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseInstant coerces the heterogeneous field value into a time.Time.
// Supported forms: a structured timestamp map with a seconds component,
// a bare number of epoch seconds, or a calendar string.
func parseInstant(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case map[string]any:
		for _, key := range []string{"_seconds", "seconds"} {
			if sec, ok := v[key]; ok {
				return epochSeconds(sec)
			}
		}
		return time.Time{}, false
	case float64:
		return time.Unix(int64(v), 0).UTC(), true
	case int64:
		return time.Unix(v, 0).UTC(), true
	case int:
		return time.Unix(int64(v), 0).UTC(), true
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(n, 0).UTC(), true
		}
		for _, layout := range stringLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC(), true
			}
		}
		return time.Time{}, false
	case time.Time:
		return v, true
	default:
		return time.Time{}, false
	}
}

func epochSeconds(v any) (time.Time, bool) {
	switch n := v.(type) {
	case float64:
		return time.Unix(int64(n), 0).UTC(), true
	case int64:
		return time.Unix(n, 0).UTC(), true
	case int:
		return time.Unix(int64(n), 0).UTC(), true
	default:
		return time.Time{}, false
	}
}
