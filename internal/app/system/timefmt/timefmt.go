// Package timefmt renders stored timestamps in the ISO-8601 wire format.
package timefmt

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Layout is RFC 3339 in UTC with millisecond precision,
// e.g. 2024-03-01T12:00:00.000Z.
const Layout = "2006-01-02T15:04:05.000Z07:00"

// now is replaced in tests.
var now = time.Now

var stringLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Format renders t in Layout.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Parse interprets v as a point in time. Supported inputs are time.Time,
// *time.Time, primitive.DateTime, primitive.Timestamp, epoch milliseconds
// as an integer or float, ISO-8601 strings, and maps carrying seconds and
// nanoseconds (with or without a leading underscore). Zero values are
// reported as not ok.
func Parse(v any) (time.Time, bool) {
	var t time.Time

	switch x := v.(type) {
	case time.Time:
		t = x
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		t = *x
	case primitive.DateTime:
		t = x.Time()
	case primitive.Timestamp:
		t = time.Unix(int64(x.T), 0)
	case int:
		t = time.UnixMilli(int64(x))
	case int32:
		t = time.UnixMilli(int64(x))
	case int64:
		t = time.UnixMilli(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return time.Time{}, false
		}
		t = time.UnixMilli(int64(x))
	case string:
		return parseString(x)
	case map[string]any:
		return parseSecondsMap(x)
	case primitive.M:
		return parseSecondsMap(x)
	default:
		return time.Time{}, false
	}

	if t.IsZero() || t.Unix() == 0 {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func parseString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range stringLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), !t.IsZero()
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms).UTC(), true
	}
	return time.Time{}, false
}

func parseSecondsMap(m map[string]any) (time.Time, bool) {
	secs, ok := number(m, "seconds", "_seconds")
	if !ok {
		return time.Time{}, false
	}
	nanos, _ := number(m, "nanoseconds", "_nanoseconds")
	t := time.Unix(secs, nanos)
	if secs == 0 && nanos == 0 {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func number(m map[string]any, keys ...string) (int64, bool) {
	for _, k := range keys {
		switch n := m[k].(type) {
		case int:
			return int64(n), true
		case int32:
			return int64(n), true
		case int64:
			return n, true
		case float64:
			return int64(n), true
		}
	}
	return 0, false
}

// ToISOStringSafe renders v as an ISO-8601 string. Input that cannot be
// interpreted, or is zero, renders as the current time and is logged.
func ToISOStringSafe(v any, log *zap.Logger) string {
	if t, ok := Parse(v); ok {
		return Format(t)
	}
	if log != nil {
		log.Warn("unparseable timestamp, substituting current time",
			zap.Any("value", v),
			zap.String("type", fmt.Sprintf("%T", v)))
	}
	return Format(now())
}
