package listview

import (
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp 宽松解析时间字符串。空串或格式错误视为"没有时间戳"，不向上返回解析错误。
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// TimeField 把 *time.Time 字段适配为 Spec.Timestamp。nil 或零值视为没有时间戳。
func TimeField[T any](get func(T) *time.Time) func(T) (time.Time, bool) {
	return func(item T) (time.Time, bool) {
		ts := get(item)
		if ts == nil || ts.IsZero() {
			return time.Time{}, false
		}
		return *ts, true
	}
}

// StringTimeField 把字符串时间字段适配为 Spec.Timestamp。
func StringTimeField[T any](get func(T) string) func(T) (time.Time, bool) {
	return func(item T) (time.Time, bool) {
		return ParseTimestamp(get(item))
	}
}
