package telemetry

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Record is a decoded JSON object whose field names and value types vary by
// producer. Accessors take a list of accepted names and return the first
// usable value.
type Record map[string]any

func ParseRecord(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return r, nil
}

// String returns the first non-empty string under keys. Numbers are formatted
// and Mongo extended-JSON ids ({"$oid": "..."}) are unwrapped.
func (r Record) String(keys ...string) string {
	for _, k := range keys {
		if s := stringValue(r[k]); s != "" {
			return s
		}
	}
	return ""
}

// Number returns the first non-zero number under keys. Numeric strings count.
// Missing, zero and non-numeric values are skipped, so a record without a
// usable number yields 0.
func (r Record) Number(keys ...string) float64 {
	for _, k := range keys {
		if f, ok := numberValue(r[k]); ok && f != 0 {
			return f
		}
	}
	return 0
}

// Time returns the first parseable timestamp under keys.
func (r Record) Time(keys ...string) (time.Time, bool) {
	for _, k := range keys {
		if t, ok := timeValue(r[k]); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any:
		if oid, ok := t["$oid"].(string); ok {
			return oid
		}
	}
	return ""
}

func numberValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case map[string]any:
		// {"$numberDecimal": "12.5"} and friends
		for _, k := range []string{"$numberDecimal", "$numberDouble", "$numberInt", "$numberLong"} {
			if s, ok := t[k].(string); ok {
				return numberValue(s)
			}
		}
	}
	return 0, false
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.000Z07:00", "2006-01-02 15:04:05"}

func timeValue(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	case float64:
		if t > 0 {
			return time.UnixMilli(int64(t)).UTC(), true
		}
	case map[string]any:
		if d, ok := t["$date"]; ok {
			return timeValue(d)
		}
	}
	return time.Time{}, false
}
