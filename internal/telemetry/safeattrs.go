package telemetry

import (
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/straja-ai/fieldsense/internal/redact"
)

const (
	maxAttrLen    = 128
	maxSliceItems = 16
	// Values with this many digits read like phone numbers, postal codes
	// or document ids rather than labels.
	maxDigits = 5
)

// Keys naming applicant data or credentials. Matched as substrings of the
// lowercased key.
var denyKeys = []string{
	"prompt",
	"content",
	"authorization",
	"api_key",
	"token",
	"email",
	"phone",
	"iban",
	"credit_card",
	"answer",
	"profile",
	"value",
	"address",
	"salary",
	"birth",
	"ssn",
}

// SafeAttributes converts span values to OTEL attributes, keeping only
// what describes a field and never what fills it. A key is dropped when
// it names applicant data. A string is dropped when redaction would alter
// it, when it carries a digit run typical of contact data, or when it is
// longer than a label. Output is sorted by key.
func SafeAttributes(values map[string]interface{}) []attribute.KeyValue {
	if len(values) == 0 {
		return nil
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		if !deniedKey(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var attrs []attribute.KeyValue
	for _, k := range keys {
		if kv, ok := safeAttribute(k, values[k]); ok {
			attrs = append(attrs, kv)
		}
	}
	return attrs
}

func safeAttribute(k string, v interface{}) (attribute.KeyValue, bool) {
	switch val := v.(type) {
	case string:
		if !safeString(val) {
			return attribute.KeyValue{}, false
		}
		return attribute.String(k, val), true
	case fmt.Stringer:
		s := val.String()
		if !safeString(s) {
			return attribute.KeyValue{}, false
		}
		return attribute.String(k, s), true
	case bool:
		return attribute.Bool(k, val), true
	case int:
		return attribute.Int(k, val), true
	case int64:
		return attribute.Int64(k, val), true
	case float32:
		return attribute.Float64(k, float64(val)), true
	case float64:
		return attribute.Float64(k, val), true
	case []string:
		var kept []string
		for _, s := range val {
			if len(kept) == maxSliceItems {
				break
			}
			if safeString(s) {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			return attribute.KeyValue{}, false
		}
		return attribute.StringSlice(k, kept), true
	case []int:
		ints := val
		if len(ints) > maxSliceItems {
			ints = ints[:maxSliceItems]
		}
		conv := make([]int64, 0, len(ints))
		for _, i := range ints {
			conv = append(conv, int64(i))
		}
		return attribute.Int64Slice(k, conv), true
	}
	return attribute.KeyValue{}, false
}

func deniedKey(k string) bool {
	lk := strings.ToLower(k)
	for _, bad := range denyKeys {
		if strings.Contains(lk, bad) {
			return true
		}
	}
	return false
}

func safeString(s string) bool {
	if len(s) > maxAttrLen {
		return false
	}
	if redact.String(s) != s {
		return false
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
			if digits >= maxDigits {
				return false
			}
		}
	}
	return true
}
