package protocol

import (
	"encoding/json"
	"strconv"
	"strings"
)

// CanonicalID normalizes a user identity to one comparable string form.
// The legacy backend emits ids sometimes as JSON numbers and sometimes as
// strings; comparing them raw caused self-message suppression to misfire.
// All identity comparisons in this module go through this function.
func CanonicalID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case json.Number:
		return id.String()
	case float64:
		if id == float64(int64(id)) {
			return strconv.FormatInt(int64(id), 10)
		}
		return strconv.FormatFloat(id, 'g', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	default:
		return ""
	}
}

// canonicalRawID decodes a raw JSON value (string or number) into the
// canonical identity form.
func canonicalRawID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return CanonicalID(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return CanonicalID(n)
	}
	return ""
}
