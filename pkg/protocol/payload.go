package protocol

import "encoding/json"

// Payload converts a typed value into the generic payload map a Message
// carries. Marshal failures cannot happen for the plain structs used on this
// wire, so they yield an empty payload rather than an error return.
func Payload(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	out := make(map[string]any)
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{}
	}
	return out
}

// Payload accessors. JSON decodes every number as float64; these helpers
// normalize the common cases so handlers stay readable.

func String(p map[string]any, key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

func Int(p map[string]any, key string) int {
	switch v := p[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func Uint(p map[string]any, key string) uint {
	n := Int(p, key)
	if n < 0 {
		return 0
	}
	return uint(n)
}

func Bool(p map[string]any, key string) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return false
}
