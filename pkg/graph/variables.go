package graph

import "encoding/json"

// FixNumberVariables replaces the json.Number values left by a decoder with
// UseNumber by int64 or float64, so Int and Float variables can be told
// apart. Nested objects and lists are handled too.
func FixNumberVariables(m map[string]interface{}) {
	for key, val := range m {
		m[key] = fixNumber(val)
	}
}

func fixNumber(val interface{}) interface{} {
	switch v := val.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case map[string]interface{}:
		FixNumberVariables(v)
	case []interface{}:
		for i := range v {
			v[i] = fixNumber(v[i])
		}
	}
	return val
}
