package config

import "time"

// Options holds the plugin-specific keys of one plugin table.
// Accessors tolerate the numeric types TOML parsing produces.
type Options map[string]any

// GetString returns the string value for key, or fallback when the key
// is absent or not a string.
func (o Options) GetString(key, fallback string) string {
	if v, ok := o[key].(string); ok {
		return v
	}
	return fallback
}

// GetInt returns the integer value for key, or fallback.
// TOML integers arrive as int64; JSON-sourced values as float64.
func (o Options) GetInt(key string, fallback int) int {
	switch v := o[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

// toInt converts the numeric types TOML and JSON parsing produce,
// yielding zero for anything non-numeric.
func toInt(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// GetFloat returns the float value for key, or fallback.
func (o Options) GetFloat(key string, fallback float64) float64 {
	switch v := o[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return fallback
	}
}

// GetBool returns the bool value for key, or fallback.
func (o Options) GetBool(key string, fallback bool) bool {
	if v, ok := o[key].(bool); ok {
		return v
	}
	return fallback
}

// GetDuration interprets an integer number of seconds as a duration,
// or fallback when absent.
func (o Options) GetDuration(key string, fallback time.Duration) time.Duration {
	if secs := o.GetInt(key, -1); secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

// GetStringSlice returns the string-slice value for key, or nil.
// TOML arrays are parsed as []any.
func (o Options) GetStringSlice(key string) []string {
	switch v := o[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
