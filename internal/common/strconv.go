package common

import (
	"net/http"
	"strconv"
	"strings"
)

// QueryInt reads an integer query parameter. A missing value yields def; a
// malformed one is a validation error naming the parameter.
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, Validation("%s must be an integer", name).WithDetails(map[string]any{"field": name, "value": raw})
	}
	return parsed, nil
}

// SplitCSV splits a comma separated list, trimming blanks away.
func SplitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
