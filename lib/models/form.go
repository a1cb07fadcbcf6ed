package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"certification/lib/util"
)

// DateLayout is the calendar date format accepted on input.
const DateLayout = "2006-01-02"

// ColumnValue is one assignment of a partial UPDATE.
type ColumnValue struct {
	Column string
	Value  interface{}
}

func formString(form map[string][]string, key string) *string {
	values, ok := form[key]
	if !ok || len(values) == 0 {
		return nil
	}
	return util.TrimPtr(&values[0])
}

func formInt64(form map[string][]string, key string) (*int64, error) {
	raw := formString(form, key)
	if raw == nil || *raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(*raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be numeric", key)
	}
	return &n, nil
}

func formBool(form map[string][]string, key string) (*bool, error) {
	raw := formString(form, key)
	if raw == nil || *raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(*raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be true or false", key)
	}
	return &b, nil
}

// parseDate parses an optional calendar date. Blank input yields nil.
func parseDate(field string, value *string) (*time.Time, error) {
	if util.IsBlank(value) {
		return nil, nil
	}
	raw := strings.TrimSpace(*value)
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		// ISO timestamps are common from browser date pickers.
		if t, err = time.Parse(time.RFC3339, raw); err != nil {
			return nil, fmt.Errorf("%s must be a date in YYYY-MM-DD format", field)
		}
	}
	return &t, nil
}

func requireString(field string, value *string) (string, error) {
	if util.IsBlank(value) {
		return "", fmt.Errorf("%s is required", field)
	}
	return strings.TrimSpace(*value), nil
}

func optionalString(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
