package utils

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringSlice is stored as a JSON array so entries may contain commas.
// Older comma separated values are still read.
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		s = StringSlice{}
	}
	data, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (s *StringSlice) UnmarshalJSON(data []byte) error {
	// Try to unmarshal as string first
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = splitTrimmed(str)
		return nil
	}

	var strSlice []string
	if err := json.Unmarshal(data, &strSlice); err != nil {
		return err
	}
	*s = strSlice
	return nil
}

func (s *StringSlice) Scan(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case nil:
		*s = StringSlice{}
		return nil
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("unsupported Scan, storing %T into type *StringSlice", value)
	}

	if strings.HasPrefix(strings.TrimSpace(raw), "[") {
		var items []string
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return err
		}
		*s = items
		return nil
	}

	*s = splitTrimmed(raw)
	return nil
}

func splitTrimmed(raw string) StringSlice {
	if raw == "" {
		return StringSlice{}
	}
	items := strings.Split(raw, ",")
	for i, item := range items {
		items[i] = strings.TrimSpace(item)
	}
	return items
}
