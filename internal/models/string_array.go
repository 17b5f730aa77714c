package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringArray stores string lists (attachment references, read-by user ids)
// as a JSON column.
type StringArray []string

func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *StringArray) Scan(value interface{}) error {
	if a == nil {
		return fmt.Errorf("models.StringArray: Scan on nil pointer")
	}
	if value == nil {
		*a = []string{}
		return nil
	}

	var raw string
	switch v := value.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("models.StringArray: unsupported Scan type %T", value)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		*a = []string{}
		return nil
	}

	var arr []string
	if err := json.Unmarshal([]byte(raw), &arr); err != nil {
		return fmt.Errorf("models.StringArray: %w", err)
	}
	*a = arr
	return nil
}

// Contains reports whether s is present in the array.
func (a StringArray) Contains(s string) bool {
	for _, v := range a {
		if v == s {
			return true
		}
	}
	return false
}
