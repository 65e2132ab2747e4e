package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Variables is a JSON object stored in a jsonb column
type Variables map[string]interface{}

// Value implements driver.Valuer interface
func (v Variables) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Scan implements sql.Scanner interface
func (v *Variables) Scan(value interface{}) error {
	switch data := value.(type) {
	case nil:
		*v = make(Variables)
		return nil
	case []byte:
		return json.Unmarshal(data, v)
	case string:
		return json.Unmarshal([]byte(data), v)
	default:
		return fmt.Errorf("scan variables from %T", value)
	}
}
