package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// StringArray stores a list of strings as a JSON text column, which every supported
// driver can hold without dialect-specific array types.
type StringArray []string

// Scan implements the sql.Scanner interface for reading from the database.
func (a *StringArray) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		return a.scanBytes(v)
	case string:
		return a.scanBytes([]byte(v))
	default:
		return errors.New("StringArray: unsupported scan type")
	}
}

func (a *StringArray) scanBytes(data []byte) error {
	if len(data) == 0 {
		*a = StringArray{}
		return nil
	}
	return json.Unmarshal(data, (*[]string)(a))
}

// Value implements the driver.Valuer interface for writing to the database.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// GormDataType returns the GORM data type hint.
func (StringArray) GormDataType() string {
	return "text"
}

// Contains reports whether s is one of the stored values.
func (a StringArray) Contains(s string) bool {
	for _, v := range a {
		if v == s {
			return true
		}
	}
	return false
}
