package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

// StringArray is a custom type for handling TEXT[] arrays in PostgreSQL
type StringArray []string

// Value implements the driver.Valuer interface
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return pq.Array([]string(a)).Value()
}

// Scan implements the sql.Scanner interface
func (a *StringArray) Scan(src interface{}) error {
	if src == nil {
		*a = nil
		return nil
	}
	slice := (*[]string)(a)
	return pq.Array(slice).Scan(src)
}

// SeatCodeArray stores seat codes as a TEXT[] of "row-column" strings
type SeatCodeArray []SeatCode

// Value implements the driver.Valuer interface
func (a SeatCodeArray) Value() (driver.Value, error) {
	return pq.Array(SeatCodeStrings(a)).Value()
}

// Scan implements the sql.Scanner interface
func (a *SeatCodeArray) Scan(src interface{}) error {
	if src == nil {
		*a = SeatCodeArray{}
		return nil
	}
	var raw []string
	if err := pq.Array(&raw).Scan(src); err != nil {
		return err
	}
	codes, err := ParseSeatCodes(raw)
	if err != nil {
		return err
	}
	*a = codes
	return nil
}

// JSONB stores any JSON-serialisable value in a JSONB column
type JSONB[T any] struct {
	Data T
}

// Value implements the driver.Valuer interface
func (j JSONB[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.Data)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface
func (j *JSONB[T]) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported JSONB source type %T", src)
	}
	return json.Unmarshal(data, &j.Data)
}
