package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nextstop/booking-backend/internal/domain"
)

// SeatCode identifies one physical seat in a bus grid, written as "row-column" (e.g. "3-2")
type SeatCode struct {
	Row    int
	Column int
}

// String returns the canonical "row-column" form
func (s SeatCode) String() string {
	return strconv.Itoa(s.Row) + "-" + strconv.Itoa(s.Column)
}

// Less orders seats by row, then column
func (s SeatCode) Less(other SeatCode) bool {
	if s.Row != other.Row {
		return s.Row < other.Row
	}
	return s.Column < other.Column
}

// MarshalJSON encodes the seat as its string form
func (s SeatCode) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a seat from its string form
func (s *SeatCode) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("seat code must be a string: %w", err)
	}
	parsed, err := ParseSeatCode(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeatCode parses "row-column". Both parts must be positive integers without
// signs, leading zeros or surrounding whitespace.
func ParseSeatCode(raw string) (SeatCode, error) {
	parts := strings.Split(raw, "-")
	if len(parts) != 2 {
		return SeatCode{}, fmt.Errorf("invalid seat code %q: expected row-column", raw)
	}

	row, err := parseSeatPart(parts[0])
	if err != nil {
		return SeatCode{}, fmt.Errorf("invalid seat code %q: row %v", raw, err)
	}
	col, err := parseSeatPart(parts[1])
	if err != nil {
		return SeatCode{}, fmt.Errorf("invalid seat code %q: column %v", raw, err)
	}

	return SeatCode{Row: row, Column: col}, nil
}

func parseSeatPart(part string) (int, error) {
	if part == "" {
		return 0, fmt.Errorf("is empty")
	}
	for _, r := range part {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("must contain digits only")
		}
	}
	if part[0] == '0' {
		return 0, fmt.Errorf("must be a positive number without leading zeros")
	}
	n, err := strconv.Atoi(part)
	if err != nil {
		return 0, fmt.Errorf("is out of range")
	}
	return n, nil
}

// ParseSeatCodes parses every code in order and stops at the first invalid one
func ParseSeatCodes(raw []string) ([]SeatCode, error) {
	codes := make([]SeatCode, 0, len(raw))
	for _, r := range raw {
		code, err := ParseSeatCode(r)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// SortSeatCodes sorts in place by row, then column
func SortSeatCodes(codes []SeatCode) {
	sort.Slice(codes, func(i, j int) bool { return codes[i].Less(codes[j]) })
}

// SeatCodeStrings converts codes back to their string form
func SeatCodeStrings(codes []SeatCode) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = c.String()
	}
	return out
}

// SeatNumberList is the request-side seat list. Older clients send seats as a
// comma-joined string ("1-1,1-2") or a bracketed pseudo array ("[1-1, 1-2]");
// both are normalised here so nothing past the HTTP boundary sees them.
type SeatNumberList []SeatCode

// UnmarshalJSON accepts a JSON array of codes or a single joined string.
// Failures are reported as validation errors on seat_numbers.
func (l *SeatNumberList) UnmarshalJSON(data []byte) error {
	codes, err := parseSeatNumberList(data)
	if err != nil {
		return domain.ValidationError{Field: "seat_numbers", Msg: err.Error()}
	}
	*l = codes
	return nil
}

func parseSeatNumberList(data []byte) (SeatNumberList, error) {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		return ParseSeatCodes(trimAll(list))
	}

	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return nil, fmt.Errorf("must be an array of seat codes")
	}

	joined = strings.TrimSpace(joined)
	joined = strings.TrimPrefix(joined, "[")
	joined = strings.TrimSuffix(joined, "]")
	if strings.TrimSpace(joined) == "" {
		return SeatNumberList{}, nil
	}

	parts := strings.Split(joined, ",")
	for i, p := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(p), `"'`)
	}
	return ParseSeatCodes(parts)
}

func trimAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

// SeatGrid is the fixed row x column layout of a bus
type SeatGrid struct {
	Rows    int `json:"rows" db:"rows"`
	Columns int `json:"columns" db:"columns"`
}

// Capacity returns the number of seats in the grid
func (g SeatGrid) Capacity() int {
	return g.Rows * g.Columns
}

// Contains reports whether the code lies inside the grid
func (g SeatGrid) Contains(code SeatCode) bool {
	return code.Row >= 1 && code.Row <= g.Rows && code.Column >= 1 && code.Column <= g.Columns
}

// Seats enumerates every seat of the grid in row, column order
func (g SeatGrid) Seats() []SeatCode {
	if g.Rows <= 0 || g.Columns <= 0 {
		return []SeatCode{}
	}
	seats := make([]SeatCode, 0, g.Capacity())
	for r := 1; r <= g.Rows; r++ {
		for c := 1; c <= g.Columns; c++ {
			seats = append(seats, SeatCode{Row: r, Column: c})
		}
	}
	return seats
}

// Validate checks the grid has at least one seat
func (g SeatGrid) Validate() error {
	if g.Rows <= 0 || g.Columns <= 0 {
		return fmt.Errorf("seat grid must have positive rows and columns, got %dx%d", g.Rows, g.Columns)
	}
	return nil
}
