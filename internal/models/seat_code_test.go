package models

import (
	"encoding/json"
	"testing"

	"github.com/nextstop/booking-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeatCode(t *testing.T) {
	tests := []struct {
		raw     string
		want    SeatCode
		wantErr bool
	}{
		{raw: "1-1", want: SeatCode{Row: 1, Column: 1}},
		{raw: "12-4", want: SeatCode{Row: 12, Column: 4}},
		{raw: "0-1", wantErr: true},
		{raw: "01-1", wantErr: true},
		{raw: "1-", wantErr: true},
		{raw: "-1", wantErr: true},
		{raw: "1-2-3", wantErr: true},
		{raw: "A-1", wantErr: true},
		{raw: " 1-1", wantErr: true},
		{raw: "+1-1", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseSeatCode(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.raw, got.String())
		})
	}
}

func TestSortSeatCodes_RowThenColumn(t *testing.T) {
	codes := []SeatCode{{10, 1}, {2, 3}, {2, 1}, {1, 4}}
	SortSeatCodes(codes)
	assert.Equal(t, []string{"1-4", "2-1", "2-3", "10-1"}, SeatCodeStrings(codes))
}

func TestSeatNumberList_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    []string
		wantErr bool
	}{
		{name: "array", body: `["1-1","1-2"]`, want: []string{"1-1", "1-2"}},
		{name: "array with spaces", body: `[" 2-1 "]`, want: []string{"2-1"}},
		{name: "comma joined", body: `"1-1,1-2"`, want: []string{"1-1", "1-2"}},
		{name: "bracketed string", body: `"[1-1, 'A'-2]"`, wantErr: true},
		{name: "bracketed quoted", body: `"['3-1', \"3-2\"]"`, want: []string{"3-1", "3-2"}},
		{name: "empty string", body: `""`, want: []string{}},
		{name: "number", body: `5`, wantErr: true},
		{name: "bad code", body: `["1-x"]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var list SeatNumberList
			err := json.Unmarshal([]byte(tt.body), &list)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, domain.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, SeatCodeStrings(list))
		})
	}
}

func TestSeatCode_JSONRoundTrip(t *testing.T) {
	data, err := json.Marshal([]SeatCode{{3, 2}})
	require.NoError(t, err)
	assert.JSONEq(t, `["3-2"]`, string(data))

	var codes []SeatCode
	require.NoError(t, json.Unmarshal(data, &codes))
	assert.Equal(t, []SeatCode{{3, 2}}, codes)

	assert.Error(t, json.Unmarshal([]byte(`[32]`), &codes))
}

func TestSeatGrid(t *testing.T) {
	grid := SeatGrid{Rows: 2, Columns: 3}

	assert.Equal(t, 6, grid.Capacity())
	assert.Equal(t, []string{"1-1", "1-2", "1-3", "2-1", "2-2", "2-3"}, SeatCodeStrings(grid.Seats()))
	assert.True(t, grid.Contains(SeatCode{2, 3}))
	assert.False(t, grid.Contains(SeatCode{3, 1}))
	assert.False(t, grid.Contains(SeatCode{1, 4}))
	assert.NoError(t, grid.Validate())

	assert.Error(t, SeatGrid{Rows: 0, Columns: 4}.Validate())
	assert.Empty(t, SeatGrid{}.Seats())
}
