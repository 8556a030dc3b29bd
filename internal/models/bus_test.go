package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBus_RunsOn(t *testing.T) {
	saturday := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	monday := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)

	daily := &Bus{ID: "b1", Status: BusStatusActive}
	assert.True(t, daily.RunsOn(saturday))
	assert.True(t, daily.RunsOn(monday))

	weekend := &Bus{ID: "b2", Status: BusStatusActive, OperatingDays: StringArray{"Sat", " sun "}}
	assert.True(t, weekend.RunsOn(saturday))
	assert.False(t, weekend.RunsOn(monday))

	parked := &Bus{ID: "b3", Status: BusStatusMaintenance}
	assert.False(t, parked.RunsOn(saturday))
}

func TestBus_DepartsAt(t *testing.T) {
	loc := time.FixedZone("LKT", 5*3600+1800)
	date := time.Date(2026, 1, 10, 0, 0, 0, 0, loc)

	bus := &Bus{DepartureTime: "08:30"}
	assert.Equal(t, time.Date(2026, 1, 10, 8, 30, 0, 0, loc), bus.DepartsAt(date))

	bus.DepartureTime = "late"
	assert.Equal(t, date, bus.DepartsAt(date))
}

func TestBus_Validate(t *testing.T) {
	assert.NoError(t, (&Bus{ID: "b1", Rows: 10, Columns: 4}).Validate())
	assert.Error(t, (&Bus{Rows: 10, Columns: 4}).Validate())
	assert.Error(t, (&Bus{ID: "b1", Rows: 10}).Validate())
}
