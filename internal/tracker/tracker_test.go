package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openelec/telemetry-relay/internal/domain"
)

func reading(id string, ts time.Time, power, co2 float64) domain.Reading {
	return domain.Reading{
		FacilityID: id,
		PowerMW:    power,
		CO2Kg:      co2,
		Timestamp:  ts,
	}
}

func TestUnseenFacilityPublishes(t *testing.T) {
	trk := New()
	r := reading("F1", time.Now().UTC(), 5.0, 1.2)
	assert.True(t, trk.ShouldPublish(r))
}

func TestIdenticalReadingSuppressedAfterMark(t *testing.T) {
	trk := New()
	r := reading("F1", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), 5.0, 1.2)

	require.True(t, trk.ShouldPublish(r))
	trk.MarkPublished(r, 1)
	assert.False(t, trk.ShouldPublish(r), "identical reading must be suppressed")

	// MarkPublished is idempotent.
	trk.MarkPublished(r, 1)
	assert.False(t, trk.ShouldPublish(r))
	assert.Equal(t, 1, trk.Tracked())
}

func TestNumericChangeRepublishes(t *testing.T) {
	trk := New()
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	trk.MarkPublished(reading("F1", ts, 5.0, 1.2), 1)

	assert.True(t, trk.ShouldPublish(reading("F1", ts, 5.1, 1.2)), "power change")
	assert.True(t, trk.ShouldPublish(reading("F1", ts, 5.0, 1.3)), "co2 change")
}

func TestTimestampAdvanceRepublishes(t *testing.T) {
	trk := New()
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	trk.MarkPublished(reading("F1", ts, 5.0, 1.2), 1)

	assert.True(t, trk.ShouldPublish(reading("F1", ts.Add(5*time.Minute), 5.0, 1.2)))
	assert.False(t, trk.ShouldPublish(reading("F1", ts.Add(-5*time.Minute), 5.0, 1.2)),
		"older timestamp with unchanged values is not novel")
}

func TestFacilitiesTrackedIndependently(t *testing.T) {
	trk := New()
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	trk.MarkPublished(reading("F1", ts, 5.0, 1.2), 1)

	assert.True(t, trk.ShouldPublish(reading("F2", ts, 5.0, 1.2)))
}
