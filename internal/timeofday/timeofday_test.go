package timeofday

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/ambientctx/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		hour int
		want model.TimeOfDay
	}{
		{0, model.TimeNight},
		{5, model.TimeNight},
		{6, model.TimeMorning},
		{11, model.TimeMorning},
		{12, model.TimeDaytime},
		{16, model.TimeDaytime},
		{17, model.TimeEvening},
		{21, model.TimeEvening},
		{22, model.TimeNight},
		{23, model.TimeNight},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.hour), "hour %d", tt.hour)
	}
}

func TestBreakdown(t *testing.T) {
	loc := time.FixedZone("EST", -5*60*60)
	// 2026-10-17 is a Saturday.
	ts := time.Date(2026, 10, 17, 9, 30, 0, 0, loc)

	d := Breakdown(ts)
	assert.Equal(t, 9, d.Hour)
	assert.Equal(t, 30, d.Minute)
	assert.Equal(t, 6, d.DayOfWeek)
	assert.Equal(t, "Saturday", d.DayName)
	assert.True(t, d.IsWeekend)
	assert.Equal(t, "EST", d.Timezone)
	assert.Equal(t, -300, d.UTCOffsetMinutes)
	assert.Equal(t, "2026-10-17T09:30:00-05:00", d.LocalTime)
}

func TestBreakdown_Weekday(t *testing.T) {
	ts := time.Date(2026, 10, 14, 23, 5, 0, 0, time.UTC)

	d := Breakdown(ts)
	assert.Equal(t, "Wednesday", d.DayName)
	assert.False(t, d.IsWeekend)
	assert.Equal(t, 0, d.UTCOffsetMinutes)
}
