// Package timeofday buckets local time for the published context.
package timeofday

import (
	"time"

	"github.com/sells-group/ambientctx/internal/model"
)

// Bucket boundaries (local hour, inclusive start).
const (
	morningStart = 6
	daytimeStart = 12
	eveningStart = 17
	nightStart   = 22
)

// Classify returns the bucket for a local hour in [0, 23].
//   - morning: 06:00–11:59
//   - daytime: 12:00–16:59
//   - evening: 17:00–21:59
//   - night:   22:00–05:59
func Classify(hour int) model.TimeOfDay {
	switch {
	case hour >= morningStart && hour < daytimeStart:
		return model.TimeMorning
	case hour >= daytimeStart && hour < eveningStart:
		return model.TimeDaytime
	case hour >= eveningStart && hour < nightStart:
		return model.TimeEvening
	default:
		return model.TimeNight
	}
}

// Breakdown returns the detailed time fields for t in t's own location.
func Breakdown(t time.Time) model.TimeDetails {
	_, offset := t.Zone()
	wd := t.Weekday()
	return model.TimeDetails{
		Hour:             t.Hour(),
		Minute:           t.Minute(),
		DayOfWeek:        int(wd),
		DayName:          wd.String(),
		IsWeekend:        wd == time.Saturday || wd == time.Sunday,
		Timezone:         t.Location().String(),
		UTCOffsetMinutes: offset / 60,
		LocalTime:        t.Format(time.RFC3339),
	}
}
