package model

// TimeOfDay is the coarse local-time bucket of a collection pass.
type TimeOfDay string

const (
	TimeMorning TimeOfDay = "morning"
	TimeDaytime TimeOfDay = "daytime"
	TimeEvening TimeOfDay = "evening"
	TimeNight   TimeOfDay = "night"
)

// TimeDetails is the detailed local-time breakdown published with a context.
type TimeDetails struct {
	Hour             int    `json:"hour"`
	Minute           int    `json:"minute"`
	DayOfWeek        int    `json:"day_of_week"` // 0 = Sunday
	DayName          string `json:"day_name"`
	IsWeekend        bool   `json:"is_weekend"`
	Timezone         string `json:"timezone"`
	UTCOffsetMinutes int    `json:"utc_offset_minutes"`
	LocalTime        string `json:"local_time"`
}

// Device is a snapshot of the host the collector runs on.
type Device struct {
	Agent     string `json:"agent"`
	Platform  string `json:"platform"`
	Arch      string `json:"arch"`
	Language  string `json:"language"`
	Hostname  string `json:"hostname"`
	NumCPU    int    `json:"num_cpu"`
	Timezone  string `json:"timezone"`
	GoVersion string `json:"go_version"`
}

// OutcomeStatus tags how a collection pass ended.
type OutcomeStatus string

const (
	OutcomeComplete            OutcomeStatus = "complete"
	OutcomeLocationUnavailable OutcomeStatus = "location_unavailable"
	OutcomeDegraded            OutcomeStatus = "degraded"
)

// Outcome explains why a context looks the way it does.
type Outcome struct {
	Status OutcomeStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
	Detail string        `json:"detail,omitempty"`
}

// UserContext is the artifact published once per collection pass.
// Consumers must treat it as a read-only snapshot.
type UserContext struct {
	PassID               string          `json:"pass_id"`
	TimeOfDay            TimeOfDay       `json:"time_of_day"`
	TimeDetails          TimeDetails     `json:"time_details"`
	Location             *Location       `json:"location"`
	Classification       *Classification `json:"geographic_classification"`
	Device               Device          `json:"device"`
	Timestamp            string          `json:"timestamp"`
	CollectionDurationMS *int64          `json:"collection_duration_ms"`
	Error                string          `json:"error,omitempty"`
	FromCache            bool            `json:"from_cache"`
	Outcome              Outcome         `json:"outcome"`
}

// Clone returns a deep copy so readers never share pointers with the publisher.
func (u UserContext) Clone() UserContext {
	out := u
	if u.Location != nil {
		loc := *u.Location
		out.Location = &loc
	}
	if u.Classification != nil {
		c := *u.Classification
		out.Classification = &c
	}
	if u.CollectionDurationMS != nil {
		d := *u.CollectionDurationMS
		out.CollectionDurationMS = &d
	}
	return out
}
