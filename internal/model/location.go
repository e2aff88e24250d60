// Package model defines the data published by the context collector.
package model

// Classification is the urbanicity of a point.
type Classification string

const (
	ClassUrban    Classification = "urban"
	ClassSuburban Classification = "suburban"
	ClassRural    Classification = "rural"
	ClassUnknown  Classification = "unknown" // only produced on the degraded path
)

// UnknownValue replaces absent location strings.
const UnknownValue = "Unknown"

// Location is the resolved position of the collector's public IP.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
	Timezone  string  `json:"timezone"`
	IP        string  `json:"ip"`
	State     string  `json:"state"`
}

// CachedLocationRecord is what the session cache holds after a successful resolution.
type CachedLocationRecord struct {
	Location       Location       `json:"location"`
	Classification Classification `json:"classification"`
}

// ClassificationPtr returns a pointer to c.
func ClassificationPtr(c Classification) *Classification {
	return &c
}
