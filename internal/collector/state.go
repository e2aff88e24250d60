package collector

// State is a step of a single collection pass.
type State int

const (
	StateStart State = iota
	StateTimeCollected
	StateLocationPending
	StateLocationResolved
	StateLocationFailed
	StatePublished
)

var stateNames = map[State]string{
	StateStart:            "start",
	StateTimeCollected:    "time_collected",
	StateLocationPending:  "location_pending",
	StateLocationResolved: "location_resolved",
	StateLocationFailed:   "location_failed",
	StatePublished:        "published",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "invalid"
}

// terminalLocation reports whether s ends the location phase of a pass.
func (s State) terminalLocation() bool {
	return s == StateLocationResolved || s == StateLocationFailed
}
