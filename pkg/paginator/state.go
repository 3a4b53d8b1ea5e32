package paginator

// State is a step of a download run.
type State int

// Run states. A run moves forward through them and ends in Done or Failed.
const (
	StateIdle State = iota
	StateAuthenticating
	StateFetchingFirstPage
	StateFetchingRemaining
	StateAggregating
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:              "idle",
	StateAuthenticating:    "authenticating",
	StateFetchingFirstPage: "fetching_first_page",
	StateFetchingRemaining: "fetching_remaining",
	StateAggregating:       "aggregating",
	StateDone:              "done",
	StateFailed:            "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Running reports whether a run is in progress.
func (s State) Running() bool {
	return s > StateIdle && s < StateDone
}
