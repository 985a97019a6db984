package job

// State is a job's lifecycle state. Transitions only move forward.
type State int

const (
	StateInit State = iota
	StateFetching
	StateScanning
	StateAwaitingSelection
	StatePacking
	StateCompleted
	StateFailed
)

var stateNames = [...]string{
	StateInit:              "init",
	StateFetching:          "fetching",
	StateScanning:          "scanning",
	StateAwaitingSelection: "awaiting_selection",
	StatePacking:           "packing",
	StateCompleted:         "completed",
	StateFailed:            "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether s is Completed or Failed.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}
