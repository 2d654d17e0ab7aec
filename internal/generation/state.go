package generation

// State is the position of a run in the orchestrator state machine:
// NotStarted -> StageRunning -> Integrating -> Validated -> Complete, with
// Failed reachable from StageRunning and Integrating.
type State int

const (
	NotStarted State = iota
	StageRunning
	Integrating
	Validated
	Complete
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case StageRunning:
		return "stage_running"
	case Integrating:
		return "integrating"
	case Validated:
		return "validated"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
