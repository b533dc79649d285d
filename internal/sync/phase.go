package sync

// Phase is the step of the sync cycle the controller is in.
type Phase int

const (
	Idle Phase = iota
	QueryingBoth
	Merging
	Autojoining
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case QueryingBoth:
		return "querying_both"
	case Merging:
		return "merging"
	case Autojoining:
		return "autojoining"
	default:
		return "unknown"
	}
}
