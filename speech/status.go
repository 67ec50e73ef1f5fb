package speech

// Status reflects the speaker's current phase.
type Status int

const (
	// StatusIdle means no utterance is in flight.
	StatusIdle Status = iota
	// StatusProcessing means a synthesis request is in flight.
	StatusProcessing
	// StatusSpeaking means audio is scheduled or playing.
	StatusSpeaking
	// StatusError means the last utterance failed.
	StatusError
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusProcessing:
		return "processing"
	case StatusSpeaking:
		return "speaking"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}
