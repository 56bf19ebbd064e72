package checkin

//go:generate go run github.com/dmarkham/enumer -type State -trimprefix State -transform snake -json -output state.gen.go

// State is a step of the check-in state machine. Pending and the two
// verifying states are transient; success, failed and manual_override are
// terminal and each maps to exactly one log entry.
type State int

const (
	StatePending State = iota
	StateVerifyingCredential
	StateVerifyingIdentity
	StateSuccess
	StateFailed
	StateManualOverride
)

// Terminal reports whether the state machine stops here.
func (i State) Terminal() bool {
	return i == StateSuccess || i == StateFailed || i == StateManualOverride
}
