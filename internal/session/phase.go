package session

import "fmt"

// Phase is the state of a [Session].
type Phase int

const (
	Init Phase = iota
	Resolving
	Connecting
	Handshaking
	Writing
	Reading
	Done
	Failed
)

var phaseNames = [...]string{"init", "resolving", "connecting", "handshaking", "writing", "reading", "done", "failed"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Tags naming the step a failure happened in.
const (
	TagPrepare   = "prepare"
	TagResolve   = "resolve"
	TagConnect   = "connect"
	TagHandshake = "handshake"
	TagWrite     = "write"
	TagRead      = "read"
	TagShutdown  = "shutdown"
)

// PhaseError is the error a failed session ends with.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string { return e.Phase + ": " + e.Err.Error() }

func (e *PhaseError) Unwrap() error { return e.Err }
