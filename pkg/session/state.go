package session

//go:generate go run github.com/dmarkham/enumer -type State -trimprefix State -transform snake -output state.gen.go

// State is the lifecycle stage of a session. Sessions only move forward.
type State int

const (
	StateConnecting State = iota
	StateAuthorized
	StateSubscribed
	StateActive
	StateClosed
)
