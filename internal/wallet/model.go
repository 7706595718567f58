package wallet

import "time"

// State is the lifecycle stage of the protected component.
type State int

const (
	StateInert State = iota
	StateCreated
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateInert:
		return "inert"
	case StateCreated:
		return "created"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Session is an open channel from an untrusted caller. All sessions share
// the component's single wallet.
type Session struct {
	ID       string
	OpenedAt time.Time
}
