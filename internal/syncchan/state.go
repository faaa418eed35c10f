package syncchan

import "fmt"

// State is the connectivity of the channel
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EventKind tags an Event
type EventKind int

const (
	EventOpen EventKind = iota
	EventMessage
	EventClose
)

func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "open"
	case EventMessage:
		return "message"
	case EventClose:
		return "close"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is delivered to the single consumer of a Channel.
// Gen identifies the socket the event came from.
type Event struct {
	Kind    EventKind
	Gen     uint64
	Message Inbound
	Err     error
}
