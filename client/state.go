package client

import "fmt"

// State is the connection status of a Client.
type State int

const (
	Disconnected State = iota
	AwaitingWelcome
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case AwaitingWelcome:
		return "awaiting_welcome"
	case Connected:
		return "connected"
	}
	return fmt.Sprintf("state(%d)", int(s))
}
