package peer

import "fmt"

// State is the negotiation state of one peer connection entry.
type State int

const (
	StateNew State = iota
	StateHaveLocalOffer
	StateHaveRemoteOffer
	StateConnecting
	StateConnected
	StateClosed
	StateFailed
)

var stateNames = map[State]string{
	StateNew:             "new",
	StateHaveLocalOffer:  "have-local-offer",
	StateHaveRemoteOffer: "have-remote-offer",
	StateConnecting:      "connecting",
	StateConnected:       "connected",
	StateClosed:          "closed",
	StateFailed:          "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further negotiation can happen.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateFailed
}

// transitions lists the forward edges. Failed and Closed are reachable from
// every non-terminal state and are handled in CanTransition.
var transitions = map[State][]State{
	StateNew:             {StateHaveLocalOffer, StateHaveRemoteOffer},
	StateHaveLocalOffer:  {StateConnecting, StateHaveRemoteOffer},
	StateHaveRemoteOffer: {StateConnecting},
	StateConnecting:      {StateConnected, StateHaveRemoteOffer},
	StateConnected:       {StateHaveRemoteOffer},
}

// CanTransition reports whether moving from s to next is allowed.
func (s State) CanTransition(next State) bool {
	if s == StateFailed {
		return next == StateClosed
	}
	if s.Terminal() {
		return false
	}
	if next.Terminal() {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
