package voice

// State is a peer's position in the signaling state machine. Every peer
// starts CONNECTING, becomes SIGNALING once an offer/answer exchange is
// under way, reaches CONNECTED when ICE reports a connected peer
// connection, and is CLOSED once torn down. Transitions only move
// forward; a CLOSED peer is never reused.
type State string

const (
	StateConnecting State = "CONNECTING"
	StateSignaling  State = "SIGNALING"
	StateConnected  State = "CONNECTED"
	StateClosed     State = "CLOSED"
)
