package watch

// State is a listener's position in its connection state machine
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateStreaming    State = "streaming"
	StateReconnecting State = "reconnecting"
	StateStopped      State = "stopped"
)

// States lists every state, for gauges that report zero counts
var States = []State{StateIdle, StateConnecting, StateStreaming, StateReconnecting, StateStopped}

// StateNames returns States as strings
func StateNames() []string {
	names := make([]string, len(States))
	for i, s := range States {
		names[i] = string(s)
	}
	return names
}

// Stop reasons recorded in telemetry
const (
	StopExplicit  = "explicit"
	StopExhausted = "exhausted"
	StopFailed    = "failed"
	StopClosed    = "closed"
)
