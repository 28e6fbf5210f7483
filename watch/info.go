package watch

import "time"

// Info is a point-in-time view of one listener
type Info struct {
	ID        ListenerID `json:"id"`
	Target    string     `json:"target"`
	Kind      string     `json:"kind"`
	Transport string     `json:"transport"`
	State     State      `json:"state"`
	StartedAt time.Time  `json:"started_at"`
}

// Inspector lists registered listeners
type Inspector interface {
	Listeners() []Info
}
