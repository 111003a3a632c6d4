package realtime

// Status is the connection state reported to the application.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	// StatusDegraded means realtime updates are unavailable and no automatic
	// retry is scheduled. Only Reconnect leaves it.
	StatusDegraded
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}
