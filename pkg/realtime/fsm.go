package realtime

import "time"

// Trigger is an input of the connection state machine.
type Trigger int

const (
	TriggerConnect   Trigger = iota // application asks to connect
	TriggerConnected                // transport handshake succeeded
	TriggerFailed                   // transport handshake failed
	TriggerDropped                  // established connection was lost
	TriggerReconnect                // manual reconnect
	TriggerClose                    // application shuts the manager down
)

func (t Trigger) String() string {
	switch t {
	case TriggerConnect:
		return "connect"
	case TriggerConnected:
		return "connected"
	case TriggerFailed:
		return "failed"
	case TriggerDropped:
		return "dropped"
	case TriggerReconnect:
		return "reconnect"
	case TriggerClose:
		return "close"
	default:
		return "unknown"
	}
}

// Event feeds the state machine. ServerInitiated only matters for TriggerDropped.
type Event struct {
	Trigger         Trigger
	ServerInitiated bool
}

// ActionKind is a side effect requested by a transition.
type ActionKind int

const (
	ActionDial   ActionKind = iota // open a transport connection after Delay
	ActionReplay                   // re-join every tracked topic on the new connection
	ActionHangUp                   // close the current transport connection
)

// Action is one side effect the caller of Transition must execute, in order.
type Action struct {
	Kind  ActionKind
	Delay time.Duration
}

// Limits bound the reconnection policy.
type Limits struct {
	MaxAttempts   int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// Delay returns the wait before retry number attempt: RetryDelay*attempt,
// capped at MaxRetryDelay when it is set.
func (l Limits) Delay(attempt int) time.Duration {
	d := l.RetryDelay * time.Duration(max(attempt, 1))
	if l.MaxRetryDelay > 0 && d > l.MaxRetryDelay {
		return l.MaxRetryDelay
	}
	return d
}

// Session is the state of one connection manager.
// Attempt counts consecutive failed handshakes since the last success.
type Session struct {
	Status  Status
	Attempt int
}

// Transition computes the next session and the side effects for ev.
// It is pure: inputs that do not apply to the current status leave the
// session unchanged and request nothing.
func Transition(s Session, ev Event, l Limits) (Session, []Action) {
	if ev.Trigger == TriggerClose {
		return Session{Status: StatusDisconnected}, []Action{{Kind: ActionHangUp}}
	}

	switch s.Status {
	case StatusDisconnected:
		if ev.Trigger == TriggerConnect || ev.Trigger == TriggerReconnect {
			return Session{Status: StatusConnecting}, []Action{{Kind: ActionDial}}
		}

	case StatusConnecting:
		switch ev.Trigger {
		case TriggerConnected:
			return Session{Status: StatusConnected}, []Action{{Kind: ActionReplay}}
		case TriggerFailed:
			attempt := s.Attempt + 1
			if attempt >= l.MaxAttempts {
				return Session{Status: StatusDegraded, Attempt: attempt}, nil
			}
			return Session{Status: StatusConnecting, Attempt: attempt},
				[]Action{{Kind: ActionDial, Delay: l.Delay(attempt)}}
		}

	case StatusConnected:
		if ev.Trigger == TriggerDropped {
			if ev.ServerInitiated {
				return Session{Status: StatusDegraded}, []Action{{Kind: ActionHangUp}}
			}
			return Session{Status: StatusConnecting},
				[]Action{{Kind: ActionHangUp}, {Kind: ActionDial, Delay: l.Delay(1)}}
		}

	case StatusDegraded:
		if ev.Trigger == TriggerReconnect {
			return Session{Status: StatusConnecting}, []Action{{Kind: ActionDial}}
		}
	}

	return s, nil
}
