// Package realtime keeps one resilient realtime connection and the set of
// topics the application is interested in.
//
// # State Machine
//
// Connection handling is a pure function, [Transition], from a [Session] and an
// [Event] to the next session plus the [Action] values to run:
//
//	disconnected --connect--> connecting
//	connecting   --connected--> connected   (attempt reset, topics replayed)
//	connecting   --failed--> connecting     (attempt+1, retried after min(delay*attempt, maxDelay))
//	connecting   --failed, attempts exhausted--> degraded
//	connected    --dropped by server--> degraded
//	connected    --dropped by network--> connecting
//	degraded     --reconnect--> connecting
//
// [Manager] is the thin adapter that feeds transport events into [Transition]
// and executes the actions. Degraded is left only through [Manager.Reconnect];
// the application keeps working over request/response fetches meanwhile and can
// watch for it with [Manager.OnStatus].
//
// # Topics
//
// [Manager.Join] and [Manager.Leave] are idempotent set operations. A join made
// while disconnected is sent after the next successful connection, and every
// tracked topic is re-joined after a reconnect. A topic that fails to re-join is
// logged with [ErrReplay] and retried on the following connection.
//
//	m := realtime.NewManager(&realtime.WebSocketDialer{URL: wsURL}, realtime.WithLogger(log))
//	defer m.Close()
//
//	stop := m.Handle("post:42", func(ctx context.Context, msg realtime.Message) {
//	    applyLikeDelta(msg.Payload)
//	})
//	defer stop()
//
//	_ = m.Start(ctx)
//	_ = m.Join(ctx, "post:42")
//
// Messages go only to handlers of joined topics. They never touch the resource
// cache.
//
// # Transport
//
// [Dialer] and [Conn] abstract the wire. [WebSocketDialer] implements them with
// github.com/gorilla/websocket and JSON envelopes.
package realtime
