package realtime

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Manager owns the single realtime connection of the application.
//
// It drives Transition with transport events, re-dials with a bounded delay,
// and keeps an idempotent set of joined topics that is replayed on every new
// connection.
type Manager struct {
	dialer    Dialer
	opts      *options
	ctx       context.Context
	cancel    context.CancelFunc
	conn      Conn
	topics    map[string]struct{}
	joined    map[string]struct{} // topics sent on the current conn
	handlers  map[string]map[uint64]Handler
	listeners map[uint64]func(Status)
	events    chan Event
	session   Session
	nextID    uint64
	wg        sync.WaitGroup
	mu        sync.Mutex
	started   bool
	closed    bool
}

// NewManager creates a manager. Nothing is dialed until Start.
//
// Example:
//
//	m := realtime.NewManager(&realtime.WebSocketDialer{URL: "wss://api.example.com/ws"},
//	    realtime.WithMaxAttempts(5),
//	    realtime.WithRetryDelay(time.Second, 5*time.Second),
//	)
//	defer m.Close()
//	_ = m.Start(ctx)
//	_ = m.Join(ctx, "post:42")
func NewManager(d Dialer, opts ...Option) *Manager {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &Manager{
		dialer:    d,
		opts:      o,
		topics:    make(map[string]struct{}),
		joined:    make(map[string]struct{}),
		handlers:  make(map[string]map[uint64]Handler),
		listeners: make(map[uint64]func(Status)),
		events:    make(chan Event, 16),
	}
}

// Start begins connecting. ctx bounds the lifetime of the manager.
// Calling Start more than once is a no-op.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.ctx, m.cancel = context.WithCancel(ctx)
	loopCtx := m.ctx
	m.wg.Go(func() { m.loop(loopCtx) })
	m.mu.Unlock()

	return m.send(loopCtx, Event{Trigger: TriggerConnect})
}

// Close hangs up, stops all background work and reports StatusDisconnected.
// Close is idempotent.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	cancel := m.cancel
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	m.wg.Wait()

	m.apply(context.Background(), Event{Trigger: TriggerClose})
	return nil
}

// Reconnect is the manual way out of StatusDegraded. It has no effect while
// connecting or connected.
func (m *Manager) Reconnect(ctx context.Context) error {
	m.mu.Lock()
	closed, started, loopCtx := m.closed, m.started, m.ctx
	m.mu.Unlock()

	switch {
	case closed:
		return ErrClosed
	case !started:
		return ErrNotConnected
	}

	select {
	case m.events <- Event{Trigger: TriggerReconnect}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-loopCtx.Done():
		return ErrClosed
	}
}

// Status returns the current connection status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Status
}

// Session returns a snapshot of the state machine.
func (m *Manager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Topics returns the tracked topics in sorted order.
func (m *Manager) Topics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	topics := make([]string, 0, len(m.topics))
	for t := range m.topics {
		topics = append(topics, t)
	}
	slices.Sort(topics)
	return topics
}

// Join adds topic to the tracked set. When connected the join is sent right
// away, otherwise it is sent after the next successful connection. Joining a
// tracked topic is a no-op.
//
// Transport failures are logged, not returned: the topic stays tracked and is
// replayed on reconnect.
func (m *Manager) Join(ctx context.Context, topic string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if _, ok := m.topics[topic]; ok {
		m.mu.Unlock()
		return nil
	}
	m.topics[topic] = struct{}{}
	conn := m.conn
	send := conn != nil && m.session.Status == StatusConnected
	if send {
		m.joined[topic] = struct{}{}
	}
	m.mu.Unlock()

	if !send {
		return nil
	}

	if err := m.emit(ctx, conn, JoinEvent, topic); err != nil {
		m.mu.Lock()
		if m.conn == conn {
			delete(m.joined, topic)
		}
		m.mu.Unlock()

		m.opts.logger.WarnContext(ctx, "join deferred until reconnect",
			slog.String("topic", topic),
			slog.Any("error", errors.Join(ErrConnection, err)),
		)
	}
	return nil
}

// Leave removes topic from the tracked set and sends a leave when the topic
// was joined on the current connection. Leaving an unknown topic is a no-op.
func (m *Manager) Leave(ctx context.Context, topic string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if _, ok := m.topics[topic]; !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.topics, topic)
	_, wasJoined := m.joined[topic]
	delete(m.joined, topic)
	conn := m.conn
	m.mu.Unlock()

	if !wasJoined || conn == nil {
		return nil
	}

	if err := m.emit(ctx, conn, LeaveEvent, topic); err != nil {
		m.opts.logger.WarnContext(ctx, "leave not delivered",
			slog.String("topic", topic),
			slog.Any("error", errors.Join(ErrConnection, err)),
		)
	}
	return nil
}

// Publish sends an application event on the current connection.
// It returns ErrNotConnected unless the status is StatusConnected.
func (m *Manager) Publish(ctx context.Context, event, topic string, payload any) error {
	m.mu.Lock()
	conn := m.conn
	connected := conn != nil && m.session.Status == StatusConnected
	m.mu.Unlock()

	if !connected {
		return ErrNotConnected
	}
	if err := conn.Emit(ctx, event, topic, payload); err != nil {
		return errors.Join(ErrConnection, err)
	}
	return nil
}

// Handle registers fn for messages on topic. Messages are delivered only
// while the topic is joined. The returned func unregisters fn.
func (m *Manager) Handle(topic string, fn Handler) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	if m.handlers[topic] == nil {
		m.handlers[topic] = make(map[uint64]Handler)
	}
	m.handlers[topic][id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.handlers[topic], id)
		if len(m.handlers[topic]) == 0 {
			delete(m.handlers, topic)
		}
	}
}

// OnStatus registers fn for status changes. It is how the application learns
// that realtime updates are unavailable. The returned func unregisters fn.
func (m *Manager) OnStatus(fn func(Status)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	m.listeners[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *Manager) send(ctx context.Context, ev Event) error {
	select {
	case m.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-m.events:
			m.apply(ctx, ev)
		}
	}
}

// apply runs one transition and executes its actions. Only the loop goroutine
// and Close call it.
func (m *Manager) apply(ctx context.Context, ev Event) {
	m.mu.Lock()
	prev := m.session
	next, actions := Transition(prev, ev, m.opts.limits)
	m.session = next
	m.mu.Unlock()

	if next.Status != prev.Status {
		m.notify(ctx, prev.Status, next)
	}

	for _, a := range actions {
		switch a.Kind {
		case ActionDial:
			m.wg.Go(func() { m.dial(ctx, a.Delay, next.Attempt) })
		case ActionReplay:
			m.mu.Lock()
			conn := m.conn
			m.mu.Unlock()
			if conn != nil {
				m.wg.Go(func() { m.read(ctx, conn) })
				m.replay(ctx, conn)
			}
		case ActionHangUp:
			m.hangUp()
		}
	}
}

func (m *Manager) notify(ctx context.Context, from Status, s Session) {
	m.opts.metrics.setStatus(s.Status)

	if s.Status == StatusDegraded {
		m.opts.logger.WarnContext(ctx, "realtime unavailable",
			slog.String("from", from.String()),
			slog.Int("attempt", s.Attempt),
		)
	} else {
		m.opts.logger.InfoContext(ctx, "realtime status changed",
			slog.String("from", from.String()),
			slog.String("to", s.Status.String()),
		)
	}

	m.mu.Lock()
	listeners := make([]func(Status), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(s.Status)
	}
}

func (m *Manager) dial(ctx context.Context, delay time.Duration, attempt int) {
	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}

	m.opts.metrics.recordAttempt()
	conn, err := m.dialer.Dial(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.opts.logger.WarnContext(ctx, "realtime connect failed",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", m.opts.limits.MaxAttempts),
			slog.Any("error", errors.Join(ErrConnection, err)),
		)
		_ = m.send(ctx, Event{Trigger: TriggerFailed})
		return
	}

	m.mu.Lock()
	if m.closed || ctx.Err() != nil {
		m.mu.Unlock()
		_ = conn.Close()
		return
	}
	m.conn = conn
	clear(m.joined)
	m.mu.Unlock()

	_ = m.send(ctx, Event{Trigger: TriggerConnected})
}

func (m *Manager) read(ctx context.Context, conn Conn) {
	for {
		msg, err := conn.Receive(ctx)
		if err == nil {
			m.deliver(ctx, msg)
			continue
		}
		if errors.Is(err, ErrMalformedMessage) {
			m.opts.logger.DebugContext(ctx, "skipping malformed realtime message", slog.Any("error", err))
			continue
		}

		_ = conn.Close()

		m.mu.Lock()
		current := m.conn == conn
		if current {
			m.conn = nil
			clear(m.joined)
		}
		m.mu.Unlock()

		if !current || ctx.Err() != nil {
			return
		}

		server := errors.Is(err, ErrServerClosed)
		m.opts.logger.WarnContext(ctx, "realtime connection dropped",
			slog.Bool("server_initiated", server),
			slog.Any("error", err),
		)
		_ = m.send(ctx, Event{Trigger: TriggerDropped, ServerInitiated: server})
		return
	}
}

func (m *Manager) deliver(ctx context.Context, msg Message) {
	m.mu.Lock()
	if _, ok := m.topics[msg.Topic]; !ok {
		m.mu.Unlock()
		return
	}
	handlers := make([]Handler, 0, len(m.handlers[msg.Topic]))
	for _, h := range m.handlers[msg.Topic] {
		handlers = append(handlers, h)
	}
	m.mu.Unlock()

	for _, h := range handlers {
		h(ctx, msg)
	}
	if len(handlers) > 0 {
		m.opts.metrics.recordDelivered(msg.Event)
	}
}

// replay sends a join for every tracked topic not yet joined on conn.
// Failed topics stay tracked and are retried on the next connection.
func (m *Manager) replay(ctx context.Context, conn Conn) {
	m.mu.Lock()
	pending := make([]string, 0, len(m.topics))
	for t := range m.topics {
		if _, ok := m.joined[t]; !ok {
			m.joined[t] = struct{}{}
			pending = append(pending, t)
		}
	}
	m.mu.Unlock()

	slices.Sort(pending)
	for _, topic := range pending {
		if err := m.emit(ctx, conn, JoinEvent, topic); err != nil {
			m.mu.Lock()
			if m.conn == conn {
				delete(m.joined, topic)
			}
			m.mu.Unlock()

			m.opts.metrics.recordReplayError()
			m.opts.logger.WarnContext(ctx, "topic replay failed",
				slog.String("topic", topic),
				slog.Any("error", errors.Join(ErrReplay, err)),
			)
		}
	}
}

func (m *Manager) hangUp() {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	clear(m.joined)
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

func (m *Manager) emit(ctx context.Context, conn Conn, event, topic string) error {
	ctx, cancel := context.WithTimeout(ctx, m.opts.emitTimeout)
	defer cancel()
	return conn.Emit(ctx, event, topic, nil)
}
