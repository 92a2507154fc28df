package chat

import (
	"log/slog"
	"sync"
	"time"

	"github.com/andy6609/tcp-chat-server/internal/store"
	"github.com/andy6609/tcp-chat-server/internal/wire"
)

// Router owns the session registry and the broadcast history. Every mutation
// and every fan-out runs on the Run goroutine, fed through the events channel.
type Router struct {
	events   chan Event
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	logger   *slog.Logger

	registry *Registry
	history  *History
}

func NewRouter(buffer, historySize int, logger *slog.Logger) *Router {
	if buffer <= 0 {
		buffer = 128
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		events:   make(chan Event, buffer),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		logger:   logger,
		registry: NewRegistry(),
		history:  NewHistory(historySize),
	}
}

// Restore loads accounts and history from a snapshot. Call it before Run.
func (r *Router) Restore(snap store.Snapshot) {
	r.registry.Restore(snap.Accounts)
	r.history.Restore(snap.History)
	HistorySize.Set(float64(r.history.Len()))
}

// Snapshot exports accounts and history. Call it only after Wait returns.
func (r *Router) Snapshot() store.Snapshot {
	return store.Snapshot{
		Accounts: r.registry.Accounts(),
		History:  r.history.Messages(),
	}
}

// Submit queues ev. It returns false once the router has stopped.
func (r *Router) Submit(ev Event) bool {
	select {
	case <-r.doneCh:
		return false
	default:
	}
	select {
	case r.events <- ev:
		return true
	case <-r.doneCh:
		return false
	}
}

// Request submits ev and waits for its reply.
func (r *Router) Request(ev Event) (Reply, bool) {
	ev.ReplyChan = make(chan Reply, 1)
	if !r.Submit(ev) {
		return Reply{}, false
	}
	select {
	case rep := <-ev.ReplyChan:
		return rep, true
	case <-r.doneCh:
		return Reply{}, false
	}
}

// Stop signals the Run loop to exit after draining queued events.
func (r *Router) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// Wait blocks until the Run loop has completely finished.
func (r *Router) Wait() {
	<-r.doneCh
}

func (r *Router) Run() {
	defer close(r.doneCh)

	for {
		select {
		case ev := <-r.events:
			r.handle(ev)
		case <-r.stopCh:
			for {
				select {
				case ev := <-r.events:
					r.handle(ev)
				default:
					return
				}
			}
		}
	}
}

func (r *Router) handle(ev Event) {
	start := time.Now()

	switch ev.Type {
	case EventRegister:
		r.handleRegister(ev)
	case EventLogin:
		r.handleLogin(ev)
	case EventUnregister:
		r.handleUnregister(ev)
	case EventBroadcast:
		r.handleBroadcast(ev)
	case EventPrivate:
		r.handlePrivate(ev)
	}

	eventType := ev.Type.String()
	MessagesTotal.WithLabelValues(eventType).Inc()
	EventProcessingDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
}

func (r *Router) handleRegister(ev Event) {
	s := ev.Session
	var err error = ErrAlreadyLoggedIn
	if !s.LoggedIn {
		err = r.registry.Register(ev.Nickname, ev.Password, s)
	}
	if err != nil {
		r.send(s, wire.Notice(Notice(err)))
		reply(ev, Reply{Err: err})
		return
	}

	LoggedInSessions.Set(float64(r.registry.Online()))
	r.logger.Info("user registered", "nickname", s.Nickname, "session_id", s.ID)

	r.send(s, wire.Notice(NoticeRegistered))
	reply(ev, Reply{History: r.history.Messages()})
}

func (r *Router) handleLogin(ev Event) {
	s := ev.Session
	var err error = ErrAlreadyLoggedIn
	if !s.LoggedIn {
		err = r.registry.Login(ev.Nickname, ev.Password, s)
	}
	if err != nil {
		r.send(s, wire.Notice(Notice(err)))
		reply(ev, Reply{Err: err})
		return
	}

	LoggedInSessions.Set(float64(r.registry.Online()))
	r.logger.Info("user logged in",
		"nickname", s.Nickname,
		"session_id", s.ID,
		"sessions", len(r.registry.SessionsFor(s.Nickname)))

	r.send(s, wire.Notice(NoticeLoggedIn))
	reply(ev, Reply{History: r.history.Messages()})
}

func (r *Router) handleUnregister(ev Event) {
	s := ev.Session
	if s == nil {
		return
	}
	r.registry.Remove(s)
	LoggedInSessions.Set(float64(r.registry.Online()))

	if s.LoggedIn {
		r.logger.Info("user left",
			"nickname", s.Nickname,
			"session_id", s.ID,
			"sessions", len(r.registry.SessionsFor(s.Nickname)))
	}

	// Closing Out stops the writer goroutine gracefully.
	s.closeOut()
}

func (r *Router) handleBroadcast(ev Event) {
	s := ev.Session
	if s == nil || !s.LoggedIn {
		return
	}
	r.deliver(wire.Message{Sender: s.Nickname, To: wire.All, Text: ev.Text}, s)
}

func (r *Router) handlePrivate(ev Event) {
	s := ev.Session
	if s == nil || !s.LoggedIn {
		return
	}

	msg := wire.Message{Sender: s.Nickname, To: ev.To, Text: ev.Text}
	switch {
	case msg.To == msg.Sender:
		r.send(s, wire.Notice(Notice(ErrSelfMessage)))
		return
	case !r.registry.Exists(msg.To):
		r.send(s, wire.Notice(Notice(ErrUnknownRecipient)))
		return
	}
	r.deliver(msg, s)
}

// deliver fans msg out. Broadcasts reach every live session except the one
// that sent it, including the sender's other sessions, and are recorded once
// in the history. Private messages reach every live session of the
// recipient, tagged as private.
func (r *Router) deliver(msg wire.Message, origin *Session) {
	if msg.IsBroadcast() {
		for _, s := range r.registry.AllSessions() {
			if s != origin {
				r.send(s, msg)
			}
		}
		r.history.Append(msg)
		HistorySize.Set(float64(r.history.Len()))
		r.logger.Debug("broadcast", "sender", msg.Sender)
		return
	}

	tagged := msg.WithSender(PrivateSender(msg.Sender))
	for _, s := range r.registry.SessionsFor(msg.To) {
		r.send(s, tagged)
	}
	r.logger.Debug("private message", "sender", msg.Sender, "to", msg.To)
}

func (r *Router) send(s *Session, m wire.Message) {
	if s.closed {
		return
	}
	if !trySend(s, m) {
		r.logger.Warn("outbound queue full, message dropped", "session_id", s.ID, "nickname", s.Nickname)
	}
}

func reply(ev Event, rep Reply) {
	if ev.ReplyChan != nil {
		ev.ReplyChan <- rep
	}
}

// trySend never blocks, so a slow client cannot stall the router.
func trySend(s *Session, m wire.Message) bool {
	select {
	case s.Out <- m:
		return true
	default:
		DroppedMessages.Inc()
		return false
	}
}
