package chat

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/andy6609/tcp-chat-server/internal/wire"
)

// HandleSession runs the command loop of one connection until the peer
// closes it or a read or decode fails.
func HandleSession(s *Session, r *Router, replayDelay time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session_id", s.ID, "addr", s.RemoteAddr)

	defer func() {
		_ = s.Conn.Close()
	}()

	StartOutboundWriter(s, logger)
	trySend(s, wire.Notice(StartupNotice))

	dec := wire.NewDecoder(s.Conn)
	for {
		msg, err := dec.Decode()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debug("session read failed", "error", err)
			}
			if !r.Submit(Event{Type: EventUnregister, Session: s}) {
				s.closeOut()
			}
			return
		}

		logger.Debug("message received", "nickname", s.Nickname, "text", msg.Text)
		if !dispatch(s, r, ParseCommand(msg.Text, s.LoggedIn), replayDelay) {
			// The router is gone and will never unregister s.
			s.closeOut()
			return
		}
	}
}

// dispatch turns a parsed command into router events. It returns false once
// the router has stopped.
func dispatch(s *Session, r *Router, cmd Command, replayDelay time.Duration) bool {
	switch cmd.Kind {
	case CommandBroadcast:
		return r.Submit(Event{Type: EventBroadcast, Session: s, Text: cmd.Text})
	case CommandPrivate:
		return r.Submit(Event{Type: EventPrivate, Session: s, To: cmd.Nickname, Text: cmd.Text})
	case CommandRegister, CommandLogin:
		typ := EventRegister
		if cmd.Kind == CommandLogin {
			typ = EventLogin
		}
		rep, ok := r.Request(Event{Type: typ, Session: s, Nickname: cmd.Nickname, Password: cmd.Password})
		if !ok {
			return false
		}
		if rep.Err == nil {
			replay(s, rep.History, replayDelay)
		}
		return true
	default:
		trySend(s, wire.Notice(Notice(ErrUnknownCommand)))
		return true
	}
}

// replay sends history oldest first, pausing between messages so a burst
// does not overrun the client. It stops early if the writer has exited.
func replay(s *Session, history []wire.Message, delay time.Duration) {
	for _, m := range history {
		select {
		case s.Out <- m:
		case <-s.writerDone:
			return
		}
		if delay <= 0 {
			continue
		}
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-s.writerDone:
			t.Stop()
			return
		}
	}
}
