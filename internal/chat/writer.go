package chat

import (
	"log/slog"

	"github.com/andy6609/tcp-chat-server/internal/wire"
)

// StartOutboundWriter drains s.Out onto the connection. A write failure
// closes the connection, which makes the read loop unregister the session.
func StartOutboundWriter(s *Session, logger *slog.Logger) {
	go func() {
		defer close(s.writerDone)

		enc := wire.NewEncoder(s.Conn)
		for msg := range s.Out {
			if err := enc.Encode(msg); err != nil {
				logger.Debug("session write failed", "error", err)
				_ = s.Conn.Close()
				return
			}
		}
	}()
}
