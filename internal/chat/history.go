package chat

import "github.com/andy6609/tcp-chat-server/internal/wire"

// History is a fixed-capacity ring of the most recent broadcasts. Like the
// Registry it is owned by the router goroutine.
type History struct {
	buf   []wire.Message
	start int
	count int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 20
	}
	return &History{buf: make([]wire.Message, capacity)}
}

func (h *History) Cap() int { return len(h.buf) }
func (h *History) Len() int { return h.count }

// Append stores m, evicting the oldest message once full.
func (h *History) Append(m wire.Message) {
	if h.count < len(h.buf) {
		h.buf[(h.start+h.count)%len(h.buf)] = m
		h.count++
		return
	}
	h.buf[h.start] = m
	h.start = (h.start + 1) % len(h.buf)
}

// Messages returns a copy of the buffered messages, oldest first.
func (h *History) Messages() []wire.Message {
	out := make([]wire.Message, h.count)
	for i := range out {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

// Restore appends msgs in order; only the newest Cap() survive.
func (h *History) Restore(msgs []wire.Message) {
	for _, m := range msgs {
		h.Append(m)
	}
}
