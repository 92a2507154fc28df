// Package client is the interactive side of the chat: it prints what the
// server sends and forwards every input line as a message.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/charmbracelet/lipgloss"

	"github.com/andy6609/tcp-chat-server/internal/wire"
)

var (
	errServerClosed = errors.New("server closed the connection")
	errInputClosed  = errors.New("input closed")
)

// Printer renders received messages as "[sender]: text".
type Printer struct {
	out    io.Writer
	sender lipgloss.Style
	system lipgloss.Style
}

func NewPrinter(out io.Writer) *Printer {
	r := lipgloss.NewRenderer(out)
	return &Printer{
		out:    out,
		sender: r.NewStyle().Foreground(lipgloss.Color("6")),
		system: r.NewStyle().Foreground(lipgloss.Color("5")),
	}
}

func (p *Printer) Format(m wire.Message) string {
	tag := "[" + m.Sender + "]:"
	if m.Sender == wire.ServerSender {
		return p.system.Render(tag) + " " + m.Text
	}
	return p.sender.Render(tag) + " " + m.Text
}

func (p *Printer) Print(m wire.Message) error {
	_, err := fmt.Fprintln(p.out, p.Format(m))
	return err
}

// Run pumps messages both ways until the server hangs up, input ends or ctx
// is cancelled. A clean end of either side is not an error.
func Run(ctx context.Context, conn net.Conn, in io.Reader, out io.Writer) error {
	errc := make(chan error, 2)
	go func() { errc <- receive(conn, NewPrinter(out)) }()
	go func() { errc <- send(conn, in) }()

	var err error
	select {
	case err = <-errc:
	case <-ctx.Done():
	}
	conn.Close()

	if errors.Is(err, errServerClosed) || errors.Is(err, errInputClosed) {
		return nil
	}
	return err
}

func receive(conn net.Conn, p *Printer) error {
	dec := wire.NewDecoder(conn)
	for {
		m, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return errServerClosed
		}
		if err != nil {
			return err
		}
		if err := p.Print(m); err != nil {
			return err
		}
	}
}

func send(conn net.Conn, in io.Reader) error {
	enc := wire.NewEncoder(conn)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if err := enc.Encode(wire.Message{Text: sc.Text()}); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return errInputClosed
}
