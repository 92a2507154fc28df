package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/andy6609/tcp-chat-server/internal/client"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fs := flag.NewFlagSet("chat-client", flag.ContinueOnError)
	addr := fs.StringP("addr", "a", "127.0.0.1:8000", "Chat server address")
	timeout := fs.Duration("timeout", 10*time.Second, "Connect timeout")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	var d net.Dialer
	dialCtx, dialCancel := context.WithTimeout(ctx, *timeout)
	conn, err := d.DialContext(dialCtx, "tcp", *addr)
	dialCancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "chat-client: %v\n", err)
		os.Exit(1)
	}

	if err := client.Run(ctx, conn, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "chat-client: %v\n", err)
		os.Exit(1)
	}
}
