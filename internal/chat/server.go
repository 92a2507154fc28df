package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/andy6609/tcp-chat-server/internal/config"
	"github.com/andy6609/tcp-chat-server/internal/store"
)

type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	router  *Router
	gateway *store.Gateway

	listener net.Listener
	metricsL net.Listener
	metrics  *http.Server

	mu    sync.Mutex
	conns map[*Session]struct{}

	closing  atomic.Bool
	stopOnce sync.Once
	stopErr  error
}

func NewServer(cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		logger:  logger,
		router:  NewRouter(cfg.EventBuffer, cfg.HistorySize, logger),
		gateway: store.NewGateway(cfg.SnapshotPath, logger),
		conns:   make(map[*Session]struct{}),
	}
}

// Run restores the snapshot, listens, and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Listen restores state from the snapshot and binds the listeners. Nothing
// is accepted until Serve is called.
func (s *Server) Listen() error {
	snap, ok, err := s.gateway.Load()
	if err != nil {
		return err
	}
	if ok {
		s.router.Restore(snap)
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln

	if s.cfg.MetricsAddr != "" {
		ml, err := net.Listen("tcp", s.cfg.MetricsAddr)
		if err != nil {
			ln.Close()
			return fmt.Errorf("listen metrics %s: %w", s.cfg.MetricsAddr, err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		s.metricsL = ml
		s.metrics = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}

	go s.router.Run()
	s.logger.Info("server started", "addr", ln.Addr().String(), "metrics_addr", s.cfg.MetricsAddr, "snapshot", s.gateway.Path())
	return nil
}

// Addr is the bound chat address. Valid after Listen.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled, then stops the server and
// saves the snapshot.
func (s *Server) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(s.acceptLoop)
	if s.metrics != nil {
		g.Go(func() error {
			if err := s.metrics.Serve(s.metricsL); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return s.Stop()
	})

	return g.Wait()
}

// Stop closes the listeners, drains the router, saves the snapshot and closes
// every live connection. It is safe to call more than once.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		s.logger.Info("shutting down")
		s.closing.Store(true)

		if s.listener != nil {
			s.listener.Close()
		}
		if s.metrics != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			_ = s.metrics.Shutdown(ctx)
			cancel()
		}

		s.router.Stop()
		s.router.Wait()
		s.stopErr = s.gateway.Save(s.router.Snapshot())

		s.mu.Lock()
		for sess := range s.conns {
			_ = sess.Conn.Close()
		}
		s.mu.Unlock()

		s.logger.Info("shutdown complete")
	})
	return s.stopErr
}

func (s *Server) acceptLoop() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closing.Load() {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		if s.closing.Load() {
			conn.Close()
			return nil
		}

		sess := NewSession(conn, s.cfg.OutboundBuffer)
		s.logger.Info("client connected", "addr", sess.RemoteAddr, "session_id", sess.ID)

		s.track(sess, true)
		go func() {
			defer s.track(sess, false)
			HandleSession(sess, s.router, s.cfg.ReplayDelay, s.logger)
			s.logger.Info("client disconnected", "addr", sess.RemoteAddr, "session_id", sess.ID)
		}()
	}
}

func (s *Server) track(sess *Session, live bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if live {
		s.conns[sess] = struct{}{}
		ConnectedSessions.Inc()
		return
	}
	delete(s.conns, sess)
	ConnectedSessions.Dec()
}
