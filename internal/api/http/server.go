package httpapi

import (
	"context"
	"net"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
)

// Server owns the Fiber app and its accept loop goroutine.
type Server struct {
	app  *fiber.App
	addr string

	started  bool
	done     chan struct{}
	stopOnce sync.Once
	stopErr  error
	logger   *log.Logger
}

func NewServer(app *fiber.App, addr string) *Server {
	return &Server{
		app:    app,
		addr:   addr,
		done:   make(chan struct{}),
		logger: log.WithPrefix("http"),
	}
}

// Start runs the accept loop on its own goroutine.
func (s *Server) Start() {
	s.serve(func() error { return s.app.Listen(s.addr) })
}

// StartListener runs the accept loop on an already bound listener.
func (s *Server) StartListener(ln net.Listener) {
	s.serve(func() error { return s.app.Listener(ln) })
}

func (s *Server) serve(listen func() error) {
	s.started = true
	go func() {
		defer close(s.done)
		s.logger.Info("serving radar loops", "addr", s.addr)
		if err := listen(); err != nil {
			s.logger.Error("fiber server stopped", "err", err)
		}
	}()
}

// Done is closed once the accept loop has returned.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Shutdown stops the accept loop and waits for it to exit. Only the first
// call does any work; later calls return the same result.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() {
		if !s.started {
			return
		}
		s.stopErr = s.app.ShutdownWithContext(ctx)
		select {
		case <-s.done:
		case <-ctx.Done():
			if s.stopErr == nil {
				s.stopErr = ctx.Err()
			}
		}
	})
	return s.stopErr
}
