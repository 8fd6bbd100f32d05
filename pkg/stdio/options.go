package stdio

import (
	"log/slog"
	"time"
)

// DefaultMaxLineBytes bounds a single inbound message.
const DefaultMaxLineBytes = 16 << 20

// DefaultWorkers bounds concurrently running dispatches in pipelined mode.
const DefaultWorkers = 8

// Ordering selects how requests are scheduled.
type Ordering string

const (
	// Pipelined runs eligible requests concurrently and writes responses in
	// arrival order.
	Pipelined Ordering = "pipelined"
	// Sequential handles one request at a time.
	Sequential Ordering = "sequential"
)

// Option customizes a Server.
type Option func(*Server)

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxLineBytes sets the longest accepted input line.
func WithMaxLineBytes(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLineBytes = n
		}
	}
}

// WithWorkers bounds concurrent dispatches in pipelined mode.
func WithWorkers(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithOrdering selects pipelined or sequential scheduling.
func WithOrdering(o Ordering) Option {
	return func(s *Server) {
		if o != "" {
			s.ordering = o
		}
	}
}

// WithDrainTimeout bounds how long in-flight requests may run after EOF
// before their context is cancelled. Zero waits for them to finish.
func WithDrainTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d >= 0 {
			s.drainTimeout = d
		}
	}
}
