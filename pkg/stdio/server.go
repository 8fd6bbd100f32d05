// Package stdio serves JSON-RPC over newline-delimited streams, typically the
// process's stdin and stdout.
//
// Each inbound line is one message. Responses are written one per line in
// the order their requests were read, regardless of how long each request
// takes. Logging never touches the output stream.
package stdio

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/tuesdays-dev/mcp-stdio-server/pkg/jsonrpc"
)

// Dispatcher handles decoded envelopes.
type Dispatcher interface {
	// Handle returns the response for req, or nil when none is owed.
	Handle(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response
	// Concurrent reports whether req may run alongside later requests.
	Concurrent(req *jsonrpc.Request) bool
}

// Server is a single-connection stdio transport.
type Server struct {
	dispatcher   Dispatcher
	logger       *slog.Logger
	maxLineBytes int
	workers      int
	ordering     Ordering
	drainTimeout time.Duration
}

// New creates a transport delivering messages to d.
func New(d Dispatcher, opts ...Option) *Server {
	s := &Server{
		dispatcher:   d,
		logger:       slog.Default(),
		maxLineBytes: DefaultMaxLineBytes,
		workers:      DefaultWorkers,
		ordering:     Pipelined,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// inbound is one framed message after parsing.
type inbound struct {
	req *jsonrpc.Request
	err error
}

// Run serves requests from r and writes responses to w until r reaches EOF,
// ctx is cancelled, or an I/O error occurs. EOF and cancellation are clean
// shutdowns and return nil. Every request read before EOF is still answered;
// cancelling ctx abandons requests that are still running.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	handlerCtx, cancelHandlers := context.WithCancel(ctx)
	defer cancelHandlers()

	stop := make(chan struct{})
	msgs := make(chan inbound)
	readErr := make(chan error, 1)
	go s.readLoop(r, msgs, readErr, stop)

	queue := make(chan chan *jsonrpc.Response, s.workers)
	writeFailed := make(chan struct{})
	writeErr := make(chan error, 1)
	go s.writeLoop(w, queue, writeFailed, writeErr)

	sem := make(chan struct{}, s.workers)
	var inflight sync.WaitGroup
	eof := false

loop:
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stdio transport shutting down")
			break loop
		case <-writeFailed:
			break loop
		case msg, ok := <-msgs:
			if !ok {
				eof = true
				break loop
			}
			slot := make(chan *jsonrpc.Response, 1)
			if !s.dispatch(ctx, handlerCtx, msg, slot, sem, &inflight) {
				break loop
			}
			select {
			case queue <- slot:
			case <-writeFailed:
				break loop
			}
		}
	}
	close(stop)

	if eof {
		s.drain(ctx, &inflight)
	}
	cancelHandlers()
	inflight.Wait()
	close(queue)
	werr := <-writeErr

	if werr != nil {
		return fmt.Errorf("write output: %w", werr)
	}
	if eof {
		if err := <-readErr; err != nil {
			s.logger.Error("read failed", "error", err)
			return fmt.Errorf("read input: %w", err)
		}
		s.logger.Debug("input closed")
	}
	return nil
}

// dispatch routes msg into slot, running it on a worker when allowed. It
// reports false if ctx ended while waiting for a worker.
func (s *Server) dispatch(ctx, handlerCtx context.Context, msg inbound, slot chan<- *jsonrpc.Response, sem chan struct{}, inflight *sync.WaitGroup) bool {
	if msg.err != nil {
		slot <- s.rejection(msg)
		return true
	}

	req := msg.req
	if s.ordering == Sequential || !s.dispatcher.Concurrent(req) {
		slot <- s.dispatcher.Handle(handlerCtx, req)
		return true
	}

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return false
	}
	inflight.Add(1)
	go func() {
		defer inflight.Done()
		defer func() { <-sem }()
		slot <- s.dispatcher.Handle(handlerCtx, req)
	}()
	return true
}

// rejection answers a message that failed framing or envelope checks.
func (s *Server) rejection(msg inbound) *jsonrpc.Response {
	var rpcErr *jsonrpc.Error
	if !errors.As(msg.err, &rpcErr) {
		rpcErr = jsonrpc.NewError(jsonrpc.CodeParseError, msg.err.Error())
	}
	if msg.req == nil {
		return jsonrpc.NewErrorResponse(nil, rpcErr)
	}
	if msg.req.IsNotification() {
		s.logger.Debug("dropping malformed notification", "error", rpcErr)
		return nil
	}
	return jsonrpc.NewErrorResponse(msg.req.ID, rpcErr)
}

// drain waits for requests read before EOF to finish. A positive
// drainTimeout bounds the wait; ctx cancellation always ends it.
func (s *Server) drain(ctx context.Context, inflight *sync.WaitGroup) {
	done := make(chan struct{})
	go func() {
		inflight.Wait()
		close(done)
	}()

	var timeout <-chan time.Time
	if s.drainTimeout > 0 {
		t := time.NewTimer(s.drainTimeout)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case <-done:
	case <-ctx.Done():
	case <-timeout:
		s.logger.Warn("cancelling requests still running after input closed", "drain_timeout", s.drainTimeout)
	}
}

func (s *Server) readLoop(r io.Reader, msgs chan<- inbound, readErr chan<- error, stop <-chan struct{}) {
	defer close(msgs)
	lines := newLineReader(r, s.maxLineBytes)
	for {
		line, err := lines.next()
		var msg inbound
		switch {
		case errors.Is(err, errLineTooLong):
			s.logger.Warn("discarding oversized line", "max_line_bytes", s.maxLineBytes)
			msg.err = jsonrpc.NewError(jsonrpc.CodeParseError, fmt.Sprintf("message exceeds %d bytes", s.maxLineBytes))
		case errors.Is(err, io.EOF):
			readErr <- nil
			return
		case err != nil:
			readErr <- err
			return
		default:
			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}
			s.logger.Debug("received", "message", string(line))
			// Parse copies what it keeps, so the line buffer can be reused.
			msg.req, msg.err = jsonrpc.Parse(line)
		}

		select {
		case msgs <- msg:
		case <-stop:
			return
		}
	}
}

// writeLoop drains slots in arrival order. After the first write error it
// keeps draining, without writing, so producers never block.
func (s *Server) writeLoop(w io.Writer, queue <-chan chan *jsonrpc.Response, failed chan<- struct{}, result chan<- error) {
	out := bufio.NewWriter(w)
	var werr error
	for slot := range queue {
		resp := <-slot
		if resp == nil || werr != nil {
			continue
		}
		if werr = s.write(out, resp); werr != nil {
			s.logger.Error("write failed", "error", werr)
			close(failed)
		}
	}
	result <- werr
}

func (s *Server) write(out *bufio.Writer, resp *jsonrpc.Response) error {
	data, err := jsonrpc.Encode(resp)
	if err != nil {
		s.logger.Error("encoding response", "error", err)
		data, err = jsonrpc.Encode(jsonrpc.NewErrorResponse(resp.ID, jsonrpc.NewError(jsonrpc.CodeInternalError, "response could not be encoded")))
		if err != nil {
			return err
		}
	}
	s.logger.Debug("sending", "message", string(data))
	if _, err := out.Write(data); err != nil {
		return err
	}
	if err := out.WriteByte('\n'); err != nil {
		return err
	}
	return out.Flush()
}
