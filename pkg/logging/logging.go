// Package logging builds the process logger. Output always goes to the
// supplied writer (stderr in production), never to the protocol stream.
package logging

import (
	"context"
	"io"
	"log/slog"
)

// Options selects the logger behaviour.
type Options struct {
	Debug bool
	Quiet bool
}

// New returns a text logger writing to w. Quiet wins over Debug.
func New(w io.Writer, opts Options) *slog.Logger {
	if opts.Quiet {
		return slog.New(discardHandler{})
	}
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(Handler{Handler: h})
}

// Handler decorates records with the RPC and tool data carried by ctx.
type Handler struct {
	slog.Handler
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if msg, ok := ctx.Value(rpcKey{}).(*RPCMessage); ok {
		r.AddAttrs(slog.Group("rpc",
			slog.String("method", msg.Method),
			slog.String("id", msg.ID),
		))
	}
	if tc, ok := ctx.Value(toolKey{}).(*ToolCall); ok {
		r.AddAttrs(slog.Group("tool",
			slog.String("name", tc.Name),
			slog.String("call_id", tc.CallID),
		))
	}
	return h.Handler.Handle(ctx, r)
}

func (h Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return Handler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h Handler) WithGroup(name string) slog.Handler {
	return Handler{Handler: h.Handler.WithGroup(name)}
}

type rpcKey struct{}

// RPCMessage identifies the request being handled.
type RPCMessage struct {
	Method string
	ID     string
}

// WithRPCMessage attaches msg to ctx.
func WithRPCMessage(ctx context.Context, msg *RPCMessage) context.Context {
	return context.WithValue(ctx, rpcKey{}, msg)
}

type toolKey struct{}

// ToolCall identifies a running tool invocation.
type ToolCall struct {
	Name   string
	CallID string
}

// WithToolCall attaches tc to ctx.
func WithToolCall(ctx context.Context, tc *ToolCall) context.Context {
	return context.WithValue(ctx, toolKey{}, tc)
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
