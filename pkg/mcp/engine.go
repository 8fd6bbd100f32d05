// Package mcp implements the MCP protocol engine: lifecycle tracking and
// method dispatch over decoded JSON-RPC envelopes. Framing and I/O live in
// package stdio.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tuesdays-dev/mcp-stdio-server/pkg/jsonrpc"
	"github.com/tuesdays-dev/mcp-stdio-server/pkg/logging"
	"github.com/tuesdays-dev/mcp-stdio-server/pkg/models"
	"github.com/tuesdays-dev/mcp-stdio-server/pkg/registry"
)

// Recorder receives the outcome of every tools/call.
type Recorder interface {
	Record(ctx context.Context, inv models.Invocation) error
}

// Engine dispatches MCP requests against a tool registry. It is safe for
// concurrent use; the only mutable state is the lifecycle flag and the
// recorded client identity.
type Engine struct {
	info     ServerInfo
	registry *registry.Registry
	recorder Recorder
	logger   *slog.Logger

	initialized atomic.Bool
	client      atomic.Pointer[ClientInfo]
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithRecorder journals tool invocations to r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// NewEngine creates an engine serving the tools in reg.
func NewEngine(info ServerInfo, reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{
		info:     info,
		registry: reg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Initialized reports whether a successful initialize has been handled.
func (e *Engine) Initialized() bool {
	return e.initialized.Load()
}

// Client returns the identity recorded by initialize.
func (e *Engine) Client() (ClientInfo, bool) {
	c := e.client.Load()
	if c == nil {
		return ClientInfo{}, false
	}
	return *c, true
}

// Concurrent reports whether req may run off the read loop. Only tool calls
// qualify; everything else, initialize included, is handled in arrival order.
func (e *Engine) Concurrent(req *jsonrpc.Request) bool {
	return req.Method == MethodToolsCall
}

// Handle processes one envelope. It returns nil when no response is owed:
// for notifications, and for tool calls abandoned because ctx was cancelled.
func (e *Engine) Handle(ctx context.Context, req *jsonrpc.Request) (resp *jsonrpc.Response) {
	ctx = logging.WithRPCMessage(ctx, &logging.RPCMessage{Method: req.Method, ID: string(req.ID)})

	defer func() {
		if p := recover(); p != nil {
			e.logger.ErrorContext(ctx, "panic while handling request", "panic", p)
			resp = e.fail(ctx, req, jsonrpc.NewError(jsonrpc.CodeInternalError, fmt.Sprint(p)))
		}
	}()

	if req.JSONRPC != jsonrpc.Version {
		return e.fail(ctx, req, jsonrpc.NewError(jsonrpc.CodeInvalidRequest, `jsonrpc must be "2.0"`))
	}
	if req.Method == "" {
		return e.fail(ctx, req, jsonrpc.NewError(jsonrpc.CodeInvalidRequest, "method required"))
	}

	switch req.Method {
	case MethodInitialize:
		return e.handleInitialize(ctx, req)
	case MethodInitialized, MethodNotificationInitialized:
		return e.handleInitialized(ctx, req)
	case MethodPing:
		return e.reply(req, PingResult{Pong: true})
	case MethodToolsList, MethodToolsCall, MethodResourcesList, MethodPromptsList:
		if !e.initialized.Load() {
			return e.fail(ctx, req, &jsonrpc.Error{Code: jsonrpc.CodeInternalError, Message: "server not initialized"})
		}
	default:
		return e.fail(ctx, req, jsonrpc.NewError(jsonrpc.CodeMethodNotFound, req.Method))
	}

	switch req.Method {
	case MethodToolsList:
		return e.handleToolsList(ctx, req)
	case MethodToolsCall:
		return e.handleToolsCall(ctx, req)
	case MethodResourcesList:
		return e.reply(req, ResourcesListResult{Resources: []json.RawMessage{}})
	default:
		return e.reply(req, PromptsListResult{Prompts: []json.RawMessage{}})
	}
}

func (e *Engine) handleInitialize(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	var params InitializeParams
	if err := decodeParams(req.Params, &params); err != nil {
		return e.fail(ctx, req, jsonrpc.NewError(jsonrpc.CodeInvalidParams, err.Error()))
	}

	client := params.ClientInfo
	e.client.Store(&client)
	if e.initialized.CompareAndSwap(false, true) {
		e.logger.InfoContext(ctx, "client initialized",
			"client", client.Name,
			"client_version", client.Version,
			"protocol_version", params.ProtocolVersion)
	}
	if params.ProtocolVersion != "" && params.ProtocolVersion != ProtocolVersion {
		e.logger.WarnContext(ctx, "client requested a different protocol version",
			"requested", params.ProtocolVersion, "supported", ProtocolVersion)
	}

	return e.reply(req, InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    ServerCapabilities{Tools: &ToolsCapability{ListChanged: false}},
		ServerInfo:      e.info,
	})
}

func (e *Engine) handleInitialized(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	if !e.initialized.Load() {
		e.logger.WarnContext(ctx, "initialized notification before initialize")
	}
	if req.IsNotification() {
		return nil
	}
	return e.reply(req, nil)
}

func (e *Engine) handleToolsList(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	if req.Params != nil {
		var params ToolsListParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return e.fail(ctx, req, jsonrpc.NewError(jsonrpc.CodeInvalidParams, err.Error()))
		}
	}
	return e.reply(req, ToolsListResult{Tools: e.registry.List()})
}

func (e *Engine) handleToolsCall(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	var params ToolCallParams
	if err := decodeParams(req.Params, &params); err != nil {
		return e.fail(ctx, req, jsonrpc.NewError(jsonrpc.CodeInvalidParams, err.Error()))
	}
	if params.Name == "" {
		return e.fail(ctx, req, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "tool name required"))
	}

	callID := uuid.NewString()
	ctx = logging.WithToolCall(ctx, &logging.ToolCall{Name: params.Name, CallID: callID})

	start := time.Now()
	res, err := e.registry.Call(ctx, params.Name, params.Arguments)
	elapsed := time.Since(start)

	inv := models.Invocation{
		CallID:    callID,
		RequestID: string(req.ID),
		Tool:      params.Name,
		Duration:  elapsed,
		CreatedAt: start.UTC(),
	}
	if err != nil {
		inv.Failure = err.Error()
	} else {
		inv.IsError = res.IsError
	}
	e.record(ctx, inv)

	switch {
	case err == nil:
		e.logger.DebugContext(ctx, "tool call finished", "is_error", res.IsError, "duration", elapsed)
		return e.reply(req, res)
	case errors.Is(err, registry.ErrInvalidArguments):
		return e.fail(ctx, req, jsonrpc.NewError(jsonrpc.CodeInvalidParams, err.Error()))
	case ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		e.logger.DebugContext(ctx, "tool call abandoned", "error", err)
		return nil
	default:
		e.logger.ErrorContext(ctx, "tool call failed", "error", err)
		return e.fail(ctx, req, jsonrpc.NewError(jsonrpc.CodeInternalError, err.Error()))
	}
}

func (e *Engine) record(ctx context.Context, inv models.Invocation) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.Record(context.WithoutCancel(ctx), inv); err != nil {
		e.logger.WarnContext(ctx, "journal record failed", "error", err)
	}
}

func (e *Engine) reply(req *jsonrpc.Request, result any) *jsonrpc.Response {
	if req.IsNotification() {
		return nil
	}
	return jsonrpc.NewResult(req.ID, result)
}

// fail builds an error response, or drops it for notifications.
func (e *Engine) fail(ctx context.Context, req *jsonrpc.Request, rpcErr *jsonrpc.Error) *jsonrpc.Response {
	if req.IsNotification() {
		e.logger.DebugContext(ctx, "dropping error for notification", "code", rpcErr.Code, "message", rpcErr.Message)
		return nil
	}
	return jsonrpc.NewErrorResponse(req.ID, rpcErr)
}

// decodeParams requires params to be a JSON object and decodes it into v.
func decodeParams(params json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(params)
	if len(trimmed) == 0 {
		return errors.New("params required")
	}
	if trimmed[0] != '{' {
		return errors.New("params must be an object")
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	return nil
}
