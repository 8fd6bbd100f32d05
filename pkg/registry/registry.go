// Package registry holds the named tool handlers a server exposes.
//
// A Registry is populated once at startup and is read-only afterwards, so it
// can be shared by every request without locking. Each tool's input schema is
// resolved at registration time and used to validate call arguments before
// the handler runs.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/tuesdays-dev/mcp-stdio-server/pkg/models"
	"github.com/tuesdays-dev/mcp-stdio-server/pkg/ratelimit"
)

var (
	// ErrDuplicateTool is returned when a name is registered twice.
	ErrDuplicateTool = errors.New("duplicate tool")
	// ErrInvalidTool is returned for tools that fail registration checks.
	ErrInvalidTool = errors.New("invalid tool")
	// ErrInvalidArguments marks call arguments that are not an object or do
	// not satisfy the tool's input schema.
	ErrInvalidArguments = errors.New("invalid arguments")
	// ErrEmptyContent is returned when a handler succeeds without content.
	ErrEmptyContent = errors.New("tool returned no content")
	// ErrHandlerPanic wraps a recovered handler panic.
	ErrHandlerPanic = errors.New("tool handler panicked")
)

const maxToolNameLength = 64

// Handler is the capability set every tool provides. Implementations must be
// safe for concurrent use.
type Handler interface {
	// Description is the human-readable summary shown in tools/list.
	Description() string
	// InputSchema is the JSON Schema object describing the arguments.
	InputSchema() map[string]any
	// Call runs the tool. Domain failures belong in a result with IsError
	// set; a returned error is reported to the client as an internal error.
	Call(ctx context.Context, args json.RawMessage) (*models.ToolCallResult, error)
}

// Tool pairs a name with its handler for bulk registration.
type Tool struct {
	Name    string
	Handler Handler
}

type entry struct {
	def     models.ToolDefinition
	handler Handler
	schema  *jsonschema.Resolved
}

// Registry maps tool names to handlers.
type Registry struct {
	order   []string
	entries map[string]*entry
	limiter *ratelimit.Limiter
}

// Option configures a Registry.
type Option func(*Registry)

// WithLimiter throttles calls through l before handlers run.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(r *Registry) {
		r.limiter = l
	}
}

// New builds a registry holding tools. Duplicate or malformed tools are
// rejected.
func New(tools []Tool, opts ...Option) (*Registry, error) {
	r := &Registry{entries: make(map[string]*entry, len(tools))}
	for _, opt := range opts {
		opt(r)
	}
	for _, t := range tools {
		if err := r.Register(t.Name, t.Handler); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a handler under name. It must not be called once the
// registry is serving requests.
func (r *Registry) Register(name string, h Handler) error {
	if err := validateName(name); err != nil {
		return err
	}
	if h == nil {
		return fmt.Errorf("%w: %s: handler required", ErrInvalidTool, name)
	}
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("%w: %q already registered", ErrDuplicateTool, name)
	}

	schema := h.InputSchema()
	if schema == nil {
		return fmt.Errorf("%w: %s: input schema required", ErrInvalidTool, name)
	}
	if typ, _ := schema["type"].(string); typ != "object" {
		return fmt.Errorf("%w: %s: input schema must describe an object", ErrInvalidTool, name)
	}
	resolved, err := resolveSchema(schema)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidTool, name, err)
	}

	r.entries[name] = &entry{
		def: models.ToolDefinition{
			Name:        name,
			Description: h.Description(),
			InputSchema: schema,
		},
		handler: h,
		schema:  resolved,
	}
	r.order = append(r.order, name)
	return nil
}

// List returns the tool descriptors in registration order.
func (r *Registry) List() []models.ToolDefinition {
	defs := make([]models.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.entries[name].def)
	}
	return defs
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Len reports how many tools are registered.
func (r *Registry) Len() int {
	return len(r.order)
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.handler, true
}

// Call invokes the tool registered under name. An unknown name yields a
// tool-level error result, not a Go error. Omitted or null arguments are
// treated as an empty object.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (res *models.ToolCallResult, err error) {
	e, ok := r.entries[name]
	if !ok {
		return models.ErrorResult(fmt.Sprintf("Tool '%s' not found", name)), nil
	}

	args, err = e.checkArguments(args)
	if err != nil {
		return nil, err
	}

	if err := r.limiter.Wait(ctx, name); err != nil {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			res = nil
			err = fmt.Errorf("%w: %s: %v", ErrHandlerPanic, name, p)
		}
	}()

	res, err = e.handler.Call(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}
	if res == nil || len(res.Content) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyContent, name)
	}
	return res, nil
}

func (e *entry) checkArguments(args json.RawMessage) (json.RawMessage, error) {
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage(`{}`)
	}
	var instance any
	if err := json.Unmarshal(args, &instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if _, ok := instance.(map[string]any); !ok {
		return nil, fmt.Errorf("%w: arguments must be an object", ErrInvalidArguments)
	}
	if err := e.schema.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return args, nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name required", ErrInvalidTool)
	}
	if len(name) > maxToolNameLength {
		return fmt.Errorf("%w: %s: name exceeds %d characters", ErrInvalidTool, name, maxToolNameLength)
	}
	for _, c := range name {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-' {
			continue
		}
		return fmt.Errorf("%w: %s: name may contain only letters, digits, '_' and '-'", ErrInvalidTool, name)
	}
	return nil
}
