package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/tuesdays-dev/mcp-stdio-server/pkg/models"
)

// TypedHandler decodes arguments into In before calling its function. Its
// input schema is inferred from In.
type TypedHandler[In any] struct {
	description string
	schema      map[string]any
	fn          func(context.Context, In) (*models.ToolCallResult, error)
}

// SchemaOption adjusts an inferred schema.
type SchemaOption func(*jsonschema.Schema) error

// WithDefault records a default value for property in the schema.
func WithDefault(property string, value any) SchemaOption {
	return func(s *jsonschema.Schema) error {
		prop, ok := s.Properties[property]
		if !ok {
			return fmt.Errorf("no property %q", property)
		}
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("default for %q: %w", property, err)
		}
		prop.Default = data
		return nil
	}
}

// NewTool infers a schema from In and wraps fn as a Handler. The schema
// accepts properties In does not declare; decoding drops them.
func NewTool[In any](description string, fn func(context.Context, In) (*models.ToolCallResult, error), opts ...SchemaOption) (*TypedHandler[In], error) {
	s, err := jsonschema.For[In](nil)
	if err != nil {
		return nil, fmt.Errorf("infer input schema: %w", err)
	}
	if s.Properties == nil {
		s.Properties = map[string]*jsonschema.Schema{}
	}
	// Unknown argument keys are ignored, not rejected.
	s.AdditionalProperties = nil
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("input schema: %w", err)
		}
	}
	m, err := schemaToMap(s)
	if err != nil {
		return nil, err
	}
	return &TypedHandler[In]{description: description, schema: m, fn: fn}, nil
}

// MustNewTool is NewTool that panics on schema errors. Use it for tools
// built at package initialization.
func MustNewTool[In any](description string, fn func(context.Context, In) (*models.ToolCallResult, error), opts ...SchemaOption) *TypedHandler[In] {
	h, err := NewTool(description, fn, opts...)
	if err != nil {
		panic(fmt.Sprintf("registry: %v", err))
	}
	return h
}

func (h *TypedHandler[In]) Description() string         { return h.description }
func (h *TypedHandler[In]) InputSchema() map[string]any { return h.schema }

func (h *TypedHandler[In]) Call(ctx context.Context, args json.RawMessage) (*models.ToolCallResult, error) {
	var in In
	if len(args) > 0 {
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
	}
	return h.fn(ctx, in)
}

// FuncHandler adapts a plain function and a hand-written schema to Handler.
type FuncHandler struct {
	Desc   string
	Schema map[string]any
	Fn     func(context.Context, json.RawMessage) (*models.ToolCallResult, error)
}

func (f FuncHandler) Description() string         { return f.Desc }
func (f FuncHandler) InputSchema() map[string]any { return f.Schema }

func (f FuncHandler) Call(ctx context.Context, args json.RawMessage) (*models.ToolCallResult, error) {
	return f.Fn(ctx, args)
}
