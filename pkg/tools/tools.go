package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/adforge-ai/adforge-agent/pkg/types"
)

// Tool is a named, schema-described capability the reasoning runtime may
// choose to invoke during a conversation.
type Tool interface {
	Name() string
	Description() string
	Schema() *jsonschema.Schema
	Call(ctx context.Context, args json.RawMessage) (string, error)
}

// tool binds a typed request struct to a handler. The input schema is
// reflected from the struct's jsonschema tags.
type tool[Req any] struct {
	name        string
	description string
	fn          func(ctx context.Context, req Req) (string, error)
}

// New builds a tool from a typed handler.
func New[Req any](name, description string, fn func(ctx context.Context, req Req) (string, error)) Tool {
	return &tool[Req]{name: name, description: description, fn: fn}
}

func (t *tool[Req]) Name() string        { return t.name }
func (t *tool[Req]) Description() string { return t.description }

func (t *tool[Req]) Schema() *jsonschema.Schema {
	var req Req
	return (&jsonschema.Reflector{
		DoNotReference: true,
	}).Reflect(&req)
}

func (t *tool[Req]) Call(ctx context.Context, args json.RawMessage) (string, error) {
	var req Req
	if len(args) > 0 {
		if err := json.Unmarshal(args, &req); err != nil {
			return "", fmt.Errorf("invalid arguments for %s: %w", t.name, err)
		}
	}
	return t.fn(ctx, req)
}

// Registry assembles the capability list handed to the runtime. Assembly
// order is insignificant; names are expected to be unique.
type Registry struct {
	tools []Tool
	index map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]Tool)}
}

// Register appends a tool to the list.
func (r *Registry) Register(t Tool) {
	r.tools = append(r.tools, t)
	r.index[t.Name()] = t
}

// Get looks a tool up by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.index[name]
	return t, ok
}

// List returns the tools in registration order.
func (r *Registry) List() []Tool {
	return r.tools
}

// Invoke runs a registered tool by name.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (string, error) {
	t, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", types.ErrToolNotFound, name)
	}
	return t.Call(ctx, args)
}
