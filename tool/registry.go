package tool

import (
	"fmt"

	"github.com/supbro-dev/Wagner-agent/model"
)

// Registry is an ordered, name-unique collection of tools exposed to the
// model for one workflow node. It is immutable after construction.
type Registry struct {
	byName map[string]Tool
	order  []string
}

// NewRegistry builds a registry, rejecting duplicate names.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{byName: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if _, exists := r.byName[t.Name()]; exists {
			return nil, fmt.Errorf("registry: duplicate tool name %q", t.Name())
		}
		r.byName[t.Name()] = t
		r.order = append(r.order, t.Name())
	}
	return r, nil
}

// Merge returns a new registry containing this registry's tools plus extras.
func (r *Registry) Merge(extras ...Tool) (*Registry, error) {
	all := make([]Tool, 0, len(r.order)+len(extras))
	for _, name := range r.order {
		all = append(all, r.byName[name])
	}
	all = append(all, extras...)
	return NewRegistry(all...)
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }

// Definitions renders the registry as model tool definitions in registration order.
func (r *Registry) Definitions() []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.byName[name]
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}
