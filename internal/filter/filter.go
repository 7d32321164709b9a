// Package filter selects adapter events with CEL expressions such as
// `kind == "text" && chat == 42` or `topic.startsWith("sensors/")`.
package filter

import (
	"fmt"
	"reflect"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
)

// Keys are the event attributes an expression may reference. Each adapter
// fills in the subset that applies to its events; every event carries
// adapter and kind.
var Keys = []string{
	"adapter", // mdns, ws, mqtt, bot
	"kind",    // found, removed, resolved, text, binary, publish, voice, ...
	"service",
	"name",
	"host",
	"port",
	"topic",
	"text",
	"size",
	"chat",
}

// Filter is a compiled expression. A nil *Filter matches every event.
type Filter struct {
	expr    string
	program cel.Program
}

// Compile parses and type-checks expr. An empty expression yields a nil
// Filter.
func Compile(expr string) (*Filter, error) {
	if expr == "" {
		return nil, nil
	}

	opts := make([]cel.EnvOption, 0, len(Keys))
	for _, k := range Keys {
		opts = append(opts, cel.Variable(k, cel.DynType))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("cel compile: %w", issues.Err())
	}
	if out := ast.OutputType(); !reflect.DeepEqual(out, cel.BoolType) && !reflect.DeepEqual(out, cel.DynType) {
		return nil, fmt.Errorf("cel compile: %q is %v, want bool", expr, out)
	}

	prog, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("cel program: %w", err)
	}

	return &Filter{expr: expr, program: prog}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expr
}

// Match evaluates the filter against attrs.
// Missing keys, type mismatches and evaluation errors yield false.
func (f *Filter) Match(attrs map[string]any) bool {
	if f == nil {
		return true
	}
	out, _, err := f.program.Eval(attrs)
	if err != nil {
		return false
	}
	if out.Type() != types.BoolType {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
