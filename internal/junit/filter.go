package junit

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
)

// Filter selects failures with a CEL expression over the variables
// classname, failure_type and message, e.g.
// `failure_type.startsWith("java.lang")`.
type Filter struct {
	env       *cel.Env
	costLimit uint64

	mu       sync.Mutex
	programs map[string]cel.Program
}

// NewFilter creates a filter environment.
func NewFilter() (*Filter, error) {
	env, err := cel.NewEnv(
		cel.Variable("classname", cel.StringType),
		cel.Variable("failure_type", cel.StringType),
		cel.Variable("message", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Filter{
		env:       env,
		costLimit: 1000000,
		programs:  make(map[string]cel.Program),
	}, nil
}

// Compile checks an expression without evaluating it.
func (f *Filter) Compile(expr string) error {
	_, err := f.program(expr)
	return err
}

// Match evaluates expr against one failure.
func (f *Filter) Match(expr string, outcome TestOutcome) (bool, error) {
	program, err := f.program(expr)
	if err != nil {
		return false, err
	}
	result, _, err := program.Eval(map[string]any{
		"classname":    outcome.ClassName,
		"failure_type": outcome.Type,
		"message":      outcome.Message,
	})
	if err != nil {
		return false, fmt.Errorf("CEL evaluation error: %w", err)
	}
	if result.Type() != types.BoolType {
		return false, fmt.Errorf("CEL expression must return boolean, got %v", result.Type())
	}
	return result.Value().(bool), nil
}

// Apply keeps the failures matching expr, preserving order. An empty
// expression keeps everything.
func (f *Filter) Apply(expr string, outcomes []TestOutcome) ([]TestOutcome, error) {
	if expr == "" {
		return outcomes, nil
	}
	var kept []TestOutcome
	for _, o := range outcomes {
		ok, err := f.Match(expr, o)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, o)
		}
	}
	return kept, nil
}

func (f *Filter) program(expr string) (cel.Program, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.programs[expr]; ok {
		return p, nil
	}

	ast, issues := f.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compilation error: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) && !ast.OutputType().IsExactType(cel.DynType) {
		return nil, fmt.Errorf("CEL expression must return boolean, got %s", ast.OutputType())
	}
	program, err := f.env.Program(ast, cel.CostLimit(f.costLimit))
	if err != nil {
		return nil, fmt.Errorf("CEL program creation error: %w", err)
	}
	f.programs[expr] = program
	return program, nil
}
