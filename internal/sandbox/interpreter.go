package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	celtypes "github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
	"github.com/google/cel-go/ext"

	"github.com/Oyestore/receivables-sub031/internal/core/config"
	"github.com/Oyestore/receivables-sub031/internal/rules"
	"github.com/Oyestore/receivables-sub031/internal/types"
)

/*
 * CEL interpreter for custom snippets.
 *
 * CEL has no I/O, no reflection, no module loading and no unbounded loops,
 * so the capabilities the policy blocklist names are absent from the
 * language itself. The environment declares exactly:
 *   - invoice: map(string, dyn) projection built by NewContext
 *   - helpers.get(obj, path) / helpers.has(obj, path): the value accessor
 *   - console.log(value): returns true, writes nothing
 *   - ext.Strings and ext.Math: pure library functions
 *
 * A new environment and program are built for every Run. Nothing compiled
 * for one tenant or snippet revision is reused by another.
 *
 * Bounds:
 *   - cel.CostLimit caps evaluation steps and, since string and list
 *     building are charged by size, allocation
 *   - InterruptCheckFrequency makes comprehensions observe ctx cancellation
 *   - ParserExpressionSizeLimit rejects oversized input a second time
 */

const interruptCheckFrequency = 100

// Interpreter runs a validated snippet against a Context.
// Implementations must honor ctx cancellation.
type Interpreter interface {
	Run(ctx context.Context, snippet string, sc *Context) (any, error)
}

// CELInterpreter is the production Interpreter.
type CELInterpreter struct {
	costLimit uint64
	maxLength int
}

// NewCELInterpreter creates an interpreter bounded by cfg.
func NewCELInterpreter(cfg config.SandboxConfig) *CELInterpreter {
	i := &CELInterpreter{
		costLimit: cfg.CostLimit,
		maxLength: cfg.MaxSnippetLength,
	}
	if i.costLimit == 0 {
		i.costLimit = types.DefaultCostLimit
	}
	if i.maxLength <= 0 {
		i.maxLength = types.MaxSnippetLength
	}
	return i
}

// Run compiles and evaluates snippet. Errors are *types.ExecutionFault.
func (i *CELInterpreter) Run(ctx context.Context, snippet string, sc *Context) (any, error) {
	env, err := newEnv(i.maxLength)
	if err != nil {
		return nil, types.NewExecutionFault(types.FaultRuntime, fmt.Errorf("failed to build environment: %w", err))
	}

	ast, issues := env.Compile(snippet)
	if issues != nil && issues.Err() != nil {
		return nil, types.NewExecutionFault(types.FaultCompile, fmt.Errorf("%w: %v", types.ErrSnippetCompile, issues.Err()))
	}

	prg, err := env.Program(ast,
		cel.CostLimit(i.costLimit),
		cel.InterruptCheckFrequency(interruptCheckFrequency),
	)
	if err != nil {
		return nil, types.NewExecutionFault(types.FaultCompile, fmt.Errorf("%w: %v", types.ErrSnippetCompile, err))
	}

	out, _, err := prg.ContextEval(ctx, sc.Activation())
	if err != nil {
		return nil, classifyEvalError(ctx, err)
	}
	return toNative(out), nil
}

func classifyEvalError(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return types.NewExecutionFault(types.FaultTimeout, fmt.Errorf("%w: %v", types.ErrExecutionTimeout, err))
	case strings.Contains(err.Error(), "cost limit exceeded"):
		return types.NewExecutionFault(types.FaultResource, fmt.Errorf("%w: %v", types.ErrResourceLimit, err))
	default:
		return types.NewExecutionFault(types.FaultRuntime, fmt.Errorf("%w: %v", types.ErrSnippetRuntime, err))
	}
}

func newEnv(maxLength int) (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("invoice", cel.MapType(cel.StringType, cel.DynType)),
		cel.Function("helpers.get",
			cel.Overload("helpers_get_dyn_string",
				[]*cel.Type{cel.DynType, cel.StringType}, cel.DynType,
				cel.BinaryBinding(helperGet),
			),
		),
		cel.Function("helpers.has",
			cel.Overload("helpers_has_dyn_string",
				[]*cel.Type{cel.DynType, cel.StringType}, cel.BoolType,
				cel.BinaryBinding(helperHas),
			),
		),
		cel.Function("console.log",
			cel.Overload("console_log_dyn",
				[]*cel.Type{cel.DynType}, cel.BoolType,
				cel.UnaryBinding(func(ref.Val) ref.Val { return celtypes.True }),
			),
		),
		cel.CrossTypeNumericComparisons(true),
		cel.ParserExpressionSizeLimit(maxLength),
		ext.Strings(),
		ext.Math(),
	)
}

func helperGet(obj, path ref.Val) ref.Val {
	p, ok := path.(celtypes.String)
	if !ok {
		return celtypes.NewErr("helpers.get: path must be a string")
	}
	v := rules.Get(toNative(obj), string(p))
	if rules.IsAbsent(v) {
		return celtypes.NullValue
	}
	return celtypes.DefaultTypeAdapter.NativeToValue(v)
}

func helperHas(obj, path ref.Val) ref.Val {
	p, ok := path.(celtypes.String)
	if !ok {
		return celtypes.NewErr("helpers.has: path must be a string")
	}
	return celtypes.Bool(rules.Has(toNative(obj), string(p)))
}

// toNative converts a CEL value to plain Go maps, slices and scalars.
func toNative(v ref.Val) any {
	switch x := v.(type) {
	case celtypes.Null:
		return nil
	case celtypes.Timestamp:
		return x.Time
	case celtypes.Duration:
		return x.Duration
	case traits.Mapper:
		out := make(map[string]any)
		it := x.Iterator()
		for it.HasNext() == celtypes.True {
			k := it.Next()
			out[fmt.Sprint(k.Value())] = toNative(x.Get(k))
		}
		return out
	case traits.Lister:
		n, _ := x.Size().(celtypes.Int)
		out := make([]any, 0, int(n))
		for idx := celtypes.Int(0); idx < n; idx++ {
			out = append(out, toNative(x.Get(idx)))
		}
		return out
	default:
		return v.Value()
	}
}
