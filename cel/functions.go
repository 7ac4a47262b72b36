package cel

import (
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// Names of the equality functions a translated rule calls in place of == and !=.
const (
	eqFunction = "gavel_eq"
	neFunction = "gavel_ne"
)

// equality declares gavel_eq and gavel_ne. Unlike CEL's == and != they fail
// when the operands have different types.
func equality() []cel.EnvOption {
	return []cel.EnvOption{
		cel.Function(eqFunction,
			cel.Overload(eqFunction+"_dyn_dyn", []*cel.Type{cel.DynType, cel.DynType}, cel.BoolType,
				cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					return equal(lhs, rhs, false)
				}))),
		cel.Function(neFunction,
			cel.Overload(neFunction+"_dyn_dyn", []*cel.Type{cel.DynType, cel.DynType}, cel.BoolType,
				cel.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
					return equal(lhs, rhs, true)
				}))),
	}
}

func equal(lhs, rhs ref.Val, negate bool) ref.Val {
	if lhs.Type().TypeName() != rhs.Type().TypeName() {
		return types.NewErr("no such overload: %s == %s", lhs.Type().TypeName(), rhs.Type().TypeName())
	}
	eq := lhs.Equal(rhs)
	b, ok := eq.(types.Bool)
	if !ok {
		return eq
	}
	if negate {
		return !b
	}
	return b
}
