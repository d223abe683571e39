package nwscript

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// A call succeeds exactly when the number of passed arguments lies between
// the number of required parameters and the declared arity.
func TestProperty_ArityAndDefaults(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("call accepted iff required <= passed <= arity", prop.ForAll(
		func(arity, ndefaults, passed int) bool {
			if ndefaults > arity {
				ndefaults = arity
			}
			params := make([]Type, arity)
			for i := range params {
				params[i] = TypeInt
			}
			defaults := make([]Variable, ndefaults)
			for i := range defaults {
				defaults[i] = NewInt(int32(100 + i))
			}

			table, err := NewFunctionTable(
				[]FunctionPointer{{ID: 1, Name: "F", Func: func(ctx *FunctionContext) error { return nil }}},
				[]FunctionSignature{{ID: 1, Return: TypeVoid, Params: params}},
				[]FunctionDefaults{{ID: 1, Defaults: defaults}},
			)
			if err != nil {
				return false
			}

			args := make([]Variable, passed)
			for i := range args {
				args[i] = NewInt(int32(i))
			}
			_, err = table.Call(1, args, 0, 0, "s")

			required := arity - ndefaults
			switch {
			case passed > arity:
				return errors.Is(err, ErrArity)
			case passed < required:
				return errors.Is(err, ErrMissingDefault)
			default:
				return err == nil
			}
		},
		gen.IntRange(0, MaxParams),
		gen.IntRange(0, MaxDefaults),
		gen.IntRange(0, MaxParams+2),
	))

	properties.Property("omitted trailing params hold their declared defaults", prop.ForAll(
		func(arity, passed int) bool {
			if passed > arity {
				passed = arity
			}
			params := make([]Type, arity)
			defaults := make([]Variable, arity)
			for i := range params {
				params[i] = TypeInt
				defaults[i] = NewInt(int32(1000 + i))
			}
			if arity > MaxDefaults {
				defaults = defaults[arity-MaxDefaults:]
				if passed < arity-MaxDefaults {
					passed = arity - MaxDefaults
				}
			}

			var got []Variable
			table, err := NewFunctionTable(
				[]FunctionPointer{{ID: 1, Name: "F", Func: func(ctx *FunctionContext) error {
					got = append([]Variable(nil), ctx.Params()...)
					return nil
				}}},
				[]FunctionSignature{{ID: 1, Return: TypeVoid, Params: params}},
				[]FunctionDefaults{{ID: 1, Defaults: defaults}},
			)
			if err != nil {
				return false
			}

			args := make([]Variable, passed)
			for i := range args {
				args[i] = NewInt(int32(i))
			}
			if _, err := table.Call(1, args, 0, 0, "s"); err != nil {
				return false
			}
			if len(got) != arity {
				return false
			}
			for i := 0; i < passed; i++ {
				if !got[i].Equal(NewInt(int32(i))) {
					return false
				}
			}
			for i := passed; i < arity; i++ {
				if !got[i].Equal(NewInt(int32(1000 + i))) {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, MaxParams),
		gen.IntRange(0, MaxParams),
	))

	properties.TestingRun(t)
}
