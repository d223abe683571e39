package functions

import (
	"math"

	"github.com/zurustar/aurora-nwscript/pkg/nwscript"
)

// AssignCommand makes the target object run the action next tick.
func (f *Functions) AssignCommand(ctx *nwscript.FunctionContext) error {
	if ctx.ScriptName() == "" {
		return nwscript.NewInvalidScriptContextError(ctx.Name())
	}
	target, err := ctx.ParamObject(0)
	if err != nil {
		return err
	}
	state, err := ctx.ParamScriptState(1)
	if err != nil {
		return err
	}
	return f.schedule(ctx, state, target, 0)
}

// DelayCommand runs the action on the caller after the given number of
// seconds. Negative delays run next tick.
func (f *Functions) DelayCommand(ctx *nwscript.FunctionContext) error {
	if ctx.ScriptName() == "" {
		return nwscript.NewInvalidScriptContextError(ctx.Name())
	}
	seconds, err := ctx.ParamFloat(0)
	if err != nil {
		return err
	}
	state, err := ctx.ParamScriptState(1)
	if err != nil {
		return err
	}
	delay := uint32(0)
	switch ms := float64(seconds) * 1000; {
	case ms >= math.MaxUint32:
		delay = math.MaxUint32
	case ms > 0:
		delay = uint32(ms)
	}
	return f.schedule(ctx, state, ctx.Caller(), delay)
}

func (f *Functions) schedule(ctx *nwscript.FunctionContext, state nwscript.ScriptState, target nwscript.ObjectID, delayMs uint32) error {
	if f.scheduler == nil {
		f.log.Warn("No scheduler, dropping action", "function", ctx.Name(), "script", ctx.ScriptName())
		return nil
	}
	return f.scheduler.DelayScript(ctx.ScriptName(), state, target, ctx.Triggerer(), delayMs)
}

// ExecuteScript runs another script immediately with the target as
// OBJECT_SELF and the caller as triggerer. A failing script is logged and
// does not halt the caller.
func (f *Functions) ExecuteScript(ctx *nwscript.FunctionContext) error {
	name, err := ctx.ParamString(0)
	if err != nil {
		return err
	}
	target, err := ctx.ParamObject(1)
	if err != nil {
		return err
	}
	if f.scheduler == nil {
		f.log.Warn("No scheduler, not running script", "script", name)
		return nil
	}
	if err := f.scheduler.ExecuteScript(ctx.Context(), name, target, ctx.Caller()); err != nil {
		f.log.Error("ExecuteScript failed", "script", name, "caller", ctx.ScriptName(), "error", err)
	}
	return nil
}
