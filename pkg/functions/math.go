package functions

import (
	"math"

	"github.com/zurustar/aurora-nwscript/pkg/nwscript"
)

func (f *Functions) Random(ctx *nwscript.FunctionContext) error {
	n, err := ctx.ParamInt(0)
	if err != nil {
		return err
	}
	return ctx.SetReturn(nwscript.NewInt(f.random(0, n-1, 1)))
}

func (f *Functions) Abs(ctx *nwscript.FunctionContext) error {
	n, err := ctx.ParamInt(0)
	if err != nil {
		return err
	}
	if n < 0 {
		n = -n
	}
	return ctx.SetReturn(nwscript.NewInt(n))
}

// floatFunc adapts a float64 function of one argument.
func floatFunc(ctx *nwscript.FunctionContext, fn func(float64) float64) error {
	x, err := ctx.ParamFloat(0)
	if err != nil {
		return err
	}
	return ctx.SetReturn(nwscript.NewFloat(float32(fn(float64(x)))))
}

func (f *Functions) Fabs(ctx *nwscript.FunctionContext) error { return floatFunc(ctx, math.Abs) }
func (f *Functions) Cos(ctx *nwscript.FunctionContext) error  { return floatFunc(ctx, math.Cos) }
func (f *Functions) Sin(ctx *nwscript.FunctionContext) error  { return floatFunc(ctx, math.Sin) }
func (f *Functions) Tan(ctx *nwscript.FunctionContext) error  { return floatFunc(ctx, math.Tan) }
func (f *Functions) Acos(ctx *nwscript.FunctionContext) error { return floatFunc(ctx, math.Acos) }
func (f *Functions) Asin(ctx *nwscript.FunctionContext) error { return floatFunc(ctx, math.Asin) }
func (f *Functions) Atan(ctx *nwscript.FunctionContext) error { return floatFunc(ctx, math.Atan) }
func (f *Functions) Log(ctx *nwscript.FunctionContext) error  { return floatFunc(ctx, math.Log) }
func (f *Functions) Sqrt(ctx *nwscript.FunctionContext) error { return floatFunc(ctx, math.Sqrt) }

func (f *Functions) Pow(ctx *nwscript.FunctionContext) error {
	x, err := ctx.ParamFloat(0)
	if err != nil {
		return err
	}
	y, err := ctx.ParamFloat(1)
	if err != nil {
		return err
	}
	return ctx.SetReturn(nwscript.NewFloat(float32(math.Pow(float64(x), float64(y)))))
}

// dice rolls the number of dice given by parameter 0.
func (f *Functions) dice(ctx *nwscript.FunctionContext, sides int32) error {
	n, err := ctx.ParamInt(0)
	if err != nil {
		return err
	}
	return ctx.SetReturn(nwscript.NewInt(f.random(1, sides, n)))
}

func (f *Functions) D2(ctx *nwscript.FunctionContext) error   { return f.dice(ctx, 2) }
func (f *Functions) D3(ctx *nwscript.FunctionContext) error   { return f.dice(ctx, 3) }
func (f *Functions) D4(ctx *nwscript.FunctionContext) error   { return f.dice(ctx, 4) }
func (f *Functions) D6(ctx *nwscript.FunctionContext) error   { return f.dice(ctx, 6) }
func (f *Functions) D8(ctx *nwscript.FunctionContext) error   { return f.dice(ctx, 8) }
func (f *Functions) D10(ctx *nwscript.FunctionContext) error  { return f.dice(ctx, 10) }
func (f *Functions) D12(ctx *nwscript.FunctionContext) error  { return f.dice(ctx, 12) }
func (f *Functions) D20(ctx *nwscript.FunctionContext) error  { return f.dice(ctx, 20) }
func (f *Functions) D100(ctx *nwscript.FunctionContext) error { return f.dice(ctx, 100) }

func (f *Functions) IntToFloat(ctx *nwscript.FunctionContext) error {
	n, err := ctx.ParamInt(0)
	if err != nil {
		return err
	}
	return ctx.SetReturn(nwscript.NewFloat(float32(n)))
}

// FloatToInt truncates toward zero.
func (f *Functions) FloatToInt(ctx *nwscript.FunctionContext) error {
	x, err := ctx.ParamFloat(0)
	if err != nil {
		return err
	}
	return ctx.SetReturn(nwscript.NewInt(int32(x)))
}

func (f *Functions) Vector(ctx *nwscript.FunctionContext) error {
	var v [3]float32
	for i := range v {
		c, err := ctx.ParamFloat(i)
		if err != nil {
			return err
		}
		v[i] = c
	}
	return ctx.SetReturn(nwscript.NewVector(v[0], v[1], v[2]))
}

func magnitude(v nwscript.Vector) float32 {
	return float32(math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
}

func (f *Functions) VectorMagnitude(ctx *nwscript.FunctionContext) error {
	v, err := ctx.ParamVector(0)
	if err != nil {
		return err
	}
	return ctx.SetReturn(nwscript.NewFloat(magnitude(v)))
}

// VectorNormalize returns the zero vector unchanged.
func (f *Functions) VectorNormalize(ctx *nwscript.FunctionContext) error {
	v, err := ctx.ParamVector(0)
	if err != nil {
		return err
	}
	if m := magnitude(v); m != 0 {
		v[0], v[1], v[2] = v[0]/m, v[1]/m, v[2]/m
	}
	return ctx.SetReturn(nwscript.NewVector(v[0], v[1], v[2]))
}
