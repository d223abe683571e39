package functions

import (
	"github.com/zurustar/aurora-nwscript/pkg/nwscript"
)

func (f *Functions) GetModule(ctx *nwscript.FunctionContext) error {
	id := nwscript.ObjectInvalid
	if f.module != nil {
		id = f.module.ModuleObject()
	}
	return ctx.SetReturn(nwscript.NewObject(id))
}

// GetFirstPC restarts the PC iteration shared by GetNextPC.
func (f *Functions) GetFirstPC(ctx *nwscript.FunctionContext) error {
	f.pcMu.Lock()
	f.pcCursor = 0
	f.pcMu.Unlock()
	return f.GetNextPC(ctx)
}

func (f *Functions) GetNextPC(ctx *nwscript.FunctionContext) error {
	id := nwscript.ObjectInvalid
	if f.module != nil {
		pcs := f.module.PCs()
		f.pcMu.Lock()
		if f.pcCursor < len(pcs) {
			id = pcs[f.pcCursor]
			f.pcCursor++
		}
		f.pcMu.Unlock()
	}
	return ctx.SetReturn(nwscript.NewObject(id))
}

// fade reads the wait, run and color parameters shared by the fades.
func fade(ctx *nwscript.FunctionContext) (wait, run float32, color nwscript.Vector, err error) {
	var p [5]float32
	for i := range p {
		if p[i], err = ctx.ParamFloat(i); err != nil {
			return 0, 0, color, err
		}
	}
	return p[0], p[1], nwscript.Vector{p[2], p[3], p[4]}, nil
}

func (f *Functions) SetGlobalFadeOut(ctx *nwscript.FunctionContext) error {
	wait, run, color, err := fade(ctx)
	if err != nil {
		return err
	}
	if f.screen != nil {
		f.screen.FadeOut(wait, run, color)
	}
	return nil
}

func (f *Functions) SetGlobalFadeIn(ctx *nwscript.FunctionContext) error {
	wait, run, color, err := fade(ctx)
	if err != nil {
		return err
	}
	if f.screen != nil {
		f.screen.FadeIn(wait, run, color)
	}
	return nil
}

func (f *Functions) SetReturnStrref(ctx *nwscript.FunctionContext) error {
	var p [3]int32
	for i := range p {
		v, err := ctx.ParamInt(i)
		if err != nil {
			return err
		}
		p[i] = v
	}
	if f.screen != nil {
		f.screen.SetReturnStrref(p[0] != 0, p[1], p[2])
	}
	return nil
}
