package functions

import "github.com/zurustar/aurora-nwscript/pkg/nwscript"

// Gender constants.
const (
	GenderMale   int32 = 0
	GenderFemale int32 = 1
	GenderBoth   int32 = 2
	GenderOther  int32 = 3
	GenderNone   int32 = 4
)

// Invalid values returned for objects that are not creatures.
const (
	ClassTypeInvalid  int32 = 255
	RacialTypeInvalid int32 = 28
)

// GetClickingObject, GetEnteringObject and GetExitingObject all return the
// object that triggered the running script.
func (f *Functions) GetClickingObject(ctx *nwscript.FunctionContext) error {
	return ctx.SetReturn(nwscript.NewObject(ctx.Triggerer()))
}

func (f *Functions) GetEnteringObject(ctx *nwscript.FunctionContext) error {
	return ctx.SetReturn(nwscript.NewObject(ctx.Triggerer()))
}

func (f *Functions) GetExitingObject(ctx *nwscript.FunctionContext) error {
	return ctx.SetReturn(nwscript.NewObject(ctx.Triggerer()))
}

func (f *Functions) GetIsObjectValid(ctx *nwscript.FunctionContext) error {
	_, ok, err := f.paramObject(ctx, 0)
	if err != nil {
		return err
	}
	return ctx.SetReturn(nwscript.NewBool(ok))
}

func (f *Functions) GetIsPC(ctx *nwscript.FunctionContext) error {
	p, ok, err := capability[Player](f, ctx, 0)
	if err != nil {
		return err
	}
	return ctx.SetReturn(nwscript.NewBool(ok && p.IsPC()))
}

func (f *Functions) GetObjectByTag(ctx *nwscript.FunctionContext) error {
	tag, err := ctx.ParamString(0)
	if err != nil {
		return err
	}
	nth, err := ctx.ParamInt(1)
	if err != nil {
		return err
	}
	id := nwscript.ObjectInvalid
	if finder, ok := f.objects.(TagFinder); ok && nth >= 0 {
		if obj, ok := finder.FindByTag(tag, int(nth)); ok {
			id = obj.ID()
		}
	}
	return ctx.SetReturn(nwscript.NewObject(id))
}

func (f *Functions) GetTag(ctx *nwscript.FunctionContext) error {
	obj, ok, err := f.paramObject(ctx, 0)
	if err != nil {
		return err
	}
	tag := ""
	if ok {
		tag = obj.Tag()
	}
	return ctx.SetReturn(nwscript.NewString(tag))
}

func (f *Functions) GetMinOneHP(ctx *nwscript.FunctionContext) error {
	hp, ok, err := capability[HitPoints](f, ctx, 0)
	if err != nil {
		return err
	}
	return ctx.SetReturn(nwscript.NewBool(ok && hp.MinOneHP()))
}

func (f *Functions) SetMinOneHP(ctx *nwscript.FunctionContext) error {
	v, err := ctx.ParamInt(1)
	if err != nil {
		return err
	}
	hp, ok, err := capability[HitPoints](f, ctx, 0)
	if err != nil || !ok {
		return err
	}
	hp.SetMinOneHP(v != 0)
	return nil
}

func (f *Functions) GetCurrentHitPoints(ctx *nwscript.FunctionContext) error {
	hp, ok, err := capability[HitPoints](f, ctx, 0)
	if err != nil {
		return err
	}
	n := int32(0)
	if ok {
		n = hp.CurrentHitPoints()
	}
	return ctx.SetReturn(nwscript.NewInt(n))
}

func (f *Functions) GetMaxHitPoints(ctx *nwscript.FunctionContext) error {
	hp, ok, err := capability[HitPoints](f, ctx, 0)
	if err != nil {
		return err
	}
	n := int32(0)
	if ok {
		n = hp.MaxHitPoints()
	}
	return ctx.SetReturn(nwscript.NewInt(n))
}

func (f *Functions) SetMaxHitPoints(ctx *nwscript.FunctionContext) error {
	n, err := ctx.ParamInt(1)
	if err != nil {
		return err
	}
	hp, ok, err := capability[HitPoints](f, ctx, 0)
	if err != nil || !ok {
		return err
	}
	hp.SetMaxHitPoints(n)
	return nil
}

// Situated objects.

func (f *Functions) GetLocked(ctx *nwscript.FunctionContext) error {
	s, ok, err := capability[Situated](f, ctx, 0)
	if err != nil {
		return err
	}
	return ctx.SetReturn(nwscript.NewBool(ok && s.Locked()))
}

func (f *Functions) SetLocked(ctx *nwscript.FunctionContext) error {
	v, err := ctx.ParamInt(1)
	if err != nil {
		return err
	}
	s, ok, err := capability[Situated](f, ctx, 0)
	if err != nil || !ok {
		return err
	}
	s.SetLocked(v != 0)
	return nil
}

func (f *Functions) GetIsOpen(ctx *nwscript.FunctionContext) error {
	s, ok, err := capability[Situated](f, ctx, 0)
	if err != nil {
		return err
	}
	return ctx.SetReturn(nwscript.NewBool(ok && s.IsOpen()))
}

// lastActor reports an actor recorded on the calling situated object.
func (f *Functions) lastActor(ctx *nwscript.FunctionContext, get func(Situated) nwscript.ObjectID) error {
	id := nwscript.ObjectInvalid
	if s, ok := callerCapability[Situated](f, ctx); ok {
		id = get(s)
	}
	return ctx.SetReturn(nwscript.NewObject(id))
}

func (f *Functions) GetLastOpenedBy(ctx *nwscript.FunctionContext) error {
	return f.lastActor(ctx, Situated.LastOpenedBy)
}

func (f *Functions) GetLastClosedBy(ctx *nwscript.FunctionContext) error {
	return f.lastActor(ctx, Situated.LastClosedBy)
}

func (f *Functions) GetLastUsedBy(ctx *nwscript.FunctionContext) error {
	return f.lastActor(ctx, Situated.LastUsedBy)
}

// Creatures.

func (f *Functions) GetGender(ctx *nwscript.FunctionContext) error {
	c, ok, err := capability[Creature](f, ctx, 0)
	if err != nil {
		return err
	}
	g := GenderNone
	if ok {
		g = c.Gender()
	}
	return ctx.SetReturn(nwscript.NewInt(g))
}

func (f *Functions) GetRacialType(ctx *nwscript.FunctionContext) error {
	c, ok, err := capability[Creature](f, ctx, 0)
	if err != nil {
		return err
	}
	r := RacialTypeInvalid
	if ok {
		r = c.Race()
	}
	return ctx.SetReturn(nwscript.NewInt(r))
}

func (f *Functions) GetSubRace(ctx *nwscript.FunctionContext) error {
	c, ok, err := capability[Creature](f, ctx, 0)
	if err != nil {
		return err
	}
	r := int32(0)
	if ok {
		r = c.SubRace()
	}
	return ctx.SetReturn(nwscript.NewInt(r))
}

func (f *Functions) GetLevelByClass(ctx *nwscript.FunctionContext) error {
	class, err := ctx.ParamInt(0)
	if err != nil {
		return err
	}
	c, ok, err := capability[Creature](f, ctx, 1)
	if err != nil {
		return err
	}
	level := int32(0)
	if ok {
		level = c.LevelByClass(class)
	}
	return ctx.SetReturn(nwscript.NewInt(level))
}

// classAt resolves the 1-based class position parameter 0 on object
// parameter 1.
func (f *Functions) classAt(ctx *nwscript.FunctionContext) (class, level int32, ok bool, err error) {
	pos, err := ctx.ParamInt(0)
	if err != nil {
		return 0, 0, false, err
	}
	c, isCreature, err := capability[Creature](f, ctx, 1)
	if err != nil || !isCreature {
		return 0, 0, false, err
	}
	class, level, ok = c.ClassByPosition(int(pos) - 1)
	return class, level, ok, nil
}

func (f *Functions) GetClassByPosition(ctx *nwscript.FunctionContext) error {
	class, _, ok, err := f.classAt(ctx)
	if err != nil {
		return err
	}
	if !ok {
		class = ClassTypeInvalid
	}
	return ctx.SetReturn(nwscript.NewInt(class))
}

func (f *Functions) GetLevelByPosition(ctx *nwscript.FunctionContext) error {
	_, level, ok, err := f.classAt(ctx)
	if err != nil {
		return err
	}
	if !ok {
		level = 0
	}
	return ctx.SetReturn(nwscript.NewInt(level))
}

// Local variables. Objects without local storage read as the zero value
// and ignore writes.

func (f *Functions) getLocal(ctx *nwscript.FunctionContext, kind nwscript.Kind) error {
	name, err := ctx.ParamString(1)
	if err != nil {
		return err
	}
	l, ok, err := capability[Locals](f, ctx, 0)
	if err != nil {
		return err
	}
	v := nwscript.Zero(ctx.Signature().Return)
	if ok {
		if got := l.Local(name, kind); got.Kind() == kind {
			v = got
		}
	}
	return ctx.SetReturn(v)
}

func (f *Functions) setLocal(ctx *nwscript.FunctionContext) error {
	name, err := ctx.ParamString(1)
	if err != nil {
		return err
	}
	l, ok, err := capability[Locals](f, ctx, 0)
	if err != nil || !ok {
		return err
	}
	v := ctx.Param(2)
	if v.Kind() == nwscript.KindObject {
		id, _ := ctx.ParamObject(2)
		v = nwscript.NewObject(id)
	}
	l.SetLocal(name, v)
	return nil
}

func (f *Functions) GetLocalInt(ctx *nwscript.FunctionContext) error {
	return f.getLocal(ctx, nwscript.KindInt)
}

func (f *Functions) GetLocalFloat(ctx *nwscript.FunctionContext) error {
	return f.getLocal(ctx, nwscript.KindFloat)
}

func (f *Functions) GetLocalString(ctx *nwscript.FunctionContext) error {
	return f.getLocal(ctx, nwscript.KindString)
}

func (f *Functions) GetLocalObject(ctx *nwscript.FunctionContext) error {
	return f.getLocal(ctx, nwscript.KindObject)
}

func (f *Functions) SetLocalInt(ctx *nwscript.FunctionContext) error    { return f.setLocal(ctx) }
func (f *Functions) SetLocalFloat(ctx *nwscript.FunctionContext) error  { return f.setLocal(ctx) }
func (f *Functions) SetLocalString(ctx *nwscript.FunctionContext) error { return f.setLocal(ctx) }
func (f *Functions) SetLocalObject(ctx *nwscript.FunctionContext) error { return f.setLocal(ctx) }
