package functions

import (
	"github.com/zurustar/aurora-nwscript/pkg/nwscript"
)

// area reads the area parameter of the music functions.
func (f *Functions) area(ctx *nwscript.FunctionContext) (nwscript.ObjectID, bool, error) {
	id, err := ctx.ParamObject(0)
	if err != nil {
		return nwscript.ObjectInvalid, false, err
	}
	if f.music == nil {
		return id, false, nil
	}
	_, ok := f.lookup(id)
	return id, ok, nil
}

func (f *Functions) MusicBackgroundPlay(ctx *nwscript.FunctionContext) error {
	id, ok, err := f.area(ctx)
	if ok {
		f.music.Play(id)
	}
	return err
}

func (f *Functions) MusicBackgroundStop(ctx *nwscript.FunctionContext) error {
	id, ok, err := f.area(ctx)
	if ok {
		f.music.Stop(id)
	}
	return err
}

func (f *Functions) MusicBackgroundChangeDay(ctx *nwscript.FunctionContext) error {
	track, err := ctx.ParamInt(1)
	if err != nil {
		return err
	}
	id, ok, err := f.area(ctx)
	if ok {
		f.music.ChangeDay(id, track)
	}
	return err
}

func (f *Functions) MusicBackgroundChangeNight(ctx *nwscript.FunctionContext) error {
	track, err := ctx.ParamInt(1)
	if err != nil {
		return err
	}
	id, ok, err := f.area(ctx)
	if ok {
		f.music.ChangeNight(id, track)
	}
	return err
}

func (f *Functions) MusicBackgroundGetDayTrack(ctx *nwscript.FunctionContext) error {
	id, ok, err := f.area(ctx)
	if err != nil {
		return err
	}
	track := int32(-1)
	if ok {
		track = f.music.DayTrack(id)
	}
	return ctx.SetReturn(nwscript.NewInt(track))
}

func (f *Functions) MusicBackgroundGetNightTrack(ctx *nwscript.FunctionContext) error {
	id, ok, err := f.area(ctx)
	if err != nil {
		return err
	}
	track := int32(-1)
	if ok {
		track = f.music.NightTrack(id)
	}
	return ctx.SetReturn(nwscript.NewInt(track))
}

// PlayMovie logs a failing movie and lets the script continue.
func (f *Functions) PlayMovie(ctx *nwscript.FunctionContext) error {
	name, err := ctx.ParamString(0)
	if err != nil {
		return err
	}
	if f.movies == nil {
		f.log.Warn("No movie player", "movie", name)
		return nil
	}
	if err := f.movies.PlayMovie(name); err != nil {
		f.log.Error("Failed to play movie", "movie", name, "error", err)
	}
	return nil
}
