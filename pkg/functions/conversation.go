package functions

import (
	"github.com/zurustar/aurora-nwscript/pkg/nwscript"
)

// Talk volumes.
const (
	TalkVolumeTalk    int32 = 0
	TalkVolumeWhisper int32 = 1
	TalkVolumeShout   int32 = 2
)

func (f *Functions) SpeakString(ctx *nwscript.FunctionContext) error {
	text, err := ctx.ParamString(0)
	if err != nil {
		return err
	}
	volume, err := ctx.ParamInt(1)
	if err != nil {
		return err
	}
	if s, ok := callerCapability[Speaker](f, ctx); ok {
		s.Speak(text, volume)
	}
	return nil
}

func (f *Functions) SpeakStringByStrRef(ctx *nwscript.FunctionContext) error {
	strRef, err := ctx.ParamInt(0)
	if err != nil {
		return err
	}
	volume, err := ctx.ParamInt(1)
	if err != nil {
		return err
	}
	s, ok := callerCapability[Speaker](f, ctx)
	if !ok {
		return nil
	}
	feminine := false
	if c, ok := callerCapability[Creature](f, ctx); ok {
		feminine = c.Gender() == GenderFemale
	}
	s.Speak(f.strRef(strRef, feminine), volume)
	return nil
}

func (f *Functions) SpeakOneLinerConversation(ctx *nwscript.FunctionContext) error {
	dialog, err := ctx.ParamString(0)
	if err != nil {
		return err
	}
	tokenTarget, err := ctx.ParamObject(1)
	if err != nil {
		return err
	}
	if s, ok := callerCapability[Speaker](f, ctx); ok {
		s.SpeakOneLiner(dialog, tokenTarget)
	}
	return nil
}
