package functions

import (
	"fmt"
	"sort"

	"github.com/zurustar/aurora-nwscript/pkg/nwscript"
)

// Native is an engine function independent of any title's routine number.
type Native struct {
	Name     string
	Return   nwscript.Type
	Params   []nwscript.Type
	Defaults []nwscript.Variable
	Impl     func(f *Functions, ctx *nwscript.FunctionContext) error
}

// Binding assigns routine number ID to the catalog function Name. Sig
// declares a function the catalog does not know; it is bound to the
// unimplemented stub.
type Binding struct {
	ID   uint32
	Name string
	Sig  *Signature
}

// Signature is the declaration of a function without an implementation.
type Signature struct {
	Return   nwscript.Type
	Params   []nwscript.Type
	Defaults []nwscript.Variable
}

// Bind binds a catalog function.
func Bind(id uint32, name string) Binding {
	return Binding{ID: id, Name: name}
}

// Declare declares a function without implementation.
func Declare(id uint32, name string, ret nwscript.Type, params ...nwscript.Type) Binding {
	return Binding{ID: id, Name: name, Sig: &Signature{Return: ret, Params: params}}
}

// WithDefaults attaches trailing defaults to a declared function.
func (b Binding) WithDefaults(defaults ...nwscript.Variable) Binding {
	if b.Sig != nil {
		sig := *b.Sig
		sig.Defaults = defaults
		b.Sig = &sig
	}
	return b
}

const (
	tVoid   = nwscript.TypeVoid
	tInt    = nwscript.TypeInt
	tFloat  = nwscript.TypeFloat
	tString = nwscript.TypeString
	tObject = nwscript.TypeObject
	tVector = nwscript.TypeVector
	tAction = nwscript.TypeScriptState
)

var (
	self    = nwscript.NewObject(nwscript.ObjectSelfConstant)
	invalid = nwscript.NewObject(nwscript.ObjectInvalid)
)

func types(t ...nwscript.Type) []nwscript.Type         { return t }
func values(v ...nwscript.Variable) []nwscript.Variable { return v }
func ints(n ...int32) []nwscript.Variable {
	v := make([]nwscript.Variable, len(n))
	for i := range n {
		v[i] = nwscript.NewInt(n[i])
	}
	return v
}
func floats(n ...float32) []nwscript.Variable {
	v := make([]nwscript.Variable, len(n))
	for i := range n {
		v[i] = nwscript.NewFloat(n[i])
	}
	return v
}

var catalog = map[string]Native{}

func register(natives ...Native) {
	for _, n := range natives {
		if _, dup := catalog[n.Name]; dup {
			panic("functions: duplicate native " + n.Name)
		}
		catalog[n.Name] = n
	}
}

func init() {
	dice := func(name string, impl func(*Functions, *nwscript.FunctionContext) error) Native {
		return Native{Name: name, Return: tInt, Params: types(tInt), Defaults: ints(1), Impl: impl}
	}
	unary := func(name string, impl func(*Functions, *nwscript.FunctionContext) error) Native {
		return Native{Name: name, Return: tFloat, Params: types(tFloat), Impl: impl}
	}

	// Math
	register(
		Native{Name: "Random", Return: tInt, Params: types(tInt), Impl: (*Functions).Random},
		Native{Name: "abs", Return: tInt, Params: types(tInt), Impl: (*Functions).Abs},
		unary("fabs", (*Functions).Fabs),
		unary("cos", (*Functions).Cos),
		unary("sin", (*Functions).Sin),
		unary("tan", (*Functions).Tan),
		unary("acos", (*Functions).Acos),
		unary("asin", (*Functions).Asin),
		unary("atan", (*Functions).Atan),
		unary("log", (*Functions).Log),
		unary("sqrt", (*Functions).Sqrt),
		Native{Name: "pow", Return: tFloat, Params: types(tFloat, tFloat), Impl: (*Functions).Pow},
		dice("d2", (*Functions).D2),
		dice("d3", (*Functions).D3),
		dice("d4", (*Functions).D4),
		dice("d6", (*Functions).D6),
		dice("d8", (*Functions).D8),
		dice("d10", (*Functions).D10),
		dice("d12", (*Functions).D12),
		dice("d20", (*Functions).D20),
		dice("d100", (*Functions).D100),
		Native{Name: "IntToFloat", Return: tFloat, Params: types(tInt), Impl: (*Functions).IntToFloat},
		Native{Name: "FloatToInt", Return: tInt, Params: types(tFloat), Impl: (*Functions).FloatToInt},
		Native{Name: "Vector", Return: tVector, Params: types(tFloat, tFloat, tFloat), Defaults: floats(0, 0, 0), Impl: (*Functions).Vector},
		Native{Name: "VectorMagnitude", Return: tFloat, Params: types(tVector), Impl: (*Functions).VectorMagnitude},
		Native{Name: "VectorNormalize", Return: tVector, Params: types(tVector), Impl: (*Functions).VectorNormalize},
	)

	// Strings
	register(
		Native{Name: "PrintString", Return: tVoid, Params: types(tString), Impl: (*Functions).PrintString},
		Native{Name: "PrintInteger", Return: tVoid, Params: types(tInt), Impl: (*Functions).PrintInteger},
		Native{Name: "PrintFloat", Return: tVoid, Params: types(tFloat, tInt, tInt), Defaults: ints(DefaultFloatWidth, DefaultFloatDecimals), Impl: (*Functions).PrintFloat},
		Native{Name: "PrintObject", Return: tVoid, Params: types(tObject), Impl: (*Functions).PrintObject},
		Native{Name: "PrintVector", Return: tVoid, Params: types(tVector, tInt), Impl: (*Functions).PrintVector},
		Native{Name: "WriteTimestampedLogEntry", Return: tVoid, Params: types(tString), Impl: (*Functions).WriteTimestampedLogEntry},
		Native{Name: "SendMessageToPC", Return: tVoid, Params: types(tObject, tString), Impl: (*Functions).SendMessageToPC},
		Native{Name: "IntToString", Return: tString, Params: types(tInt), Impl: (*Functions).IntToString},
		Native{Name: "FloatToString", Return: tString, Params: types(tFloat, tInt, tInt), Defaults: ints(DefaultFloatWidth, DefaultFloatDecimals), Impl: (*Functions).FloatToString},
		Native{Name: "ObjectToString", Return: tString, Params: types(tObject), Impl: (*Functions).ObjectToString},
		Native{Name: "IntToHexString", Return: tString, Params: types(tInt), Impl: (*Functions).IntToHexString},
		Native{Name: "StringToInt", Return: tInt, Params: types(tString), Impl: (*Functions).StringToInt},
		Native{Name: "StringToFloat", Return: tFloat, Params: types(tString), Impl: (*Functions).StringToFloat},
		Native{Name: "GetStringLength", Return: tInt, Params: types(tString), Impl: (*Functions).GetStringLength},
		Native{Name: "GetStringUpperCase", Return: tString, Params: types(tString), Impl: (*Functions).GetStringUpperCase},
		Native{Name: "GetStringLowerCase", Return: tString, Params: types(tString), Impl: (*Functions).GetStringLowerCase},
		Native{Name: "GetStringRight", Return: tString, Params: types(tString, tInt), Impl: (*Functions).GetStringRight},
		Native{Name: "GetStringLeft", Return: tString, Params: types(tString, tInt), Impl: (*Functions).GetStringLeft},
		Native{Name: "InsertString", Return: tString, Params: types(tString, tString, tInt), Impl: (*Functions).InsertString},
		Native{Name: "GetSubString", Return: tString, Params: types(tString, tInt, tInt), Impl: (*Functions).GetSubString},
		Native{Name: "FindSubString", Return: tInt, Params: types(tString, tString, tInt), Defaults: ints(0), Impl: (*Functions).FindSubString},
		Native{Name: "GetStringByStrRef", Return: tString, Params: types(tInt, tInt), Defaults: ints(GenderMale), Impl: (*Functions).GetStringByStrRef},
	)

	// Objects
	register(
		Native{Name: "GetClickingObject", Return: tObject, Impl: (*Functions).GetClickingObject},
		Native{Name: "GetEnteringObject", Return: tObject, Impl: (*Functions).GetEnteringObject},
		Native{Name: "GetExitingObject", Return: tObject, Impl: (*Functions).GetExitingObject},
		Native{Name: "GetIsObjectValid", Return: tInt, Params: types(tObject), Impl: (*Functions).GetIsObjectValid},
		Native{Name: "GetIsPC", Return: tInt, Params: types(tObject), Impl: (*Functions).GetIsPC},
		Native{Name: "GetObjectByTag", Return: tObject, Params: types(tString, tInt), Defaults: ints(0), Impl: (*Functions).GetObjectByTag},
		Native{Name: "GetTag", Return: tString, Params: types(tObject), Impl: (*Functions).GetTag},
		Native{Name: "GetMinOneHP", Return: tInt, Params: types(tObject), Impl: (*Functions).GetMinOneHP},
		Native{Name: "SetMinOneHP", Return: tVoid, Params: types(tObject, tInt), Impl: (*Functions).SetMinOneHP},
		Native{Name: "GetCurrentHitPoints", Return: tInt, Params: types(tObject), Defaults: values(self), Impl: (*Functions).GetCurrentHitPoints},
		Native{Name: "GetMaxHitPoints", Return: tInt, Params: types(tObject), Defaults: values(self), Impl: (*Functions).GetMaxHitPoints},
		Native{Name: "SetMaxHitPoints", Return: tVoid, Params: types(tObject, tInt), Impl: (*Functions).SetMaxHitPoints},
	)

	// Situated objects
	register(
		Native{Name: "GetLocked", Return: tInt, Params: types(tObject), Impl: (*Functions).GetLocked},
		Native{Name: "SetLocked", Return: tVoid, Params: types(tObject, tInt), Impl: (*Functions).SetLocked},
		Native{Name: "GetIsOpen", Return: tInt, Params: types(tObject), Impl: (*Functions).GetIsOpen},
		Native{Name: "GetLastOpenedBy", Return: tObject, Impl: (*Functions).GetLastOpenedBy},
		Native{Name: "GetLastClosedBy", Return: tObject, Impl: (*Functions).GetLastClosedBy},
		Native{Name: "GetLastUsedBy", Return: tObject, Impl: (*Functions).GetLastUsedBy},
	)

	// Actions
	register(
		Native{Name: "AssignCommand", Return: tVoid, Params: types(tObject, tAction), Impl: (*Functions).AssignCommand},
		Native{Name: "DelayCommand", Return: tVoid, Params: types(tFloat, tAction), Impl: (*Functions).DelayCommand},
		Native{Name: "ExecuteScript", Return: tVoid, Params: types(tString, tObject, tInt), Defaults: ints(-1), Impl: (*Functions).ExecuteScript},
	)

	// Module
	register(
		Native{Name: "GetModule", Return: tObject, Impl: (*Functions).GetModule},
		Native{Name: "GetFirstPC", Return: tObject, Impl: (*Functions).GetFirstPC},
		Native{Name: "GetNextPC", Return: tObject, Impl: (*Functions).GetNextPC},
		Native{Name: "SetGlobalFadeOut", Return: tVoid, Params: types(tFloat, tFloat, tFloat, tFloat, tFloat), Defaults: floats(0, 0, 0, 0, 0), Impl: (*Functions).SetGlobalFadeOut},
		Native{Name: "SetGlobalFadeIn", Return: tVoid, Params: types(tFloat, tFloat, tFloat, tFloat, tFloat), Defaults: floats(0, 0, 0, 0, 0), Impl: (*Functions).SetGlobalFadeIn},
		Native{Name: "SetReturnStrref", Return: tVoid, Params: types(tInt, tInt, tInt), Defaults: ints(0, 0), Impl: (*Functions).SetReturnStrref},
	)

	// Sound and movies
	register(
		Native{Name: "MusicBackgroundPlay", Return: tVoid, Params: types(tObject), Impl: (*Functions).MusicBackgroundPlay},
		Native{Name: "MusicBackgroundStop", Return: tVoid, Params: types(tObject), Impl: (*Functions).MusicBackgroundStop},
		Native{Name: "MusicBackgroundChangeDay", Return: tVoid, Params: types(tObject, tInt), Impl: (*Functions).MusicBackgroundChangeDay},
		Native{Name: "MusicBackgroundChangeNight", Return: tVoid, Params: types(tObject, tInt), Impl: (*Functions).MusicBackgroundChangeNight},
		Native{Name: "MusicBackgroundGetDayTrack", Return: tInt, Params: types(tObject), Impl: (*Functions).MusicBackgroundGetDayTrack},
		Native{Name: "MusicBackgroundGetNightTrack", Return: tInt, Params: types(tObject), Impl: (*Functions).MusicBackgroundGetNightTrack},
		Native{Name: "PlayMovie", Return: tVoid, Params: types(tString), Impl: (*Functions).PlayMovie},
	)

	// Creatures
	register(
		Native{Name: "GetGender", Return: tInt, Params: types(tObject), Impl: (*Functions).GetGender},
		Native{Name: "GetLevelByClass", Return: tInt, Params: types(tInt, tObject), Defaults: values(self), Impl: (*Functions).GetLevelByClass},
		Native{Name: "GetLevelByPosition", Return: tInt, Params: types(tInt, tObject), Defaults: values(self), Impl: (*Functions).GetLevelByPosition},
		Native{Name: "GetClassByPosition", Return: tInt, Params: types(tInt, tObject), Defaults: values(self), Impl: (*Functions).GetClassByPosition},
		Native{Name: "GetRacialType", Return: tInt, Params: types(tObject), Impl: (*Functions).GetRacialType},
		Native{Name: "GetSubRace", Return: tInt, Params: types(tObject), Impl: (*Functions).GetSubRace},
	)

	// Conversation
	register(
		Native{Name: "SpeakString", Return: tVoid, Params: types(tString, tInt), Defaults: ints(TalkVolumeTalk), Impl: (*Functions).SpeakString},
		Native{Name: "SpeakStringByStrRef", Return: tVoid, Params: types(tInt, tInt), Defaults: ints(TalkVolumeTalk), Impl: (*Functions).SpeakStringByStrRef},
		Native{Name: "SpeakOneLinerConversation", Return: tVoid, Params: types(tString, tObject), Defaults: values(nwscript.NewString(""), invalid), Impl: (*Functions).SpeakOneLinerConversation},
	)

	// Local variables
	register(
		Native{Name: "GetLocalInt", Return: tInt, Params: types(tObject, tString), Impl: (*Functions).GetLocalInt},
		Native{Name: "GetLocalFloat", Return: tFloat, Params: types(tObject, tString), Impl: (*Functions).GetLocalFloat},
		Native{Name: "GetLocalString", Return: tString, Params: types(tObject, tString), Impl: (*Functions).GetLocalString},
		Native{Name: "GetLocalObject", Return: tObject, Params: types(tObject, tString), Impl: (*Functions).GetLocalObject},
		Native{Name: "SetLocalInt", Return: tVoid, Params: types(tObject, tString, tInt), Impl: (*Functions).SetLocalInt},
		Native{Name: "SetLocalFloat", Return: tVoid, Params: types(tObject, tString, tFloat), Impl: (*Functions).SetLocalFloat},
		Native{Name: "SetLocalString", Return: tVoid, Params: types(tObject, tString, tString), Impl: (*Functions).SetLocalString},
		Native{Name: "SetLocalObject", Return: tVoid, Params: types(tObject, tString, tObject), Impl: (*Functions).SetLocalObject},
	)
}

// Lookup returns the catalog entry for name.
func Lookup(name string) (Native, bool) {
	n, ok := catalog[name]
	return n, ok
}

// Names returns the catalog function names, sorted.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Table joins bindings with the catalog into a function table bound to f.
func (f *Functions) Table(bindings []Binding, opts ...nwscript.TableOption) (*nwscript.FunctionTable, error) {
	pointers := make([]nwscript.FunctionPointer, 0, len(bindings))
	signatures := make([]nwscript.FunctionSignature, 0, len(bindings))
	var defaults []nwscript.FunctionDefaults

	for _, b := range bindings {
		var (
			sig  Signature
			impl nwscript.Function
		)
		if b.Sig != nil {
			sig = *b.Sig
		} else {
			n, ok := catalog[b.Name]
			if !ok {
				return nil, fmt.Errorf("functions: routine %d: no native named %q", b.ID, b.Name)
			}
			sig = Signature{Return: n.Return, Params: n.Params, Defaults: n.Defaults}
			implFn := n.Impl
			impl = func(ctx *nwscript.FunctionContext) error { return implFn(f, ctx) }
		}

		pointers = append(pointers, nwscript.FunctionPointer{ID: b.ID, Name: b.Name, Func: impl})
		signatures = append(signatures, nwscript.FunctionSignature{ID: b.ID, Return: sig.Return, Params: sig.Params})
		if len(sig.Defaults) > 0 {
			defaults = append(defaults, nwscript.FunctionDefaults{ID: b.ID, Defaults: sig.Defaults})
		}
	}

	opts = append([]nwscript.TableOption{nwscript.WithTableLogger(f.log)}, opts...)
	return nwscript.NewFunctionTable(pointers, signatures, defaults, opts...)
}
