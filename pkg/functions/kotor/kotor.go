// Package kotor binds the engine functions to the routine numbers of
// Star Wars: Knights of the Old Republic and its sequel.
package kotor

import (
	"github.com/zurustar/aurora-nwscript/pkg/functions"
	"github.com/zurustar/aurora-nwscript/pkg/nwscript"
)

const (
	tVoid   = nwscript.TypeVoid
	tInt    = nwscript.TypeInt
	tFloat  = nwscript.TypeFloat
	tObject = nwscript.TypeObject
)

// Bindings is the KotOR routine table. Entries declared without a native
// answer with the zero value of their return type.
var Bindings = []functions.Binding{
	functions.Bind(0, "Random"),
	functions.Bind(1, "PrintString"),
	functions.Bind(2, "PrintFloat"),
	functions.Bind(3, "FloatToString"),
	functions.Bind(4, "PrintInteger"),
	functions.Bind(5, "PrintObject"),
	functions.Bind(6, "AssignCommand"),
	functions.Bind(7, "DelayCommand"),
	functions.Bind(8, "ExecuteScript"),
	functions.Declare(9, "ClearAllActions", tVoid),
	functions.Declare(10, "SetFacing", tVoid, tFloat),
	functions.Declare(16, "GetTimeHour", tInt),
	functions.Declare(17, "GetTimeMinute", tInt),
	functions.Declare(18, "GetTimeSecond", tInt),
	functions.Declare(19, "GetTimeMillisecond", tInt),
	functions.Bind(25, "GetEnteringObject"),
	functions.Bind(26, "GetExitingObject"),
	functions.Bind(42, "GetIsObjectValid"),
	functions.Bind(49, "GetCurrentHitPoints"),
	functions.Bind(50, "GetMaxHitPoints"),
	functions.Bind(59, "GetStringLength"),
	functions.Bind(60, "GetStringUpperCase"),
	functions.Bind(61, "GetStringLowerCase"),
	functions.Bind(62, "GetStringRight"),
	functions.Bind(63, "GetStringLeft"),
	functions.Bind(64, "InsertString"),
	functions.Bind(65, "GetSubString"),
	functions.Bind(66, "FindSubString"),
	functions.Bind(67, "fabs"),
	functions.Bind(68, "cos"),
	functions.Bind(69, "sin"),
	functions.Bind(70, "tan"),
	functions.Bind(71, "acos"),
	functions.Bind(72, "asin"),
	functions.Bind(73, "atan"),
	functions.Bind(74, "log"),
	functions.Bind(75, "pow"),
	functions.Bind(76, "sqrt"),
	functions.Bind(77, "abs"),
	functions.Bind(92, "IntToString"),
	functions.Bind(95, "d2"),
	functions.Bind(96, "d3"),
	functions.Bind(97, "d4"),
	functions.Bind(98, "d6"),
	functions.Bind(99, "d8"),
	functions.Bind(100, "d10"),
	functions.Bind(101, "d12"),
	functions.Bind(102, "d20"),
	functions.Bind(103, "d100"),
	functions.Bind(104, "VectorMagnitude"),
	functions.Bind(107, "GetRacialType"),
	functions.Bind(137, "VectorNormalize"),
	functions.Bind(141, "PrintVector"),
	functions.Bind(142, "Vector"),
	functions.Bind(152, "SetReturnStrref"),
	functions.Bind(168, "GetTag"),
	functions.Bind(200, "GetObjectByTag"),
	functions.Bind(217, "GetIsPC"),
	functions.Bind(221, "SpeakString"),
	functions.Bind(230, "IntToFloat"),
	functions.Bind(231, "FloatToInt"),
	functions.Bind(232, "StringToInt"),
	functions.Bind(233, "StringToFloat"),
	functions.Bind(239, "GetStringByStrRef"),
	functions.Bind(242, "GetModule"),
	functions.Bind(260, "GetLastClosedBy"),
	functions.Bind(272, "ObjectToString"),
	functions.Bind(324, "SetLocked"),
	functions.Bind(325, "GetLocked"),
	functions.Bind(326, "GetClickingObject"),
	functions.Bind(330, "GetLastUsedBy"),
	functions.Bind(341, "GetClassByPosition"),
	functions.Bind(342, "GetLevelByPosition"),
	functions.Bind(343, "GetLevelByClass"),
	functions.Bind(358, "GetGender"),
	functions.Bind(374, "SendMessageToPC"),
	functions.Bind(376, "GetLastOpenedBy"),
	functions.Bind(380, "GetSubRace"),
	functions.Bind(396, "IntToHexString"),
	functions.Bind(425, "MusicBackgroundPlay"),
	functions.Bind(426, "MusicBackgroundStop"),
	functions.Declare(427, "MusicBackgroundSetDelay", tVoid, tObject, tInt),
	functions.Bind(428, "MusicBackgroundChangeDay"),
	functions.Bind(429, "MusicBackgroundChangeNight"),
	functions.Bind(443, "GetIsOpen"),
	functions.Bind(548, "GetFirstPC"),
	functions.Bind(549, "GetNextPC"),
	functions.Bind(558, "MusicBackgroundGetDayTrack"),
	functions.Bind(559, "MusicBackgroundGetNightTrack"),
	functions.Bind(560, "WriteTimestampedLogEntry"),
	functions.Bind(715, "GetMinOneHP"),
	functions.Bind(716, "SetMinOneHP"),
	functions.Bind(719, "SetGlobalFadeIn"),
	functions.Bind(720, "SetGlobalFadeOut"),
	functions.Bind(733, "PlayMovie"),
	functions.Bind(758, "SetMaxHitPoints"),
}

// Table builds the KotOR function table for f.
func Table(f *functions.Functions, opts ...nwscript.TableOption) (*nwscript.FunctionTable, error) {
	return f.Table(Bindings, opts...)
}
