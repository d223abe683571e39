package functions

import (
	"strings"
	"testing"
	"time"

	"github.com/zurustar/aurora-nwscript/pkg/nwscript"
)

func TestStringFunctions(t *testing.T) {
	e := newEnv(t)
	args := func(v ...nwscript.Variable) []nwscript.Variable { return v }
	tests := []struct {
		name string
		fn   string
		args []nwscript.Variable
		want string
	}{
		{"int", "IntToString", args(vInt(-12)), "-12"},
		{"float default", "FloatToString", args(vFloat(1.5)), "       1.500000000"},
		{"float width", "FloatToString", args(vFloat(1.5), vInt(0), vInt(2)), "1.50"},
		{"hex", "IntToHexString", args(vInt(255)), "0x000000ff"},
		{"hex negative", "IntToHexString", args(vInt(-1)), "0xffffffff"},
		{"object", "ObjectToString", args(vObject(0x7f000000)), "7f000000"},
		{"upper", "GetStringUpperCase", args(vString("Hello")), "HELLO"},
		{"lower", "GetStringLowerCase", args(vString("Hello")), "hello"},
		{"right", "GetStringRight", args(vString("hello"), vInt(3)), "llo"},
		{"right overlong", "GetStringRight", args(vString("hello"), vInt(9)), "hello"},
		{"left", "GetStringLeft", args(vString("hello"), vInt(2)), "he"},
		{"left negative", "GetStringLeft", args(vString("hello"), vInt(-1)), ""},
		{"insert", "InsertString", args(vString("abc"), vString("X"), vInt(1)), "aXbc"},
		{"insert past end", "InsertString", args(vString("abc"), vString("X"), vInt(10)), "abcX"},
		{"substring", "GetSubString", args(vString("hello"), vInt(1), vInt(3)), "ell"},
		{"substring clipped", "GetSubString", args(vString("hello"), vInt(3), vInt(10)), "lo"},
		{"substring out of range", "GetSubString", args(vString("hello"), vInt(5), vInt(1)), ""},
		{"substring zero count", "GetSubString", args(vString("hello"), vInt(0), vInt(0)), ""},
		{"substring runes", "GetSubString", args(vString("日本語"), vInt(1), vInt(1)), "本"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantString(t, e.call(t, tt.fn, tt.args...), tt.want)
		})
	}
}

func TestStringToNumber(t *testing.T) {
	e := newEnv(t)
	ints := []struct {
		in   string
		want int32
	}{
		{"42", 42},
		{"  42abc", 42},
		{"-7", -7},
		{"+3", 3},
		{"abc", 0},
		{"", 0},
		{"-", 0},
	}
	for _, tt := range ints {
		t.Run("int "+tt.in, func(t *testing.T) {
			wantInt(t, e.call(t, "StringToInt", vString(tt.in)), tt.want)
		})
	}

	floats := []struct {
		in   string
		want float32
	}{
		{"3.5", 3.5},
		{"3.5x", 3.5},
		{"-0.25", -0.25},
		{"1.2.3", 1.2},
		{"x", 0},
	}
	for _, tt := range floats {
		t.Run("float "+tt.in, func(t *testing.T) {
			wantFloat(t, e.call(t, "StringToFloat", vString(tt.in)), tt.want)
		})
	}
}

func TestStringLengthAndSearch(t *testing.T) {
	e := newEnv(t)
	wantInt(t, e.call(t, "GetStringLength", vString("héllo")), 5)
	wantInt(t, e.call(t, "FindSubString", vString("hello world"), vString("o")), 4)
	wantInt(t, e.call(t, "FindSubString", vString("hello world"), vString("o"), vInt(5)), 7)
	wantInt(t, e.call(t, "FindSubString", vString("hello"), vString("z")), -1)
	wantInt(t, e.call(t, "FindSubString", vString("hello"), vString("l"), vInt(-1)), -1)
	wantInt(t, e.call(t, "FindSubString", vString("日本語"), vString("語")), 2)
}

func TestPrintFunctions(t *testing.T) {
	clock := func() time.Time { return time.Date(2024, 1, 2, 13, 4, 5, 0, time.UTC) }
	e := newEnv(t, WithClock(clock))

	e.call(t, "PrintString", vString("hello"))
	e.call(t, "PrintInteger", vInt(7))
	e.call(t, "PrintFloat", vFloat(0.5), vInt(0), vInt(1))
	e.call(t, "PrintObject", vObject(0x7f000000))
	e.call(t, "PrintVector", nwscript.NewVector(1, 2, 3), vInt(1))
	e.call(t, "WriteTimestampedLogEntry", vString("saved"))

	want := []string{
		"hello",
		"7",
		"0.5",
		"7f000000",
		"PRINTVECTOR:1.000000, 2.000000, 3.000000",
		"[13:04:05] saved",
	}
	got := strings.Split(strings.TrimRight(e.console.String(), "\n"), "\n")
	if len(got) != len(want) {
		t.Fatalf("console = %q", e.console.String())
	}
	for n := range want {
		if got[n] != want[n] {
			t.Errorf("line %d = %q, want %q", n, got[n], want[n])
		}
	}
}

func TestSendMessageToPC(t *testing.T) {
	e := newEnv(t)
	e.call(t, "SendMessageToPC", vObject(e.pc.ID()), vString("You found a key"))
	e.call(t, "SendMessageToPC", vObject(nwscript.ObjectInvalid), vString("lost"))

	msgs := e.pc.Messages()
	if len(msgs) != 1 || msgs[0] != "You found a key" {
		t.Errorf("Messages = %q", msgs)
	}
}

func TestGetStringByStrRef(t *testing.T) {
	talk := fakeTalk{5: "Hello", 5 | 0x80000000: "Hello, lady"}
	e := newEnv(t, WithTalkTable(talk))

	wantString(t, e.call(t, "GetStringByStrRef", vInt(5)), "Hello")
	wantString(t, e.call(t, "GetStringByStrRef", vInt(5), vInt(GenderFemale)), "Hello, lady")
	wantString(t, e.call(t, "GetStringByStrRef", vInt(6)), "")
	wantString(t, newEnv(t).call(t, "GetStringByStrRef", vInt(5)), "")
}
