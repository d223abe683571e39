package functions

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/zurustar/aurora-nwscript/pkg/nwscript"
)

// Default formatting of floats in FloatToString and PrintFloat.
const (
	DefaultFloatWidth    = 18
	DefaultFloatDecimals = 9
)

func formatFloat(x float32, width, decimals int32) string {
	return fmt.Sprintf("%*.*f", int(width), int(decimals), float64(x))
}

func formatObject(id nwscript.ObjectID) string {
	return strconv.FormatUint(uint64(id), 16)
}

// print writes a line to the console and the log.
func (f *Functions) print(ctx *nwscript.FunctionContext, text string) {
	f.log.Info(text, "script", ctx.ScriptName(), "function", ctx.Name())
	if f.console != nil {
		fmt.Fprintln(f.console, text)
	}
}

func (f *Functions) PrintString(ctx *nwscript.FunctionContext) error {
	s, err := ctx.ParamString(0)
	if err != nil {
		return err
	}
	f.print(ctx, s)
	return nil
}

func (f *Functions) PrintInteger(ctx *nwscript.FunctionContext) error {
	n, err := ctx.ParamInt(0)
	if err != nil {
		return err
	}
	f.print(ctx, strconv.Itoa(int(n)))
	return nil
}

func (f *Functions) PrintFloat(ctx *nwscript.FunctionContext) error {
	s, err := floatString(ctx)
	if err != nil {
		return err
	}
	f.print(ctx, s)
	return nil
}

func (f *Functions) PrintObject(ctx *nwscript.FunctionContext) error {
	id, err := ctx.ParamObject(0)
	if err != nil {
		return err
	}
	f.print(ctx, formatObject(id))
	return nil
}

func (f *Functions) PrintVector(ctx *nwscript.FunctionContext) error {
	v, err := ctx.ParamVector(0)
	if err != nil {
		return err
	}
	prepend, err := ctx.ParamInt(1)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("%f, %f, %f", v[0], v[1], v[2])
	if prepend != 0 {
		text = "PRINTVECTOR:" + text
	}
	f.print(ctx, text)
	return nil
}

func (f *Functions) WriteTimestampedLogEntry(ctx *nwscript.FunctionContext) error {
	s, err := ctx.ParamString(0)
	if err != nil {
		return err
	}
	f.print(ctx, "["+f.clock().Format("15:04:05")+"] "+s)
	return nil
}

func (f *Functions) SendMessageToPC(ctx *nwscript.FunctionContext) error {
	msg, err := ctx.ParamString(1)
	if err != nil {
		return err
	}
	pc, ok, err := capability[MessageReceiver](f, ctx, 0)
	if err != nil {
		return err
	}
	if ok {
		pc.ReceiveMessage(msg)
	}
	f.log.Info("Message to PC", "message", msg, "delivered", ok)
	return nil
}

func (f *Functions) IntToString(ctx *nwscript.FunctionContext) error {
	n, err := ctx.ParamInt(0)
	if err != nil {
		return err
	}
	return ctx.SetReturn(nwscript.NewString(strconv.Itoa(int(n))))
}

func floatString(ctx *nwscript.FunctionContext) (string, error) {
	x, err := ctx.ParamFloat(0)
	if err != nil {
		return "", err
	}
	width, err := ctx.ParamInt(1)
	if err != nil {
		return "", err
	}
	decimals, err := ctx.ParamInt(2)
	if err != nil {
		return "", err
	}
	return formatFloat(x, width, decimals), nil
}

func (f *Functions) FloatToString(ctx *nwscript.FunctionContext) error {
	s, err := floatString(ctx)
	if err != nil {
		return err
	}
	return ctx.SetReturn(nwscript.NewString(s))
}

func (f *Functions) ObjectToString(ctx *nwscript.FunctionContext) error {
	id, err := ctx.ParamObject(0)
	if err != nil {
		return err
	}
	return ctx.SetReturn(nwscript.NewString(formatObject(id)))
}

func (f *Functions) IntToHexString(ctx *nwscript.FunctionContext) error {
	n, err := ctx.ParamInt(0)
	if err != nil {
		return err
	}
	return ctx.SetReturn(nwscript.NewString(fmt.Sprintf("0x%08x", uint32(n))))
}

// leadingNumber returns the longest prefix of s, after leading spaces,
// that looks like a number. Trailing garbage is ignored.
func leadingNumber(s string, float bool) string {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits, dot := 0, false
	for end < len(s) {
		c := s[end]
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' && float && !dot:
			dot = true
		default:
			if digits == 0 {
				return ""
			}
			return s[:end]
		}
		end++
	}
	if digits == 0 {
		return ""
	}
	return s[:end]
}

// StringToInt returns 0 for text that does not start with a number.
func (f *Functions) StringToInt(ctx *nwscript.FunctionContext) error {
	s, err := ctx.ParamString(0)
	if err != nil {
		return err
	}
	n, _ := strconv.ParseInt(leadingNumber(s, false), 10, 32)
	return ctx.SetReturn(nwscript.NewInt(int32(n)))
}

// StringToFloat returns 0 for text that does not start with a number.
func (f *Functions) StringToFloat(ctx *nwscript.FunctionContext) error {
	s, err := ctx.ParamString(0)
	if err != nil {
		return err
	}
	x, _ := strconv.ParseFloat(leadingNumber(s, true), 32)
	return ctx.SetReturn(nwscript.NewFloat(float32(x)))
}

func (f *Functions) GetStringLength(ctx *nwscript.FunctionContext) error {
	s, err := ctx.ParamString(0)
	if err != nil {
		return err
	}
	return ctx.SetReturn(nwscript.NewInt(int32(len([]rune(s)))))
}

func (f *Functions) GetStringUpperCase(ctx *nwscript.FunctionContext) error {
	s, err := ctx.ParamString(0)
	if err != nil {
		return err
	}
	return ctx.SetReturn(nwscript.NewString(strings.ToUpper(s)))
}

func (f *Functions) GetStringLowerCase(ctx *nwscript.FunctionContext) error {
	s, err := ctx.ParamString(0)
	if err != nil {
		return err
	}
	return ctx.SetReturn(nwscript.NewString(strings.ToLower(s)))
}

// stringAndCount reads a string parameter and an int parameter.
func stringAndCount(ctx *nwscript.FunctionContext) ([]rune, int, error) {
	s, err := ctx.ParamString(0)
	if err != nil {
		return nil, 0, err
	}
	n, err := ctx.ParamInt(1)
	if err != nil {
		return nil, 0, err
	}
	return []rune(s), int(n), nil
}

func (f *Functions) GetStringRight(ctx *nwscript.FunctionContext) error {
	r, n, err := stringAndCount(ctx)
	if err != nil {
		return err
	}
	n = min(max(n, 0), len(r))
	return ctx.SetReturn(nwscript.NewString(string(r[len(r)-n:])))
}

func (f *Functions) GetStringLeft(ctx *nwscript.FunctionContext) error {
	r, n, err := stringAndCount(ctx)
	if err != nil {
		return err
	}
	n = min(max(n, 0), len(r))
	return ctx.SetReturn(nwscript.NewString(string(r[:n])))
}

// InsertString inserts the second string into the first at a position
// clamped to the first string.
func (f *Functions) InsertString(ctx *nwscript.FunctionContext) error {
	dest, err := ctx.ParamString(0)
	if err != nil {
		return err
	}
	src, err := ctx.ParamString(1)
	if err != nil {
		return err
	}
	pos, err := ctx.ParamInt(2)
	if err != nil {
		return err
	}
	r := []rune(dest)
	p := min(max(int(pos), 0), len(r))
	return ctx.SetReturn(nwscript.NewString(string(r[:p]) + src + string(r[p:])))
}

// GetSubString returns "" for a start outside the string.
func (f *Functions) GetSubString(ctx *nwscript.FunctionContext) error {
	s, err := ctx.ParamString(0)
	if err != nil {
		return err
	}
	start, err := ctx.ParamInt(1)
	if err != nil {
		return err
	}
	count, err := ctx.ParamInt(2)
	if err != nil {
		return err
	}
	r := []rune(s)
	if start < 0 || int(start) >= len(r) || count <= 0 {
		return ctx.SetReturn(nwscript.NewString(""))
	}
	end := min(int(start)+int(count), len(r))
	return ctx.SetReturn(nwscript.NewString(string(r[start:end])))
}

// FindSubString returns the position of the first match at or after the
// start parameter, or -1.
func (f *Functions) FindSubString(ctx *nwscript.FunctionContext) error {
	s, err := ctx.ParamString(0)
	if err != nil {
		return err
	}
	sub, err := ctx.ParamString(1)
	if err != nil {
		return err
	}
	start, err := ctx.ParamInt(2)
	if err != nil {
		return err
	}
	r := []rune(s)
	if start < 0 || int(start) > len(r) {
		return ctx.SetReturn(nwscript.NewInt(-1))
	}
	i := strings.Index(string(r[start:]), sub)
	if i < 0 {
		return ctx.SetReturn(nwscript.NewInt(-1))
	}
	pos := int(start) + len([]rune(string(r[start:])[:i]))
	return ctx.SetReturn(nwscript.NewInt(int32(pos)))
}

// GetStringByStrRef uses the feminine talk table for gender 1.
func (f *Functions) GetStringByStrRef(ctx *nwscript.FunctionContext) error {
	strRef, err := ctx.ParamInt(0)
	if err != nil {
		return err
	}
	gender, err := ctx.ParamInt(1)
	if err != nil {
		return err
	}
	return ctx.SetReturn(nwscript.NewString(f.strRef(strRef, gender == GenderFemale)))
}

func (f *Functions) strRef(strRef int32, feminine bool) string {
	if f.talk == nil {
		return ""
	}
	s, _ := f.talk.String(uint32(strRef), feminine)
	return s
}
