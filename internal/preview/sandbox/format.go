package sandbox

import (
	"math"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/dop251/goja"
)

const (
	functionTag = "[Function]"
	objectTag   = "[Object]"
)

// formatter renders realm values for console output and the result line.
type formatter struct {
	stringify goja.Callable
}

func newFormatter(vm *goja.Runtime) (*formatter, error) {
	json := vm.Get("JSON")
	if json == nil {
		return nil, errNoJSON
	}
	fn, ok := goja.AssertFunction(json.ToObject(vm).Get("stringify"))
	if !ok {
		return nil, errNoJSON
	}
	return &formatter{stringify: fn}, nil
}

// format applies the console rules to a single value.
func (f *formatter) format(v goja.Value) string {
	switch {
	case v == nil || goja.IsUndefined(v):
		return "undefined"
	case goja.IsNull(v):
		return "null"
	}
	if _, ok := goja.AssertFunction(v); ok {
		return functionTag
	}
	if obj, ok := v.(*goja.Object); ok {
		if s, ok := f.json(obj); ok {
			return s
		}
		return objectTag
	}
	if s, ok := v.Export().(string); ok {
		return strconv.Quote(s)
	}
	return v.String()
}

// join formats console arguments separated by single spaces.
func (f *formatter) join(args []goja.Value) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = f.format(arg)
	}
	return strings.Join(parts, " ")
}

// json stringifies inside the realm; cycles and BigInt members make it throw.
func (f *formatter) json(obj *goja.Object) (string, bool) {
	out, err := f.stringify(goja.Undefined(), obj)
	if err != nil || out == nil || goja.IsUndefined(out) {
		return "", false
	}
	return out.String(), true
}

// export converts a trailing expression value into a plain Go value.
// The boolean is false when there is nothing to report.
func (f *formatter) export(v goja.Value) (any, bool) {
	switch {
	case v == nil || goja.IsUndefined(v):
		return nil, false
	case goja.IsNull(v):
		return nil, true
	}
	if _, ok := goja.AssertFunction(v); ok {
		return functionTag, true
	}
	if obj, ok := v.(*goja.Object); ok {
		s, ok := f.json(obj)
		if !ok {
			return objectTag, true
		}
		var decoded any
		if err := sonic.UnmarshalString(s, &decoded); err != nil {
			return objectTag, true
		}
		return decoded, true
	}
	switch exported := v.Export().(type) {
	case float64:
		// NaN and the infinities have no JSON encoding
		if math.IsNaN(exported) || math.IsInf(exported, 0) {
			return v.String(), true
		}
		return exported, true
	case string, bool, int64:
		return exported, true
	default:
		return v.String(), true
	}
}
