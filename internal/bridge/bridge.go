// Package bridge implements the Value Bridge described in spec.md §4.4:
// bidirectional conversion between host JSON values and V8 sandbox
// values, including tagged forms for undefined, NaN, ±Infinity,
// functions, dates, regexes, errors, and symbols.
//
// Grounded on the teacher pack's cryguy-worker/internal/v8engine, which
// marshals Go<->V8 values via reflection and JSON round-trips
// (goToJSValue/jsToGoArg); this package generalizes that into the
// exhaustive tagged-form mapping spec §4.4 requires.
package bridge

import (
	"encoding/json"
	"fmt"
	"math"

	v8 "github.com/tommie/v8go"
)

// Tagged `__type` discriminators (spec §4.4).
const (
	TypeUndefined = "undefined"
	TypeNaN       = "NaN"
	TypeInfinity  = "Infinity"
	TypeFunction  = "function"
	TypeDate      = "Date"
	TypeRegExp    = "RegExp"
	TypeError     = "Error"
	TypeSymbol    = "symbol"
	TypeUnknown   = "unknown"
)

// ToHost converts a V8 value into a host-side JSON-compatible value
// following the exhaustive table in spec §4.4. The result is built from
// plain Go types (map[string]interface{}, []interface{}, string, float64,
// bool, nil) so it marshals directly with encoding/json.
func ToHost(ctx *v8.Context, val *v8.Value) (interface{}, error) {
	return toHost(ctx, val, make(map[string]bool))
}

func toHost(ctx *v8.Context, val *v8.Value, seen map[string]bool) (interface{}, error) {
	switch {
	case val == nil || val.IsNull():
		return nil, nil
	case val.IsUndefined():
		return tagged(TypeUndefined, nil), nil
	case val.IsBoolean():
		return val.Boolean(), nil
	case val.IsString():
		return val.String(), nil
	case val.IsNumber():
		n := val.Number()
		if n != n { // NaN
			return tagged(TypeNaN, nil), nil
		}
		if isInf(n) {
			return map[string]interface{}{
				"__type":   TypeInfinity,
				"positive": n > 0,
			}, nil
		}
		return n, nil
	case val.IsFunction():
		name := ""
		if obj, err := val.AsObject(); err == nil {
			if n, err := obj.Get("name"); err == nil {
				name = n.String()
			}
		}
		return map[string]interface{}{
			"__type": TypeFunction,
			"name":   name,
		}, nil
	case val.IsDate():
		ms, err := jsDateValue(ctx, val)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"__type":    TypeDate,
			"timestamp": ms,
		}, nil
	case val.IsRegExp():
		src := ""
		if obj, err := val.AsObject(); err == nil {
			if s, err := obj.Get("source"); err == nil {
				src = s.String()
			}
		}
		return map[string]interface{}{
			"__type": TypeRegExp,
			"source": src,
		}, nil
	case val.IsSymbol():
		desc := ""
		// AsObject rejects primitives; Object() boxes the symbol like Object(sym).
		if d, err := val.Object().Get("description"); err == nil && !d.IsUndefined() {
			desc = d.String()
		}
		return map[string]interface{}{
			"__type":      TypeSymbol,
			"description": desc,
		}, nil
	case isErrorValue(val):
		name, msg := errorNameMessage(val)
		return map[string]interface{}{
			"__type":  TypeError,
			"name":    name,
			"message": msg,
		}, nil
	case val.IsArray():
		obj, err := val.AsObject()
		if err != nil {
			return nil, err
		}
		length, err := obj.Get("length")
		if err != nil {
			return nil, err
		}
		n := int(length.Integer())
		out := make([]interface{}, 0, n)
		for i := 0; i < n; i++ {
			elem, err := obj.GetIdx(uint32(i))
			if err != nil {
				return nil, err
			}
			hv, err := toHost(ctx, elem, seen)
			if err != nil {
				return nil, err
			}
			out = append(out, hv)
		}
		return out, nil
	case val.IsObject():
		obj, err := val.AsObject()
		if err != nil {
			return nil, err
		}
		names, err := obj.GetOwnPropertyNames()
		if err != nil {
			return nil, err
		}
		out := make(map[string]interface{}, len(names))
		for _, name := range names {
			prop, err := obj.Get(name)
			if err != nil {
				continue
			}
			hv, err := toHost(ctx, prop, seen)
			if err != nil {
				return nil, err
			}
			out[name] = hv
		}
		return out, nil
	default:
		return map[string]interface{}{
			"__type":                TypeUnknown,
			"string_representation": val.DetailString(),
		}, nil
	}
}

func tagged(typ string, extra map[string]interface{}) map[string]interface{} {
	m := map[string]interface{}{"__type": typ}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

func isInf(f float64) bool {
	return math.IsInf(f, 0)
}

func isErrorValue(val *v8.Value) bool {
	obj, err := val.AsObject()
	if err != nil {
		return false
	}
	stack, err := obj.Get("stack")
	if err != nil {
		return false
	}
	nameVal, err := obj.Get("name")
	if err != nil {
		return false
	}
	return !stack.IsUndefined() && !nameVal.IsUndefined() && !val.IsArray()
}

func errorNameMessage(val *v8.Value) (name, message string) {
	obj, err := val.AsObject()
	if err != nil {
		return "Error", val.String()
	}
	if n, err := obj.Get("name"); err == nil {
		name = n.String()
	}
	if m, err := obj.Get("message"); err == nil {
		message = m.String()
	}
	if name == "" {
		name = "Error"
	}
	return name, message
}

func jsDateValue(ctx *v8.Context, val *v8.Value) (float64, error) {
	obj, err := val.AsObject()
	if err != nil {
		return 0, err
	}
	getTime, err := obj.Get("getTime")
	if err != nil {
		return 0, err
	}
	fn, err := getTime.AsFunction()
	if err != nil {
		return 0, err
	}
	result, err := fn.Call(val)
	if err != nil {
		return 0, err
	}
	return result.Number(), nil
}

// InjectJSON serializes v to JSON and binds it to globalName inside ctx,
// reparsed by the sandbox as a native value -- the host->sandbox half of
// the bridge (spec §4.4: "context is injected by serializing to JSON
// text and reparsing inside the sandbox").
func InjectJSON(ctx *v8.Context, globalName string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s for sandbox injection: %w", globalName, err)
	}
	script := fmt.Sprintf("globalThis[%q] = JSON.parse(%q);", globalName, string(raw))
	_, err = ctx.RunScript(script, "inject.js")
	return err
}
