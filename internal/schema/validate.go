package schema

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/usestring/superkart-inference/pkg/types"
)

// RawRecord is one untrusted input row keyed by field name. Values are
// strings, numbers (float64 or json.Number) or nil.
type RawRecord map[string]any

// Value is one checked field value of a Record.
type Value struct {
	Field  string
	Kind   Kind
	Label  string  // categorical label
	Number float64 // numeric value
}

// Record is a row that passed validation. Only Registry.Validate produces a
// non-zero Record, so holding one proves every field was checked.
type Record struct {
	reg    *Registry
	values []Value
}

// Valid reports whether the record was produced by a validator.
func (r Record) Valid() bool {
	return r.reg != nil
}

// Registry returns the registry the record was validated against.
func (r Record) Registry() *Registry {
	return r.reg
}

// Values returns the field values in registry order.
func (r Record) Values() []Value {
	out := make([]Value, len(r.values))
	copy(out, r.values)
	return out
}

// Get returns the value of the named field.
func (r Record) Get(name string) (Value, bool) {
	if r.reg == nil {
		return Value{}, false
	}
	i, ok := r.reg.index[name]
	if !ok {
		return Value{}, false
	}
	return r.values[i], true
}

// Raw returns the normalised values as a plain map, the shape echoed back to
// callers as input_data.
func (r Record) Raw() map[string]any {
	out := make(map[string]any, len(r.values))
	for _, v := range r.values {
		switch v.Kind {
		case KindCategorical:
			out[v.Field] = v.Label
		case KindInteger:
			out[v.Field] = int64(v.Number)
		default:
			out[v.Field] = v.Number
		}
	}
	return out
}

// Validate checks every field of raw against the registry. Fields are checked
// independently and all violations are returned in field order; the Record is
// only valid when no violation was found. Keys not in the registry are ignored.
func (r *Registry) Validate(raw RawRecord) (Record, types.Violations) {
	var violations types.Violations
	values := make([]Value, len(r.fields))

	for i, f := range r.fields {
		v, ok := raw[f.Name]
		if !ok || v == nil {
			violations = append(violations, types.Violation{Field: f.Name, Reason: types.ReasonMissing})
			continue
		}

		if f.Kind == KindCategorical {
			label, reason := r.checkLabel(i, v)
			if reason != "" {
				violations = append(violations, types.Violation{Field: f.Name, Reason: reason, Value: v})
				continue
			}
			values[i] = Value{Field: f.Name, Kind: f.Kind, Label: label}
			continue
		}

		n, reason := checkNumber(f, v)
		if reason != "" {
			if reason == types.ReasonMissing {
				v = nil
			}
			violations = append(violations, types.Violation{Field: f.Name, Reason: reason, Value: v})
			continue
		}
		values[i] = Value{Field: f.Name, Kind: f.Kind, Number: n}
	}

	if len(violations) > 0 {
		return Record{}, violations
	}
	return Record{reg: r, values: values}, nil
}

func (r *Registry) checkLabel(i int, v any) (string, string) {
	label, ok := v.(string)
	if !ok {
		return "", types.ReasonNotString
	}
	if aliases, ok := r.aliases[r.fields[i].Name]; ok {
		if canonical, ok := aliases[strings.TrimSpace(label)]; ok {
			label = canonical
		}
	}
	if _, ok := r.allowed[i][label]; !ok {
		return "", types.ReasonNotAllowed
	}
	return label, ""
}

func checkNumber(f Field, v any) (float64, string) {
	n, reason := toNumber(v)
	if reason != "" {
		return 0, reason
	}
	if f.Kind == KindInteger && n != math.Trunc(n) {
		return 0, types.ReasonNotInteger
	}
	if n < f.Min || n > f.Max {
		return 0, types.ReasonOutOfRange
	}
	return n, ""
}

func toNumber(v any) (float64, string) {
	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int32:
		n = float64(x)
	case int64:
		n = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, types.ReasonNotNumber
		}
		n = f
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, types.ReasonMissing
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, types.ReasonNotNumber
		}
		n = f
	default:
		return 0, types.ReasonNotNumber
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, types.ReasonNotNumber
	}
	return n, ""
}
