package schema

import (
	"encoding/json"
	"strconv"

	"github.com/invopop/jsonschema"

	"github.com/usestring/superkart-inference/pkg/types"
)

// Describe returns the document served on /schema.
func (r *Registry) Describe() types.SchemaDocument {
	doc := types.SchemaDocument{
		RequiredFields: r.Names(),
		FieldTypes:     make(map[string]string, len(r.fields)),
		ValidValues:    make(map[string]types.FieldSpec, len(r.fields)),
	}

	for _, f := range r.fields {
		spec := types.FieldSpec{Type: string(f.Kind), Unit: f.Unit}
		switch f.Kind {
		case KindCategorical:
			doc.FieldTypes[f.Name] = "string (categorical)"
			spec.ValidValues = append([]string(nil), f.Values...)
			if r.Normalizes(f.Name) {
				spec.Note = "common abbreviations are normalised to these labels"
			}
		default:
			doc.FieldTypes[f.Name] = string(f.Kind)
			lo, hi := f.Min, f.Max
			spec.Min, spec.Max = &lo, &hi
		}
		doc.ValidValues[f.Name] = spec
	}

	if s, err := types.ToAny(r.JSONSchema()); err == nil {
		doc.JSONSchema = s
	}
	return doc
}

// JSONSchema returns a JSON Schema describing one input row.
func (r *Registry) JSONSchema() *jsonschema.Schema {
	s := &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "SuperKart input row",
		Type:        "object",
		Properties:  jsonschema.NewProperties(),
		Required:    r.Names(),
		Description: "One product/store observation; all fields are required.",
	}

	for _, f := range r.fields {
		prop := &jsonschema.Schema{Description: f.Description}
		switch f.Kind {
		case KindCategorical:
			prop.Type = "string"
			prop.Enum = make([]any, len(f.Values))
			for i, v := range f.Values {
				prop.Enum[i] = v
			}
		case KindInteger:
			prop.Type = "integer"
			prop.Minimum = number(f.Min)
			prop.Maximum = number(f.Max)
		default:
			prop.Type = "number"
			prop.Minimum = number(f.Min)
			prop.Maximum = number(f.Max)
		}
		s.Properties.Set(f.Name, prop)
	}
	return s
}

func number(f float64) json.Number {
	return json.Number(strconv.FormatFloat(f, 'f', -1, 64))
}
