package tools

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// AddTool registers a tool after checking that the zero value of its output
// type satisfies the schema the SDK infers for it.
//
// Panics if it does not.
func AddTool[In, Out any](srv *sdkmcp.Server, t *sdkmcp.Tool, h sdkmcp.ToolHandlerFor[In, Out]) {
	CheckOutputSchema[Out](t.Name)
	sdkmcp.AddTool(srv, t, h)
}

// CheckOutputSchema panics if the zero value of T fails the JSON schema the
// SDK infers from T. A nil slice or map marshals as null while the inferred
// schema demands an array or object, so such fields need omitzero (or
// omitempty). json.RawMessage fields are rejected outright since they are
// inferred as byte arrays.
//
// Untyped outputs and types the schema generator cannot handle are skipped.
func CheckOutputSchema[T any](toolName string) {
	rt := reflect.TypeFor[T]()
	if rt == reflect.TypeFor[any]() {
		return
	}
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}

	if paths := rawMessagePaths(rt, nil, make(map[reflect.Type]bool)); len(paths) > 0 {
		panic(fmt.Sprintf("AddTool %q: output type %s has json.RawMessage at %s; use any and types.ToAny instead",
			toolName, rt, strings.Join(paths, ", ")))
	}

	s, err := jsonschema.ForType(rt, &jsonschema.ForOptions{})
	if err != nil {
		return
	}
	resolved, err := s.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return
	}

	data, err := json.Marshal(reflect.Zero(rt).Interface())
	if err != nil {
		return
	}
	var v map[string]any
	if err := json.Unmarshal(data, &v); err != nil {
		return
	}

	if err := resolved.Validate(&v); err != nil {
		panic(fmt.Sprintf("AddTool %q: zero value of %s fails its schema: %v (JSON: %s); add omitzero to nil-defaulting slice and map fields",
			toolName, rt, err, data))
	}
}

var rawMessageType = reflect.TypeFor[json.RawMessage]()

// rawMessagePaths returns the dotted paths of json.RawMessage values inside t.
func rawMessagePaths(t reflect.Type, path []string, visiting map[reflect.Type]bool) []string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == rawMessageType {
		return []string{strings.Join(path, ".")}
	}
	if visiting[t] {
		return nil
	}
	visiting[t] = true
	defer delete(visiting, t)

	var found []string
	switch t.Kind() {
	case reflect.Struct:
		for i := range t.NumField() {
			f := t.Field(i)
			if f.IsExported() {
				found = append(found, rawMessagePaths(f.Type, append(path, f.Name), visiting)...)
			}
		}
	case reflect.Slice, reflect.Array:
		found = rawMessagePaths(t.Elem(), append(path, "[]"), visiting)
	case reflect.Map:
		found = rawMessagePaths(t.Elem(), append(path, "[value]"), visiting)
	}
	return found
}
