// Package schema holds the input field definitions of the forecast model and
// validates raw records against them.
package schema

import (
	"fmt"
	"slices"
)

// Field names, in model input order.
const (
	ProductType           = "Product_Type"
	StoreType             = "Store_Type"
	StoreLocationCityType = "Store_Location_City_Type"
	StoreSize             = "Store_Size"
	ProductSugarContent   = "Product_Sugar_Content"
	ProductWeight         = "Product_Weight"
	ProductMRP            = "Product_MRP"
	ProductAllocatedArea  = "Product_Allocated_Area"
	StoreEstablishedYear  = "Store_Establishment_Year"
)

// Kind is the value kind of a field.
type Kind string

const (
	KindCategorical Kind = "categorical"
	KindNumber      Kind = "float"
	KindInteger     Kind = "integer"
)

// Field defines one input column.
type Field struct {
	Name        string
	Kind        Kind
	Values      []string // allowed labels, categorical only
	Min         float64  // inclusive, numeric only
	Max         float64  // inclusive, numeric only
	Unit        string
	Description string
}

// Numeric reports whether the field holds a number.
func (f Field) Numeric() bool {
	return f.Kind == KindNumber || f.Kind == KindInteger
}

// DefaultFields returns the SuperKart field definitions.
func DefaultFields() []Field {
	return []Field{
		{
			Name: ProductType, Kind: KindCategorical, Description: "Type of product",
			Values: []string{
				"Meat", "Snack Foods", "Soft Drinks", "Dairy", "Household",
				"Fruits and Vegetables", "Frozen Foods", "Breakfast",
				"Baking Goods", "Health and Hygiene", "Starchy Foods",
				"Breads", "Canned", "Seafood", "Hard Drinks", "Others",
			},
		},
		{
			Name: StoreType, Kind: KindCategorical, Description: "Type of store",
			Values: []string{"Supermarket Type1", "Supermarket Type2", "Supermarket Type3", "Grocery Store"},
		},
		{
			Name: StoreLocationCityType, Kind: KindCategorical, Description: "City tier classification",
			Values: []string{"Tier 1", "Tier 2", "Tier 3"},
		},
		{
			Name: StoreSize, Kind: KindCategorical, Description: "Size of the store",
			Values: []string{"Small", "Medium", "High"},
		},
		{
			Name: ProductSugarContent, Kind: KindCategorical, Description: "Sugar content level",
			Values: []string{"No Sugar", "Low Sugar", "Regular"},
		},
		{Name: ProductWeight, Kind: KindNumber, Min: 0, Max: 50, Unit: "kg", Description: "Product weight in kg"},
		{Name: ProductMRP, Kind: KindNumber, Min: 0, Max: 1000, Unit: "currency", Description: "Maximum retail price"},
		{Name: ProductAllocatedArea, Kind: KindNumber, Min: 0, Max: 1.0, Unit: "ratio (0-1)", Description: "Display area allocation"},
		{Name: StoreEstablishedYear, Kind: KindInteger, Min: 1950, Max: 2025, Unit: "year", Description: "Year the store was established"},
	}
}

// sugarContentAliases are the spellings the legacy transform service folded
// into the canonical sugar-content labels.
var sugarContentAliases = map[string]string{
	"reg":       "Regular",
	"REG":       "Regular",
	"regular":   "Regular",
	"low fat":   "Low Sugar",
	"Low Fat":   "Low Sugar",
	"LF":        "Low Sugar",
	"low sugar": "Low Sugar",
	"no sugar":  "No Sugar",
	"NS":        "No Sugar",
}

// Registry is the immutable set of field definitions for one input row.
// It is safe for concurrent use.
type Registry struct {
	fields  []Field
	index   map[string]int
	allowed []map[string]struct{}
	aliases map[string]map[string]string
}

// Option configures a Registry.
type Option func(*Registry)

// WithSugarContentAliases folds legacy sugar-content spellings (reg, LF, NS,
// ...) into their canonical labels before the membership check.
func WithSugarContentAliases() Option {
	return func(r *Registry) {
		r.aliases[ProductSugarContent] = sugarContentAliases
	}
}

// NewRegistry builds a registry from field definitions.
func NewRegistry(fields []Field, opts ...Option) (*Registry, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("registry needs at least one field")
	}

	r := &Registry{
		fields:  make([]Field, len(fields)),
		index:   make(map[string]int, len(fields)),
		allowed: make([]map[string]struct{}, len(fields)),
		aliases: make(map[string]map[string]string),
	}

	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field %d has no name", i)
		}
		if _, dup := r.index[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}
		switch f.Kind {
		case KindCategorical:
			if len(f.Values) == 0 {
				return nil, fmt.Errorf("categorical field %q has no allowed values", f.Name)
			}
			set := make(map[string]struct{}, len(f.Values))
			for _, v := range f.Values {
				set[v] = struct{}{}
			}
			r.allowed[i] = set
		case KindNumber, KindInteger:
			if f.Min > f.Max {
				return nil, fmt.Errorf("field %q has min %v above max %v", f.Name, f.Min, f.Max)
			}
		default:
			return nil, fmt.Errorf("field %q has unknown kind %q", f.Name, f.Kind)
		}
		f.Values = slices.Clone(f.Values)
		r.fields[i] = f
		r.index[f.Name] = i
	}

	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Default returns the SuperKart registry.
func Default(opts ...Option) *Registry {
	r, err := NewRegistry(DefaultFields(), opts...)
	if err != nil {
		panic(fmt.Sprintf("schema: default fields are invalid: %v", err))
	}
	return r
}

// Fields returns a copy of the field definitions in order.
func (r *Registry) Fields() []Field {
	out := make([]Field, len(r.fields))
	for i, f := range r.fields {
		f.Values = slices.Clone(f.Values)
		out[i] = f
	}
	return out
}

// Field returns the definition of the named field.
func (r *Registry) Field(name string) (Field, bool) {
	i, ok := r.index[name]
	if !ok {
		return Field{}, false
	}
	f := r.fields[i]
	f.Values = slices.Clone(f.Values)
	return f, true
}

// Names returns the field names in model input order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// Len returns the number of fields.
func (r *Registry) Len() int {
	return len(r.fields)
}

// Normalizes reports whether alias normalisation is enabled for the field.
func (r *Registry) Normalizes(name string) bool {
	_, ok := r.aliases[name]
	return ok
}
