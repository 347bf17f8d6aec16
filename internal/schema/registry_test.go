package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/superkart-inference/pkg/types"
)

func TestNewRegistry_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		fields []Field
	}{
		{"empty", nil},
		{"unnamed", []Field{{Kind: KindNumber, Max: 1}}},
		{"duplicate", []Field{{Name: "a", Kind: KindNumber, Max: 1}, {Name: "a", Kind: KindNumber, Max: 1}}},
		{"no values", []Field{{Name: "a", Kind: KindCategorical}}},
		{"inverted range", []Field{{Name: "a", Kind: KindNumber, Min: 2, Max: 1}}},
		{"unknown kind", []Field{{Name: "a", Kind: "date"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.fields)
			assert.Error(t, err)
		})
	}
}

func TestRegistry_FieldsAreCopies(t *testing.T) {
	reg := Default()

	fields := reg.Fields()
	fields[0].Values[0] = "Bananas"

	f, ok := reg.Field(ProductType)
	require.True(t, ok)
	assert.Equal(t, "Meat", f.Values[0])

	_, ok = reg.Field("Product_Id")
	assert.False(t, ok)
}

func TestRegistry_Describe(t *testing.T) {
	doc := Default().Describe()

	assert.Len(t, doc.RequiredFields, 9)
	assert.Equal(t, "string (categorical)", doc.FieldTypes[StoreSize])
	assert.Equal(t, "float", doc.FieldTypes[ProductMRP])
	assert.Equal(t, "integer", doc.FieldTypes[StoreEstablishedYear])

	size := doc.ValidValues[StoreSize]
	assert.Equal(t, []string{"Small", "Medium", "High"}, size.ValidValues)

	year := doc.ValidValues[StoreEstablishedYear]
	require.NotNil(t, year.Min)
	require.NotNil(t, year.Max)
	assert.Equal(t, 1950.0, *year.Min)
	assert.Equal(t, 2025.0, *year.Max)
	assert.Equal(t, "year", year.Unit)

	assert.NotNil(t, doc.JSONSchema)
}

func TestRegistry_JSONSchema(t *testing.T) {
	s := Default().JSONSchema()

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "object", doc["type"])
	assert.Len(t, doc["required"], 9)

	props := doc["properties"].(map[string]any)
	weight := props[ProductWeight].(map[string]any)
	assert.Equal(t, "number", weight["type"])
	assert.Equal(t, 50.0, weight["maximum"])

	tier := props[StoreLocationCityType].(map[string]any)
	assert.Equal(t, []any{"Tier 1", "Tier 2", "Tier 3"}, tier["enum"])
}

func TestSummarize(t *testing.T) {
	reg := Default()

	good := exampleRecord()
	bad := exampleRecord()
	bad[StoreType] = "Hypermarket"
	bad[ProductMRP] = 5000.0
	null := exampleRecord()
	delete(null, ProductWeight)

	columns := append(reg.Names(), "Product_Id")
	report := reg.Summarize(columns, []RawRecord{good, bad, null})

	sum := report.Summary
	assert.Equal(t, StatusFailed, sum.Status)
	assert.Equal(t, 3, sum.TotalRows)
	assert.Equal(t, 10, sum.ColumnCount)
	assert.Equal(t, 1, sum.ValidRows)
	assert.Equal(t, 2, sum.InvalidRows)
	assert.Empty(t, sum.MissingColumns)
	assert.Equal(t, []string{"Product_Id"}, sum.ExtraColumns)
	assert.Equal(t, 1, sum.InvalidCategoricalCounts[StoreType])
	assert.Equal(t, 1, sum.OutOfRangeCounts[ProductMRP])
	assert.Equal(t, 1, sum.NullCounts[ProductWeight])

	require.Len(t, report.Rows, 2)
	assert.Equal(t, 2, report.Rows[0].Row)
	assert.Equal(t, 3, report.Rows[1].Row)
	assert.Equal(t, types.ReasonMissing, report.Rows[1].Violations[0].Reason)
}

func TestSummarize_AllValid(t *testing.T) {
	reg := Default()

	report := reg.Summarize(nil, []RawRecord{exampleRecord(), exampleRecord()})
	assert.Equal(t, StatusSuccess, report.Summary.Status)
	assert.Equal(t, 9, report.Summary.ColumnCount)
	assert.Empty(t, report.Rows)
}

func TestMissingColumns(t *testing.T) {
	reg := Default()

	assert.Empty(t, reg.MissingColumns(reg.Names()))
	assert.Equal(t,
		[]string{ProductMRP, StoreEstablishedYear},
		reg.MissingColumns([]string{
			ProductType, StoreType, StoreLocationCityType, StoreSize,
			ProductSugarContent, ProductWeight, ProductAllocatedArea,
		}),
	)
}
