package query

import (
	"testing"

	"github.com/asaidimu/go-cdibase/core/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	field, ok := Resolve("specific_language")
	require.True(t, ok)
	assert.Equal(t, "languages", field.Column)
	assert.Equal(t, FieldKindRaw, field.Kind)

	field, ok = Resolve("MCDI_type")
	require.True(t, ok)
	assert.Equal(t, "mcdi_type", field.Column)

	_, ok = Resolve("mcdi_type")
	assert.False(t, ok, "logical names are case sensitive")

	assert.Len(t, FieldNames(), 18)
}

func TestFieldInterpreter_Interpret(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		operand  string
		expected []any
	}{
		{"raw", "study", "Study A", []any{"Study A"}},
		{"raw list trimmed", "child_id", " a , b", []any{"a", "b"}},
		{"integer", "age", "18", []any{int64(18)}},
		{"float", "percentile", "33.3", []any{33.3}},
		{"negative", "extra_categories", "-900", []any{int64(-900)}},
		{"date slashes", "birthday", "2020/01/05", []any{"2020/01/05"}},
		{"date dashes unpadded", "session_date", "2020-1-5", []any{"2020/01/05"}},
		{"leap day", "birthday", "2020/2/29", []any{"2020/02/29"}},
		{"boolean true", "hard_of_hearing", "Yes", []any{schema.FlagTrue}},
		{"boolean false", "deleted", "off", []any{schema.FlagFalse}},
		{"boolean unknown", "hard_of_hearing", "N/A", []any{schema.Unknown}},
		{"gender list", "gender", "boy,F,intersex", []any{schema.Male, schema.Female, schema.OtherGender}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field, ok := Resolve(tt.field)
			require.True(t, ok)
			values, err := field.Interpret(tt.operand)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, values)
		})
	}
}

func TestFieldInterpreter_InvalidOperands(t *testing.T) {
	tests := []struct {
		field   string
		operand string
	}{
		{"age", "old"},
		{"age", "1,two"},
		{"age", "NaN"},
		{"age", "nan"},
		{"age", "Inf"},
		{"age", "-Inf"},
		{"percentile", "+Infinity"},
		{"birthday", "yesterday"},
		{"birthday", "2020/13/01"},
		{"birthday", "2021/02/29"},
		{"birthday", "20/01/01"},
		{"birthday", "+202/1/1"},
		{"birthday", "2020/+1/05"},
		{"birthday", "2020/01/-5"},
		{"hard_of_hearing", "maybe"},
		{"gender", "robot"},
	}

	for _, tt := range tests {
		t.Run(tt.field+"/"+tt.operand, func(t *testing.T) {
			field, ok := Resolve(tt.field)
			require.True(t, ok)
			_, err := field.Interpret(tt.operand)
			assert.ErrorIs(t, err, ErrInvalidOperand)
		})
	}
}

func TestFieldInterpreter_ValueCountMatchesSubValues(t *testing.T) {
	field, _ := Resolve("study")
	values, err := field.Interpret("a,b,,c")
	require.NoError(t, err)
	assert.Len(t, values, 4)
}
