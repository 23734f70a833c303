package query

import "strings"

// FilterBuilder provides a fluent API for assembling a filter list, which is
// then handed to Compile. Conditions are AND-ed in the order they are added.
type FilterBuilder struct {
	filters []Filter
}

// NewFilterBuilder creates a new, empty filter builder.
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{filters: []Filter{}}
}

// Build returns a copy of the filters added so far.
func (fb *FilterBuilder) Build() []Filter {
	out := make([]Filter, len(fb.filters))
	copy(out, fb.filters)
	return out
}

// Clone creates an independent copy of the builder.
func (fb *FilterBuilder) Clone() *FilterBuilder {
	return &FilterBuilder{filters: fb.Build()}
}

// Reset removes every filter from the builder.
func (fb *FilterBuilder) Reset() *FilterBuilder {
	fb.filters = []Filter{}
	return fb
}

// Add appends already constructed filters.
func (fb *FilterBuilder) Add(filters ...Filter) *FilterBuilder {
	fb.filters = append(fb.filters, filters...)
	return fb
}

// Compile compiles the built filters. See CompileWithOptions.
func (fb *FilterBuilder) Compile(collection string, mode Mode, opts CompileOptions) (*CompiledQuery, error) {
	return CompileWithOptions(fb.filters, collection, mode, opts)
}

// Where begins a condition on a logical field.
func (fb *FilterBuilder) Where(field string) *FilterConditionBuilder {
	return &FilterConditionBuilder{parent: fb, field: field}
}

// FilterConditionBuilder builds a single condition. Passing several values
// to an operator OR-s them together.
type FilterConditionBuilder struct {
	parent *FilterBuilder
	field  string
}

// Eq adds an equality condition.
func (fcb *FilterConditionBuilder) Eq(values ...string) *FilterBuilder {
	return fcb.addCondition(ComparisonOperatorEq, values)
}

// Neq adds a not-equal condition.
func (fcb *FilterConditionBuilder) Neq(values ...string) *FilterBuilder {
	return fcb.addCondition(ComparisonOperatorNeq, values)
}

// Lt adds a less-than condition.
func (fcb *FilterConditionBuilder) Lt(values ...string) *FilterBuilder {
	return fcb.addCondition(ComparisonOperatorLt, values)
}

// Lte adds a less-than-or-equal condition.
func (fcb *FilterConditionBuilder) Lte(values ...string) *FilterBuilder {
	return fcb.addCondition(ComparisonOperatorLteq, values)
}

// Gt adds a greater-than condition.
func (fcb *FilterConditionBuilder) Gt(values ...string) *FilterBuilder {
	return fcb.addCondition(ComparisonOperatorGt, values)
}

// Gte adds a greater-than-or-equal condition.
func (fcb *FilterConditionBuilder) Gte(values ...string) *FilterBuilder {
	return fcb.addCondition(ComparisonOperatorGteq, values)
}

// Custom adds a condition with an arbitrary operator. Unsupported operators
// are dropped at compile time.
func (fcb *FilterConditionBuilder) Custom(operator ComparisonOperator, values ...string) *FilterBuilder {
	return fcb.addCondition(operator, values)
}

func (fcb *FilterConditionBuilder) addCondition(operator ComparisonOperator, values []string) *FilterBuilder {
	fcb.parent.filters = append(fcb.parent.filters, Filter{
		Field:    fcb.field,
		Operator: operator,
		Operand:  strings.Join(values, ","),
	})
	return fcb.parent
}
