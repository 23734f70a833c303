package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/asaidimu/go-cdibase/core/schema"
	"go.uber.org/zap"
)

// DataProcessor evaluates filters against rows already held in memory. It
// applies the same semantics as a compiled statement: conditions are AND-ed
// and the comma separated values of one operand are OR-ed.
type DataProcessor struct {
	logger *zap.Logger
}

// NewDataProcessor creates a new DataProcessor instance.
func NewDataProcessor(logger *zap.Logger) *DataProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataProcessor{logger: logger}
}

// ProcessRows returns the rows matching every filter, preserving order.
// Rows are keyed by column name.
func (p *DataProcessor) ProcessRows(ctx context.Context, rows []schema.Document, filters []Filter) ([]schema.Document, error) {
	var matched []schema.Document
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := p.Match(ctx, filters, row)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, row)
		}
	}
	p.logger.Debug("Rows remaining after in-memory filters", zap.Int("count", len(matched)))
	return matched, nil
}

// Match reports whether a single row satisfies all filters. Filters with an
// unknown field or operator are ignored, as Compile drops them.
func (p *DataProcessor) Match(ctx context.Context, filters []Filter, row schema.Document) (bool, error) {
	for i, filter := range filters {
		field, ok := Resolve(filter.Field)
		if !ok || !filter.Operator.IsStandard() {
			continue
		}
		values, err := field.Interpret(filter.Operand)
		if err != nil {
			return false, &FilterError{Index: i, Field: filter.Field, Operand: filter.Operand, Err: err}
		}
		passes, err := p.evaluateCondition(row[field.Column], filter.Operator, values)
		if err != nil {
			return false, fmt.Errorf("error evaluating filter on '%s': %w", field.Column, err)
		}
		if !passes {
			return false, nil
		}
	}
	return true, nil
}

// evaluateCondition is true when any of the operand values satisfies the
// comparison.
func (p *DataProcessor) evaluateCondition(fieldValue any, operator ComparisonOperator, values []any) (bool, error) {
	if fieldValue == nil {
		return false, nil
	}
	for _, value := range values {
		cmp, err := compareValues(fieldValue, value)
		if err != nil {
			return false, err
		}
		var passes bool
		switch operator {
		case ComparisonOperatorEq:
			passes = cmp == 0
		case ComparisonOperatorNeq:
			passes = cmp != 0
		case ComparisonOperatorLt:
			passes = cmp < 0
		case ComparisonOperatorGt:
			passes = cmp > 0
		case ComparisonOperatorLteq:
			passes = cmp <= 0
		case ComparisonOperatorGteq:
			passes = cmp >= 0
		default:
			return false, fmt.Errorf("unsupported comparison operator for in-memory evaluation: %s", operator)
		}
		if passes {
			return true, nil
		}
	}
	return false, nil
}

// compareValues orders two strings lexically and anything else
// numerically. Canonical dates compare correctly as strings.
func compareValues(a, b any) (int, error) {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), nil
	}
	af, aok := ToFloat64(a)
	bf, bok := ToFloat64(b)
	if !aok || !bok {
		return 0, fmt.Errorf("cannot compare %T with %T", a, b)
	}
	switch {
	case af < bf:
		return -1, nil
	case af > bf:
		return 1, nil
	default:
		return 0, nil
	}
}
