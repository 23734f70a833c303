package query

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseFilter reads the textual form "field operator operand". The operand
// is everything after the operator, so it may hold spaces and commas.
func ParseFilter(text string) (Filter, error) {
	rest := strings.TrimSpace(text)
	field, rest := nextToken(rest)
	operator, operand := nextToken(rest)
	if field == "" || operator == "" || operand == "" {
		return Filter{}, fmt.Errorf("%w: expected 'field operator operand', got %q", ErrMalformedFilter, text)
	}
	return Filter{
		Field:    field,
		Operator: ComparisonOperator(strings.ToLower(operator)),
		Operand:  operand,
	}, nil
}

// ParseFilters parses each text in order and stops at the first error.
func ParseFilters(texts []string) ([]Filter, error) {
	filters := make([]Filter, 0, len(texts))
	for i, text := range texts {
		filter, err := ParseFilter(text)
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}
		filters = append(filters, filter)
	}
	return filters, nil
}

func nextToken(s string) (string, string) {
	end := strings.IndexFunc(s, unicode.IsSpace)
	if end < 0 {
		return s, ""
	}
	return s[:end], strings.TrimSpace(s[end:])
}
