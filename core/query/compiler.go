package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/asaidimu/go-cdibase/core/schema"
)

// CompileOptions tunes how Compile treats filters it cannot use.
type CompileOptions struct {
	// ExcludeDeleted appends an implicit "deleted eq 0" filter in select mode.
	ExcludeDeleted bool
	// Strict reports unknown fields and operators instead of dropping them.
	Strict bool
}

// PlaceholderStyle is the bind variable syntax of a database driver.
type PlaceholderStyle int

const (
	PlaceholderQuestion PlaceholderStyle = iota // ? (SQLite, MySQL)
	PlaceholderDollar                           // $1, $2 ... (PostgreSQL)
)

var implicitDeletedFilter = Filter{
	Field:    "deleted",
	Operator: ComparisonOperatorEq,
	Operand:  strconv.Itoa(schema.FlagFalse),
}

// Compile translates filters into a parameterized statement against the
// given collection. Filters naming an unknown field or an unsupported
// operator are dropped; an operand that cannot be cast is an error.
func Compile(filters []Filter, collection string, mode Mode, excludeDeleted bool) (*CompiledQuery, error) {
	return CompileWithOptions(filters, collection, mode, CompileOptions{ExcludeDeleted: excludeDeleted})
}

// CompileWithOptions is Compile with explicit options.
func CompileWithOptions(filters []Filter, collection string, mode Mode, opts CompileOptions) (*CompiledQuery, error) {
	template, ok := statementTemplates[mode]
	if !ok {
		return nil, fmt.Errorf("unsupported query mode %d", mode)
	}
	if collection == "" {
		collection = schema.SnapshotsCollection
	}

	retained, errs := retainFilters(filters, opts.Strict)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	userFilters := len(retained)
	if opts.ExcludeDeleted && mode == ModeSelect {
		retained = append(retained, indexedFilter{index: -1, filter: implicitDeletedFilter})
	}

	clauses := make([]string, 0, len(retained))
	fields := make([]FieldInterpreter, 0, len(retained))
	kept := make([]Filter, 0, len(retained))
	params := []any{}

	for _, item := range retained {
		field, _ := Resolve(item.filter.Field)
		op, _ := item.filter.Operator.SQL()

		values, err := field.Interpret(item.filter.Operand)
		if err != nil {
			return nil, &FilterError{Index: item.index, Field: item.filter.Field, Operand: item.filter.Operand, Err: err}
		}

		column := quoteIdentifier(field.Column)
		subClauses := make([]string, len(values))
		for i := range values {
			subClauses[i] = fmt.Sprintf("%s %s ?", column, op)
		}
		clauses = append(clauses, "("+strings.Join(subClauses, " OR ")+")")
		fields = append(fields, field)
		kept = append(kept, item.filter)
		params = append(params, values...)
	}

	predicate := "1=1"
	if len(clauses) > 0 {
		predicate = strings.Join(clauses, " AND ")
	}

	return &CompiledQuery{
		Mode:       mode,
		Collection: collection,
		Filters:    kept,
		Fields:     fields,
		Statement:  fmt.Sprintf(template, quoteIdentifier(collection), predicate),
		Params:     params,
		Dropped:    len(filters) - userFilters,
	}, nil
}

// Validate reports every filter Compile would drop, along with operands
// that cannot be cast. A nil result means all filters are usable.
func Validate(filters []Filter) error {
	_, errs := retainFilters(filters, true)
	for i, filter := range filters {
		field, ok := Resolve(filter.Field)
		if !ok || !filter.Operator.IsStandard() {
			continue
		}
		if _, err := field.Interpret(filter.Operand); err != nil {
			errs = append(errs, &FilterError{Index: i, Field: filter.Field, Operand: filter.Operand, Err: err})
		}
	}
	return errors.Join(errs...)
}

type indexedFilter struct {
	index  int
	filter Filter
}

// retainFilters keeps the filters whose field and operator are both known.
// When collect is set, every rejected filter yields an error.
func retainFilters(filters []Filter, collect bool) ([]indexedFilter, []error) {
	retained := make([]indexedFilter, 0, len(filters))
	var errs []error
	for i, filter := range filters {
		_, known := Resolve(filter.Field)
		supported := filter.Operator.IsStandard()
		if known && supported {
			retained = append(retained, indexedFilter{index: i, filter: filter})
			continue
		}
		if !collect {
			continue
		}
		if !known {
			errs = append(errs, &FilterError{Index: i, Field: filter.Field, Operand: filter.Operand, Err: ErrUnknownField})
		}
		if !supported {
			errs = append(errs, &FilterError{
				Index:   i,
				Field:   filter.Field,
				Operand: filter.Operand,
				Err:     fmt.Errorf("%w: '%s'", ErrUnknownOperator, filter.Operator),
			})
		}
	}
	return retained, errs
}

// quoteIdentifier properly quotes an identifier.
func quoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// countPlaceholders counts "?" bind variables outside quoted identifiers and
// string literals.
func countPlaceholders(statement string) int {
	count := 0
	scanStatement(statement, func(b *strings.Builder) { count++ })
	return count
}

// Rebind rewrites "?" placeholders into the given style. Quoted identifiers
// and string literals are left untouched.
func Rebind(statement string, style PlaceholderStyle) string {
	if style == PlaceholderQuestion {
		return statement
	}
	n := 0
	return scanStatement(statement, func(b *strings.Builder) {
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	})
}

// scanStatement copies statement, calling onPlaceholder in place of every
// unquoted "?".
func scanStatement(statement string, onPlaceholder func(b *strings.Builder)) string {
	var b strings.Builder
	b.Grow(len(statement) + 8)
	var quote byte
	for i := 0; i < len(statement); i++ {
		c := statement[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
			b.WriteByte(c)
		case c == '"' || c == '\'':
			quote = c
			b.WriteByte(c)
		case c == '?':
			onPlaceholder(&b)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
