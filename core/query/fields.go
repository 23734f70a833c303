package query

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/asaidimu/go-cdibase/core/schema"
)

// FieldKind tags how a field's operands are cast before being bound.
type FieldKind string

const (
	FieldKindRaw     FieldKind = "raw"     // Passed through unchanged.
	FieldKindNumeric FieldKind = "numeric" // Integer or floating point number.
	FieldKindDate    FieldKind = "date"    // Canonical YYYY/MM/DD string.
	FieldKindBoolean FieldKind = "boolean" // Boolean-like flag code.
	FieldKindGender  FieldKind = "gender"  // Gender code.
)

// FieldInterpreter binds a logical field to its database column and to the
// cast applied to its operands.
type FieldInterpreter struct {
	Name   string    // Logical name used in filters.
	Column string    // Column in the snapshot table.
	Kind   FieldKind // Cast applied to each operand value.
}

// fieldRegistry is the whitelist of filterable fields. Nothing outside of
// it ever reaches a statement as an identifier.
var fieldRegistry = map[string]FieldInterpreter{
	"child_id":           {Name: "child_id", Column: "child_id", Kind: FieldKindRaw},
	"study_id":           {Name: "study_id", Column: "study_id", Kind: FieldKindRaw},
	"study":              {Name: "study", Column: "study", Kind: FieldKindRaw},
	"gender":             {Name: "gender", Column: "gender", Kind: FieldKindGender},
	"birthday":           {Name: "birthday", Column: "birthday", Kind: FieldKindDate},
	"session_date":       {Name: "session_date", Column: "session_date", Kind: FieldKindDate},
	"session_num":        {Name: "session_num", Column: "session_num", Kind: FieldKindNumeric},
	"words_spoken":       {Name: "words_spoken", Column: "words_spoken", Kind: FieldKindNumeric},
	"items_excluded":     {Name: "items_excluded", Column: "items_excluded", Kind: FieldKindNumeric},
	"age":                {Name: "age", Column: "age", Kind: FieldKindNumeric},
	"total_num_sessions": {Name: "total_num_sessions", Column: "total_num_sessions", Kind: FieldKindNumeric},
	"percentile":         {Name: "percentile", Column: "percentile", Kind: FieldKindNumeric},
	"extra_categories":   {Name: "extra_categories", Column: "extra_categories", Kind: FieldKindNumeric},
	"MCDI_type":          {Name: "MCDI_type", Column: "mcdi_type", Kind: FieldKindRaw},
	"specific_language":  {Name: "specific_language", Column: "languages", Kind: FieldKindRaw},
	"num_languages":      {Name: "num_languages", Column: "num_languages", Kind: FieldKindNumeric},
	"hard_of_hearing":    {Name: "hard_of_hearing", Column: "hard_of_hearing", Kind: FieldKindBoolean},
	"deleted":            {Name: "deleted", Column: "deleted", Kind: FieldKindBoolean},
}

// Resolve looks up the interpreter registered for a logical field name.
func Resolve(name string) (FieldInterpreter, bool) {
	field, ok := fieldRegistry[name]
	return field, ok
}

// FieldNames returns every filterable logical field name.
func FieldNames() []string {
	names := make([]string, 0, len(fieldRegistry))
	for name := range fieldRegistry {
		names = append(names, name)
	}
	return names
}

var (
	trueValues   = []string{"true", "yes", "y", "t", "on", "1"}
	falseValues  = []string{"false", "no", "n", "f", "off", "0"}
	unsetValues  = []string{"unknown", "unspecified", "na", "n/a"}
	maleValues   = []string{"male", "boy", "man", "m"}
	femaleValues = []string{"female", "girl", "lady", "woman", "f"}
	otherValues  = []string{"other", "transgender", "trans", "intersex", "o"}
)

// Interpret splits an operand on commas and casts each sub-value, returning
// one driver ready value per sub-value.
func (f FieldInterpreter) Interpret(operand string) ([]any, error) {
	parts := strings.Split(operand, ",")
	values := make([]any, 0, len(parts))
	for _, part := range parts {
		value, err := f.cast(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("field '%s': %w", f.Name, err)
		}
		values = append(values, value)
	}
	return values, nil
}

func (f FieldInterpreter) cast(value string) (any, error) {
	switch f.Kind {
	case FieldKindRaw:
		return value, nil
	case FieldKindNumeric:
		return castNumeric(value)
	case FieldKindDate:
		return castDate(value)
	case FieldKindBoolean:
		return castBoolean(value)
	case FieldKindGender:
		return castGender(value)
	default:
		return nil, fmt.Errorf("unsupported field kind %q", f.Kind)
	}
}

func castNumeric(value string) (any, error) {
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i, nil
	}
	fl, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(fl) || math.IsInf(fl, 0) {
		return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidOperand, value)
	}
	return fl, nil
}

// castDate accepts YYYY/MM/DD or YYYY-MM-DD, with or without zero padding,
// and returns the zero padded YYYY/MM/DD form the store keeps dates in.
func castDate(value string) (any, error) {
	normalized := strings.ReplaceAll(value, "-", "/")
	parts := strings.Split(normalized, "/")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: %q is not a YYYY/MM/DD date", ErrInvalidOperand, value)
	}
	if !isDigits(parts[0]) || len(parts[0]) != 4 || !isDigits(parts[1]) || !isDigits(parts[2]) {
		return nil, fmt.Errorf("%w: %q is not a YYYY/MM/DD date", ErrInvalidOperand, value)
	}
	year, yErr := strconv.Atoi(parts[0])
	month, mErr := strconv.Atoi(parts[1])
	day, dErr := strconv.Atoi(parts[2])
	if yErr != nil || mErr != nil || dErr != nil {
		return nil, fmt.Errorf("%w: %q is not a YYYY/MM/DD date", ErrInvalidOperand, value)
	}
	if month < 1 || month > 12 || day < 1 || day > daysIn(year, month) {
		return nil, fmt.Errorf("%w: %q is not a calendar date", ErrInvalidOperand, value)
	}
	return fmt.Sprintf("%04d/%02d/%02d", year, month, day), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func daysIn(year, month int) int {
	switch month {
	case 2:
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}

func castBoolean(value string) (any, error) {
	lower := strings.ToLower(value)
	switch {
	case contains(trueValues, lower):
		return schema.FlagTrue, nil
	case contains(falseValues, lower):
		return schema.FlagFalse, nil
	case contains(unsetValues, lower):
		return schema.Unknown, nil
	}
	return nil, fmt.Errorf("%w: %q is not a boolean value", ErrInvalidOperand, value)
}

func castGender(value string) (any, error) {
	lower := strings.ToLower(value)
	switch {
	case contains(maleValues, lower):
		return schema.Male, nil
	case contains(femaleValues, lower):
		return schema.Female, nil
	case contains(otherValues, lower):
		return schema.OtherGender, nil
	}
	return nil, fmt.Errorf("%w: %q is not a gender", ErrInvalidOperand, value)
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
