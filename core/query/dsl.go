// Package query defines the filter language researchers use to select
// snapshot records and compiles it into parameterized SQL statements. Every
// filter is a (field, operator, operand) triple; fields are restricted to a
// fixed registry and every operand reaches the database as a bound parameter.
package query

// ComparisonOperator defines the set of operators that can be used in a filter.
type ComparisonOperator string

// Supported comparison operators.
const (
	ComparisonOperatorEq   ComparisonOperator = "eq"
	ComparisonOperatorNeq  ComparisonOperator = "neq"
	ComparisonOperatorLt   ComparisonOperator = "lt"
	ComparisonOperatorGt   ComparisonOperator = "gt"
	ComparisonOperatorLteq ComparisonOperator = "lteq"
	ComparisonOperatorGteq ComparisonOperator = "gteq"
)

// sqlOperators maps each supported operator onto its SQL spelling.
var sqlOperators = map[ComparisonOperator]string{
	ComparisonOperatorEq:   "=",
	ComparisonOperatorNeq:  "!=",
	ComparisonOperatorLt:   "<",
	ComparisonOperatorGt:   ">",
	ComparisonOperatorLteq: "<=",
	ComparisonOperatorGteq: ">=",
}

// IsStandard checks if a comparison operator is one of the supported operators.
func (c ComparisonOperator) IsStandard() bool {
	_, ok := sqlOperators[c]
	return ok
}

// SQL returns the SQL spelling of the operator.
func (c ComparisonOperator) SQL() (string, bool) {
	op, ok := sqlOperators[c]
	return op, ok
}

// GetStandardComparisonOperators returns the supported operators in a stable order.
func GetStandardComparisonOperators() []ComparisonOperator {
	return []ComparisonOperator{
		ComparisonOperatorEq,
		ComparisonOperatorNeq,
		ComparisonOperatorLt,
		ComparisonOperatorGt,
		ComparisonOperatorLteq,
		ComparisonOperatorGteq,
	}
}

// Filter is a single user supplied condition. Operand may hold several
// comma separated values, each of which becomes one OR-ed sub-clause.
type Filter struct {
	Field    string             `json:"field" yaml:"field"`
	Operator ComparisonOperator `json:"operator" yaml:"operator"`
	Operand  string             `json:"operand" yaml:"operand"`
}

// Mode selects the statement template a compiled query is rendered into.
type Mode int

const (
	ModeSelect     Mode = iota // SELECT * FROM ...
	ModeSoftDelete             // UPDATE ... SET deleted=1
	ModeRestore                // UPDATE ... SET deleted=0
)

// String returns a short name for the mode, used in logs, events and metrics.
func (m Mode) String() string {
	switch m {
	case ModeSelect:
		return "select"
	case ModeSoftDelete:
		return "soft_delete"
	case ModeRestore:
		return "restore"
	default:
		return "unknown"
	}
}

var statementTemplates = map[Mode]string{
	ModeSelect:     "SELECT * FROM %s WHERE %s",
	ModeSoftDelete: "UPDATE %s SET deleted=1 WHERE %s",
	ModeRestore:    "UPDATE %s SET deleted=0 WHERE %s",
}

// CompiledQuery is a ready to execute statement. Statement uses "?"
// placeholders and Params holds one value per placeholder, in order.
type CompiledQuery struct {
	Mode       Mode
	Collection string
	Filters    []Filter           // Retained filters, implicit ones included.
	Fields     []FieldInterpreter // Interpreter of each retained filter.
	Statement  string
	Params     []any
	Dropped    int // User filters dropped for an unknown field or operator.
}

// Placeholders counts the bound parameter slots in the statement.
func (q *CompiledQuery) Placeholders() int {
	return countPlaceholders(q.Statement)
}
