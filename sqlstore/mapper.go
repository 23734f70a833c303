package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/asaidimu/go-cdibase/core/query"
	"github.com/asaidimu/go-cdibase/core/schema"
	"go.uber.org/zap"
)

// dialect holds what differs between the supported databases.
type dialect struct {
	name         string
	placeholder  query.PlaceholderStyle
	idColumn     string
	intType      string
	realType     string
	textType     string
	singleWriter bool
}

var (
	sqliteDialect = dialect{
		name:         "sqlite",
		placeholder:  query.PlaceholderQuestion,
		idColumn:     "INTEGER PRIMARY KEY AUTOINCREMENT",
		intType:      "INTEGER",
		realType:     "REAL",
		textType:     "TEXT",
		singleWriter: true,
	}
	postgresDialect = dialect{
		name:        "postgres",
		placeholder: query.PlaceholderDollar,
		idColumn:    "BIGSERIAL PRIMARY KEY",
		intType:     "BIGINT",
		realType:    "DOUBLE PRECISION",
		textType:    "TEXT",
	}

	dialects = map[string]dialect{
		"sqlite3": sqliteDialect,
		"sqlite":  sqliteDialect,
		"pgx":     postgresDialect,
	}
)

const (
	answersTable      = "snapshot_content"
	cdiFormatsTable   = "mcdi_formats"
	presentationTable = "presentation_formats"
)

type columnKind int

const (
	colText columnKind = iota
	colInt
	colReal
)

// snapshotColumnKinds gives the storage type of every snapshot column
// except the id.
var snapshotColumnKinds = map[string]columnKind{
	"child_id":           colText,
	"study_id":           colText,
	"study":              colText,
	"gender":             colInt,
	"age":                colReal,
	"birthday":           colText,
	"session_date":       colText,
	"session_num":        colInt,
	"total_num_sessions": colInt,
	"words_spoken":       colInt,
	"items_excluded":     colInt,
	"percentile":         colReal,
	"extra_categories":   colInt,
	"revision":           colInt,
	"languages":          colText,
	"num_languages":      colInt,
	"mcdi_type":          colText,
	"hard_of_hearing":    colInt,
	"deleted":            colInt,
}

// quoteIdentifier quotes a table or column name.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d dialect) columnType(kind columnKind) string {
	switch kind {
	case colInt:
		return d.intType
	case colReal:
		return d.realType
	default:
		return d.textType
	}
}

// CreateTablesSQL returns the DDL statements creating every table and index
// the store uses.
func (s *Store) CreateTablesSQL() []string {
	d := s.dialect
	table := quoteIdentifier(s.table)

	var cols []string
	cols = append(cols, fmt.Sprintf("%s %s", quoteIdentifier("id"), d.idColumn))
	for _, name := range snapshotColumnNames() {
		def := fmt.Sprintf("%s %s NOT NULL", quoteIdentifier(name), d.columnType(snapshotColumnKinds[name]))
		switch snapshotColumnKinds[name] {
		case colText:
			def += " DEFAULT ''"
		default:
			def += " DEFAULT 0"
		}
		cols = append(cols, def)
	}

	formatTable := func(name string) string {
		return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s ("human_name" %s NOT NULL, "safe_name" %s PRIMARY KEY, "filename" %s NOT NULL)`,
			quoteIdentifier(name), d.textType, d.textType, d.textType)
	}

	return []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(cols, ", ")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s ("study", "session_num")`,
			quoteIdentifier("idx_"+s.table+"_study"), table),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s ("id" %s, "snapshot_id" %s NOT NULL, "word" %s NOT NULL, "value" %s NOT NULL, "revision" %s NOT NULL DEFAULT 0)`,
			quoteIdentifier(answersTable), d.idColumn, d.intType, d.textType, d.intType, d.intType),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s ("snapshot_id")`,
			quoteIdentifier("idx_"+answersTable+"_snapshot"), quoteIdentifier(answersTable)),
		formatTable(cdiFormatsTable),
		formatTable(presentationTable),
	}
}

// CreateTables creates the store's tables when they do not exist. All
// statements run in one transaction.
func (s *Store) CreateTables(ctx context.Context) error {
	return s.inTx(ctx, func(tx dbRunner) error {
		for _, stmt := range s.CreateTablesSQL() {
			s.logger.Debug("Executing DDL", zap.String("sql", stmt))
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to execute SQL statement '%s': %w", stmt, err)
			}
		}
		return nil
	})
}

// TableExists reports whether the snapshot table exists.
func (s *Store) TableExists(ctx context.Context) (bool, error) {
	var stmt string
	switch s.dialect.name {
	case "postgres":
		stmt = "SELECT COUNT(*) FROM information_schema.tables WHERE table_name = $1"
	default:
		stmt = "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
	}
	var count int
	if err := s.db.QueryRowContext(ctx, stmt, s.table).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", s.table, err)
	}
	return count > 0, nil
}

// snapshotColumnNames lists the snapshot columns without the id, in storage
// order.
func snapshotColumnNames() []string {
	var names []string
	for _, name := range schema.SnapshotColumns {
		if name != "id" {
			names = append(names, name)
		}
	}
	return names
}
