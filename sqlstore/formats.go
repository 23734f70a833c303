package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/asaidimu/go-cdibase/core/schema"
	"go.uber.org/zap"
)

func formatTable(kind schema.FormatKind) (string, error) {
	switch kind {
	case schema.FormatKindCDI:
		return quoteIdentifier(cdiFormatsTable), nil
	case schema.FormatKindPresentation:
		return quoteIdentifier(presentationTable), nil
	default:
		return "", fmt.Errorf("unknown format kind %q", kind)
	}
}

// SaveFormat inserts a format metadata row.
func (s *Store) SaveFormat(ctx context.Context, kind schema.FormatKind, metadata schema.FormatMetadata) error {
	table, err := formatTable(kind)
	if err != nil {
		return err
	}
	stmt := s.rebind(fmt.Sprintf(`INSERT INTO %s ("human_name", "safe_name", "filename") VALUES (?, ?, ?)`, table))
	s.logger.Debug("Saving format metadata", zap.String("sql", stmt), zap.String("safe_name", metadata.SafeName))
	if _, err := s.db.ExecContext(ctx, stmt, metadata.HumanName, metadata.SafeName, metadata.Filename); err != nil {
		return fmt.Errorf("failed to save %s format %s: %w", kind, metadata.SafeName, err)
	}
	return nil
}

// ListFormats returns the metadata rows of one kind ordered by safe name.
func (s *Store) ListFormats(ctx context.Context, kind schema.FormatKind) ([]schema.FormatMetadata, error) {
	table, err := formatTable(kind)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT "human_name", "safe_name", "filename" FROM %s ORDER BY "safe_name"`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s formats: %w", kind, err)
	}
	defer rows.Close()

	formats := []schema.FormatMetadata{}
	for rows.Next() {
		var m schema.FormatMetadata
		if err := rows.Scan(&m.HumanName, &m.SafeName, &m.Filename); err != nil {
			return nil, fmt.Errorf("failed to scan %s format: %w", kind, err)
		}
		formats = append(formats, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after scanning %s formats: %w", kind, err)
	}
	return formats, nil
}

// GetFormat returns one metadata row, or nil when none matches.
func (s *Store) GetFormat(ctx context.Context, kind schema.FormatKind, safeName string) (*schema.FormatMetadata, error) {
	table, err := formatTable(kind)
	if err != nil {
		return nil, err
	}
	stmt := s.rebind(fmt.Sprintf(`SELECT "human_name", "safe_name", "filename" FROM %s WHERE "safe_name" = ?`, table))

	var m schema.FormatMetadata
	err = s.db.QueryRowContext(ctx, stmt, safeName).Scan(&m.HumanName, &m.SafeName, &m.Filename)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s format %s: %w", kind, safeName, err)
	}
	return &m, nil
}

// DeleteFormat removes one metadata row and reports whether it existed.
func (s *Store) DeleteFormat(ctx context.Context, kind schema.FormatKind, safeName string) (bool, error) {
	table, err := formatTable(kind)
	if err != nil {
		return false, err
	}
	var affected int64
	err = s.inTx(ctx, func(tx dbRunner) error {
		result, err := tx.ExecContext(ctx, s.rebind(fmt.Sprintf(`DELETE FROM %s WHERE "safe_name" = ?`, table)), safeName)
		if err != nil {
			return fmt.Errorf("failed to delete %s format %s: %w", kind, safeName, err)
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
