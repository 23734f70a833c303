package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/asaidimu/go-cdibase/core/schema"
	"go.uber.org/zap"
)

// InsertSnapshot stores a record and its answers in one transaction and
// returns the new database id. A non-zero DatabaseID is kept.
func (s *Store) InsertSnapshot(ctx context.Context, snapshot schema.SnapshotMetadata, answers []schema.WordAnswerEntry) (int64, error) {
	doc := snapshot.Document()
	columns := snapshotColumnNames()
	if snapshot.DatabaseID != 0 {
		columns = append([]string{"id"}, columns...)
	}

	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	params := make([]any, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdentifier(col)
		marks[i] = "?"
		params[i] = doc[col]
	}
	insert := s.rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		quoteIdentifier(s.table), strings.Join(quoted, ", "), strings.Join(marks, ", "), quoteIdentifier("id")))
	insertAnswer := s.rebind(fmt.Sprintf(`INSERT INTO %s ("snapshot_id", "word", "value", "revision") VALUES (?, ?, ?, ?)`,
		quoteIdentifier(answersTable)))

	var id int64
	err := s.inTx(ctx, func(tx dbRunner) error {
		s.logger.Debug("Executing SQL INSERT with RETURNING clause", zap.String("sql", insert), zap.Any("params", params))
		if err := tx.QueryRowContext(ctx, insert, params...).Scan(&id); err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}
		for _, answer := range answers {
			if _, err := tx.ExecContext(ctx, insertAnswer, id, answer.Word, answer.Value, answer.Revision); err != nil {
				return fmt.Errorf("failed to insert answer %q of snapshot %d: %w", answer.Word, id, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// LoadAnswers returns the answers of one snapshot ordered by word.
func (s *Store) LoadAnswers(ctx context.Context, snapshot schema.SnapshotMetadata) ([]schema.WordAnswerEntry, error) {
	stmt := s.rebind(fmt.Sprintf(`SELECT "snapshot_id", "word", "value", "revision" FROM %s WHERE "snapshot_id" = ? ORDER BY "word", "revision"`,
		quoteIdentifier(answersTable)))

	rows, err := s.db.QueryContext(ctx, stmt, snapshot.DatabaseID)
	if err != nil {
		s.logger.Error("Failed to load answers", zap.Error(err), zap.Int64("snapshot_id", snapshot.DatabaseID))
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}
	defer rows.Close()

	var answers []schema.WordAnswerEntry
	for rows.Next() {
		var entry schema.WordAnswerEntry
		if err := rows.Scan(&entry.SnapshotID, &entry.Word, &entry.Value, &entry.Revision); err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		answers = append(answers, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after scanning answers: %w", err)
	}
	return answers, nil
}
