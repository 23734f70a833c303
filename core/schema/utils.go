package schema

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// SafeName turns a human readable format name into the identifier formats
// are stored and looked up by: lower-cased, spaces removed, then query
// escaped.
func SafeName(humanName string) string {
	return url.QueryEscape(strings.ReplaceAll(strings.ToLower(humanName), " ", ""))
}

// NormalizeWord produces the lookup key of a vocabulary word: surrounding
// whitespace trimmed, lower-cased and marker characters removed.
func NormalizeWord(word string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(word, "*", "")))
}

// SnapshotColumns lists the snapshot table columns in storage order.
var SnapshotColumns = []string{
	"id", "child_id", "study_id", "study", "gender", "age", "birthday",
	"session_date", "session_num", "total_num_sessions", "words_spoken",
	"items_excluded", "percentile", "extra_categories", "revision",
	"languages", "num_languages", "mcdi_type", "hard_of_hearing", "deleted",
}

// Document returns the record keyed by column name.
func (s SnapshotMetadata) Document() Document {
	return Document{
		"id":                 s.DatabaseID,
		"child_id":           s.ChildID,
		"study_id":           s.StudyID,
		"study":              s.Study,
		"gender":             s.Gender,
		"age":                s.Age,
		"birthday":           s.Birthday,
		"session_date":       s.SessionDate,
		"session_num":        s.SessionNum,
		"total_num_sessions": s.TotalNumSessions,
		"words_spoken":       s.WordsSpoken,
		"items_excluded":     s.ItemsExcluded,
		"percentile":         s.Percentile,
		"extra_categories":   s.ExtraCategories,
		"revision":           s.Revision,
		"languages":          s.Languages,
		"num_languages":      s.NumLanguages,
		"mcdi_type":          s.MCDIType,
		"hard_of_hearing":    s.HardOfHearing,
		"deleted":            s.Deleted,
	}
}

// SnapshotFromDocument converts a row keyed by column name back into a
// record. Missing columns keep their zero value.
func SnapshotFromDocument(doc Document) (SnapshotMetadata, error) {
	var s SnapshotMetadata
	var err error
	intField := func(column string) int {
		if err != nil {
			return 0
		}
		var v int64
		v, err = toInt64(column, doc[column])
		return int(v)
	}
	floatField := func(column string) float64 {
		if err != nil {
			return 0
		}
		var v float64
		v, err = toFloat64(column, doc[column])
		return v
	}

	id, idErr := toInt64("id", doc["id"])
	if idErr != nil {
		return s, idErr
	}
	s.DatabaseID = id
	s.ChildID = toString(doc["child_id"])
	s.StudyID = toString(doc["study_id"])
	s.Study = toString(doc["study"])
	s.Gender = intField("gender")
	s.Age = floatField("age")
	s.Birthday = toString(doc["birthday"])
	s.SessionDate = toString(doc["session_date"])
	s.SessionNum = intField("session_num")
	s.TotalNumSessions = intField("total_num_sessions")
	s.WordsSpoken = intField("words_spoken")
	s.ItemsExcluded = intField("items_excluded")
	s.Percentile = floatField("percentile")
	s.ExtraCategories = intField("extra_categories")
	s.Revision = intField("revision")
	s.Languages = toString(doc["languages"])
	s.NumLanguages = intField("num_languages")
	s.MCDIType = toString(doc["mcdi_type"])
	s.HardOfHearing = intField("hard_of_hearing")
	s.Deleted = intField("deleted")
	return s, err
}

func toString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}

func toInt64(column string, v any) (int64, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int64:
		return val, nil
	case float64:
		return int64(val), nil
	case []byte:
		return parseInt(column, string(val))
	case string:
		return parseInt(column, val)
	default:
		return 0, fmt.Errorf("column '%s': cannot convert %T to integer", column, v)
	}
}

func parseInt(column, s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0, fmt.Errorf("column '%s': %w", column, err)
		}
		return int64(f), nil
	}
	return i, nil
}

func toFloat64(column string, v any) (float64, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case int:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case float32:
		return float64(val), nil
	case float64:
		return val, nil
	case []byte:
		return parseFloat(column, string(val))
	case string:
		return parseFloat(column, val)
	default:
		return 0, fmt.Errorf("column '%s': cannot convert %T to number", column, v)
	}
}

func parseFloat(column, s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("column '%s': %w", column, err)
	}
	return f, nil
}
