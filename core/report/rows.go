package report

import (
	"sort"
	"strconv"

	"github.com/asaidimu/go-cdibase/core/schema"
)

// MetadataHeader names the fixed leading columns of every report.
var MetadataHeader = []string{
	"database id",
	"child id",
	"study id",
	"study",
	"gender",
	"age",
	"birthday",
	"session date",
	"session num",
	"total num sessions",
	"words spoken",
	"items excluded",
	"percentile",
	"extra categories",
	"revision",
	"languages",
	"num languages",
	"mcdi type",
	"hard of hearing",
}

// Table is a report in row-major order. Every row has len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]any
}

// Vocabulary returns the word columns of the table.
func (t Table) Vocabulary() []string {
	if len(t.Header) <= len(MetadataHeader) {
		return nil
	}
	return t.Header[len(MetadataHeader):]
}

// metadataCells renders the fixed columns of one record. Coded columns go
// through the presentation format.
func metadataCells(record schema.SnapshotMetadata, format *schema.PresentationFormat) []any {
	return []any{
		record.DatabaseID,
		record.ChildID,
		record.StudyID,
		record.Study,
		InterpretValue(record.Gender, format),
		record.Age,
		record.Birthday,
		record.SessionDate,
		record.SessionNum,
		record.TotalNumSessions,
		record.WordsSpoken,
		record.ItemsExcluded,
		record.Percentile,
		InterpretValue(record.ExtraCategories, format),
		record.Revision,
		record.Languages,
		record.NumLanguages,
		record.MCDIType,
		InterpretValue(record.HardOfHearing, format),
	}
}

// SerializeRecord renders one record against a fixed vocabulary: the
// metadata cells followed by one cell per word, NoData where unanswered.
func SerializeRecord(record schema.SnapshotMetadata, answers []schema.WordAnswerEntry, format *schema.PresentationFormat, vocabulary []string) []any {
	index := NewAnswerIndex(answers)
	row := metadataCells(record, format)
	for _, word := range vocabulary {
		row = append(row, InterpretValue(index.Lookup(word), format))
	}
	return row
}

// BuildRows renders records into a table. answers[i] holds the answers of
// records[i].
func BuildRows(records []schema.SnapshotMetadata, answers [][]schema.WordAnswerEntry, format *schema.PresentationFormat, vocabulary []string) Table {
	header := make([]string, 0, len(MetadataHeader)+len(vocabulary))
	header = append(header, MetadataHeader...)
	header = append(header, vocabulary...)

	rows := make([][]any, len(records))
	for i, record := range records {
		var recordAnswers []schema.WordAnswerEntry
		if i < len(answers) {
			recordAnswers = answers[i]
		}
		rows[i] = SerializeRecord(record, recordAnswers, format, vocabulary)
	}
	return Table{Header: header, Rows: rows}
}

// SortByCanonicalOrder reorders the word columns of a table by their rank in
// the CDI format. Metadata columns stay first. Words the format does not
// list keep their relative order after all listed words. A nil format
// leaves the table unchanged.
func SortByCanonicalOrder(table Table, cdi *schema.CDIFormat) Table {
	if cdi == nil {
		return table
	}
	rank := make(map[string]int)
	for i, word := range cdi.Words() {
		key := NormalizeWord(word)
		if _, ok := rank[key]; !ok {
			rank[key] = i
		}
	}
	rankOf := func(word string) int {
		if r, ok := rank[NormalizeWord(word)]; ok {
			return r
		}
		return len(rank)
	}

	fixed := len(MetadataHeader)
	if len(table.Header) <= fixed {
		return table
	}
	order := make([]int, len(table.Header)-fixed)
	for i := range order {
		order[i] = fixed + i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return rankOf(table.Header[order[i]]) < rankOf(table.Header[order[j]])
	})

	sorted := Table{
		Header: permute(table.Header, fixed, order),
		Rows:   make([][]any, len(table.Rows)),
	}
	for i, row := range table.Rows {
		sorted.Rows[i] = permute(row, fixed, order)
	}
	return sorted
}

func permute[T any](cells []T, fixed int, order []int) []T {
	out := make([]T, 0, len(cells))
	out = append(out, cells[:fixed]...)
	for _, idx := range order {
		if idx < len(cells) {
			out = append(out, cells[idx])
		}
	}
	return out
}

// SortRecords orders records by session number then study id, with the
// database id as the final tie-break. Study ids compare numerically when
// both are numbers.
func SortRecords(records []schema.SnapshotMetadata) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.SessionNum != b.SessionNum {
			return a.SessionNum < b.SessionNum
		}
		if a.StudyID != b.StudyID {
			return lessStudyID(a.StudyID, b.StudyID)
		}
		return a.DatabaseID < b.DatabaseID
	})
}

func lessStudyID(a, b string) bool {
	an, aErr := strconv.ParseFloat(a, 64)
	bn, bErr := strconv.ParseFloat(b, 64)
	if aErr == nil && bErr == nil && an != bn {
		return an < bn
	}
	return a < b
}
