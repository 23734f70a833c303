package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/asaidimu/go-cdibase/core/persistence"
	"github.com/asaidimu/go-cdibase/core/schema"
	"github.com/asaidimu/go-cdibase/utils"
	"go.uber.org/zap"
)

// ErrMissingDefaultFormat is returned when a record's CDI format is not
// uploaded and no usable default format is configured.
var ErrMissingDefaultFormat = errors.New("no CDI format for records and no default format configured")

const (
	kindStudyCSV     = "study_csv"
	kindStudyArchive = "study_archive"
	kindConsolidated = "consolidated"
)

// GeneratorOptions configures a Generator.
type GeneratorOptions struct {
	// DefaultCDIFormat is the safe name of the CDI format used when a
	// record's own format is not available.
	DefaultCDIFormat string
	Logger           *zap.Logger
	Events           *persistence.EventBus
	Metrics          *persistence.Metrics
}

// Generator renders records into CSV reports.
type Generator struct {
	answers       persistence.AnswerLoader
	formats       persistence.FormatLoader
	defaultFormat string
	logger        *zap.Logger
	events        *persistence.EventBus
	metrics       *persistence.Metrics
}

// NewGenerator creates a report generator reading answers and formats from
// the given loaders.
func NewGenerator(answers persistence.AnswerLoader, formats persistence.FormatLoader, opts GeneratorOptions) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		answers:       answers,
		formats:       formats,
		defaultFormat: opts.DefaultCDIFormat,
		logger:        logger,
		events:        opts.Events,
		metrics:       opts.Metrics,
	}
}

// reportSummary is the event payload of a finished report.
type reportSummary struct {
	Entries int `json:"entries"`
	Rows    int `json:"rows"`
	Bytes   int `json:"bytes"`
}

// lookups memoizes format and answer loads for one report call.
type lookups struct {
	gen     *Generator
	cdi     map[string]*schema.CDIFormat
	answers map[int64][]schema.WordAnswerEntry
}

func (g *Generator) newLookups() *lookups {
	return &lookups{
		gen:     g,
		cdi:     make(map[string]*schema.CDIFormat),
		answers: make(map[int64][]schema.WordAnswerEntry),
	}
}

func (l *lookups) loadCDI(ctx context.Context, safeName string) (*schema.CDIFormat, error) {
	if format, ok := l.cdi[safeName]; ok {
		return format, nil
	}
	format, err := l.gen.formats.LoadCDIFormat(ctx, safeName)
	if err != nil {
		return nil, fmt.Errorf("failed to load CDI format %s: %w", safeName, err)
	}
	l.cdi[safeName] = format
	return format, nil
}

// findCDI looks a format up by name as stored, then by its safe name.
func (l *lookups) findCDI(ctx context.Context, name string) (*schema.CDIFormat, error) {
	if name == "" {
		return nil, nil
	}
	format, err := l.loadCDI(ctx, name)
	if err != nil || format != nil {
		return format, err
	}
	if safe := schema.SafeName(name); safe != name {
		return l.loadCDI(ctx, safe)
	}
	return nil, nil
}

// resolveCDI picks the CDI format of a batch from its first record,
// falling back to the configured default.
func (l *lookups) resolveCDI(ctx context.Context, record schema.SnapshotMetadata) (*schema.CDIFormat, error) {
	format, err := l.findCDI(ctx, record.MCDIType)
	if err != nil {
		return nil, err
	}
	if format != nil {
		return format, nil
	}

	if l.gen.defaultFormat == "" {
		return nil, fmt.Errorf("%w: format %q", ErrMissingDefaultFormat, record.MCDIType)
	}
	l.gen.logger.Debug("Falling back to default CDI format",
		zap.String("mcdi_type", record.MCDIType),
		zap.String("default", l.gen.defaultFormat))
	format, err = l.findCDI(ctx, l.gen.defaultFormat)
	if err != nil {
		return nil, err
	}
	if format == nil {
		return nil, fmt.Errorf("%w: default format %q is not uploaded", ErrMissingDefaultFormat, l.gen.defaultFormat)
	}
	return format, nil
}

func (l *lookups) loadAnswers(ctx context.Context, record schema.SnapshotMetadata) ([]schema.WordAnswerEntry, error) {
	if answers, ok := l.answers[record.DatabaseID]; ok {
		return answers, nil
	}
	answers, err := l.gen.answers.LoadAnswers(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers of snapshot %d: %w", record.DatabaseID, err)
	}
	l.answers[record.DatabaseID] = answers
	return answers, nil
}

// GenerateStudyReportCSV renders the records of one study as CSV, in the
// order given. Word columns follow the canonical order of the study's CDI
// format.
func (g *Generator) GenerateStudyReportCSV(ctx context.Context, records []schema.SnapshotMetadata, format *schema.PresentationFormat) ([]byte, error) {
	var data []byte
	_, err := g.observe(kindStudyCSV, len(records), func() (reportSummary, error) {
		table, err := g.newLookups().studyTable(ctx, records, format)
		if err != nil {
			return reportSummary{}, err
		}
		data, err = tableCSV(table)
		if err != nil {
			return reportSummary{}, err
		}
		return reportSummary{Entries: 1, Rows: len(table.Rows), Bytes: len(data)}, nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// GenerateStudyReport sorts the records, splits them by study and returns a
// zip archive holding one "<study>.csv" entry per study.
func (g *Generator) GenerateStudyReport(ctx context.Context, records []schema.SnapshotMetadata, format *schema.PresentationFormat) ([]byte, error) {
	var data []byte
	_, err := g.observe(kindStudyArchive, len(records), func() (reportSummary, error) {
		sorted := sortedCopy(records)
		studies, groups := utils.GroupBy(sorted, func(r schema.SnapshotMetadata) string { return r.Study })

		cache := g.newLookups()
		files := make(map[string][]byte, len(studies))
		for _, study := range studies {
			table, err := cache.studyTable(ctx, groups[study], format)
			if err != nil {
				return reportSummary{}, fmt.Errorf("study %q: %w", study, err)
			}
			content, err := tableCSV(table)
			if err != nil {
				return reportSummary{}, fmt.Errorf("study %q: %w", study, err)
			}
			files[uniqueEntryName(files, study)] = content
		}

		var buf bytes.Buffer
		if err := WriteZip(&buf, files); err != nil {
			return reportSummary{}, err
		}
		data = buf.Bytes()
		return reportSummary{Entries: len(files), Rows: len(sorted), Bytes: len(data)}, nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// GenerateConsolidatedStudyReport sorts the records and renders them as a
// single CSV regardless of study.
func (g *Generator) GenerateConsolidatedStudyReport(ctx context.Context, records []schema.SnapshotMetadata, format *schema.PresentationFormat) ([]byte, error) {
	var data []byte
	_, err := g.observe(kindConsolidated, len(records), func() (reportSummary, error) {
		table, err := g.newLookups().studyTable(ctx, sortedCopy(records), format)
		if err != nil {
			return reportSummary{}, err
		}
		data, err = tableCSV(table)
		if err != nil {
			return reportSummary{}, err
		}
		return reportSummary{Entries: 1, Rows: len(table.Rows), Bytes: len(data)}, nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// SerializeSnapshot renders one record against a fixed vocabulary as CSV
// cells.
func (g *Generator) SerializeSnapshot(ctx context.Context, record schema.SnapshotMetadata, format *schema.PresentationFormat, vocabulary []string) ([]string, error) {
	answers, err := g.answers.LoadAnswers(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to load answers of snapshot %d: %w", record.DatabaseID, err)
	}
	row := SerializeRecord(record, answers, format, vocabulary)
	cells := make([]string, len(row))
	for i, cell := range row {
		cells[i] = FormatCell(cell)
	}
	return cells, nil
}

// studyTable builds the table of one batch of records and orders its word
// columns by the batch's CDI format.
func (l *lookups) studyTable(ctx context.Context, records []schema.SnapshotMetadata, format *schema.PresentationFormat) (Table, error) {
	if len(records) == 0 {
		return BuildRows(nil, nil, format, nil), nil
	}

	cdi, err := l.resolveCDI(ctx, records[0])
	if err != nil {
		return Table{}, err
	}

	answers := make([][]schema.WordAnswerEntry, len(records))
	for i, record := range records {
		if answers[i], err = l.loadAnswers(ctx, record); err != nil {
			return Table{}, err
		}
	}

	vocabulary := AlignVocabulary(nil, answers)
	table := BuildRows(records, answers, format, vocabulary)
	return SortByCanonicalOrder(table, cdi), nil
}

func (g *Generator) observe(kind string, records int, fn func() (reportSummary, error)) (reportSummary, error) {
	summary, err := persistence.WithEventEmission(g.events, persistence.ReportEvents, kind, schema.SnapshotsCollection,
		map[string]any{"records": records}, nil, fn)
	g.metrics.ObserveReport(kind, summary.Rows, err)
	if err != nil {
		g.logger.Error("Report generation failed", zap.String("kind", kind), zap.Error(err))
		return summary, err
	}
	g.logger.Info("Generated report",
		zap.String("kind", kind),
		zap.Int("entries", summary.Entries),
		zap.Int("rows", summary.Rows),
		zap.Int("bytes", summary.Bytes))
	return summary, nil
}

func sortedCopy(records []schema.SnapshotMetadata) []schema.SnapshotMetadata {
	sorted := append([]schema.SnapshotMetadata(nil), records...)
	SortRecords(sorted)
	return sorted
}

var entryNameReplacer = strings.NewReplacer("/", "_", "\\", "_")

// uniqueEntryName turns a study name into a flat archive entry name that is
// not yet used in files.
func uniqueEntryName(files map[string][]byte, study string) string {
	base := entryNameReplacer.Replace(strings.TrimSpace(study))
	if base == "" {
		base = "unnamed"
	}
	name := base + ".csv"
	for i := 2; ; i++ {
		if _, taken := files[name]; !taken {
			return name
		}
		name = base + "_" + strconv.Itoa(i) + ".csv"
	}
}
