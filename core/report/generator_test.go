package report

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/asaidimu/go-cdibase/core/persistence"
	"github.com/asaidimu/go-cdibase/core/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore counts loader calls made through a MemoryStore.
type countingStore struct {
	*persistence.MemoryStore
	mu          sync.Mutex
	answerCalls int
	cdiCalls    int
}

func (c *countingStore) LoadAnswers(ctx context.Context, snapshot schema.SnapshotMetadata) ([]schema.WordAnswerEntry, error) {
	c.mu.Lock()
	c.answerCalls++
	c.mu.Unlock()
	return c.MemoryStore.LoadAnswers(ctx, snapshot)
}

func (c *countingStore) LoadCDIFormat(ctx context.Context, safeName string) (*schema.CDIFormat, error) {
	c.mu.Lock()
	c.cdiCalls++
	c.mu.Unlock()
	return c.MemoryStore.LoadCDIFormat(ctx, safeName)
}

type brokenLoader struct{ *persistence.MemoryStore }

func (brokenLoader) LoadAnswers(ctx context.Context, snapshot schema.SnapshotMetadata) ([]schema.WordAnswerEntry, error) {
	return nil, errors.New("disk on fire")
}

func wordsAndSentences() *schema.CDIFormat {
	return &schema.CDIFormat{
		FormatMetadata: schema.FormatMetadata{HumanName: "Words And Sentences", SafeName: schema.SafeName("Words And Sentences")},
		Categories: []schema.Category{
			{Name: "animals", Words: []string{"dog", "cat", "bird"}},
		},
	}
}

func reportStore(t *testing.T) (*countingStore, []schema.SnapshotMetadata) {
	t.Helper()
	store := &countingStore{MemoryStore: persistence.NewMemoryStore(nil)}
	store.PutCDIFormat(wordsAndSentences())
	ctx := context.Background()

	seed := []struct {
		record  schema.SnapshotMetadata
		answers []schema.WordAnswerEntry
	}{
		{
			schema.SnapshotMetadata{ChildID: "c1", StudyID: "2", Study: "A", Gender: schema.Male, SessionNum: 2, MCDIType: "wordsandsentences"},
			[]schema.WordAnswerEntry{{Word: "dog", Value: schema.ExplicitTrue}, {Word: "cat", Value: schema.ExplicitFalse}, {Word: "ant", Value: schema.ExplicitTrue}},
		},
		{
			schema.SnapshotMetadata{ChildID: "c2", StudyID: "1", Study: "B", Gender: schema.Female, SessionNum: 1, MCDIType: "wordsandsentences"},
			[]schema.WordAnswerEntry{{Word: "bird", Value: schema.ExplicitTrue}},
		},
		{
			schema.SnapshotMetadata{ChildID: "c3", StudyID: "1", Study: "A", Gender: schema.Male, SessionNum: 1, MCDIType: "wordsandsentences"},
			[]schema.WordAnswerEntry{{Word: "dog", Value: schema.ExplicitFalse}},
		},
	}
	records := make([]schema.SnapshotMetadata, 0, len(seed))
	for _, s := range seed {
		id, err := store.InsertSnapshot(ctx, s.record, s.answers)
		require.NoError(t, err)
		s.record.DatabaseID = id
		records = append(records, s.record)
	}
	return store, records
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows
}

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	files := make(map[string][]byte)
	for _, f := range archive.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		files[f.Name] = content
	}
	return files
}

func TestGenerateStudyReport_OneEntryPerStudy(t *testing.T) {
	store, records := reportStore(t)
	gen := NewGenerator(store, store, GeneratorOptions{})

	data, err := gen.GenerateStudyReport(context.Background(), records, nil)
	require.NoError(t, err)

	files := readZip(t, data)
	require.Len(t, files, 2)
	require.Contains(t, files, "A.csv")
	require.Contains(t, files, "B.csv")

	a := readCSV(t, files["A.csv"])
	require.Len(t, a, 3)
	assert.Equal(t, []string{"dog", "cat", "ant"}, a[0][len(MetadataHeader):])
	assert.Equal(t, "c3", a[1][1], "session 1 sorts first")
	assert.Equal(t, "c1", a[2][1])
	assert.Equal(t, "-100", a[1][len(MetadataHeader)+1], "unanswered word is no data")

	b := readCSV(t, files["B.csv"])
	require.Len(t, b, 2)
	assert.Equal(t, "B", b[1][3])
	assert.Equal(t, []string{"bird"}, b[0][len(MetadataHeader):])
}

func TestGenerateStudyReportCSV_KeepsGivenOrder(t *testing.T) {
	store, records := reportStore(t)
	gen := NewGenerator(store, store, GeneratorOptions{})
	format := &schema.PresentationFormat{Details: map[string]string{"male": "M", "female": "F"}}

	data, err := gen.GenerateStudyReportCSV(context.Background(), records, format)
	require.NoError(t, err)

	rows := readCSV(t, data)
	require.Len(t, rows, 4)
	assert.Equal(t, MetadataHeader, rows[0][:len(MetadataHeader)])
	assert.Equal(t, []string{"dog", "cat", "bird", "ant"}, rows[0][len(MetadataHeader):])
	assert.Equal(t, []string{"c1", "c2", "c3"}, []string{rows[1][1], rows[2][1], rows[3][1]})
	assert.Equal(t, "M", rows[1][4])
	assert.Equal(t, "F", rows[2][4])
}

func TestGenerateStudyReportCSV_NoRecords(t *testing.T) {
	store, _ := reportStore(t)
	gen := NewGenerator(store, store, GeneratorOptions{})

	data, err := gen.GenerateStudyReportCSV(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(MetadataHeader, ",")+"\n", string(data))
}

func TestGenerateConsolidatedStudyReport(t *testing.T) {
	store, records := reportStore(t)
	gen := NewGenerator(store, store, GeneratorOptions{})

	data, err := gen.GenerateConsolidatedStudyReport(context.Background(), records, nil)
	require.NoError(t, err)

	rows := readCSV(t, data)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"c2", "c3", "c1"}, []string{rows[1][1], rows[2][1], rows[3][1]})
	assert.Equal(t, []string{"2", "3", "1"}, []string{rows[1][0], rows[2][0], rows[3][0]})
	assert.Equal(t, "c1", records[0].ChildID, "caller's slice is not reordered")
}

func TestGenerator_FallsBackToDefaultFormat(t *testing.T) {
	store, records := reportStore(t)
	for i := range records {
		records[i].MCDIType = "retired format"
	}

	_, err := NewGenerator(store, store, GeneratorOptions{}).GenerateStudyReportCSV(context.Background(), records, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingDefaultFormat)

	_, err = NewGenerator(store, store, GeneratorOptions{DefaultCDIFormat: "missing"}).GenerateStudyReportCSV(context.Background(), records, nil)
	assert.ErrorIs(t, err, ErrMissingDefaultFormat)

	gen := NewGenerator(store, store, GeneratorOptions{DefaultCDIFormat: "wordsandsentences"})
	data, err := gen.GenerateStudyReportCSV(context.Background(), records, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"dog", "cat", "bird", "ant"}, readCSV(t, data)[0][len(MetadataHeader):])
}

func TestGenerator_ResolvesFormatNamesWithReservedCharacters(t *testing.T) {
	store, records := reportStore(t)
	store.PutCDIFormat(&schema.CDIFormat{
		FormatMetadata: schema.FormatMetadata{HumanName: "Words & Gestures (short)", SafeName: schema.SafeName("Words & Gestures (short)")},
		Categories:     []schema.Category{{Name: "garden", Words: []string{"bird", "ant"}}},
	})
	ctx := context.Background()

	tests := []struct {
		name     string
		mcdiType string
	}{
		{"stored safe name", schema.SafeName("Words & Gestures (short)")},
		{"name as written", "Words & Gestures (short)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := append([]schema.SnapshotMetadata(nil), records...)
			for i := range batch {
				batch[i].MCDIType = tt.mcdiType
			}
			data, err := NewGenerator(store, store, GeneratorOptions{}).GenerateStudyReportCSV(ctx, batch, nil)
			require.NoError(t, err)
			assert.Equal(t, []string{"bird", "ant", "cat", "dog"}, readCSV(t, data)[0][len(MetadataHeader):])
		})
	}
}

func TestGenerator_DefaultFormatAcceptsHumanName(t *testing.T) {
	store, records := reportStore(t)
	for i := range records {
		records[i].MCDIType = "retired format"
	}

	gen := NewGenerator(store, store, GeneratorOptions{DefaultCDIFormat: "Words And Sentences"})
	data, err := gen.GenerateStudyReportCSV(context.Background(), records, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"dog", "cat", "bird", "ant"}, readCSV(t, data)[0][len(MetadataHeader):])
}

func TestGenerator_MemoizesPerCall(t *testing.T) {
	store, records := reportStore(t)
	gen := NewGenerator(store, store, GeneratorOptions{})
	ctx := context.Background()

	_, err := gen.GenerateStudyReport(ctx, records, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, store.cdiCalls, "one format lookup shared by both studies")
	assert.Equal(t, 3, store.answerCalls)

	_, err = gen.GenerateStudyReport(ctx, records, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, store.cdiCalls, "cache does not outlive a call")
	assert.Equal(t, 6, store.answerCalls)
}

func TestGenerator_LoaderErrorsAreWrapped(t *testing.T) {
	store, records := reportStore(t)
	gen := NewGenerator(brokenLoader{store.MemoryStore}, store, GeneratorOptions{})

	_, err := gen.GenerateStudyReport(context.Background(), records, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
	assert.Contains(t, err.Error(), `study "B"`)
}

func TestGenerator_SerializeSnapshot(t *testing.T) {
	store, records := reportStore(t)
	gen := NewGenerator(store, store, GeneratorOptions{})
	format := &schema.PresentationFormat{Details: map[string]string{"explicit_true": "y", "no_data": ""}}

	cells, err := gen.SerializeSnapshot(context.Background(), records[0], format, []string{"dog", "bird"})
	require.NoError(t, err)
	require.Len(t, cells, len(MetadataHeader)+2)
	assert.Equal(t, "1", cells[0])
	assert.Equal(t, []string{"y", ""}, cells[len(MetadataHeader):])
}

func TestGenerator_EventsAndMetrics(t *testing.T) {
	store, records := reportStore(t)
	bus, err := persistence.NewEventBus()
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	metrics := persistence.NewMetrics(reg)

	var mu sync.Mutex
	var seen []persistence.PersistenceEventType
	record := func(ctx context.Context, event persistence.PersistenceEvent) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, event.Type)
		return nil
	}
	bus.RegisterSubscription(persistence.RegisterSubscriptionOptions{Event: persistence.ReportStart, Callback: record})
	bus.RegisterSubscription(persistence.RegisterSubscriptionOptions{Event: persistence.ReportSuccess, Callback: record})

	gen := NewGenerator(store, store, GeneratorOptions{Events: bus, Metrics: metrics})
	_, err = gen.GenerateConsolidatedStudyReport(context.Background(), records, nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ReportsTotal.WithLabelValues("consolidated", "ok")))
}

func TestUniqueEntryName(t *testing.T) {
	files := map[string][]byte{}
	name := uniqueEntryName(files, "Lab/2020")
	assert.Equal(t, "Lab_2020.csv", name)
	files[name] = nil

	assert.Equal(t, "Lab_2020_2.csv", uniqueEntryName(files, `Lab\2020`))
	assert.Equal(t, "unnamed.csv", uniqueEntryName(files, "  "))
}
