package persistence

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/asaidimu/go-cdibase/core/query"
	"github.com/asaidimu/go-cdibase/core/schema"
	"github.com/asaidimu/go-cdibase/utils"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory snapshot collection. It evaluates compiled
// queries with query.DataProcessor rather than SQL and is meant for tests,
// examples and small imports. It is safe for concurrent use.
type MemoryStore struct {
	mu            sync.RWMutex
	processor     *query.DataProcessor
	snapshots     []schema.SnapshotMetadata
	answers       map[int64][]schema.WordAnswerEntry
	presentations map[string]*schema.PresentationFormat
	cdis          map[string]*schema.CDIFormat
	formatRows    map[schema.FormatKind]map[string]schema.FormatMetadata
	nextID        int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		processor:     query.NewDataProcessor(logger),
		answers:       make(map[int64][]schema.WordAnswerEntry),
		presentations: make(map[string]*schema.PresentationFormat),
		cdis:          make(map[string]*schema.CDIFormat),
		formatRows:    make(map[schema.FormatKind]map[string]schema.FormatMetadata),
		nextID:        1,
	}
}

// InsertSnapshot stores a record with its answers. A zero DatabaseID is
// replaced by the next free id, which is returned.
func (m *MemoryStore) InsertSnapshot(ctx context.Context, snapshot schema.SnapshotMetadata, answers []schema.WordAnswerEntry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if snapshot.DatabaseID == 0 {
		snapshot.DatabaseID = m.nextID
	}
	for _, existing := range m.snapshots {
		if existing.DatabaseID == snapshot.DatabaseID {
			return 0, fmt.Errorf("snapshot %d already exists", snapshot.DatabaseID)
		}
	}
	if snapshot.DatabaseID >= m.nextID {
		m.nextID = snapshot.DatabaseID + 1
	}

	stored := make([]schema.WordAnswerEntry, len(answers))
	for i, answer := range answers {
		answer.SnapshotID = snapshot.DatabaseID
		stored[i] = answer
	}
	m.snapshots = append(m.snapshots, snapshot)
	m.answers[snapshot.DatabaseID] = stored
	return snapshot.DatabaseID, nil
}

// PutPresentationFormat registers a presentation format under its safe name.
func (m *MemoryStore) PutPresentationFormat(format *schema.PresentationFormat) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presentations[format.SafeName] = format
}

// PutCDIFormat registers a CDI format under its safe name.
func (m *MemoryStore) PutCDIFormat(format *schema.CDIFormat) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cdis[format.SafeName] = format
}

// SelectSnapshots returns the stored records matching the query's filters.
func (m *MemoryStore) SelectSnapshots(ctx context.Context, q *query.CompiledQuery) ([]schema.SnapshotMetadata, error) {
	if q.Mode != query.ModeSelect {
		return nil, fmt.Errorf("expected a select query, got %s", q.Mode)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched, err := m.matching(ctx, q.Filters)
	if err != nil {
		return nil, err
	}
	records := make([]schema.SnapshotMetadata, len(matched))
	for i, idx := range matched {
		records[i] = m.snapshots[idx]
	}
	return records, nil
}

// UpdateSnapshots sets or clears the deleted flag of the matching records.
func (m *MemoryStore) UpdateSnapshots(ctx context.Context, q *query.CompiledQuery) (int64, error) {
	var flag int
	switch q.Mode {
	case query.ModeSoftDelete:
		flag = schema.FlagTrue
	case query.ModeRestore:
		flag = schema.FlagFalse
	default:
		return 0, fmt.Errorf("expected an update query, got %s", q.Mode)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	matched, err := m.matching(ctx, q.Filters)
	if err != nil {
		return 0, err
	}
	for _, idx := range matched {
		m.snapshots[idx].Deleted = flag
	}
	return int64(len(matched)), nil
}

// LoadAnswers returns the answers stored for a record, ordered by word.
func (m *MemoryStore) LoadAnswers(ctx context.Context, snapshot schema.SnapshotMetadata) ([]schema.WordAnswerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	answers := append([]schema.WordAnswerEntry(nil), m.answers[snapshot.DatabaseID]...)
	sort.SliceStable(answers, func(i, j int) bool { return answers[i].Word < answers[j].Word })
	return answers, nil
}

// LoadPresentationFormat returns the named format or nil.
func (m *MemoryStore) LoadPresentationFormat(ctx context.Context, name string) (*schema.PresentationFormat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.presentations[name], nil
}

// LoadCDIFormat returns the named format or nil.
func (m *MemoryStore) LoadCDIFormat(ctx context.Context, safeName string) (*schema.CDIFormat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cdis[safeName], nil
}

// SaveFormat stores a format metadata row, replacing one with the same
// safe name.
func (m *MemoryStore) SaveFormat(ctx context.Context, kind schema.FormatKind, metadata schema.FormatMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.formatRows[kind] == nil {
		m.formatRows[kind] = make(map[string]schema.FormatMetadata)
	}
	m.formatRows[kind][metadata.SafeName] = metadata
	return nil
}

// ListFormats returns the metadata rows of one kind ordered by safe name.
func (m *MemoryStore) ListFormats(ctx context.Context, kind schema.FormatKind) ([]schema.FormatMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := make([]schema.FormatMetadata, 0, len(m.formatRows[kind]))
	for _, name := range utils.SortedKeys(m.formatRows[kind]) {
		rows = append(rows, m.formatRows[kind][name])
	}
	return rows, nil
}

// GetFormat returns one metadata row or nil.
func (m *MemoryStore) GetFormat(ctx context.Context, kind schema.FormatKind, safeName string) (*schema.FormatMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	row, ok := m.formatRows[kind][safeName]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

// DeleteFormat removes one metadata row and reports whether it existed.
func (m *MemoryStore) DeleteFormat(ctx context.Context, kind schema.FormatKind, safeName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.formatRows[kind][safeName]; !ok {
		return false, nil
	}
	delete(m.formatRows[kind], safeName)
	return true, nil
}

// matching returns the indexes of the records satisfying filters.
func (m *MemoryStore) matching(ctx context.Context, filters []query.Filter) ([]int, error) {
	var matched []int
	for i, snapshot := range m.snapshots {
		ok, err := m.processor.Match(ctx, filters, snapshot.Document())
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate snapshot %d: %w", snapshot.DatabaseID, err)
		}
		if ok {
			matched = append(matched, i)
		}
	}
	return matched, nil
}
