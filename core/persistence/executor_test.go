package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/asaidimu/go-cdibase/core/query"
	"github.com/asaidimu/go-cdibase/core/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) SelectSnapshots(ctx context.Context, q *query.CompiledQuery) ([]schema.SnapshotMetadata, error) {
	return nil, errors.New("connection lost")
}

func (failingStore) UpdateSnapshots(ctx context.Context, q *query.CompiledQuery) (int64, error) {
	return 0, errors.New("connection lost")
}

func TestExecutor_RunSearchQuery(t *testing.T) {
	exec := NewExecutor(seededStore(t), ExecutorOptions{})

	records, err := exec.RunSearchQuery(context.Background(), []query.Filter{
		{Field: "study", Operator: query.ComparisonOperatorEq, Operand: "A,B"},
	}, true)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = exec.RunSearchQuery(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestExecutor_DeleteAndRestore(t *testing.T) {
	exec := NewExecutor(seededStore(t), ExecutorOptions{})
	ctx := context.Background()
	byChild := []query.Filter{{Field: "child_id", Operator: query.ComparisonOperatorEq, Operand: "c1"}}

	affected, err := exec.RunDeleteQuery(ctx, byChild)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	records, err := exec.RunSearchQuery(ctx, nil, true)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	affected, err = exec.RunRestoreQuery(ctx, byChild)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	records, err = exec.RunSearchQuery(ctx, nil, true)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestExecutor_StrictRejectsUnknownFields(t *testing.T) {
	exec := NewExecutor(seededStore(t), ExecutorOptions{Strict: true})
	_, err := exec.RunSearchQuery(context.Background(), []query.Filter{
		{Field: "colour", Operator: query.ComparisonOperatorEq, Operand: "red"},
	}, true)
	assert.ErrorIs(t, err, query.ErrUnknownField)
}

func TestExecutor_InvalidOperandNeverReachesStore(t *testing.T) {
	exec := NewExecutor(failingStore{}, ExecutorOptions{})
	_, err := exec.RunSearchQuery(context.Background(), []query.Filter{
		{Field: "age", Operator: query.ComparisonOperatorEq, Operand: "old"},
	}, true)
	assert.ErrorIs(t, err, query.ErrInvalidOperand)
}

func TestExecutor_MetricsAndEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	bus, err := NewEventBus()
	require.NoError(t, err)

	var mu sync.Mutex
	var received []PersistenceEventType
	record := func(ctx context.Context, event PersistenceEvent) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, event.Type)
		return nil
	}
	bus.RegisterSubscription(RegisterSubscriptionOptions{Event: QuerySuccess, Callback: record})
	bus.RegisterSubscription(RegisterSubscriptionOptions{Event: UpdateFailed, Callback: record})

	exec := NewExecutor(seededStore(t), ExecutorOptions{Metrics: metrics, Events: bus})
	_, err = exec.RunSearchQuery(context.Background(), nil, true)
	require.NoError(t, err)

	failing := NewExecutor(failingStore{}, ExecutorOptions{Metrics: metrics, Events: bus})
	_, err = failing.RunDeleteQuery(context.Background(), nil)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.QueriesTotal.WithLabelValues("select", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.RecordsTotal.WithLabelValues("select")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.QueriesTotal.WithLabelValues("soft_delete", "error")))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	}, time.Second, 10*time.Millisecond)
	mu.Lock()
	assert.ElementsMatch(t, []PersistenceEventType{QuerySuccess, UpdateFailed}, received)
	mu.Unlock()
}
