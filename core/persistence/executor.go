package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/asaidimu/go-cdibase/core/query"
	"github.com/asaidimu/go-cdibase/core/schema"
	"go.uber.org/zap"
)

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	// Collection is the snapshot table name. Defaults to "snapshots".
	Collection string
	// Strict rejects filters with unknown fields or operators instead of
	// dropping them.
	Strict  bool
	Logger  *zap.Logger
	Events  *EventBus
	Metrics *Metrics
}

// Executor compiles filters and runs them against a RecordStore, logging,
// emitting events and recording metrics along the way.
type Executor struct {
	store      RecordStore
	collection string
	strict     bool
	logger     *zap.Logger
	events     *EventBus
	metrics    *Metrics
}

// NewExecutor creates an executor over store.
func NewExecutor(store RecordStore, opts ExecutorOptions) *Executor {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	collection := opts.Collection
	if collection == "" {
		collection = schema.SnapshotsCollection
	}
	return &Executor{
		store:      store,
		collection: collection,
		strict:     opts.Strict,
		logger:     logger,
		events:     opts.Events,
		metrics:    opts.Metrics,
	}
}

// Compile compiles filters against the executor's collection.
func (e *Executor) Compile(filters []query.Filter, mode query.Mode, excludeDeleted bool) (*query.CompiledQuery, error) {
	compiled, err := query.CompileWithOptions(filters, e.collection, mode, query.CompileOptions{
		ExcludeDeleted: excludeDeleted,
		Strict:         e.strict,
	})
	if err != nil {
		e.logger.Warn("Failed to compile filters", zap.String("mode", mode.String()), zap.Error(err))
		return nil, err
	}
	if compiled.Dropped > 0 {
		e.logger.Info("Dropped filters with unknown field or operator", zap.Int("dropped", compiled.Dropped))
	}
	e.logger.Debug("Compiled query",
		zap.String("mode", mode.String()),
		zap.String("sql", compiled.Statement),
		zap.Any("params", compiled.Params),
	)
	return compiled, nil
}

// RunSearchQuery returns the records matching filters. Soft deleted
// records are left out when excludeDeleted is set.
func (e *Executor) RunSearchQuery(ctx context.Context, filters []query.Filter, excludeDeleted bool) ([]schema.SnapshotMetadata, error) {
	compiled, err := e.Compile(filters, query.ModeSelect, excludeDeleted)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	records, err := WithEventEmission(e.events, QueryEvents, compiled.Mode.String(), e.collection, filters, compiled.Statement,
		func() ([]schema.SnapshotMetadata, error) {
			return e.store.SelectSnapshots(ctx, compiled)
		})
	e.metrics.ObserveQuery(compiled.Mode.String(), started, int64(len(records)), err)
	if err != nil {
		e.logger.Error("Search query failed", zap.String("sql", compiled.Statement), zap.Error(err))
		return nil, fmt.Errorf("search query failed: %w", err)
	}

	e.logger.Debug("Search query returned records", zap.Int("count", len(records)))
	return records, nil
}

// RunDeleteQuery soft deletes the records matching filters and returns how
// many were affected.
func (e *Executor) RunDeleteQuery(ctx context.Context, filters []query.Filter) (int64, error) {
	return e.runUpdate(ctx, filters, query.ModeSoftDelete)
}

// RunRestoreQuery clears the deleted flag of the records matching filters.
func (e *Executor) RunRestoreQuery(ctx context.Context, filters []query.Filter) (int64, error) {
	return e.runUpdate(ctx, filters, query.ModeRestore)
}

func (e *Executor) runUpdate(ctx context.Context, filters []query.Filter, mode query.Mode) (int64, error) {
	compiled, err := e.Compile(filters, mode, false)
	if err != nil {
		return 0, err
	}

	started := time.Now()
	affected, err := WithEventEmission(e.events, UpdateEvents, mode.String(), e.collection, filters, compiled.Statement,
		func() (int64, error) {
			return e.store.UpdateSnapshots(ctx, compiled)
		})
	e.metrics.ObserveQuery(mode.String(), started, affected, err)
	if err != nil {
		e.logger.Error("Update query failed", zap.String("mode", mode.String()), zap.String("sql", compiled.Statement), zap.Error(err))
		return 0, fmt.Errorf("%s query failed: %w", mode, err)
	}

	e.logger.Info("Updated records", zap.String("mode", mode.String()), zap.Int64("affected", affected))
	return affected, nil
}
