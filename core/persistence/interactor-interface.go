package persistence

import (
	"context"

	"github.com/asaidimu/go-cdibase/core/query"
	"github.com/asaidimu/go-cdibase/core/schema"
)

// RecordStore executes compiled queries against the snapshot collection.
type RecordStore interface {
	// SelectSnapshots runs a select mode query and returns the matching
	// records in storage order.
	SelectSnapshots(ctx context.Context, q *query.CompiledQuery) ([]schema.SnapshotMetadata, error)

	// UpdateSnapshots runs a soft delete or restore query and commits it,
	// returning the number of records affected. On failure nothing is
	// committed.
	UpdateSnapshots(ctx context.Context, q *query.CompiledQuery) (int64, error)
}

// AnswerLoader fetches the per-word answers of one snapshot.
type AnswerLoader interface {
	LoadAnswers(ctx context.Context, snapshot schema.SnapshotMetadata) ([]schema.WordAnswerEntry, error)
}

// FormatLoader looks up uploaded formats by safe name. Both methods return
// (nil, nil) when no such format exists.
type FormatLoader interface {
	LoadPresentationFormat(ctx context.Context, name string) (*schema.PresentationFormat, error)
	LoadCDIFormat(ctx context.Context, safeName string) (*schema.CDIFormat, error)
}

// FormatStore manages the metadata rows of uploaded formats. The format
// files themselves live in the uploads directory.
type FormatStore interface {
	SaveFormat(ctx context.Context, kind schema.FormatKind, metadata schema.FormatMetadata) error
	ListFormats(ctx context.Context, kind schema.FormatKind) ([]schema.FormatMetadata, error)
	GetFormat(ctx context.Context, kind schema.FormatKind, safeName string) (*schema.FormatMetadata, error)
	DeleteFormat(ctx context.Context, kind schema.FormatKind, safeName string) (bool, error)
}
