package persistence

import (
	"context"
	"testing"

	"github.com/asaidimu/go-cdibase/core/query"
	"github.com/asaidimu/go-cdibase/core/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore(nil)
	ctx := context.Background()
	seed := []schema.SnapshotMetadata{
		{ChildID: "c1", StudyID: "1", Study: "A", Gender: schema.Male, Age: 18, SessionNum: 1},
		{ChildID: "c2", StudyID: "2", Study: "A", Gender: schema.Female, Age: 24, SessionNum: 1},
		{ChildID: "c3", StudyID: "3", Study: "B", Gender: schema.Male, Age: 30, SessionNum: 2, Deleted: schema.FlagTrue},
	}
	for _, s := range seed {
		_, err := store.InsertSnapshot(ctx, s, []schema.WordAnswerEntry{
			{Word: "dog", Value: schema.ExplicitTrue},
			{Word: "cat", Value: schema.ExplicitFalse},
		})
		require.NoError(t, err)
	}
	return store
}

func TestMemoryStore_InsertAssignsIDs(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()

	id, err := store.InsertSnapshot(ctx, schema.SnapshotMetadata{DatabaseID: 10}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(10), id)

	id, err = store.InsertSnapshot(ctx, schema.SnapshotMetadata{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)

	_, err = store.InsertSnapshot(ctx, schema.SnapshotMetadata{DatabaseID: 10}, nil)
	assert.Error(t, err)
}

func TestMemoryStore_SelectSnapshots(t *testing.T) {
	store := seededStore(t)

	compiled, err := query.Compile([]query.Filter{
		{Field: "gender", Operator: query.ComparisonOperatorEq, Operand: "male"},
	}, "", query.ModeSelect, true)
	require.NoError(t, err)

	records, err := store.SelectSnapshots(context.Background(), compiled)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "c1", records[0].ChildID)
}

func TestMemoryStore_UpdateSnapshots(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	restore, err := query.Compile([]query.Filter{
		{Field: "study", Operator: query.ComparisonOperatorEq, Operand: "B"},
	}, "", query.ModeRestore, false)
	require.NoError(t, err)

	affected, err := store.UpdateSnapshots(ctx, restore)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	all, err := query.Compile(nil, "", query.ModeSelect, true)
	require.NoError(t, err)
	records, err := store.SelectSnapshots(ctx, all)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	_, err = store.UpdateSnapshots(ctx, all)
	assert.Error(t, err, "select queries cannot update")
}

func TestMemoryStore_LoadAnswersSortedByWord(t *testing.T) {
	store := seededStore(t)
	answers, err := store.LoadAnswers(context.Background(), schema.SnapshotMetadata{DatabaseID: 1})
	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Equal(t, "cat", answers[0].Word)
	assert.Equal(t, int64(1), answers[0].SnapshotID)
}

func TestMemoryStore_Formats(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()

	format, err := store.LoadCDIFormat(ctx, "standard")
	require.NoError(t, err)
	assert.Nil(t, format)

	store.PutCDIFormat(&schema.CDIFormat{FormatMetadata: schema.FormatMetadata{SafeName: "standard"}})
	format, err = store.LoadCDIFormat(ctx, "standard")
	require.NoError(t, err)
	assert.NotNil(t, format)

	store.PutPresentationFormat(&schema.PresentationFormat{FormatMetadata: schema.FormatMetadata{SafeName: "default"}})
	presentation, err := store.LoadPresentationFormat(ctx, "default")
	require.NoError(t, err)
	assert.NotNil(t, presentation)
}

func TestMemoryStore_FormatRows(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()

	require.NoError(t, store.SaveFormat(ctx, schema.FormatKindCDI, schema.FormatMetadata{HumanName: "Words", SafeName: "words", Filename: "abcdefgh.yaml"}))
	require.NoError(t, store.SaveFormat(ctx, schema.FormatKindCDI, schema.FormatMetadata{HumanName: "Gestures", SafeName: "gestures", Filename: "hgfedcba.yaml"}))

	rows, err := store.ListFormats(ctx, schema.FormatKindCDI)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "gestures", rows[0].SafeName)

	rows, err = store.ListFormats(ctx, schema.FormatKindPresentation)
	require.NoError(t, err)
	assert.Empty(t, rows)

	row, err := store.GetFormat(ctx, schema.FormatKindCDI, "words")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "abcdefgh.yaml", row.Filename)

	row, err = store.GetFormat(ctx, schema.FormatKindPresentation, "words")
	require.NoError(t, err)
	assert.Nil(t, row)

	deleted, err := store.DeleteFormat(ctx, schema.FormatKindCDI, "words")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = store.DeleteFormat(ctx, schema.FormatKindCDI, "words")
	require.NoError(t, err)
	assert.False(t, deleted)
}
