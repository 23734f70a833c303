package sqlstore

import (
	"context"
	"testing"

	"github.com/asaidimu/go-cdibase/core/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatStore(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	words := schema.FormatMetadata{HumanName: "Words", SafeName: "words", Filename: "abcdefgh.yaml"}

	require.NoError(t, store.SaveFormat(ctx, schema.FormatKindCDI, words))
	assert.Error(t, store.SaveFormat(ctx, schema.FormatKindCDI, words), "safe names are unique per kind")
	require.NoError(t, store.SaveFormat(ctx, schema.FormatKindPresentation, words))

	list, err := store.ListFormats(ctx, schema.FormatKindCDI)
	require.NoError(t, err)
	assert.Equal(t, []schema.FormatMetadata{words}, list)

	got, err := store.GetFormat(ctx, schema.FormatKindCDI, "words")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, words, *got)

	got, err = store.GetFormat(ctx, schema.FormatKindCDI, "gestures")
	require.NoError(t, err)
	assert.Nil(t, got)

	deleted, err := store.DeleteFormat(ctx, schema.FormatKindCDI, "words")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = store.DeleteFormat(ctx, schema.FormatKindCDI, "words")
	require.NoError(t, err)
	assert.False(t, deleted)

	list, err = store.ListFormats(ctx, schema.FormatKindPresentation)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = store.ListFormats(ctx, schema.FormatKind("bogus"))
	assert.Error(t, err)
}
