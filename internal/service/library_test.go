package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirLibraryRoundTrip(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	lib, err := NewDirLibrary(root, nil)
	require.NoError(t, err)

	meta := FileMeta{Title: "Alpha Paper", Tags: []string{"chem"}, Converted: true}
	require.NoError(t, lib.AddFile(ctx, "alpha.md", []byte("# Alpha\n\nBody."), meta))

	data, err := lib.ReadFile(ctx, "alpha.md")
	require.NoError(t, err)
	assert.Equal(t, "# Alpha\n\nBody.", string(data))

	got, ok, err := lib.Meta(ctx, "alpha.md")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, meta, got)

	names, err := lib.ListFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha.md"}, names)
}

func TestDirLibraryMetadataSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	lib, err := NewDirLibrary(root, nil)
	require.NoError(t, err)
	require.NoError(t, lib.AddFile(ctx, "doc.md", []byte("content"), FileMeta{Title: "Doc"}))

	reopened, err := NewDirLibrary(root, nil)
	require.NoError(t, err)

	meta, ok, err := reopened.Meta(ctx, "doc.md")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Doc", meta.Title)
}

func TestDirLibraryListSkipsNonMarkdown(t *testing.T) {
	ctx := context.Background()
	lib, err := NewDirLibrary(t.TempDir(), nil)
	require.NoError(t, err)

	require.NoError(t, lib.AddFile(ctx, "b.md", []byte("b"), FileMeta{}))
	require.NoError(t, lib.AddFile(ctx, "a.md", []byte("a"), FileMeta{}))

	names, err := lib.ListFiles(ctx)
	require.NoError(t, err)
	// metadata.json is not listed, and names come back sorted
	assert.Equal(t, []string{"a.md", "b.md"}, names)
}

func TestDirLibraryRejectsPathTraversal(t *testing.T) {
	ctx := context.Background()
	lib, err := NewDirLibrary(t.TempDir(), nil)
	require.NoError(t, err)

	assert.Error(t, lib.AddFile(ctx, "../escape.md", []byte("x"), FileMeta{}))
	_, err = lib.ReadFile(ctx, "sub/dir.md")
	assert.Error(t, err)
}
