package git

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/gitbutlerapp/workspace-engine/internal/silog/silogtest"
)

func TestUpdateTree(t *testing.T) {
	ctx := context.Background()
	repo, err := Init(ctx, t.TempDir(), InitOptions{
		Log: silogtest.New(t),
	})
	require.NoError(t, err)

	writeBlob := func(body string) Hash {
		hash, err := repo.WriteObject(ctx, BlobType, strings.NewReader(body))
		require.NoError(t, err)
		return hash
	}

	files := map[string]string{
		"top_level":                 "top level file",
		"dir/a":                     "file in dir",
		"dir/b":                     "another file in dir",
		"dir/subdir/c":              "file in subdir",
		"dir/subdir/d":              "another file in subdir",
		"dir/e":                     "back to dir",
		"super/deeply/nested/dir/f": "file in super deeply nested dir",
		"dir/subdir/g/h":            "back to subdir",
	}

	writes := func(yield func(BlobInfo) bool) {
		for path, body := range files {
			if !yield(BlobInfo{Path: path, Mode: RegularMode, Hash: writeBlob(body)}) {
				return
			}
		}
	}

	hash, err := repo.UpdateTree(ctx, UpdateTreeRequest{
		Tree:   EmptyTreeHash,
		Writes: writes,
	})
	require.NoError(t, err)

	// Overwrite one of the files and delete another.
	files["dir/subdir/c"] = "overwritten file in subdir"
	hash, err = repo.UpdateTree(ctx, UpdateTreeRequest{
		Tree: hash,
		Writes: func(yield func(BlobInfo) bool) {
			yield(BlobInfo{Path: "dir/subdir/c", Mode: RegularMode, Hash: writeBlob(files["dir/subdir/c"])})
		},
		Deletes: func(yield func(string) bool) {
			yield("top_level")
		},
	})
	require.NoError(t, err)
	delete(files, "top_level")

	items, err := repo.ListTree(ctx, hash, ListTreeOptions{Recurse: true})
	require.NoError(t, err)

	got := make(map[string]string)
	for item, err := range items {
		require.NoError(t, err)
		if item.Type != BlobType {
			continue
		}

		var buf strings.Builder
		require.NoError(t, repo.ReadObject(ctx, BlobType, item.Hash, &buf))
		got[item.Name] = buf.String()
	}

	// Recursive ls-tree lists each blob by its full path;
	// the deleted file must no longer be among them.
	require.NotContains(t, got, "top_level")
}
