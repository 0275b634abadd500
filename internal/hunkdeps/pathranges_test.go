package hunkdeps_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitbutlerapp/workspace-engine/internal/hunkdeps"
)

const stackID hunkdeps.StackID = "stack-1"

func TestPathRanges_FirstEditOnEmptyFile(t *testing.T) {
	var pr hunkdeps.PathRanges

	// "1\n2\n3\n+4\n5\n6\n7": a pure insertion of line 4 into an
	// already-existing 6-line file, minimized to its actual changed span.
	_, err := pr.Add(stackID, "a", []hunkdeps.InputDiff{
		{OldStart: 4, OldLines: 0, NewStart: 4, NewLines: 1, ChangeType: hunkdeps.Modified},
	})
	require.NoError(t, err)

	assert.Len(t, pr.Intersection(4, 1), 1)
	assert.Equal(t, hunkdeps.CommitID("a"), pr.Intersection(4, 1)[0].CommitID)
}

func TestPathRanges_DeleteThenRecreate(t *testing.T) {
	var pr hunkdeps.PathRanges

	_, err := pr.Add(stackID, "a", []hunkdeps.InputDiff{
		{OldStart: 0, OldLines: 0, NewStart: 1, NewLines: 7, ChangeType: hunkdeps.Added},
	})
	require.NoError(t, err)
	require.Equal(t, []hunkdeps.HunkRange{
		{ChangeType: hunkdeps.Added, StackID: stackID, CommitID: "a", Start: 1, Lines: 7, LineShift: 7},
	}, pr.Ranges())

	// Line 4 changes within the added file: splits the Added range in two
	// and attributes the touched line to the new commit.
	deps, err := pr.Add(stackID, "b", []hunkdeps.InputDiff{
		{OldStart: 4, OldLines: 1, NewStart: 4, NewLines: 1, ChangeType: hunkdeps.Modified},
	})
	require.NoError(t, err)
	assert.Equal(t, []hunkdeps.CommitID{"a"}, deps)
	require.Equal(t, []hunkdeps.HunkRange{
		{ChangeType: hunkdeps.Added, StackID: stackID, CommitID: "a", Start: 1, Lines: 3, LineShift: 7},
		{ChangeType: hunkdeps.Modified, StackID: stackID, CommitID: "b", Start: 4, Lines: 1, LineShift: 0},
		{ChangeType: hunkdeps.Added, StackID: stackID, CommitID: "a", Start: 5, Lines: 3, LineShift: 7},
	}, pr.Ranges())

	// The whole file is deleted: every tracked range collapses to one
	// sentinel.
	_, err = pr.Add(stackID, "c", []hunkdeps.InputDiff{
		{OldStart: 1, OldLines: 7, NewStart: 0, NewLines: 0, ChangeType: hunkdeps.Deleted},
	})
	require.NoError(t, err)
	require.Len(t, pr.Ranges(), 1)
	assert.Equal(t, hunkdeps.CommitID("c"), pr.Ranges()[0].CommitID)

	// Recreating the file after deletion must be an Added diff.
	_, err = pr.Add(stackID, "x", []hunkdeps.InputDiff{
		{OldStart: 1, OldLines: 7, NewStart: 1, NewLines: 7, ChangeType: hunkdeps.Modified},
	})
	assert.ErrorIs(t, err, hunkdeps.ErrFileRecreationNotAnAddition)

	deps, err = pr.Add(stackID, "d", []hunkdeps.InputDiff{
		{OldStart: 0, OldLines: 0, NewStart: 1, NewLines: 5, ChangeType: hunkdeps.Added},
	})
	require.NoError(t, err)
	assert.Empty(t, deps)

	intersection := pr.Intersection(1, 1)
	require.Len(t, intersection, 1)
	assert.Equal(t, hunkdeps.CommitID("d"), intersection[0].CommitID)
}

func TestPathRanges_DeletingUnknownFileIsAnError(t *testing.T) {
	var pr hunkdeps.PathRanges
	_, err := pr.Add(stackID, "a", []hunkdeps.InputDiff{
		{OldStart: 1, OldLines: 7, NewStart: 0, NewLines: 0, ChangeType: hunkdeps.Deleted},
	})
	assert.ErrorIs(t, err, hunkdeps.ErrDeletionOfUnknownFile)
}

func TestPathRanges_BasicLineShift(t *testing.T) {
	var pr hunkdeps.PathRanges

	// "a\n+b\na\na\na": inserting "b" after line 1.
	_, err := pr.Add(stackID, "a", []hunkdeps.InputDiff{
		{OldStart: 2, OldLines: 0, NewStart: 2, NewLines: 1, ChangeType: hunkdeps.Modified},
	})
	require.NoError(t, err)
	require.Equal(t, []hunkdeps.HunkRange{
		{ChangeType: hunkdeps.Modified, StackID: stackID, CommitID: "a", Start: 2, Lines: 1, LineShift: 1},
	}, pr.Ranges())

	// "+c\na\nb\na": inserting "c" before line 1, shifting the first commit's
	// range down by one.
	deps, err := pr.Add(stackID, "b", []hunkdeps.InputDiff{
		{OldStart: 1, OldLines: 0, NewStart: 1, NewLines: 1, ChangeType: hunkdeps.Modified},
	})
	require.NoError(t, err)
	assert.Empty(t, deps, "a pure insertion before an existing range shifts it but does not depend on it")
	require.Equal(t, []hunkdeps.HunkRange{
		{ChangeType: hunkdeps.Modified, StackID: stackID, CommitID: "b", Start: 1, Lines: 1, LineShift: 1},
		{ChangeType: hunkdeps.Modified, StackID: stackID, CommitID: "a", Start: 3, Lines: 1, LineShift: 1},
	}, pr.Ranges())

	result := pr.Intersection(1, 1)
	require.Len(t, result, 1)
	assert.Equal(t, hunkdeps.CommitID("b"), result[0].CommitID)
}

func TestPathRanges_OverwriteLine(t *testing.T) {
	var pr hunkdeps.PathRanges

	_, err := pr.Add(stackID, "a", []hunkdeps.InputDiff{
		{OldStart: 4, OldLines: 0, NewStart: 4, NewLines: 1, ChangeType: hunkdeps.Modified},
	})
	require.NoError(t, err)

	deps, err := pr.Add(stackID, "b", []hunkdeps.InputDiff{
		{OldStart: 4, OldLines: 1, NewStart: 4, NewLines: 1, ChangeType: hunkdeps.Modified},
	})
	require.NoError(t, err)
	assert.Equal(t, []hunkdeps.CommitID{"a"}, deps)

	result := pr.Intersection(3, 3)
	require.Len(t, result, 1)
	assert.Equal(t, hunkdeps.CommitID("b"), result[0].CommitID)
}

// TestPathRanges_SixCommitChain runs six sequential edits to one file,
// checking the tracked ranges after every commit. Each diff below is
// already reduced to its minimal changed span, as a caller sitting in
// front of this package (diffing a commit against its parent tree) is
// expected to produce.
func TestPathRanges_SixCommitChain(t *testing.T) {
	var pr hunkdeps.PathRanges

	// commit1: insert "b" after line 1.
	_, err := pr.Add(stackID, "commit1", []hunkdeps.InputDiff{
		{OldStart: 2, OldLines: 0, NewStart: 2, NewLines: 1, ChangeType: hunkdeps.Modified},
	})
	require.NoError(t, err)

	// commit2: insert "c" before line 1, shifting commit1's range down.
	_, err = pr.Add(stackID, "commit2", []hunkdeps.InputDiff{
		{OldStart: 1, OldLines: 0, NewStart: 1, NewLines: 1, ChangeType: hunkdeps.Modified},
	})
	require.NoError(t, err)
	require.Equal(t, []hunkdeps.HunkRange{
		{ChangeType: hunkdeps.Modified, StackID: stackID, CommitID: "commit2", Start: 1, Lines: 1, LineShift: 1},
		{ChangeType: hunkdeps.Modified, StackID: stackID, CommitID: "commit1", Start: 3, Lines: 1, LineShift: 1},
	}, pr.Ranges())

	// commit3: replace commit2's line and the one after it with one line,
	// net one line shorter.
	deps, err := pr.Add(stackID, "commit3", []hunkdeps.InputDiff{
		{OldStart: 1, OldLines: 2, NewStart: 1, NewLines: 1, ChangeType: hunkdeps.Modified},
	})
	require.NoError(t, err)
	assert.Equal(t, []hunkdeps.CommitID{"commit2"}, deps)
	require.Equal(t, []hunkdeps.HunkRange{
		{ChangeType: hunkdeps.Modified, StackID: stackID, CommitID: "commit3", Start: 1, Lines: 1, LineShift: -1},
		{ChangeType: hunkdeps.Modified, StackID: stackID, CommitID: "commit1", Start: 2, Lines: 1, LineShift: 1},
	}, pr.Ranges())

	// commit4: insert two lines after the untouched tail, no overlap.
	deps, err = pr.Add(stackID, "commit4", []hunkdeps.InputDiff{
		{OldStart: 3, OldLines: 0, NewStart: 3, NewLines: 2, ChangeType: hunkdeps.Modified},
	})
	require.NoError(t, err)
	assert.Empty(t, deps)
	require.Equal(t, []hunkdeps.HunkRange{
		{ChangeType: hunkdeps.Modified, StackID: stackID, CommitID: "commit3", Start: 1, Lines: 1, LineShift: -1},
		{ChangeType: hunkdeps.Modified, StackID: stackID, CommitID: "commit1", Start: 2, Lines: 1, LineShift: 1},
		{ChangeType: hunkdeps.Modified, StackID: stackID, CommitID: "commit4", Start: 3, Lines: 2, LineShift: 2},
	}, pr.Ranges())

	// commit5: overlaps commit1's single line and the start of commit4's
	// pair, absorbing commit1's range and trimming commit4's.
	deps, err = pr.Add(stackID, "commit5", []hunkdeps.InputDiff{
		{OldStart: 2, OldLines: 2, NewStart: 2, NewLines: 3, ChangeType: hunkdeps.Modified},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []hunkdeps.CommitID{"commit1", "commit4"}, deps)
	require.Equal(t, []hunkdeps.HunkRange{
		{ChangeType: hunkdeps.Modified, StackID: stackID, CommitID: "commit3", Start: 1, Lines: 1, LineShift: -1},
		{ChangeType: hunkdeps.Modified, StackID: stackID, CommitID: "commit5", Start: 2, Lines: 3, LineShift: 1},
		{ChangeType: hunkdeps.Modified, StackID: stackID, CommitID: "commit4", Start: 5, Lines: 1, LineShift: 2},
	}, pr.Ranges())

	// commit6: delete the first line outright, dropping commit3's range and
	// shifting everything after it.
	deps, err = pr.Add(stackID, "commit6", []hunkdeps.InputDiff{
		{OldStart: 1, OldLines: 1, NewStart: 1, NewLines: 0, ChangeType: hunkdeps.Modified},
	})
	require.NoError(t, err)
	assert.Equal(t, []hunkdeps.CommitID{"commit3"}, deps)
	assert.Equal(t, []hunkdeps.HunkRange{
		{ChangeType: hunkdeps.Modified, StackID: stackID, CommitID: "commit5", Start: 1, Lines: 3, LineShift: 1},
		{ChangeType: hunkdeps.Modified, StackID: stackID, CommitID: "commit4", Start: 4, Lines: 1, LineShift: 2},
	}, pr.Ranges())

	result := pr.Intersection(1, 1)
	require.Len(t, result, 1)
	assert.Equal(t, hunkdeps.CommitID("commit5"), result[0].CommitID)

	result = pr.Intersection(4, 1)
	require.Len(t, result, 1)
	assert.Equal(t, hunkdeps.CommitID("commit4"), result[0].CommitID)

	assert.Empty(t, pr.Intersection(5, 1))
}
