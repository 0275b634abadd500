package hunkdeps_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitbutlerapp/workspace-engine/internal/hunkdeps"
)

// TestWorkspaceRanges_SingleStackLineShift mirrors the canonical
// hunk-dependency scenario: a 9-line file, one commit touching line 3
// (net +1 line), a second touching what was originally line 7 and is now
// line 8. Querying line 4 attributes to the first commit, line 8 to the
// second, and neither commit depends on the other.
func TestWorkspaceRanges_SingleStackLineShift(t *testing.T) {
	ws := hunkdeps.CreateWorkspaceRanges([]hunkdeps.InputStack{
		{
			StackID: stackID,
			Commits: []hunkdeps.InputCommit{
				{
					CommitID: "A",
					Files: []hunkdeps.InputFile{{
						Path:  "file.txt",
						Diffs: []hunkdeps.InputDiff{{OldStart: 3, OldLines: 1, NewStart: 3, NewLines: 2, ChangeType: hunkdeps.Modified}},
					}},
				},
				{
					CommitID: "B",
					Files: []hunkdeps.InputFile{{
						Path:  "file.txt",
						Diffs: []hunkdeps.InputDiff{{OldStart: 8, OldLines: 1, NewStart: 8, NewLines: 1, ChangeType: hunkdeps.Modified}},
					}},
				},
			},
		},
	})
	require.Empty(t, ws.Errors)

	line4 := ws.Intersection("file.txt", 4, 1)
	require.Len(t, line4, 1)
	assert.Equal(t, hunkdeps.CommitID("A"), line4[0].CommitID)

	line8 := ws.Intersection("file.txt", 8, 1)
	require.Len(t, line8, 1)
	assert.Equal(t, hunkdeps.CommitID("B"), line8[0].CommitID)

	assert.Empty(t, ws.CommitDependencies[stackID]["A"])
	assert.Empty(t, ws.CommitDependencies[stackID]["B"])
	assert.Empty(t, ws.InverseCommitDependencies[stackID]["A"])
	assert.Empty(t, ws.InverseCommitDependencies[stackID]["B"])
}

// TestWorkspaceRanges_CombinesDisjointStacks checks that two stacks
// touching different, non-overlapping parts of the same path interleave
// by position, with each stack's own net line growth shifting the other
// stack's later hunks.
func TestWorkspaceRanges_CombinesDisjointStacks(t *testing.T) {
	const stackA hunkdeps.StackID = "stack-a"
	const stackB hunkdeps.StackID = "stack-b"

	ws := hunkdeps.CreateWorkspaceRanges([]hunkdeps.InputStack{
		{
			StackID: stackA,
			Commits: []hunkdeps.InputCommit{{
				CommitID: "a1",
				Files: []hunkdeps.InputFile{{
					Path:  "shared.txt",
					Diffs: []hunkdeps.InputDiff{{OldStart: 1, OldLines: 0, NewStart: 1, NewLines: 2, ChangeType: hunkdeps.Modified}},
				}},
			}},
		},
		{
			StackID: stackB,
			Commits: []hunkdeps.InputCommit{{
				CommitID: "b1",
				Files: []hunkdeps.InputFile{{
					Path:  "shared.txt",
					Diffs: []hunkdeps.InputDiff{{OldStart: 10, OldLines: 0, NewStart: 10, NewLines: 1, ChangeType: hunkdeps.Modified}},
				}},
			}},
		},
	})
	require.Empty(t, ws.Errors)

	// stack-a's two-line insertion at the very top pushes stack-b's hunk,
	// originally at local position 10, down by two in the combined view.
	at12 := ws.Intersection("shared.txt", 12, 1)
	require.Len(t, at12, 1)
	assert.Equal(t, hunkdeps.CommitID("b1"), at12[0].CommitID)
	assert.Equal(t, stackB, at12[0].StackID)

	at1 := ws.Intersection("shared.txt", 1, 1)
	require.Len(t, at1, 1)
	assert.Equal(t, hunkdeps.CommitID("a1"), at1[0].CommitID)
}

// TestWorkspaceRanges_CollectsErrorsWithoutAborting checks that one
// stack's bad commit doesn't prevent the rest of the input from being
// reflected in the result.
func TestWorkspaceRanges_CollectsErrorsWithoutAborting(t *testing.T) {
	ws := hunkdeps.CreateWorkspaceRanges([]hunkdeps.InputStack{
		{
			StackID: stackID,
			Commits: []hunkdeps.InputCommit{
				{
					CommitID: "bad",
					Files: []hunkdeps.InputFile{{
						Path:  "never-created.txt",
						Diffs: []hunkdeps.InputDiff{{OldStart: 1, OldLines: 1, NewStart: 0, NewLines: 0, ChangeType: hunkdeps.Deleted}},
					}},
				},
				{
					CommitID: "good",
					Files: []hunkdeps.InputFile{{
						Path:  "ok.txt",
						Diffs: []hunkdeps.InputDiff{{OldStart: 0, OldLines: 0, NewStart: 1, NewLines: 4, ChangeType: hunkdeps.Added}},
					}},
				},
			},
		},
	})

	require.Len(t, ws.Errors, 1)
	assert.ErrorIs(t, ws.Errors[0], hunkdeps.ErrDeletionOfUnknownFile)
	assert.Equal(t, "never-created.txt", ws.Errors[0].Path)

	ok := ws.Intersection("ok.txt", 2, 1)
	require.Len(t, ok, 1)
	assert.Equal(t, hunkdeps.CommitID("good"), ok[0].CommitID)
}
