package hunkassign

import "github.com/gitbutlerapp/workspace-engine/internal/hunkdeps"

// ChangeKind classifies how a worktree file change is represented to this
// package. Producing one from a real diff (binary detection, too-large
// thresholds, unified-diff hunk extraction) is a caller-side concern, the
// same way internal/hunkdeps leaves InputDiff minimization to its caller.
type ChangeKind int

const (
	// ChangePatch is a normal textual change with zero or more hunks. Zero
	// hunks (e.g. a mode-only change) is treated as a whole-file unit.
	ChangePatch ChangeKind = iota
	// ChangeBinary is a file whose content is not diffable line-by-line.
	ChangeBinary
	// ChangeTooLarge is a file skipped for being too big to diff.
	ChangeTooLarge
)

// WorktreeChange is one file's worth of uncommitted change, as seen in the
// live worktree diff.
type WorktreeChange struct {
	Path  string
	Kind  ChangeKind
	Hunks []HunkHeader
}

// diffToAssignments turns one worktree change into the unassigned
// HunkAssignments it implies: one per hunk, or one whole-file entry when
// the change has no line-level hunks to offer.
func diffToAssignments(change WorktreeChange) []HunkAssignment {
	if change.Kind != ChangePatch || len(change.Hunks) == 0 {
		return []HunkAssignment{{Path: change.Path}}
	}

	out := make([]HunkAssignment, len(change.Hunks))
	for i, hunk := range change.Hunks {
		h := hunk
		out[i] = HunkAssignment{HunkHeader: &h, Path: change.Path}
	}
	return out
}

// hunkDependencyAssignments derives one HunkAssignment per hunk across all
// changes, carrying only the locks the hunk-dependency engine reports for
// that hunk's pre-image range — not a real worktree-derived assignment, but
// the shape reconcileAssignments expects from a "prior" set of locks.
//
// A hunk locked to more than one distinct stack is left unassigned: that is
// the "double locking" state the UI surfaces by asking the user to commit
// hunks separately.
func hunkDependencyAssignments(ws *hunkdeps.WorkspaceRanges, changes []WorktreeChange) []HunkAssignment {
	var out []HunkAssignment
	for _, change := range changes {
		if change.Kind != ChangePatch {
			continue
		}
		for _, hunk := range change.Hunks {
			h := hunk
			locks := locksForHunk(ws, change.Path, h)
			out = append(out, HunkAssignment{
				HunkHeader: &h,
				Path:       change.Path,
				StackID:    soleLockStackID(locks),
				HunkLocks:  locks,
			})
		}
	}
	return out
}

// locksForHunk reports which committed ranges a hunk's pre-image span
// overlaps, deduplicated by (commit, stack).
func locksForHunk(ws *hunkdeps.WorkspaceRanges, path string, header HunkHeader) []HunkLock {
	ranges := ws.Intersection(path, header.OldStart, header.OldLines)
	var locks []HunkLock
	seen := make(map[HunkLock]bool)
	for _, r := range ranges {
		lock := HunkLock{CommitID: r.CommitID, StackID: r.StackID}
		if seen[lock] {
			continue
		}
		seen[lock] = true
		locks = append(locks, lock)
	}
	return locks
}

// soleLockStackID returns the one stack id every lock agrees on, or nil if
// locks is empty or names more than one distinct stack.
func soleLockStackID(locks []HunkLock) *StackID {
	distinct := make(map[StackID]bool)
	for _, lock := range locks {
		distinct[lock.StackID] = true
	}
	if len(distinct) != 1 {
		return nil
	}
	stack := locks[0].StackID
	return &stack
}
