// Package hunkdeps computes which commit last touched each line range of a
// tracked file, so that editing a line can be attributed back to the commit
// that produced it — across a single stack's commits, and across every
// stack applied to a workspace.
package hunkdeps

import (
	"errors"
	"fmt"

	"github.com/gitbutlerapp/workspace-engine/internal/git"
	"github.com/gitbutlerapp/workspace-engine/internal/refmeta"
)

// StackID identifies the stack a commit belongs to.
type StackID = refmeta.StackId

// CommitID identifies a single commit.
type CommitID = git.Hash

// ChangeType classifies how a diff changed a file.
type ChangeType int

const (
	Modified ChangeType = iota
	Added
	Deleted
	Renamed
)

func (c ChangeType) String() string {
	switch c {
	case Modified:
		return "modified"
	case Added:
		return "added"
	case Deleted:
		return "deleted"
	case Renamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// InputDiff is one hunk of a file's change, already minimized to the
// smallest old/new line span that actually differs — no leading or
// trailing context lines. Line numbers are 1-based; a zero-width range
// (Lines == 0) denotes an insertion or deletion point rather than a
// replaced span.
type InputDiff struct {
	OldStart   int
	OldLines   int
	NewStart   int
	NewLines   int
	ChangeType ChangeType
}

func (d InputDiff) oldEnd() int { return d.OldStart + d.OldLines }
func (d InputDiff) newEnd() int { return d.NewStart + d.NewLines }
func (d InputDiff) netShift() int { return d.NewLines - d.OldLines }

func (d InputDiff) validate() error {
	if d.OldStart < 0 || d.OldLines < 0 || d.NewStart < 0 || d.NewLines < 0 {
		return fmt.Errorf("%w: negative start or line count", ErrMalformedDiffHeader)
	}
	return nil
}

// InputFile is every hunk touching one path within a single commit.
type InputFile struct {
	Path  string
	Diffs []InputDiff
}

// InputCommit is every file a single commit touched.
type InputCommit struct {
	CommitID CommitID
	Files    []InputFile
}

// InputStack is one stack's commits, oldest first.
type InputStack struct {
	StackID StackID
	Commits []InputCommit
}

// HunkRange attributes a span of a file's current line numbers to the
// commit that last wrote them. Start/Lines are expressed in the
// coordinates of the file as it stands after every commit processed so
// far; LineShift is the net line-count delta (new minus old) that the
// defining diff itself introduced, fixed at creation time and used by
// downstream aggregation to keep other stacks' ranges in sync.
type HunkRange struct {
	ChangeType ChangeType
	StackID    StackID
	CommitID   CommitID
	Start      int
	Lines      int
	LineShift  int
}

func (r HunkRange) end() int { return r.Start + r.Lines }

// deletionSentinel reports whether r stands in for "this path does not
// exist", the collapsed state left behind by a Deleted diff.
func (r HunkRange) deletionSentinel() bool {
	return r.ChangeType == Deleted
}

// RangeCalculationError reports a single (stack, commit, path) that could
// not be folded into its PathRanges. Errors are collected, not fatal:
// one bad commit does not stop the rest of the stack from being
// processed.
type RangeCalculationError struct {
	Stack   StackID
	Commit  CommitID
	Path    string
	Err     error
}

func (e *RangeCalculationError) Error() string {
	return fmt.Sprintf("hunkdeps: stack %s commit %s path %q: %v", e.Stack, e.Commit, e.Path, e.Err)
}

func (e *RangeCalculationError) Unwrap() error { return e.Err }

var (
	// ErrFileRecreationNotAnAddition is returned when a diff touches a path
	// whose tracked state is "deleted" but the diff's change type is not
	// Added: the only way to bring a deleted path back is to add it.
	ErrFileRecreationNotAnAddition = errors.New("hunkdeps: file recreation must be an addition")

	// ErrDeletionOfUnknownFile is returned when a Deleted diff names a path
	// with no tracked state at all: nothing to delete.
	ErrDeletionOfUnknownFile = errors.New("hunkdeps: deletion of a path with no prior hunks")

	// ErrOverlappingHunksWithinStack is returned when two diffs in the same
	// InputFile describe overlapping old-line spans.
	ErrOverlappingHunksWithinStack = errors.New("hunkdeps: overlapping hunks within one commit's file")

	// ErrMalformedDiffHeader is returned for a diff whose fields cannot
	// describe a real hunk (negative offsets or counts).
	ErrMalformedDiffHeader = errors.New("hunkdeps: malformed diff header")
)
