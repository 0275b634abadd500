// Package hunkassign keeps a persistent mapping from uncommitted worktree
// hunks to the stack each is meant to land in, reconciling that mapping
// against the live worktree and against the hunk-dependency engine's locks
// on every change.
package hunkassign

import "github.com/gitbutlerapp/workspace-engine/internal/hunkdeps"

// StackID and CommitID are shared with the hunk-dependency engine: a lock
// names the same stacks and commits that engine tracks dependencies for.
type (
	StackID  = hunkdeps.StackID
	CommitID = hunkdeps.CommitID
)

// HunkHeader is a 1-based-line-coordinate description of a hunk, in the
// same shape as a unified diff's "@@ -old_start,old_lines +new_start,new_lines @@".
// old_lines == 0 or new_lines == 0 denotes a one-sided sub-selection: a
// pre-image-only or post-image-only slice, used when building a DiffSpec
// from a partial hunk selection rather than from a literal worktree diff.
type HunkHeader struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
}

// NewEnd returns the line one past the header's post-image range.
func (h HunkHeader) NewEnd() int { return h.NewStart + h.NewLines }

// HunkLock records that a hunk depends on a specific commit already in a
// stack, discovered by the hunk-dependency engine.
type HunkLock struct {
	CommitID CommitID
	StackID  StackID
}

// HunkAssignment is the persisted unit of this package: one hunk (or, for
// binary/too-large files, one whole file) and the stack it is currently
// assigned to.
type HunkAssignment struct {
	// HunkHeader is nil for a whole-file assignment (binary content, or a
	// file too large to diff); in that case Path alone identifies it.
	HunkHeader *HunkHeader
	Path       string
	// StackID is nil when the hunk is not assigned to any stack.
	StackID   *StackID
	HunkLocks []HunkLock
}

// Equal reports identity as same path and same hunk header, ignoring
// StackID and HunkLocks.
func (a HunkAssignment) Equal(other HunkAssignment) bool {
	return a.Path == other.Path && headersEqual(a.HunkHeader, other.HunkHeader)
}

func headersEqual(a, b *HunkHeader) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// intersects reports whether a and other overlap: same path, and either an
// identical header or one header's post-image range contains the other's
// start line. Two whole-file assignments for the same path always
// intersect (nil headers compare equal).
func (a HunkAssignment) intersects(other HunkAssignment) bool {
	if a.Equal(other) {
		return true
	}
	if a.Path != other.Path {
		return false
	}
	if headersEqual(a.HunkHeader, other.HunkHeader) {
		return true
	}
	if a.HunkHeader == nil || other.HunkHeader == nil {
		return false
	}
	h, o := *a.HunkHeader, *other.HunkHeader
	if h.NewStart >= o.NewStart && h.NewStart < o.NewEnd() {
		return true
	}
	if o.NewStart >= h.NewStart && o.NewStart < h.NewEnd() {
		return true
	}
	return false
}

// HunkAssignmentRequest is an explicit request, typically from a UI client,
// to move one hunk to a given stack (or to StackID == nil, unassigning it).
type HunkAssignmentRequest struct {
	HunkHeader *HunkHeader
	Path       string
	StackID    *StackID
}

// matches reports whether req identifies the same hunk as assignment.
func (req HunkAssignmentRequest) matches(assignment HunkAssignment) bool {
	return req.Path == assignment.Path && headersEqual(req.HunkHeader, assignment.HunkHeader)
}

// AssignmentRejection is returned for every request whose resulting
// assignment did not end up on the requested stack, because the
// dependency engine's locks forced it elsewhere (or to unassigned).
type AssignmentRejection struct {
	Request HunkAssignmentRequest
	Locks   []HunkLock
}
