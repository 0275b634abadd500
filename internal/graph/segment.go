package graph

import (
	"github.com/gitbutlerapp/workspace-engine/internal/git"
	"github.com/gitbutlerapp/workspace-engine/internal/refmeta"
)

// SegmentIndex indexes a [Segment] within a [Graph]'s arena. It is only
// meaningful relative to the Graph that produced it.
type SegmentIndex int

// PushStatus summarizes a segment's relationship to its remote-tracking
// ref. The projection does not compute it: every segment it builds
// carries PushStatusUnknown.
type PushStatus int

const (
	// PushStatusUnknown applies to segments with no ref at the tip, or
	// no configured remote-tracking ref: pushing is not applicable.
	PushStatusUnknown PushStatus = iota

	// PushStatusUpToDate means the local and remote tips agree.
	PushStatusUpToDate

	// PushStatusLocalOnly means the branch has never been pushed, or the
	// remote-tracking ref does not exist.
	PushStatusLocalOnly

	// PushStatusNeedsPush means every commit ahead of the remote is a
	// fast-forward: all commits are new or already integrated, none
	// diverge from what is on the remote.
	PushStatusNeedsPush

	// PushStatusDiverged means local and remote both carry commits the
	// other lacks: a force-push (or rebase) is needed to reconcile them.
	PushStatusDiverged
)

func (s PushStatus) String() string {
	switch s {
	case PushStatusUpToDate:
		return "up-to-date"
	case PushStatusLocalOnly:
		return "local-only"
	case PushStatusNeedsPush:
		return "needs-push"
	case PushStatusDiverged:
		return "diverged"
	default:
		return "unknown"
	}
}

// Segment is a maximal run of commits reachable along first-parent with no
// named ref pointing into its interior.
type Segment struct {
	// Index is this segment's id within its Graph's arena.
	Index SegmentIndex

	// RefInfo is the name at the segment tip, if any. Anonymous segments
	// (no ref at the tip) have a nil RefInfo.
	RefInfo *RefInfo

	// RemoteTrackingRefName is the ref this segment's tip tracks, if any.
	RemoteTrackingRefName refmeta.FullRefName

	// Commits are this segment's own commits, tip first.
	//
	// Invariant: Commits[i].ParentIDs[0] == Commits[i+1].ID for every i
	// except the last, whose first parent is Base.
	Commits []LocalCommit

	// CommitsOnRemote are commits reachable from RemoteTrackingRefName
	// that are not yet present locally.
	CommitsOnRemote []Commit

	// CommitsOutside holds commits reachable from this segment by a
	// non-first-parent edge, that a history rewrite must not lose.
	CommitsOutside []git.Hash

	// Metadata is the persisted branch record for RefInfo, if any.
	Metadata *refmeta.Branch

	// Base is the commit this segment rests on: the id of the commit
	// one step below Commits[len(Commits)-1] along first-parent. Zero
	// for a segment that reaches a root commit.
	Base git.Hash

	// BaseSegmentIndex identifies the segment Base belongs to, if that
	// segment was visited during this projection.
	BaseSegmentIndex *SegmentIndex

	// SiblingSegmentIndex links a local segment and its remote-only
	// counterpart, when a remote ref names a local commit that belongs
	// to no known local branch.
	SiblingSegmentIndex *SegmentIndex

	// PushStatus summarizes this segment's relationship to its remote.
	// The projection leaves it at PushStatusUnknown.
	PushStatus PushStatus

	// IsEntrypoint reports whether this segment contains the commit the
	// projection started walking from.
	IsEntrypoint bool

	// CutByHardLimit reports whether this segment's walk stopped early
	// because the graph's hard commit limit was reached; its Base and
	// BaseSegmentIndex are not meaningful when this is true.
	CutByHardLimit bool
}

// Tip returns the hash of the segment's topmost commit, or Base if the
// segment has no commits of its own (a pure insertion point).
func (s *Segment) Tip() git.Hash {
	if len(s.Commits) == 0 {
		return s.Base
	}
	return s.Commits[0].ID
}
