// Package treebuilder turns a set of file-level or hunk-level selections
// against the live worktree into a new Git tree, optionally cherry-picked
// onto a target tree when the selections were made against a different
// base. It is the core of commit creation and commit amendment: callers
// collect the commit message and parents themselves and just need a tree.
package treebuilder

import (
	"github.com/gitbutlerapp/workspace-engine/internal/git"
	"github.com/gitbutlerapp/workspace-engine/internal/hunkassign"
)

// HunkHeader reuses the hunk-assignment engine's line-range type: both
// packages describe the same unified-diff hunk shape.
type HunkHeader = hunkassign.HunkHeader

// DiffSpec selects what to commit for one file. An empty HunkHeaders
// means "take the whole current worktree content for this file"; a
// non-empty one may mix ordinary two-sided hunks with one-sided
// selections (a header with OldLines or NewLines zero), which
// toAdditiveHunks reassembles into a valid patch.
type DiffSpec struct {
	PreviousPath string // empty if the file wasn't renamed
	Path         string
	HunkHeaders  []HunkHeader
}

// RejectionReason explains why a DiffSpec didn't make it into the
// resulting tree.
type RejectionReason int

const (
	// NoEffectiveChanges means applying the spec produced no change
	// relative to the base tree (or the corresponding worktree change
	// could not be found at all).
	NoEffectiveChanges RejectionReason = iota
	// CherryPickMergeConflict means the three-way merge onto the target
	// tree could not resolve this path automatically.
	CherryPickMergeConflict
	// WorktreeFileMissingForObjectConversion means the whole-file path
	// (HunkHeaders empty) could not be converted to a Git object because
	// the on-disk file was unreadable.
	WorktreeFileMissingForObjectConversion
	// FileTooLargeOrBinary means the file's diff could not be computed at
	// the requested context size.
	FileTooLargeOrBinary
	// MissingDiffSpecAssociation means none of the spec's selected hunks
	// could be matched against the file's current worktree hunks.
	MissingDiffSpecAssociation
	// UnsupportedDirectoryEntry means the path is neither a regular file
	// nor a symlink on disk (e.g. a FIFO or a nested repository).
	UnsupportedDirectoryEntry
	// UnsupportedTreeEntry means the path's previous tree entry was a
	// tree or a commit (submodule), which hunk-level editing can't apply
	// a patch to.
	UnsupportedTreeEntry
)

func (r RejectionReason) String() string {
	switch r {
	case NoEffectiveChanges:
		return "no effective changes"
	case CherryPickMergeConflict:
		return "cherry-pick merge conflict"
	case WorktreeFileMissingForObjectConversion:
		return "worktree file missing for object conversion"
	case FileTooLargeOrBinary:
		return "file too large or binary"
	case MissingDiffSpecAssociation:
		return "missing diff spec association"
	case UnsupportedDirectoryEntry:
		return "unsupported directory entry"
	case UnsupportedTreeEntry:
		return "unsupported tree entry"
	default:
		return "unknown rejection reason"
	}
}

// RejectedSpec pairs a DiffSpec with the reason it was dropped from the
// resulting tree.
type RejectedSpec struct {
	Reason RejectionReason
	Spec   DiffSpec
}

// CreateTreeOutcome is the result of CreateTree.
type CreateTreeOutcome struct {
	RejectedSpecs []RejectedSpec

	// DestinationTree is the tree to associate with the new commit, or
	// nil if applying the specs left the base tree unchanged and no spec
	// was rejected for a cherry-pick conflict. When every spec is rejected
	// for a conflict, it is the merge of the unchanged base onto the
	// target tree.
	DestinationTree *git.Hash

	// ChangedTreePreCherryPick is the intermediate tree (base tree plus
	// the applied changes, before the three-way merge onto the target
	// tree). Callers that re-target a commit elsewhere can reuse it.
	ChangedTreePreCherryPick *git.Hash
}

// WorktreeFile is the caller-supplied view of one file's current worktree
// state, already run through the filter pipeline (so Content is in Git's
// canonical "to-git" form, not necessarily byte-identical to the file on
// disk). Producing this from the repository's worktree is a caller-side
// concern, the same way internal/hunkdeps and internal/hunkassign leave
// raw-diff parsing to their callers: this package never touches the
// working directory itself.
type WorktreeFile struct {
	// Missing is true when the path no longer exists on disk.
	Missing bool

	Mode    git.Mode
	Content []byte

	// HunksWithContext and HunksNoContext are the file's unified diff
	// against BaseContent at, respectively, the caller's chosen context
	// size and zero context. Both are required whenever a DiffSpec for
	// this path carries hunk-level selections.
	HunksWithContext []HunkHeader
	HunksNoContext   []HunkHeader

	// BaseContent is the pre-image blob content (the previous committed
	// version this file's hunks are diffed against), needed to apply a
	// subset of hunks. Empty for a newly added file.
	BaseContent []byte

	// BaseMode is the previous tree entry's mode. It is only consulted
	// for hunk-level selections, to reject attempts to patch a path that
	// used to be a subtree or a submodule.
	BaseMode git.Mode
}
