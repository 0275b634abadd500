// Package graph projects the raw Git commit DAG, combined with the
// ref-metadata store, into a named, segmented, stack-aware view of history:
// the shape higher layers (UI, CLI) reason about instead of talking to Git
// directly.
package graph

import (
	"strings"

	"github.com/gitbutlerapp/workspace-engine/internal/git"
	"github.com/gitbutlerapp/workspace-engine/internal/refmeta"
)

// workspaceMarker begins the message of a workspace commit; this package
// only reads it and creates no commits. It must stay stable across versions: once written,
// a commit's status as "the" workspace commit is recognized only by this
// prefix plus its first parent being the target.
const workspaceMarker = "GitButler Workspace Commit"

// ChangeID is a per-commit identifier carried in a trailer of the commit
// message. Unlike the commit id, it survives cherry-picks and rebases,
// letting the projection recognize "same logical change, different commit".
type ChangeID string

const changeIDTrailer = "Change-Id: "

// changeIDFromMessage extracts the Change-Id trailer from a commit message,
// if present.
func changeIDFromMessage(message string) ChangeID {
	for _, line := range strings.Split(message, "\n") {
		line = strings.TrimSpace(line)
		if id, ok := strings.CutPrefix(line, changeIDTrailer); ok {
			return ChangeID(id)
		}
	}
	return ""
}

// conflictTrailer marks a commit as the conflicted product of a rebase.
const conflictTrailer = "Conflicted: true"

func hasConflictMarker(message string) bool {
	for _, line := range strings.Split(message, "\n") {
		if strings.TrimSpace(line) == conflictTrailer {
			return true
		}
	}
	return false
}

// RefInfo names a ref pointing at a commit, together with the workspace
// flags that depend on where it sits relative to the projected history.
type RefInfo struct {
	// Name is the ref's full path, e.g. "refs/heads/main".
	Name refmeta.FullRefName

	// InWorkspace reports whether this ref is reachable from the
	// projected workspace (or is the workspace ref itself).
	InWorkspace bool
}

// CommitFlag is a bitset of status flags computed for a [Commit] during
// projection.
type CommitFlag uint8

const (
	// FlagNotInRemote marks a commit not reachable from its segment's
	// remote-tracking ref. Other remote-tracking refs are not consulted.
	FlagNotInRemote CommitFlag = 1 << iota

	// FlagReachableByRemote marks a commit that is the tip of its
	// segment's remote-tracking ref or an ancestor of it. Matching is by
	// commit id only; change-ids are not compared.
	FlagReachableByRemote

	// FlagIntegrated marks a commit that is the target branch tip (or the
	// extra target commit) or an ancestor of it. Matching is by commit id
	// only; change-ids are not compared.
	FlagIntegrated
)

// Has reports whether f includes every bit in other.
func (f CommitFlag) Has(other CommitFlag) bool {
	return f&other == other
}

// Commit is a Git commit as consumed by the projection: a read-only
// snapshot created on demand from Git and discarded after one projection.
type Commit struct {
	// ID is the commit's own hash.
	ID git.Hash

	// TreeID is the hash of the tree this commit records.
	TreeID git.Hash

	// ParentIDs are the hashes of the commit's parents, in Git's order.
	ParentIDs []git.Hash

	Author  git.Signature
	Message git.CommitMessage

	// ChangeID is the commit's stable per-logical-change identifier,
	// if its message carries one.
	ChangeID ChangeID

	// HasConflicts reports whether this commit was produced as a
	// conflicted rebase result.
	HasConflicts bool

	// Refs are the refs that point directly at this commit.
	Refs []RefInfo

	// Flags are this commit's computed status bits.
	Flags CommitFlag
}

// IsWorkspaceCommit reports whether c looks like a workspace commit: its
// message begins with the tool's structured marker. The caller is still
// responsible for checking that the first parent is the target commit;
// the marker alone does not prove it.
func (c Commit) IsWorkspaceCommit() bool {
	return strings.HasPrefix(c.Message.Subject, workspaceMarker)
}

func commitFromHeader(h git.CommitHeader, refs []RefInfo) Commit {
	return Commit{
		ID:           h.ID,
		TreeID:       h.TreeID,
		ParentIDs:    h.ParentIDs,
		Author:       h.Author,
		Message:      h.Message,
		ChangeID:     changeIDFromMessage(h.Message.String()),
		HasConflicts: hasConflictMarker(h.Message.String()),
		Refs:         refs,
	}
}

// CommitRelationKind classifies a [LocalCommit] relative to its segment's
// remote-tracking ref and the workspace target.
type CommitRelationKind int

const (
	// RelationLocalOnly means the commit exists only locally.
	RelationLocalOnly CommitRelationKind = iota

	// RelationLocalAndRemote means an equivalent commit exists on the
	// remote-tracking branch.
	RelationLocalAndRemote

	// RelationIntegrated means the commit is already contained in the
	// target branch's history (or the extra target commit's). Squash-merged
	// equivalents are not detected.
	RelationIntegrated
)

// CommitRelation is the (kind, witness) pair LocalCommit adds to Commit.
type CommitRelation struct {
	Kind CommitRelationKind

	// RemoteID is set when Kind is RelationLocalAndRemote: the tip of the
	// segment's remote-tracking ref, which contains this commit. It is not
	// resolved to a specific equivalent commit.
	RemoteID git.Hash

	// ContainedIn is set when Kind is RelationIntegrated: the tip of the
	// workspace target branch, or empty when no target ref is configured
	// (even if the commit was classified through the extra target). It is
	// not resolved to a specific equivalent commit.
	ContainedIn git.Hash
}

// LocalCommit is a [Commit] that belongs to a segment in the projected
// graph, with its relation to the remote and the target resolved.
type LocalCommit struct {
	Commit
	Relation CommitRelation
}
