package graph

import (
	"errors"
	"fmt"

	"github.com/gitbutlerapp/workspace-engine/internal/git"
	"github.com/gitbutlerapp/workspace-engine/internal/must"
	"github.com/gitbutlerapp/workspace-engine/internal/refmeta"
)

// WorkspaceKindTag discriminates the [WorkspaceKind] variants.
type WorkspaceKindTag int

const (
	// Managed means a synthetic workspace commit exists and is current:
	// the entry point is it, or a descendant of it.
	Managed WorkspaceKindTag = iota

	// ManagedMissingWorkspaceCommit means workspace ref-metadata exists,
	// but HEAD is ahead of the workspace commit along first-parent: a
	// recoverable error state. This is the only WorkspaceKind that
	// refuses projection (see [Graph.ToWorkspace]).
	ManagedMissingWorkspaceCommit

	// AdHoc means no workspace commit exists: HEAD is treated as a
	// single implicit stack.
	AdHoc
)

// WorkspaceKind classifies how the entry point relates to the workspace
// commit.
type WorkspaceKind struct {
	Tag WorkspaceKindTag

	// RefInfo is set for Managed and ManagedMissingWorkspaceCommit: the
	// workspace ref's info.
	RefInfo *RefInfo

	// CommitsAbove lists, tip first, the commits between the entry point
	// and the workspace commit, when Tag is ManagedMissingWorkspaceCommit.
	CommitsAbove []git.Hash
}

// ErrManagedMissingWorkspaceCommit is returned by [Graph.ToWorkspace] when
// the workspace commit exists in ref-metadata but HEAD has advanced past
// it without going through the tool; the caller must reset to the
// workspace commit before continuing.
var ErrManagedMissingWorkspaceCommit = errors.New(
	"graph: HEAD is ahead of the workspace commit; reset to it to continue",
)

// Workspace is the snapshot of all stacks currently applied, projected
// from a [Graph].
type Workspace struct {
	// ID is the SegmentIndex of the workspace segment (the entry point's
	// segment, in every WorkspaceKind).
	ID SegmentIndex

	Kind WorkspaceKind

	// Stacks lists the applied stacks, reversed from DAG order: the
	// first-listed stack is the leftmost for display.
	Stacks []Stack

	// Target is the branch the workspace integrates toward, if known.
	Target refmeta.FullRefName

	// ExtraTarget is an additional integration commit, if the caller
	// supplied one via Options.
	ExtraTarget git.Hash
}

// ToWorkspace builds a [Workspace] from g, the repository's target branch
// (from ref-metadata), and any ExtraTargetCommitID the graph was built
// with.
//
// It returns [ErrManagedMissingWorkspaceCommit] as its only error case:
// every other shape (including AdHoc, which has no workspace commit at
// all) projects successfully.
func (g *Graph) ToWorkspace(repo *git.Repository, meta *refmeta.Store, extraTarget git.Hash) (*Workspace, error) {
	entry := g.Segment(g.entrypoint)
	ws := meta.Workspace(refmeta.CanonicalWorkspaceRef)

	w := &Workspace{
		ID:          g.entrypoint,
		Target:      ws.TargetRef,
		ExtraTarget: extraTarget,
	}

	switch {
	case g.workspaceCommitID != "" && g.entrypointIsOrDescendsFrom(g.workspaceCommitID):
		w.Kind = WorkspaceKind{Tag: Managed, RefInfo: entry.RefInfo}
		w.Stacks = g.stacksFromWorkspaceCommit(repo, meta)

	case !ws.IsDefault() && g.workspaceCommitID == "":
		// Workspace metadata exists, so a workspace commit is expected,
		// but the walk never found one below the entry point: HEAD has
		// moved ahead of it.
		above := g.commitsAbove(entry)
		w.Kind = WorkspaceKind{
			Tag:          ManagedMissingWorkspaceCommit,
			RefInfo:      entry.RefInfo,
			CommitsAbove: above,
		}
		return w, fmt.Errorf("%w: %d commits above", ErrManagedMissingWorkspaceCommit, len(above))

	default:
		w.Kind = WorkspaceKind{Tag: AdHoc}
		w.Stacks = []Stack{g.adHocStack(entry)}
	}

	return w, nil
}

// entrypointIsOrDescendsFrom reports whether the entry segment's walk
// passed through id: either id owns a commit in the entry segment's chain,
// or id is (via BaseSegmentIndex) an ancestor segment of it.
func (g *Graph) entrypointIsOrDescendsFrom(id git.Hash) bool {
	owner, ok := g.SegmentContaining(id)
	if !ok {
		return false
	}

	idx := g.entrypoint
	for {
		if idx == owner {
			return true
		}
		seg := g.Segment(idx)
		if seg.BaseSegmentIndex == nil {
			return false
		}
		idx = *seg.BaseSegmentIndex
	}
}

// commitsAbove lists the commits in the entry segment's chain, tip first,
// above the point where the workspace commit would be expected.
func (g *Graph) commitsAbove(entry *Segment) []git.Hash {
	ids := make([]git.Hash, 0, len(entry.Commits))
	for _, c := range entry.Commits {
		ids = append(ids, c.ID)
	}
	return ids
}

// stacksFromWorkspaceCommit builds the applied-stack list by taking each
// non-target parent of the workspace commit and walking its segment chain
// down to the merge-base with the target.
func (g *Graph) stacksFromWorkspaceCommit(repo *git.Repository, meta *refmeta.Store) []Stack {
	wsSegIdx, ok := g.SegmentContaining(g.workspaceCommitID)
	must.Bef(ok, "workspace commit %v was detected but has no owning segment", g.workspaceCommitID)

	var wsCommit *Commit
	for i, c := range g.Segment(wsSegIdx).Commits {
		if c.ID == g.workspaceCommitID {
			wsCommit = &g.Segment(wsSegIdx).Commits[i].Commit
			break
		}
	}
	must.Bef(wsCommit != nil, "workspace commit %v not found in its own segment", g.workspaceCommitID)

	ws := meta.Workspace(refmeta.CanonicalWorkspaceRef)
	stackOrder := make(map[refmeta.StackId]int, len(ws.Stacks))
	for i, s := range ws.Stacks {
		stackOrder[s.ID] = i
	}

	var stacks []Stack
	for _, parent := range wsCommit.ParentIDs[1:] { // [0] is the target
		tipIdx, ok := g.SegmentContaining(parent)
		if !ok {
			continue
		}

		stack := Stack{Segments: []SegmentIndex{tipIdx}}
		if tip := g.Segment(tipIdx); tip.RefInfo != nil {
			if br := meta.Branch(tip.RefInfo.Name); br.StackID != "" {
				stack.ID = br.StackID
			}
		}

		idx := tipIdx
		for {
			seg := g.Segment(idx)
			if seg.BaseSegmentIndex == nil {
				stack.Base = seg.Base
				break
			}
			if seg.Base == g.targetCommitOf(wsCommit) {
				stack.Base = seg.Base
				break
			}
			idx = *seg.BaseSegmentIndex
			stack.Segments = append(stack.Segments, idx)
		}

		stacks = append(stacks, stack)
	}

	// Reverse from DAG (parent) order for display: first-listed = leftmost.
	for i, j := 0, len(stacks)-1; i < j; i, j = i+1, j-1 {
		stacks[i], stacks[j] = stacks[j], stacks[i]
	}

	_ = stackOrder // reserved for a future persisted-order tie-break
	return stacks
}

func (g *Graph) targetCommitOf(wsCommit *Commit) git.Hash {
	if len(wsCommit.ParentIDs) == 0 {
		return ""
	}
	return wsCommit.ParentIDs[0]
}

// adHocStack builds the single implicit stack used when no workspace
// commit exists: the entry segment and everything reachable below it.
func (g *Graph) adHocStack(entry *Segment) Stack {
	stack := Stack{Segments: []SegmentIndex{entry.Index}}
	idx := entry.Index
	for {
		seg := g.Segment(idx)
		if seg.BaseSegmentIndex == nil {
			stack.Base = seg.Base
			return stack
		}
		idx = *seg.BaseSegmentIndex
		stack.Segments = append(stack.Segments, idx)
	}
}
