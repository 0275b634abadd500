package graph

import (
	"iter"

	"github.com/gitbutlerapp/workspace-engine/internal/git"
	"github.com/gitbutlerapp/workspace-engine/internal/must"
)

// Graph is the projected commit graph: an arena of segments keyed by
// SegmentIndex, built by one call to [FromHead] or [FromCommitTraversal].
// Cross-references between segments and stacks are indices into this
// arena rather than pointers, so the structure has no cycles to break.
//
// A Graph is immutable once built and safe to read from multiple
// goroutines; it holds no reference to the Repository it was built from.
type Graph struct {
	segments     []*Segment
	entrypoint   SegmentIndex
	hardLimitHit bool

	// commitSegment maps every visited commit to the segment that owns
	// it, for cross-lane lookups (e.g. "connections" between segments,
	// and locating a stack's bottom segment).
	commitSegment map[git.Hash]SegmentIndex

	// workspaceCommitID is the id of the detected workspace commit, or
	// "" if none was found during the walk.
	workspaceCommitID git.Hash
}

// Entrypoint returns the index of the segment containing the commit the
// projection started from.
func (g *Graph) Entrypoint() SegmentIndex {
	return g.entrypoint
}

// HardLimitHit reports whether the graph's hard commit limit was reached
// during the walk, leaving some history unexplored.
func (g *Graph) HardLimitHit() bool {
	return g.hardLimitHit
}

// Segment returns the segment at idx. idx must have been produced by this
// Graph.
func (g *Graph) Segment(idx SegmentIndex) *Segment {
	must.BeInRangef(int(idx), 0, len(g.segments), "segment index %d out of range", idx)
	return g.segments[idx]
}

// Segments iterates over every segment in the graph, in the order they
// were discovered (breadth-first from the entrypoint).
func (g *Graph) Segments() iter.Seq[*Segment] {
	return func(yield func(*Segment) bool) {
		for _, s := range g.segments {
			if !yield(s) {
				return
			}
		}
	}
}

// SegmentContaining reports the segment that owns the given commit, if
// that commit was visited during the walk.
func (g *Graph) SegmentContaining(id git.Hash) (SegmentIndex, bool) {
	idx, ok := g.commitSegment[id]
	return idx, ok
}

// TipSegments returns every segment that is not the base of any other
// segment in the graph: the topmost segments of each lane the walk
// reached.
func (g *Graph) TipSegments() iter.Seq[*Segment] {
	hasParent := make(map[SegmentIndex]bool, len(g.segments))
	for _, s := range g.segments {
		if s.BaseSegmentIndex != nil {
			hasParent[*s.BaseSegmentIndex] = true
		}
	}

	return func(yield func(*Segment) bool) {
		for _, s := range g.segments {
			if !hasParent[s.Index] && !yield(s) {
				return
			}
		}
	}
}

// BaseSegments returns every segment whose base is not a visited
// segment: a reached root commit, a cut imposed by the hard or soft
// limit, or a commit that could not be loaded.
func (g *Graph) BaseSegments() iter.Seq[*Segment] {
	return func(yield func(*Segment) bool) {
		for _, s := range g.segments {
			if s.BaseSegmentIndex == nil && !yield(s) {
				return
			}
		}
	}
}
