package graph

import (
	"github.com/gitbutlerapp/workspace-engine/internal/git"
	"github.com/gitbutlerapp/workspace-engine/internal/refmeta"
)

// Stack is an ordered sequence of segments treated as one logical feature.
// The top segment is the stack's tip; the bottom segment's base is the
// stack's merge-base with the target.
//
// Invariant: segments within a stack share a first-parent chain; adjacent
// segments are joined at the tip of the lower by the base of the higher.
type Stack struct {
	// ID is this stack's stable, persisted identity.
	ID refmeta.StackId

	// Segments lists the stack's segments, tip first.
	Segments []SegmentIndex

	// Base is the stack's merge-base with the target branch.
	Base git.Hash
}

// Tip returns the SegmentIndex of the stack's topmost segment.
func (s Stack) Tip() SegmentIndex {
	return s.Segments[0]
}
