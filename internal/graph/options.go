package graph

import "github.com/gitbutlerapp/workspace-engine/internal/git"

// Options configures a graph projection.
type Options struct {
	// CollectTags includes refs/tags/* as segment-naming refs, the same
	// way refs/heads/* are treated.
	CollectTags bool

	// CommitsLimitHint is a soft cap on commits walked per lane. When a
	// merge is encountered, every incoming lane (the first-parent
	// continuation and each other parent) gets its own fresh budget:
	// "lane duplication". Nil means unlimited.
	CommitsLimitHint *int

	// CommitsLimitRechargeLocation lists commits at which a lane's soft
	// limit resets to a fresh CommitsLimitHint, letting that lane alone
	// extend past the default cutoff.
	CommitsLimitRechargeLocation []git.Hash

	// HardLimit is an absolute cap on the total number of commits
	// visited across the whole projection. When reached, the graph
	// records HardLimitHit and stops expanding further segments,
	// exposing the cut points via Segment.CutByHardLimit. Nil means
	// unlimited.
	HardLimit *int

	// ExtraTargetCommitID is an additional integration commit, beyond
	// the named target, used to classify commits as FlagIntegrated even
	// when there is no formal workspace.
	ExtraTargetCommitID git.Hash

	// DangerouslySkipPostprocessingForDebugging is accepted but has no
	// effect: the projection has no post-processing pass (no segment
	// splitting/merging or push-status computation after the walk), so
	// the result is always the raw walk output.
	DangerouslySkipPostprocessingForDebugging bool
}

func (o *Options) rechargeSet() map[git.Hash]struct{} {
	if len(o.CommitsLimitRechargeLocation) == 0 {
		return nil
	}
	set := make(map[git.Hash]struct{}, len(o.CommitsLimitRechargeLocation))
	for _, id := range o.CommitsLimitRechargeLocation {
		set[id] = struct{}{}
	}
	return set
}

func (o *Options) freshBudget() int {
	if o.CommitsLimitHint == nil {
		return -1
	}
	return *o.CommitsLimitHint
}
