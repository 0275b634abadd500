package graph

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"go.abhg.dev/container/ring"

	"github.com/gitbutlerapp/workspace-engine/internal/git"
	"github.com/gitbutlerapp/workspace-engine/internal/refmeta"
)

// FromHead starts a projection at the repository's current HEAD.
func FromHead(ctx context.Context, repo *git.Repository, meta *refmeta.Store, opts Options) (*Graph, error) {
	head, err := repo.PeelToCommit(ctx, "HEAD")
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	return build(ctx, repo, meta, head, "", opts)
}

// FromCommitTraversal starts a projection at a specific commit known to be
// named by refName.
func FromCommitTraversal(
	ctx context.Context, repo *git.Repository, id git.Hash, refName refmeta.FullRefName,
	meta *refmeta.Store, opts Options,
) (*Graph, error) {
	return build(ctx, repo, meta, id, refName, opts)
}

// lane is one in-flight first-parent walk: either the projection's initial
// entry point, or a side branch enqueued at a merge commit's non-first
// parent. Lanes are processed breadth-first so every lane a given merge
// depth introduces shares that depth's "generation".
type lane struct {
	start   git.Hash
	budget  int
	refHint *RefInfo
}

type builder struct {
	ctx  context.Context
	repo *git.Repository
	opts Options

	recharge map[git.Hash]struct{}

	refsByHash    map[git.Hash][]RefInfo
	remoteByShort map[string][]remoteTip
	targetHash    git.Hash

	headerCache map[git.Hash]git.CommitHeader

	segments      []*Segment
	commitSegment map[git.Hash]SegmentIndex
	visitedCount  int
	hardLimitHit  bool
	builtAny      bool

	workspaceCommitID git.Hash
}

type remoteTip struct {
	name refmeta.FullRefName
	hash git.Hash
}

func build(
	ctx context.Context, repo *git.Repository, meta *refmeta.Store,
	start git.Hash, startRef refmeta.FullRefName, opts Options,
) (*Graph, error) {
	b := &builder{
		ctx:           ctx,
		repo:          repo,
		opts:          opts,
		recharge:      opts.rechargeSet(),
		refsByHash:    make(map[git.Hash][]RefInfo),
		remoteByShort: make(map[string][]remoteTip),
		headerCache:   make(map[git.Hash]git.CommitHeader),
		commitSegment: make(map[git.Hash]SegmentIndex),
	}

	ws := meta.Workspace(refmeta.CanonicalWorkspaceRef)
	if ws.TargetRef != "" {
		if h, err := repo.PeelToCommit(ctx, string(ws.TargetRef)); err == nil {
			b.targetHash = h
		}
	}

	if err := b.collectRefs(); err != nil {
		return nil, fmt.Errorf("collect refs: %w", err)
	}

	var startHint *RefInfo
	if startRef != "" {
		startHint = &RefInfo{Name: startRef}
	}

	var q ring.Q[lane]
	q.Push(lane{start: start, budget: opts.freshBudget(), refHint: startHint})

	var entrypoint SegmentIndex
	for !q.Empty() {
		if b.hardLimitHit {
			// Lanes still queued when the hard limit is reached stay
			// unexplored.
			break
		}
		l := q.Pop()
		idx, isNew := b.processLane(l, &q)
		if !b.builtAny && isNew {
			b.segments[idx].IsEntrypoint = true
			entrypoint = idx
			b.builtAny = true
		}
	}

	// Patch segment->segment base links discovered only after their
	// target lane was processed later in the breadth-first order.
	for _, seg := range b.segments {
		if seg.BaseSegmentIndex != nil || seg.Base == "" || seg.Base == git.ZeroHash {
			continue
		}
		if ownerIdx, ok := b.commitSegment[seg.Base]; ok {
			idx := ownerIdx
			seg.BaseSegmentIndex = &idx
		}
	}

	return &Graph{
		segments:          b.segments,
		entrypoint:        entrypoint,
		hardLimitHit:      b.hardLimitHit,
		commitSegment:     b.commitSegment,
		workspaceCommitID: b.workspaceCommitID,
	}, nil
}

// collectRefs populates refsByHash (refs/heads, and refs/tags if
// CollectTags) and remoteByShort (refs/remotes/<remote>/<name> indexed by
// <name>, to pair a local branch with its likely remote-tracking ref).
func (b *builder) collectRefs() error {
	patterns := []string{"refs/heads", "refs/remotes"}
	if b.opts.CollectTags {
		patterns = append(patterns, "refs/tags")
	}

	for ref, err := range b.repo.ForEachRef(b.ctx, &git.ForEachRefOptions{Patterns: patterns}) {
		if err != nil {
			return err
		}

		switch {
		case strings.HasPrefix(ref.Name, "refs/remotes/"):
			rest := strings.TrimPrefix(ref.Name, "refs/remotes/")
			_, short, ok := strings.Cut(rest, "/")
			if !ok || short == "HEAD" {
				continue
			}
			b.remoteByShort[short] = append(b.remoteByShort[short], remoteTip{
				name: refmeta.FullRefName(ref.Name),
				hash: ref.Hash,
			})
		default:
			b.refsByHash[ref.Hash] = append(b.refsByHash[ref.Hash], RefInfo{
				Name: refmeta.FullRefName(ref.Name),
			})
		}
	}

	return nil
}

// remoteTrackingRef resolves the likely remote-tracking ref for a local
// branch by matching its short name against every known remote. When more
// than one remote carries a branch of the same name, the lexicographically
// first remote ref name wins; resolving the configured upstream precisely
// would need a per-branch "git rev-parse --abbrev-ref branch@{upstream}"
// call, left out here to keep projection to a single ref-enumeration pass.
func (b *builder) remoteTrackingRef(name refmeta.FullRefName) refmeta.FullRefName {
	short := name
	if idx := strings.LastIndex(string(name), "/"); idx >= 0 {
		short = name[idx+1:]
	}

	candidates := b.remoteByShort[string(short)]
	if len(candidates) == 0 {
		return ""
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.name < best.name {
			best = c
		}
	}
	return best.name
}

func (b *builder) remoteTip(name refmeta.FullRefName) git.Hash {
	short := name
	if idx := strings.LastIndex(string(name), "/"); idx >= 0 {
		short = name[idx+1:]
	}
	for _, c := range b.remoteByShort[string(short)] {
		if c.name == b.remoteTrackingRef(name) {
			return c.hash
		}
	}
	return ""
}

// sortedRefs orders the refs at one commit so tie-breaks are deterministic:
// lexicographic by ref name. The fuller rule is ref-metadata stack order if
// known, otherwise lexicographic; the stack-order half needs a StackId per
// ref, which the walk doesn't have in hand at this point (documented as a
// simplification in DESIGN.md).
func sortedRefs(refs []RefInfo) []RefInfo {
	out := slices.Clone(refs)
	slices.SortFunc(out, func(a, b RefInfo) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

func (b *builder) loadHeader(id git.Hash) (git.CommitHeader, error) {
	if h, ok := b.headerCache[id]; ok {
		return h, nil
	}
	h, err := b.repo.LoadCommitHeader(b.ctx, id.String())
	if err != nil {
		return git.CommitHeader{}, err
	}
	b.headerCache[id] = h
	return h, nil
}

// processLane builds the segment(s) rooted at l.start, splitting off a
// zero-commit segment for every ref beyond the first named at that commit,
// and returns the index of the segment that actually owns l.start's
// commits.
func (b *builder) processLane(l lane, q *ring.Q[lane]) (SegmentIndex, bool) {
	if existing, ok := b.commitSegment[l.start]; ok {
		return existing, false
	}

	refs := sortedRefs(b.refsByHash[l.start])

	var contentHint *RefInfo
	switch {
	case len(refs) > 0:
		contentHint = &refs[0]
	case l.refHint != nil:
		contentHint = l.refHint
	}

	contentIdx := b.walkSegment(l.start, l.budget, contentHint, q)

	for i := 1; i < len(refs); i++ {
		r := refs[i]
		seg := b.newSegment(&r)
		seg.Base = l.start
		base := contentIdx
		seg.BaseSegmentIndex = &base
	}

	return contentIdx, true
}

func (b *builder) newSegment(refHint *RefInfo) *Segment {
	idx := SegmentIndex(len(b.segments))
	seg := &Segment{Index: idx, RefInfo: refHint}
	if refHint != nil {
		seg.RemoteTrackingRefName = b.remoteTrackingRef(refHint.Name)
	}
	b.segments = append(b.segments, seg)
	return seg
}

// walkSegment walks first-parent from start, building one segment, until it
// hits: a commit already owned by another segment, a commit named by a ref
// (a new lane is queued to continue from there so the ref lands on a
// segment tip), a root commit, or a limit (soft-per-lane or hard-global).
func (b *builder) walkSegment(start git.Hash, budget int, refHint *RefInfo, q *ring.Q[lane]) SegmentIndex {
	seg := b.newSegment(refHint)

	var remoteTip git.Hash
	if refHint != nil {
		remoteTip = b.remoteTip(refHint.Name)
	}

	cur := start
	for {
		header, err := b.loadHeader(cur)
		if err != nil {
			// Object lookup failures are treated as I/O errors; the walk
			// can't proceed past a commit it can't decode, so the segment
			// simply ends here without a base.
			break
		}

		c := commitFromHeader(header, b.refsByHash[cur])
		b.applyFlags(&c, remoteTip)
		lc := LocalCommit{Commit: c, Relation: b.relationFor(c, remoteTip)}

		b.commitSegment[cur] = seg.Index
		seg.Commits = append(seg.Commits, lc)
		b.visitedCount++

		if c.IsWorkspaceCommit() && len(header.ParentIDs) > 0 &&
			header.ParentIDs[0] == b.targetHash && b.targetHash != "" {
			b.workspaceCommitID = c.ID
		}

		if b.opts.HardLimit != nil && b.visitedCount >= *b.opts.HardLimit {
			seg.CutByHardLimit = true
			b.hardLimitHit = true
			return seg.Index
		}

		if len(header.ParentIDs) == 0 {
			seg.Base = git.ZeroHash
			return seg.Index
		}

		first := header.ParentIDs[0]
		for _, p := range header.ParentIDs[1:] {
			q.Push(lane{start: p, budget: b.opts.freshBudget()})
		}

		if existingIdx, ok := b.commitSegment[first]; ok {
			idx := existingIdx
			seg.Base = first
			seg.BaseSegmentIndex = &idx
			return seg.Index
		}

		if refs := b.refsByHash[first]; len(refs) > 0 {
			seg.Base = first
			q.Push(lane{start: first, budget: budget})
			return seg.Index
		}

		if len(header.ParentIDs) > 1 {
			// A merge gives its first-parent continuation a fresh
			// budget, the same as each other parent's lane above.
			budget = b.opts.freshBudget()
		} else if budget == 0 {
			if _, recharge := b.recharge[first]; recharge {
				budget = b.opts.freshBudget()
			} else {
				seg.Base = first
				return seg.Index
			}
		} else if budget > 0 {
			budget--
		}

		cur = first
	}

	seg.Base = git.ZeroHash
	return seg.Index
}

func (b *builder) applyFlags(c *Commit, remoteTip git.Hash) {
	if remoteTip != "" {
		if c.ID == remoteTip || b.repo.IsAncestor(b.ctx, c.ID, remoteTip) {
			c.Flags |= FlagReachableByRemote
		}
	}
	if !c.Flags.Has(FlagReachableByRemote) {
		c.Flags |= FlagNotInRemote
	}

	if b.targetHash != "" && (c.ID == b.targetHash || b.repo.IsAncestor(b.ctx, c.ID, b.targetHash)) {
		c.Flags |= FlagIntegrated
	} else if extra := b.opts.ExtraTargetCommitID; extra != "" &&
		(c.ID == extra || b.repo.IsAncestor(b.ctx, c.ID, extra)) {
		c.Flags |= FlagIntegrated
	}
}

func (b *builder) relationFor(c Commit, remoteTip git.Hash) CommitRelation {
	switch {
	case c.Flags.Has(FlagIntegrated):
		return CommitRelation{Kind: RelationIntegrated, ContainedIn: b.targetHash}
	case c.Flags.Has(FlagReachableByRemote):
		return CommitRelation{Kind: RelationLocalAndRemote, RemoteID: remoteTip}
	default:
		return CommitRelation{Kind: RelationLocalOnly}
	}
}
