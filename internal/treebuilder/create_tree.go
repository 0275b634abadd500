package treebuilder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/gitbutlerapp/workspace-engine/internal/git"
)

// workingChange tracks one DiffSpec's progress through CreateTree's retry
// loop: once rejected it is never reconsidered, and a CherryPickMergeConflict
// rejection from one iteration is what drives the next.
type workingChange struct {
	spec     DiffSpec
	rejected *RejectedSpec
}

// CreateTree applies changes to changesBaseTree and, if that base differs
// from targetTree, cherry-picks the result onto targetTree via a three-way
// merge, retrying with the conflicting specs rejected until the merge is
// clean. worktree supplies, per path named by changes, the current
// worktree state needed to realize each selection; a path absent from
// worktree is treated as deleted.
//
// If changesBaseTree is the zero hash, targetTree is used as the base (no
// cherry-pick is then needed).
func CreateTree(
	ctx context.Context,
	repo *git.Repository,
	targetTree git.Hash,
	changesBaseTree git.Hash,
	changes []DiffSpec,
	worktree map[string]WorktreeFile,
) (*CreateTreeOutcome, error) {
	if len(changes) == 0 {
		dest := targetTree
		return &CreateTreeOutcome{DestinationTree: &dest}, nil
	}
	if changesBaseTree.IsZero() {
		changesBaseTree = targetTree
	}

	working := make([]workingChange, len(changes))
	for i, c := range changes {
		working[i] = workingChange{spec: c}
	}

	for {
		newTree, err := applyWorktreeChanges(ctx, repo, changesBaseTree, working, worktree)
		if err != nil {
			return nil, fmt.Errorf("treebuilder: apply worktree changes: %w", err)
		}

		if newTree == changesBaseTree && noUnresolvedConflicts(working) {
			for i := range working {
				if working[i].rejected == nil {
					working[i].rejected = &RejectedSpec{Reason: NoEffectiveChanges, Spec: working[i].spec}
				}
			}
			return &CreateTreeOutcome{RejectedSpecs: collectRejected(working)}, nil
		}

		treeWithChangesPreCherryPick := newTree
		finalTree := newTree

		needsCherryPick := changesBaseTree != git.EmptyTreeHash && changesBaseTree != targetTree
		if needsCherryPick {
			merged, err := repo.MergeTree(ctx, git.MergeTreeRequest{
				Branch1:   targetTree.String(),
				Branch2:   newTree.String(),
				MergeBase: changesBaseTree.String(),
			})

			var conflictErr *git.MergeTreeConflictError
			if errors.As(err, &conflictErr) {
				if !rejectConflicting(working, conflictErr) {
					return nil, fmt.Errorf("treebuilder: cherry-pick conflict without an attributable spec: %w", err)
				}
				continue
			} else if err != nil {
				return nil, fmt.Errorf("treebuilder: merge-tree: %w", err)
			}
			finalTree = merged
		}

		dest := finalTree
		pre := treeWithChangesPreCherryPick
		return &CreateTreeOutcome{
			RejectedSpecs:            collectRejected(working),
			DestinationTree:          &dest,
			ChangedTreePreCherryPick: &pre,
		}, nil
	}
}

func noUnresolvedConflicts(working []workingChange) bool {
	for _, w := range working {
		if w.rejected != nil && w.rejected.Reason == CherryPickMergeConflict {
			return false
		}
	}
	return true
}

func rejectConflicting(working []workingChange, conflictErr *git.MergeTreeConflictError) bool {
	var rejectedAny bool
	for path := range conflictErr.Filenames() {
		for i := range working {
			if working[i].rejected == nil && working[i].spec.Path == path {
				working[i].rejected = &RejectedSpec{Reason: CherryPickMergeConflict, Spec: working[i].spec}
				rejectedAny = true
			}
		}
	}
	return rejectedAny
}

func collectRejected(working []workingChange) []RejectedSpec {
	var out []RejectedSpec
	for _, w := range working {
		if w.rejected != nil {
			out = append(out, *w.rejected)
		}
	}
	return out
}

// applyWorktreeChanges builds the tree that results from applying every
// not-yet-rejected spec in working to baseTree, mutating working in place
// with any rejections discovered along the way.
func applyWorktreeChanges(
	ctx context.Context,
	repo *git.Repository,
	baseTree git.Hash,
	working []workingChange,
	worktree map[string]WorktreeFile,
) (git.Hash, error) {
	var writes []git.BlobInfo
	var deletes []string

	for i := range working {
		w := &working[i]
		if w.rejected != nil {
			continue
		}
		spec := w.spec

		wf, ok := worktree[spec.Path]
		if !ok || wf.Missing {
			deletes = append(deletes, spec.Path)
			continue
		}

		if spec.PreviousPath != "" {
			deletes = append(deletes, spec.PreviousPath)
		}

		if wf.Mode == git.DirMode || wf.Mode == git.GitlinkMode {
			w.rejected = &RejectedSpec{Reason: UnsupportedDirectoryEntry, Spec: spec}
			continue
		}

		if len(spec.HunkHeaders) == 0 {
			hash, err := repo.WriteObject(ctx, git.BlobType, bytes.NewReader(wf.Content))
			if err != nil {
				return git.ZeroHash, fmt.Errorf("write blob for %q: %w", spec.Path, err)
			}
			writes = append(writes, git.BlobInfo{Mode: wf.Mode, Hash: hash, Path: spec.Path})
			continue
		}

		if wf.BaseMode == git.DirMode || wf.BaseMode == git.GitlinkMode {
			w.rejected = &RejectedSpec{Reason: UnsupportedTreeEntry, Spec: spec}
			continue
		}

		if len(wf.HunksWithContext) == 0 && len(wf.HunksNoContext) == 0 {
			w.rejected = &RejectedSpec{Reason: FileTooLargeOrBinary, Spec: spec}
			continue
		}

		toCommit, rejectedHunks := toAdditiveHunks(spec.HunkHeaders, wf.HunksWithContext, wf.HunksNoContext)
		w.spec.HunkHeaders = rejectedHunks
		if len(toCommit) == 0 {
			w.rejected = &RejectedSpec{Reason: MissingDiffSpecAssociation, Spec: w.spec}
			continue
		}

		content := applyHunks(wf.BaseContent, wf.Content, toCommit)
		hash, err := repo.WriteObject(ctx, git.BlobType, bytes.NewReader(content))
		if err != nil {
			return git.ZeroHash, fmt.Errorf("write blob for %q: %w", spec.Path, err)
		}
		writes = append(writes, git.BlobInfo{Mode: wf.Mode, Hash: hash, Path: spec.Path})
	}

	return repo.UpdateTree(ctx, git.UpdateTreeRequest{
		Tree:    baseTree,
		Writes:  slices.Values(writes),
		Deletes: slices.Values(deletes),
	})
}
