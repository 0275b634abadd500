// Package refmeta implements the persisted reference-metadata store: the
// named view of stacks, branch order, the workspace, and its target branch
// that the commit-graph projection reads as ground truth.
//
// State lives in a single TOML file. The file is absent for a repository
// that has never recorded any metadata; an absent file and a present-but-
// empty file are equivalent.
package refmeta

import (
	"errors"
	"fmt"

	"github.com/gitbutlerapp/workspace-engine/internal/git"
)

// FullRefName is a canonical reference path, e.g. "refs/heads/main",
// "refs/remotes/origin/main", or "refs/tags/v1".
type FullRefName string

// StackId stably identifies a stack across the lifetime of a repository.
type StackId string

// CanonicalWorkspaceRef is the current name of the workspace branch.
const CanonicalWorkspaceRef FullRefName = "refs/heads/gitbutler/workspace"

// LegacyWorkspaceRef is accepted on read for migration from older tools,
// but is never written by this package.
const LegacyWorkspaceRef FullRefName = "refs/heads/gitbutler/integration"

// EditRef and TargetRef are reserved ref names: segments named by these
// never appear in workspace views.
const (
	EditRef   FullRefName = "refs/heads/gitbutler/edit"
	TargetRef FullRefName = "refs/heads/gitbutler/target"
)

// IsWorkspaceRefName reports whether name is recognized as the workspace
// reference, on read: both the canonical and the legacy name match.
func IsWorkspaceRefName(name FullRefName) bool {
	return name == CanonicalWorkspaceRef || name == LegacyWorkspaceRef
}

// ErrUnsupportedRef is returned by SetWorkspace when called with a ref name
// that is not the workspace ref.
var ErrUnsupportedRef = errors.New("refmeta: not a workspace reference")

// InconsistentStackError is returned by SetWorkspace when the branches
// listed for one WorkspaceStack resolve to more than one persisted stack.
type InconsistentStackError struct {
	Stacks []StackId
}

func (e *InconsistentStackError) Error() string {
	return fmt.Sprintf("refmeta: branches belong to %d different stacks, expected one", len(e.Stacks))
}

// ReviewInfo is the review-tool-specific metadata attached to a branch.
type ReviewInfo struct {
	PullRequest *int    `toml:"pull_request,omitempty"`
	ReviewID    *string `toml:"review_id,omitempty"`
}

// Branch is the persisted metadata for a single named branch.
type Branch struct {
	RefName     FullRefName `toml:"-"`
	Description string      `toml:"description,omitempty"`
	Review      ReviewInfo  `toml:"review,omitempty"`

	// StackID is the owning stack, or "" if this Branch was never
	// written (a default/zero-value handle).
	StackID StackId `toml:"-"`
}

// IsDefault reports whether b is the zero-value handle returned when no
// metadata has ever been stored for the ref it names.
func (b *Branch) IsDefault() bool {
	return b.StackID == "" && b.Description == "" && b.Review == (ReviewInfo{})
}

// WorkspaceBranch names one branch within a WorkspaceStack, in the order
// it appears in the stack.
type WorkspaceBranch struct {
	Name     FullRefName
	Archived bool
}

// WorkspaceStack is one stack as it participates in a Workspace value,
// independent from its persisted Stack record.
type WorkspaceStack struct {
	ID       StackId
	Branches []WorkspaceBranch
}

// Workspace is the persisted metadata for the workspace ref: which stacks
// are applied, and the branch est order within each, plus the target the
// workspace integrates toward.
type Workspace struct {
	RefName         FullRefName      `toml:"-"`
	Stacks          []WorkspaceStack `toml:"-"`
	TargetRef       FullRefName      `toml:"-"`
	TargetRemoteURL string           `toml:"-"`
	TargetSHA       ObjectId         `toml:"-"`
}

// IsDefault reports whether w is the zero-value handle returned when no
// metadata has ever been stored for the workspace ref.
func (w *Workspace) IsDefault() bool {
	return len(w.Stacks) == 0 && w.TargetRef == ""
}

// ObjectId is a Git object hash, as produced by the host Git library.
type ObjectId = git.Hash
