package hunkassign

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/gitbutlerapp/workspace-engine/internal/hunkdeps"
	"github.com/gitbutlerapp/workspace-engine/internal/osutil"
)

// Store is the durable, per-project hunk-assignment table, backed by a
// single JSON file. Like refmeta.Store it is single-owner, process-wide
// state and is not safe for concurrent use from multiple goroutines.
type Store struct {
	path        string
	assignments []HunkAssignment
}

// Open loads the Store from path. A missing file is equivalent to an empty
// assignment set.
func Open(path string) (*Store, error) {
	assignments, err := readAssignments(path)
	if err != nil {
		return nil, fmt.Errorf("hunkassign: open %q: %w", path, err)
	}
	return &Store{path: path, assignments: assignments}, nil
}

func readAssignments(path string) ([]HunkAssignment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var assignments []HunkAssignment
	if err := json.Unmarshal(data, &assignments); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return assignments, nil
}

// flush durably persists the current assignments by writing to a temp file
// and renaming it into place.
func (s *Store) flush() error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.assignments); err != nil {
		return fmt.Errorf("hunkassign: encode: %w", err)
	}

	dir := "."
	if idx := lastSlash(s.path); idx >= 0 {
		dir = s.path[:idx]
	}
	tmp, err := osutil.TempFilePath(dir, "hunkassign-*.json")
	if err != nil {
		return fmt.Errorf("hunkassign: create temp file: %w", err)
	}
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("hunkassign: write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("hunkassign: rename into place: %w", err)
	}
	return nil
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

// Assignments returns the current persisted assignments.
func (s *Store) Assignments() []HunkAssignment {
	return append([]HunkAssignment(nil), s.assignments...)
}

func appliedSet(stacks []StackID) map[StackID]bool {
	set := make(map[StackID]bool, len(stacks))
	for _, id := range stacks {
		set[id] = true
	}
	return set
}

// Reconcile folds a fresh worktree diff against the persisted assignments
// and the hunk-dependency engine's current locks, then persists and
// returns the result. For each worktree hunk, it inherits the assignment
// of whichever single prior entry it intersects (most-covering one if
// more than one), then applies dependency locks on top with SetNone,
// never auto-assigning a hunk that arrived unassigned.
func (s *Store) Reconcile(changes []WorktreeChange, appliedStacks []StackID, deps *hunkdeps.WorkspaceRanges) ([]HunkAssignment, error) {
	applied := appliedSet(appliedStacks)
	depsAssignments := hunkDependencyAssignments(deps, changes)

	var result []HunkAssignment
	for _, change := range changes {
		fromWorktree := diffToAssignments(change)
		consideringPrior := reconcileAssignments(fromWorktree, s.assignments, applied, setMostLines, true)
		consideringDeps := reconcileAssignments(consideringPrior, depsAssignments, applied, setNone, false)
		result = append(result, consideringDeps...)
	}

	s.assignments = result
	if err := s.flush(); err != nil {
		return nil, err
	}
	return s.Assignments(), nil
}

// Assign applies a batch of explicit assignment requests. Each request's
// stack must be applied and must name a hunk already present in the
// assignment table, or the whole call fails. Requests whose effect the
// dependency engine's locks override are reported back as rejections;
// everything else is silently persisted.
func (s *Store) Assign(requests []HunkAssignmentRequest, appliedStacks []StackID, changes []WorktreeChange, deps *hunkdeps.WorkspaceRanges) ([]AssignmentRejection, error) {
	applied := appliedSet(appliedStacks)

	newAssignments, err := setAssignment(applied, s.assignments, requests)
	if err != nil {
		return nil, err
	}

	depsAssignments := hunkDependencyAssignments(deps, changes)
	considered := reconcileAssignments(newAssignments, depsAssignments, applied, setNone, true)

	s.assignments = considered
	if err := s.flush(); err != nil {
		return nil, err
	}

	var rejections []AssignmentRejection
	for _, req := range requests {
		var locks []HunkLock
		for _, assignment := range considered {
			if !req.matches(assignment) {
				continue
			}
			if ptrEqual(req.StackID, assignment.StackID) {
				continue
			}
			locks = append(locks, assignment.HunkLocks...)
		}
		if len(locks) > 0 {
			rejections = append(rejections, AssignmentRejection{Request: req, Locks: locks})
		}
	}
	return rejections, nil
}

// setAssignment applies each request to a copy of previous, erroring out
// (without persisting) if any request targets an unapplied stack or a hunk
// absent from previous.
func setAssignment(applied map[StackID]bool, previous []HunkAssignment, requests []HunkAssignmentRequest) ([]HunkAssignment, error) {
	out := append([]HunkAssignment(nil), previous...)
	for _, req := range requests {
		if req.StackID != nil && !applied[*req.StackID] {
			return nil, fmt.Errorf("hunkassign: stack %v is not in the workspace", *req.StackID)
		}

		idx := -1
		for i, existing := range out {
			if req.matches(existing) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("hunkassign: no existing assignment for %q", req.Path)
		}
		out[idx].StackID = req.StackID
	}
	return out, nil
}

func ptrEqual(a, b *StackID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
