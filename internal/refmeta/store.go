package refmeta

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/gitbutlerapp/workspace-engine/internal/osutil"
	"github.com/gitbutlerapp/workspace-engine/internal/silog"
)

// Store is the ref-metadata store backed by a single TOML file.
//
// A Store is not safe for concurrent use from multiple goroutines:
// ref-metadata is single-owner, mutable, process-wide state whose
// lifetime brackets one logical operation.
type Store struct {
	path string
	log  *silog.Logger
	doc  document
}

// Open loads the Store from path. A missing file is equivalent to an empty
// store: Open never fails because the file does not exist.
//
// log, if non-nil, receives best-effort diagnostics for failures that occur
// while flushing on Close; it does not affect errors returned by Open or by
// the live mutating calls, which are always surfaced directly.
func Open(path string, log *silog.Logger) (*Store, error) {
	doc, err := readDocument(path)
	if err != nil {
		return nil, fmt.Errorf("refmeta: open %q: %w", path, err)
	}
	return &Store{path: path, log: log, doc: doc}, nil
}

func readDocument(path string) (document, error) {
	var doc document
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			doc.Branches = make(map[string]stackRecord)
			return doc, nil
		}
		return doc, err
	}

	if _, err := toml.Decode(string(data), &doc); err != nil {
		return doc, fmt.Errorf("decode toml: %w", err)
	}
	if doc.Branches == nil {
		doc.Branches = make(map[string]stackRecord)
	}
	return doc, nil
}

// Workspace returns the workspace metadata named by name.
//
// If name is not recognized as a workspace ref name (see
// [IsWorkspaceRefName]), a default (IsDefault() == true) value is returned:
// a handle is default iff no entry has ever been stored for that name.
func (s *Store) Workspace(name FullRefName) *Workspace {
	ws := &Workspace{RefName: name}
	if !IsWorkspaceRefName(name) {
		return ws
	}

	ws.TargetRef = FullRefName(s.doc.DefaultTarget.Branch)
	ws.TargetRemoteURL = s.doc.DefaultTarget.RemoteURL
	ws.TargetSHA = ObjectId(s.doc.DefaultTarget.SHA)

	type ordered struct {
		order int
		stack WorkspaceStack
	}
	var applied []ordered
	for id, rec := range s.doc.Branches {
		if !rec.InWorkspace {
			continue
		}
		wsStack := WorkspaceStack{ID: StackId(id)}
		for _, h := range rec.Heads {
			wsStack.Branches = append(wsStack.Branches, WorkspaceBranch{
				Name:     FullRefName(h.Name),
				Archived: h.Archived,
			})
		}
		applied = append(applied, ordered{order: rec.Order, stack: wsStack})
	}
	sort.Slice(applied, func(i, j int) bool { return applied[i].order < applied[j].order })
	for _, o := range applied {
		ws.Stacks = append(ws.Stacks, o.stack)
	}
	return ws
}

// Branch returns the metadata for the branch named name, searching every
// persisted stack's heads for a matching ref name. If no stack has ever
// recorded this branch, a default (IsDefault() == true) value is returned.
func (s *Store) Branch(name FullRefName) *Branch {
	for id, rec := range s.doc.Branches {
		if idx := rec.headIndex(string(name)); idx >= 0 {
			h := rec.Heads[idx]
			return &Branch{
				RefName:     name,
				Description: h.Description,
				Review:      ReviewInfo{PullRequest: h.PRNumber, ReviewID: h.ReviewID},
				StackID:     StackId(id),
			}
		}
	}
	return &Branch{RefName: name}
}

// SetWorkspace persists ws, reconciling its stacks against the store:
//
//   - Branch names are resolved to existing heads, creating defaults for
//     any that don't exist yet.
//   - All branches in one WorkspaceStack must belong to the same persisted
//     stack id, else [InconsistentStackError] is returned.
//   - Branch order within a stack is overwritten to match ws.
//   - Branches absent from the new list are removed from their stack.
//   - Stacks not mentioned in ws are archived (in_workspace = false), never
//     deleted.
func (s *Store) SetWorkspace(ws *Workspace) error {
	if ws.RefName != CanonicalWorkspaceRef {
		return ErrUnsupportedRef
	}

	mentioned := make(map[string]bool, len(ws.Stacks))
	for order, wsStack := range ws.Stacks {
		id, rec, err := s.reconcileStack(wsStack)
		if err != nil {
			return err
		}
		rec.InWorkspace = true
		rec.Order = order
		rec.UpdatedTimestampMs = nowMillis()
		s.doc.Branches[id] = rec
		mentioned[id] = true
	}

	for id, rec := range s.doc.Branches {
		if !mentioned[id] {
			rec.InWorkspace = false
			s.doc.Branches[id] = rec
		}
	}

	s.doc.DefaultTarget = targetRecord{
		Branch:    string(ws.TargetRef),
		RemoteURL: ws.TargetRemoteURL,
		SHA:       string(ws.TargetSHA),
	}

	return s.flush()
}

// reconcileStack resolves a WorkspaceStack to the persisted stack record it
// updates, detecting cross-stack inconsistency along the way.
func (s *Store) reconcileStack(wsStack WorkspaceStack) (string, stackRecord, error) {
	owners := make(map[string]bool)
	for _, b := range wsStack.Branches {
		for id, rec := range s.doc.Branches {
			if rec.headIndex(string(b.Name)) >= 0 {
				owners[id] = true
			}
		}
	}
	if string(wsStack.ID) != "" {
		owners[string(wsStack.ID)] = true
	}
	if len(owners) > 1 {
		ids := make([]StackId, 0, len(owners))
		for id := range owners {
			ids = append(ids, StackId(id))
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		return "", stackRecord{}, &InconsistentStackError{Stacks: ids}
	}

	id := string(wsStack.ID)
	if id == "" {
		for owner := range owners {
			id = owner
		}
	}
	if id == "" {
		id = uuid.NewString()
	}

	rec, ok := s.doc.Branches[id]
	if !ok {
		rec = stackRecord{ID: id}
	}

	heads := make([]headRecord, 0, len(wsStack.Branches))
	for _, b := range wsStack.Branches {
		h := headRecord{Name: string(b.Name), Archived: b.Archived}
		if idx := rec.headIndex(string(b.Name)); idx >= 0 {
			existing := rec.Heads[idx]
			existing.Archived = b.Archived
			h = existing
		}
		heads = append(heads, h)
	}
	rec.Heads = heads

	return id, rec, nil
}

// SetBranch persists the description/review metadata on br. If br has no
// owning stack yet, a brand-new stack is created for it (outside the
// workspace, in_workspace = false, until a subsequent SetWorkspace applies
// it).
func (s *Store) SetBranch(br *Branch) error {
	if br.RefName == "" {
		return errors.New("refmeta: branch ref name is required")
	}

	id := string(br.StackID)
	var rec stackRecord
	if id != "" {
		existing, ok := s.doc.Branches[id]
		if !ok {
			return fmt.Errorf("refmeta: stack %q does not exist", id)
		}
		rec = existing
	} else {
		for candidateID, candidate := range s.doc.Branches {
			if candidate.headIndex(string(br.RefName)) >= 0 {
				id, rec = candidateID, candidate
				break
			}
		}
	}
	if id == "" {
		id = uuid.NewString()
		rec = stackRecord{ID: id}
	}

	idx := rec.headIndex(string(br.RefName))
	h := headRecord{Name: string(br.RefName)}
	if idx >= 0 {
		h = rec.Heads[idx]
	}
	h.Description = br.Description
	h.PRNumber = br.Review.PullRequest
	h.ReviewID = br.Review.ReviewID

	if idx >= 0 {
		rec.Heads[idx] = h
	} else {
		rec.Heads = append(rec.Heads, h)
	}
	rec.UpdatedTimestampMs = nowMillis()
	s.doc.Branches[id] = rec
	br.StackID = StackId(id)

	return s.flush()
}

// Remove deletes the metadata for name. For the workspace ref, this deletes
// the entire store (workspace and every branch). For a branch ref, only
// that head is removed; if its owning stack becomes empty, the stack is
// removed too. It reports whether a non-default value existed before the
// call.
func (s *Store) Remove(name FullRefName) (existed bool, err error) {
	if IsWorkspaceRefName(name) {
		existed = !isDefaultDocument(s.doc)
		s.doc = document{Branches: make(map[string]stackRecord)}
		return existed, s.flush()
	}

	for id, rec := range s.doc.Branches {
		idx := rec.headIndex(string(name))
		if idx < 0 {
			continue
		}
		existed = true
		rec.Heads = append(rec.Heads[:idx], rec.Heads[idx+1:]...)
		if len(rec.Heads) == 0 {
			delete(s.doc.Branches, id)
		} else {
			s.doc.Branches[id] = rec
		}
		break
	}
	if !existed {
		return false, nil
	}
	return true, s.flush()
}

// BranchMetadataEntry is one (ref, Branch) pair yielded by Iter.
type BranchMetadataEntry struct {
	Name   FullRefName
	Branch Branch
}

// Iter returns every branch known to the store along with the workspace
// entry, for callers that need to enumerate all persisted metadata (e.g.
// diagnostics, migration tooling).
func (s *Store) Iter() (workspace Workspace, branches []BranchMetadataEntry) {
	ws := s.Workspace(CanonicalWorkspaceRef)
	for id, rec := range s.doc.Branches {
		for _, h := range rec.Heads {
			branches = append(branches, BranchMetadataEntry{
				Name: FullRefName(h.Name),
				Branch: Branch{
					RefName:     FullRefName(h.Name),
					Description: h.Description,
					Review:      ReviewInfo{PullRequest: h.PRNumber, ReviewID: h.ReviewID},
					StackID:     StackId(id),
				},
			})
		}
	}
	sort.Slice(branches, func(i, j int) bool { return branches[i].Name < branches[j].Name })
	return *ws, branches
}

// flush durably persists the store by writing to a temp file and renaming
// it into place. A document equal to the zero value deletes the file
// instead of writing an empty one.
func (s *Store) flush() error {
	if isDefaultDocument(s.doc) {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("refmeta: remove %q: %w", s.path, err)
		}
		return nil
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s.doc); err != nil {
		return fmt.Errorf("refmeta: encode: %w", err)
	}

	dir := "."
	if idx := lastSlash(s.path); idx >= 0 {
		dir = s.path[:idx]
	}
	tmp, err := osutil.TempFilePath(dir, "refmeta-*.toml")
	if err != nil {
		return fmt.Errorf("refmeta: create temp file: %w", err)
	}
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("refmeta: write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("refmeta: rename into place: %w", err)
	}
	return nil
}

// Close flushes any pending state one last time, logging (rather than
// returning) any failure: writes are durable on drop, with only
// best-effort logging on failure since there is no live call left to
// surface a structured error to.
func (s *Store) Close() {
	if err := s.flush(); err != nil && s.log != nil {
		s.log.Warnf("refmeta: failed to persist store: %v", err)
	}
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
