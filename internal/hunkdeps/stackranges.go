package hunkdeps

import (
	"sort"

	"github.com/gitbutlerapp/workspace-engine/internal/maputil"
)

// StackRanges tracks every path a single stack has touched, plus the
// commit-to-commit dependency graph that emerges from how those commits'
// hunks overlapped each other.
type StackRanges struct {
	StackID StackID
	paths   map[string]*PathRanges

	commitDependencies        map[CommitID]map[CommitID]bool
	inverseCommitDependencies map[CommitID]map[CommitID]bool
}

// NewStackRanges returns an empty StackRanges for the given stack.
func NewStackRanges(stackID StackID) *StackRanges {
	return &StackRanges{
		StackID:                   stackID,
		paths:                     make(map[string]*PathRanges),
		commitDependencies:        make(map[CommitID]map[CommitID]bool),
		inverseCommitDependencies: make(map[CommitID]map[CommitID]bool),
	}
}

// Path returns the tracked ranges for path, creating an empty entry if the
// path has never been touched.
func (s *StackRanges) Path(path string) *PathRanges {
	pr, ok := s.paths[path]
	if !ok {
		pr = &PathRanges{}
		s.paths[path] = pr
	}
	return pr
}

// Paths returns every path this stack has touched, in no particular order.
func (s *StackRanges) Paths() map[string]*PathRanges {
	return s.paths
}

// AddCommit folds one commit's files into the tracked state, one path at a
// time. A failure on one path is recorded and does not prevent the
// commit's other paths from being processed.
func (s *StackRanges) AddCommit(commit InputCommit) []*RangeCalculationError {
	var errs []*RangeCalculationError
	for _, file := range commit.Files {
		deps, err := s.Path(file.Path).Add(s.StackID, commit.CommitID, file.Diffs)
		if err != nil {
			errs = append(errs, &RangeCalculationError{
				Stack:  s.StackID,
				Commit: commit.CommitID,
				Path:   file.Path,
				Err:    err,
			})
			continue
		}
		for _, dep := range deps {
			s.recordDependency(commit.CommitID, dep)
		}
	}
	return errs
}

func (s *StackRanges) recordDependency(commit, dependsOn CommitID) {
	if s.commitDependencies[commit] == nil {
		s.commitDependencies[commit] = make(map[CommitID]bool)
	}
	s.commitDependencies[commit][dependsOn] = true

	if s.inverseCommitDependencies[dependsOn] == nil {
		s.inverseCommitDependencies[dependsOn] = make(map[CommitID]bool)
	}
	s.inverseCommitDependencies[dependsOn][commit] = true
}

// CommitDependencies returns, for each commit, the earlier commits in this
// stack whose ranges it overlapped.
func (s *StackRanges) CommitDependencies() map[CommitID][]CommitID {
	return flattenDependencyMap(s.commitDependencies)
}

// InverseCommitDependencies returns, for each commit, the later commits in
// this stack that overlapped its ranges.
func (s *StackRanges) InverseCommitDependencies() map[CommitID][]CommitID {
	return flattenDependencyMap(s.inverseCommitDependencies)
}

func flattenDependencyMap(m map[CommitID]map[CommitID]bool) map[CommitID][]CommitID {
	out := make(map[CommitID][]CommitID, len(m))
	for commit, set := range m {
		list := maputil.Keys(set)
		sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
		out[commit] = list
	}
	return out
}
