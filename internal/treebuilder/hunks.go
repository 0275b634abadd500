package treebuilder

import "bytes"

// lineSpan is a 1-based, half-open-by-length line range: [start, start+lines).
// A zero-length span denotes a point selection used for one-sided hunks.
type lineSpan struct {
	start, lines int
}

func (s lineSpan) isNull() bool { return s.lines == 0 }
func (s lineSpan) end() int     { return s.start + s.lines }

// contains reports whether s fully encloses other. A null other is treated
// as a point and is contained whenever it falls within (inclusive of the
// end boundary, since an insertion can land right after the last line).
func (s lineSpan) contains(other lineSpan) bool {
	if other.isNull() {
		return s.start <= other.start && other.start <= s.end()
	}
	return s.start <= other.start && other.end() <= s.end()
}

func oldSpan(h HunkHeader) lineSpan { return lineSpan{h.OldStart, h.OldLines} }
func newSpan(h HunkHeader) lineSpan { return lineSpan{h.NewStart, h.NewLines} }

func hunkHeadersEqual(a, b HunkHeader) bool { return a == b }

func containsHeader(hunks []HunkHeader, h HunkHeader) bool {
	for _, wh := range hunks {
		if hunkHeadersEqual(wh, h) {
			return true
		}
	}
	return false
}

func findContainingOld(hunks []HunkHeader, s lineSpan) (HunkHeader, bool) {
	for _, wh := range hunks {
		if oldSpan(wh).contains(s) {
			return wh, true
		}
	}
	return HunkHeader{}, false
}

func findContainingNew(hunks []HunkHeader, s lineSpan) (HunkHeader, bool) {
	for _, wh := range hunks {
		if newSpan(wh).contains(s) {
			return wh, true
		}
	}
	return HunkHeader{}, false
}

// toAdditiveHunks reassembles a user's selection (a mix of two-sided hunks
// taken verbatim and one-sided sub-selections, which zero out the side not
// selected) into the ordered, additive hunk list applyHunks expects, plus
// whatever couldn't be matched against the file's real worktree hunks.
//
// The upstream implementation falls back to a second, BTreeMap-grouping
// algorithm when this one produces an out-of-order result (selections
// spanning the same worktree hunk from both sides in an order that
// defeats the single "previous cursor" it keeps). That fallback is not
// ported: selections that provoke it are rejected here instead of
// reassembled, which only affects the rare case of mixing old-only and
// new-only sub-selections of the same worktree hunk out of line order.
func toAdditiveHunks(selected, worktreeHunks, worktreeHunksNoContext []HunkHeader) (toCommit, rejected []HunkHeader) {
	previous := HunkHeader{OldStart: 1, NewStart: 1}
	var lastWH *HunkHeader
	var lastWHVal HunkHeader

	for _, sh := range selected {
		shNew := newSpan(sh)
		shOld := oldSpan(sh)

		switch {
		case shNew.isNull():
			if wh, ok := findContainingOld(worktreeHunksNoContext, shOld); ok {
				if lastWH == nil || lastWHVal != wh {
					lastWHVal = wh
					lastWH = &lastWHVal
					previous.NewStart = wh.NewStart
				}
				toCommit = append(toCommit, HunkHeader{
					OldStart: sh.OldStart,
					OldLines: sh.OldLines,
					NewStart: previous.NewStart,
					NewLines: 0,
				})
				previous.OldStart = shOld.end()
				continue
			}

		case shOld.isNull():
			if wh, ok := findContainingNew(worktreeHunksNoContext, shNew); ok {
				if lastWH == nil || lastWHVal != wh {
					lastWHVal = wh
					lastWH = &lastWHVal
					previous.OldStart = wh.OldStart
				}
				toCommit = append(toCommit, HunkHeader{
					OldStart: previous.OldStart,
					OldLines: 0,
					NewStart: sh.NewStart,
					NewLines: sh.NewLines,
				})
				previous.NewStart = shNew.end()
				continue
			}

		default:
			if containsHeader(worktreeHunks, sh) {
				previous.OldStart = shOld.end()
				previous.NewStart = shNew.end()
				lastWHVal = sh
				lastWH = &lastWHVal
				toCommit = append(toCommit, sh)
				continue
			}
		}

		rejected = append(rejected, sh)
	}

	if !inOrder(toCommit) {
		// See the fallback note above: we reject everything rather than
		// reproduce the BTreeMap-based second pass.
		rejected = append(rejected, toCommit...)
		toCommit = nil
	}

	return toCommit, rejected
}

// inOrder reports whether hunks is strictly increasing under the same
// field-order comparison the upstream HunkHeader derives Ord from:
// (OldStart, OldLines, NewStart, NewLines).
func inOrder(hunks []HunkHeader) bool {
	for i := 1; i < len(hunks); i++ {
		if !headerLess(hunks[i-1], hunks[i]) {
			return false
		}
	}
	return true
}

func headerLess(a, b HunkHeader) bool {
	if a.OldStart != b.OldStart {
		return a.OldStart < b.OldStart
	}
	if a.OldLines != b.OldLines {
		return a.OldLines < b.OldLines
	}
	if a.NewStart != b.NewStart {
		return a.NewStart < b.NewStart
	}
	return a.NewLines < b.NewLines
}

// applyHunks reconstructs a file's content by copying unselected regions
// of oldContent and, for each hunk in order, skipping its old-side lines
// (if any) and splicing in its new-side lines (if any) read from
// newContent. Hunks must already be ordered and additive (as produced by
// toAdditiveHunks).
func applyHunks(oldContent, newContent []byte, hunks []HunkHeader) []byte {
	oldLines := splitLines(oldContent)
	newLines := splitLines(newContent)

	var out bytes.Buffer
	oldCursor := 0 // next unconsumed 0-based index into oldLines

	for _, h := range hunks {
		oldStart := h.OldStart - 1
		for ; oldCursor < oldStart && oldCursor < len(oldLines); oldCursor++ {
			out.Write(oldLines[oldCursor])
		}
		if h.OldLines > 0 {
			oldCursor = oldStart + h.OldLines
		}
		if h.NewLines > 0 {
			newStart := h.NewStart - 1
			for i := range h.NewLines {
				idx := newStart + i
				if idx < len(newLines) {
					out.Write(newLines[idx])
				}
			}
		}
	}
	for ; oldCursor < len(oldLines); oldCursor++ {
		out.Write(oldLines[oldCursor])
	}

	return out.Bytes()
}

// splitLines splits content into lines that each retain their trailing
// newline, so concatenating any subsequence reproduces the original byte
// stream exactly (including a missing final newline).
func splitLines(content []byte) [][]byte {
	if len(content) == 0 {
		return nil
	}
	var lines [][]byte
	for len(content) > 0 {
		idx := bytes.IndexByte(content, '\n')
		if idx < 0 {
			lines = append(lines, content)
			break
		}
		lines = append(lines, content[:idx+1])
		content = content[idx+1:]
	}
	return lines
}
