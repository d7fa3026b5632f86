// Package diff classifies the lines of two file versions for the preview
// dialog. Backend-computed diffs are passed through; otherwise the diff is
// computed locally.
package diff

import (
	"strings"

	"github.com/knx2openhab/dashboard/internal/models"
)

// Lookahead is how far past the current position the heuristic searches
// for a line that reappears.
const Lookahead = 4

// Strategy selects the local diff algorithm.
type Strategy string

const (
	// StrategyLookahead is the two-pointer heuristic.
	StrategyLookahead Strategy = "lookahead"
	// StrategyMatcher is the longest-matching-block algorithm.
	StrategyMatcher Strategy = "matcher"
)

// ParseStrategy returns the strategy named s, defaulting to StrategyLookahead.
func ParseStrategy(s string) Strategy {
	if Strategy(strings.ToLower(strings.TrimSpace(s))) == StrategyMatcher {
		return StrategyMatcher
	}
	return StrategyLookahead
}

// SplitLines splits text into lines. CRLF is treated as LF, one trailing
// newline does not produce an extra empty line and empty text has no lines.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

// Compute diffs two texts with the given strategy.
func Compute(original, current string, s Strategy) []models.DiffEntry {
	o, c := SplitLines(original), SplitLines(current)
	if s == StrategyMatcher {
		return Matcher(o, c)
	}
	return Lines(o, c)
}

// Lines walks original (i) and current (j) simultaneously. On a mismatch
// it looks up to Lookahead lines ahead in each sequence: if current[j]
// reappears in original first, original[i] was removed; if original[i]
// reappears in current first, current[j] was added; otherwise the pair is
// a substitution, as is a tie. Cost is O(n*Lookahead).
func Lines(original, current []string) []models.DiffEntry {
	out := make([]models.DiffEntry, 0, len(original)+len(current))
	ln := 0
	emit := func(t models.DiffType, line string) {
		e := models.DiffEntry{Type: t, Line: line}
		if t != models.DiffRemoved {
			ln++
			n := ln
			e.CurrLn = &n
		}
		out = append(out, e)
	}

	i, j := 0, 0
	for i < len(original) || j < len(current) {
		switch {
		case i >= len(original):
			emit(models.DiffAdded, current[j])
			j++
		case j >= len(current):
			emit(models.DiffRemoved, original[i])
			i++
		case original[i] == current[j]:
			emit(models.DiffUnchanged, current[j])
			i++
			j++
		default:
			inCurrent := indexWithin(current, j+1, original[i])
			inOriginal := indexWithin(original, i+1, current[j])

			switch {
			case inOriginal >= 0 && (inCurrent < 0 || inOriginal-i < inCurrent-j):
				emit(models.DiffRemoved, original[i])
				i++
			case inCurrent >= 0 && (inOriginal < 0 || inCurrent-j < inOriginal-i):
				emit(models.DiffAdded, current[j])
				j++
			default:
				emit(models.DiffRemoved, original[i])
				emit(models.DiffAdded, current[j])
				i++
				j++
			}
		}
	}
	return out
}

// indexWithin returns the index of want in lines[from:from+Lookahead], or -1.
func indexWithin(lines []string, from int, want string) int {
	end := from + Lookahead
	if end > len(lines) {
		end = len(lines)
	}
	for k := from; k < end; k++ {
		if lines[k] == want {
			return k
		}
	}
	return -1
}

// FromBackend returns the backend-provided diff unchanged. It exists so
// callers make the passthrough explicit.
func FromBackend(entries []models.DiffEntry) []models.DiffEntry {
	if entries == nil {
		return []models.DiffEntry{}
	}
	return entries
}

// Summary counts entries per type.
type Summary struct {
	Added     int
	Removed   int
	Modified  int
	Unchanged int
}

// Changed reports whether any line differs.
func (s Summary) Changed() bool {
	return s.Added+s.Removed+s.Modified > 0
}

// Summarize counts the entries of a diff.
func Summarize(entries []models.DiffEntry) Summary {
	var s Summary
	for _, e := range entries {
		switch e.Type {
		case models.DiffAdded:
			s.Added++
		case models.DiffRemoved:
			s.Removed++
		case models.DiffModified:
			s.Modified++
		default:
			s.Unchanged++
		}
	}
	return s
}
