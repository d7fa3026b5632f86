package diff

import (
	"github.com/pmezard/go-difflib/difflib"

	"github.com/knx2openhab/dashboard/internal/models"
)

// Matcher diffs with difflib's SequenceMatcher, which yields the same
// opcodes the backend computes. Replacements are emitted as all removed
// lines followed by all added lines.
func Matcher(original, current []string) []models.DiffEntry {
	out := make([]models.DiffEntry, 0, len(original)+len(current))
	if len(original) == 0 && len(current) == 0 {
		return out
	}

	m := difflib.NewMatcherWithJunk(original, current, false, nil)
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'e':
			for k := 0; k < op.I2-op.I1; k++ {
				out = append(out, entry(models.DiffUnchanged, current[op.J1+k], op.I1+k+1, op.J1+k+1))
			}
		case 'r':
			for i := op.I1; i < op.I2; i++ {
				out = append(out, entry(models.DiffRemoved, original[i], i+1, 0))
			}
			for j := op.J1; j < op.J2; j++ {
				out = append(out, entry(models.DiffAdded, current[j], 0, j+1))
			}
		case 'd':
			for i := op.I1; i < op.I2; i++ {
				out = append(out, entry(models.DiffRemoved, original[i], i+1, 0))
			}
		case 'i':
			for j := op.J1; j < op.J2; j++ {
				out = append(out, entry(models.DiffAdded, current[j], 0, j+1))
			}
		}
	}
	return out
}

func entry(t models.DiffType, line string, origLn, currLn int) models.DiffEntry {
	e := models.DiffEntry{Type: t, Line: line}
	if origLn > 0 {
		n := origLn
		e.OrigLn = &n
	}
	if currLn > 0 {
		n := currLn
		e.CurrLn = &n
	}
	return e
}
