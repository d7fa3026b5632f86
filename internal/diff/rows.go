package diff

import (
	"strconv"

	"github.com/knx2openhab/dashboard/internal/models"
)

// Placeholder is the text of the single row shown for an empty diff.
const Placeholder = "No differences to display"

// Row is one displayed line of a diff view.
type Row struct {
	Type   models.DiffType
	Number string
	Line   string
}

// Rows maps diff entries to display rows. Non-removed lines show their
// current line number, removed lines show "-". An empty diff yields one
// placeholder row.
func Rows(entries []models.DiffEntry) []Row {
	if len(entries) == 0 {
		return []Row{{Type: models.DiffUnchanged, Number: "", Line: Placeholder}}
	}

	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		num := "-"
		if e.Type != models.DiffRemoved && e.CurrLn != nil {
			num = strconv.Itoa(*e.CurrLn)
		}
		rows = append(rows, Row{Type: e.Type, Number: num, Line: e.Line})
	}
	return rows
}
