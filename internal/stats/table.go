package stats

import (
	"net/url"
	"sort"
	"strings"

	"github.com/knx2openhab/dashboard/internal/models"
)

// Row is one file of the statistics table.
type Row struct {
	Filename string
	Path     string
	Handle   string
	models.FileStat
}

// Table is the render model of the statistics panel.
type Table struct {
	Rows   []Row
	Totals models.FileStat
}

// Empty reports whether there is nothing to show.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// BuildTable sorts stats by filename and sums the totals row.
func BuildTable(stats map[string]models.FileStat) Table {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	t := Table{Rows: make([]Row, 0, len(names))}
	for _, name := range names {
		st := stats[name]
		t.Rows = append(t.Rows, Row{
			Filename: name,
			Path:     NormalizePath(name),
			Handle:   ActionHandle(name),
			FileStat: st,
		})
		t.Totals.Before += st.Before
		t.Totals.After += st.After
		t.Totals.Delta += st.Delta
		t.Totals.Added += st.Added
		t.Totals.Removed += st.Removed
	}
	return t
}

// NormalizePath converts path separators to forward slashes.
func NormalizePath(name string) string {
	return strings.ReplaceAll(name, `\`, "/")
}

// ActionHandle encodes a filename so it can be embedded in a UI action
// (an attribute value or a URL segment) without further quoting.
func ActionHandle(name string) string {
	return url.PathEscape(NormalizePath(name))
}

// ParseActionHandle reverses ActionHandle.
func ParseActionHandle(handle string) (string, error) {
	return url.PathUnescape(handle)
}
