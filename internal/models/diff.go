package models

// DiffType classifies one line of a file comparison.
type DiffType string

const (
	DiffAdded     DiffType = "added"
	DiffRemoved   DiffType = "removed"
	DiffUnchanged DiffType = "unchanged"
	DiffModified  DiffType = "modified"
)

// DiffEntry is one classified line of a comparison between two file versions.
// CurrLn is the line number in the current version and is nil for removed lines.
type DiffEntry struct {
	Type   DiffType `json:"type"`
	Line   string   `json:"line"`
	CurrLn *int     `json:"curr_ln,omitempty"`
	OrigLn *int     `json:"orig_ln,omitempty"`
}

// FileContent is the payload of GET /api/file/preview.
type FileContent struct {
	Content string `json:"content"`
	Size    int64  `json:"size"`
}

// PreviewData is the state behind the open file preview dialog.
type PreviewData struct {
	Filename string       `json:"filename"`
	Current  FileContent  `json:"current"`
	Original *FileContent `json:"original"`
	Diff     []DiffEntry  `json:"diff"`
	// Computed is true when Diff was produced locally rather than by the backend.
	Computed bool `json:"computed"`
}
