// Package assets provides embedded web templates and static files.
package assets

import (
	"embed"
	"io/fs"
)

// EmbeddedFiles contains the dashboard page, panel templates and static files.
//
//go:embed web
var EmbeddedFiles embed.FS

// GetTemplatesFS returns the template directory.
func GetTemplatesFS() fs.FS {
	sub, err := fs.Sub(EmbeddedFiles, "web/templates")
	if err != nil {
		panic("assets: templates missing: " + err.Error())
	}
	return sub
}

// GetStaticFS returns the static file directory.
func GetStaticFS() fs.FS {
	sub, err := fs.Sub(EmbeddedFiles, "web/static")
	if err != nil {
		panic("assets: static files missing: " + err.Error())
	}
	return sub
}
