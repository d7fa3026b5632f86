// Package view renders dashboard panels as HTML fragments.
package view

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"github.com/knx2openhab/dashboard/internal/assets"
	"github.com/knx2openhab/dashboard/internal/configform"
	"github.com/knx2openhab/dashboard/internal/models"
	"github.com/knx2openhab/dashboard/internal/stats"
)

// Panel targets. Each one is the id of a page element and the name of the
// template rendering it.
const (
	TargetHeader   = "header"
	TargetStatus   = "status"
	TargetJobs     = "jobs"
	TargetJob      = "job"
	TargetLog      = "log"
	TargetStats    = "stats"
	TargetPreview  = "preview"
	TargetProject  = "project"
	TargetConfig   = "config"
	TargetServices = "services"
	TargetVersion  = "version"
)

// PageTemplate is the full dashboard page.
const PageTemplate = "index.html"

// Renderer executes the embedded templates.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.New("").Funcs(funcs()).ParseFS(assets.GetTemplatesFS(), "*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Template returns the parsed set, for gin's HTML renderer.
func (r *Renderer) Template() *template.Template {
	return r.tmpl
}

// Render executes the template of target into a string.
func (r *Renderer) Render(target string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, target, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", target, err)
	}
	return buf.String(), nil
}

// StatsBuilder returns the builder used by the statistics gate.
func (r *Renderer) StatsBuilder() stats.Builder {
	return func(buf *bytes.Buffer, table stats.Table) error {
		return r.tmpl.ExecuteTemplate(buf, TargetStats, table)
	}
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"badge":        func(s models.JobStatus) string { return s.BadgeClass() },
		"formatTime":   FormatTime,
		"signed":       Signed,
		"deltaClass":   deltaClass,
		"sectionStart": sectionStart,
		"sectionEnd":   sectionEnd,
		"fieldError":   fieldError,
		"deref": func(f *float64) string {
			if f == nil {
				return ""
			}
			return strconv.FormatFloat(*f, 'f', -1, 64)
		},
	}
}

// FormatTime renders a unix timestamp in local time.
func FormatTime(unix int64) string {
	if unix <= 0 {
		return ""
	}
	return time.Unix(unix, 0).Format("2006-01-02 15:04:05")
}

// Signed renders n with an explicit sign.
func Signed(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func deltaClass(n int) string {
	switch {
	case n > 0:
		return "delta-up"
	case n < 0:
		return "delta-down"
	}
	return ""
}

func sectionStart(fields []configform.Field, i int) bool {
	f := fields[i]
	return f.Section != "" && (i == 0 || fields[i-1].Section != f.Section)
}

func sectionEnd(fields []configform.Field, i int) bool {
	f := fields[i]
	return f.Section != "" && (i == len(fields)-1 || fields[i+1].Section != f.Section)
}

func fieldError(errs []configform.FieldError, key string) string {
	for _, e := range errs {
		if e.Key == key {
			return e.Err.Error()
		}
	}
	return ""
}
