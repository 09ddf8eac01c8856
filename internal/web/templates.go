// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"
	"path"
	"strings"
	"time"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFiles embed.FS

const layoutFile = "templates/layout.html"

// TemplateManager holds one parsed template set per page, each sharing the
// layout.
type TemplateManager struct {
	pages map[string]*template.Template
}

// NewTemplateManager parses the embedded page templates.
func NewTemplateManager() (*TemplateManager, error) {
	funcMap := template.FuncMap{
		"formatDate": formatDate,
		"hostOf":     hostOf,
		"add":        func(a, b int) int { return a + b },
		"pathEscape": url.PathEscape,
	}

	layout, err := template.New("layout.html").Funcs(funcMap).ParseFS(templatesFS, layoutFile)
	if err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}

	files, err := fs.Glob(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}

	tm := &TemplateManager{pages: make(map[string]*template.Template)}
	for _, file := range files {
		if file == layoutFile {
			continue
		}
		page, err := layout.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning layout: %w", err)
		}
		if _, err := page.ParseFS(templatesFS, file); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", file, err)
		}
		tm.pages[path.Base(file)] = page
	}
	return tm, nil
}

// Render executes the named page into w. The page is rendered to a buffer
// first so a template error never leaves a half-written response.
func (tm *TemplateManager) Render(w io.Writer, name string, data any) error {
	page, ok := tm.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := page.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return fmt.Errorf("rendering %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("Jan 2, 2006")
}

// hostOf shortens a URL to its host for link labels.
func hostOf(raw string) string {
	s := strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return raw
	}
	return s
}
