// Package render turns tracking data into HTML pages and forms.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer executes the embedded page templates.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates. It panics if they are malformed,
// which can only happen at build time.
func New() *Renderer {
	return &Renderer{tmpl: template.Must(template.ParseFS(templateFS, "templates/*.html"))}
}

// Schema renders the tracked and untracked tables of a schema.
func (r *Renderer) Schema(w io.Writer, p *SchemaPage) error {
	return r.execute(w, "schema.html", p)
}

// Versions renders the versions page of a table.
func (r *Renderer) Versions(w io.Writer, p *VersionsPage) error {
	return r.execute(w, "versions.html", p)
}

// CreateVersion renders the standalone create-version form.
func (r *Renderer) CreateVersion(w io.Writer, p *CreateVersionPage) error {
	return r.execute(w, "create_version.html", p)
}

// Report renders a tracking report.
func (r *Renderer) Report(w io.Writer, p *ReportPage) error {
	return r.execute(w, "report.html", p)
}

// Snapshot renders a structure snapshot.
func (r *Renderer) Snapshot(w io.Writer, p *SnapshotPage) error {
	return r.execute(w, "snapshot.html", p)
}

// Dump renders an SQL dump ready to copy or execute.
func (r *Renderer) Dump(w io.Writer, p *DumpPage) error {
	return r.execute(w, "dump.html", p)
}

// Message renders a page holding only its messages.
func (r *Renderer) Message(w io.Writer, p *Page) error {
	return r.execute(w, "message.html", p)
}

// Fragment renders one named form or table on its own.
func (r *Renderer) Fragment(w io.Writer, name string, data any) error {
	return r.execute(w, name, data)
}

func (r *Renderer) execute(w io.Writer, name string, data any) error {
	if err := r.tmpl.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("rendering %s: %w", name, err)
	}

	return nil
}
