package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aqasim81/table-tracking/internal/render"
	"github.com/aqasim81/table-tracking/internal/tracker"
)

func (h *Handler) schemaPage(w http.ResponseWriter, r *http.Request) {
	h.showSchema(w, r, render.Page{})
}

// showSchema renders the tracked and untracked tables of the schema in
// the URL with the messages already collected in base.
func (h *Handler) showSchema(w http.ResponseWriter, r *http.Request, base render.Page) {
	ctx := r.Context()
	schema := chi.URLParam(r, "schema")

	tracked, err := h.store.ListTrackedTables(ctx, schema)
	if err != nil {
		h.fail(w, r, err)

		return
	}

	relations, err := h.store.UntrackedTables(ctx, schema)
	if err != nil {
		h.fail(w, r, err)

		return
	}

	untracked := make([]render.UntrackedRelation, len(relations))
	for i, rel := range relations {
		untracked[i] = render.UntrackedRelation{Name: rel.Name, IsView: rel.IsView}
	}

	page := render.NewSchemaPage(schema, tracked, untracked)
	page.Messages = base.Messages

	h.write(w, r, http.StatusOK, func(buf io.Writer) error { return h.render.Schema(buf, &page) })
}

func (h *Handler) selectTable(w http.ResponseWriter, r *http.Request) {
	schema := chi.URLParam(r, "schema")

	table := r.URL.Query().Get("table")
	if table == "" {
		http.Redirect(w, r, render.SchemaPath(schema), http.StatusSeeOther)

		return
	}

	http.Redirect(w, r, render.TablePath(schema, table), http.StatusSeeOther)
}

// newVersionsForm shows the create-version form for the tables selected
// on the schema page.
func (h *Handler) newVersionsForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	schema := chi.URLParam(r, "schema")

	if err := parseForm(r); err != nil {
		h.fail(w, r, err)

		return
	}

	selected := formList(r, "selected")
	if len(selected) == 0 {
		var page render.Page
		page.Flash(render.Notice, "No tables selected.")
		h.showSchema(w, r, page)

		return
	}

	rel, err := h.relationType(ctx, schema, selected)
	if err != nil {
		h.fail(w, r, err)

		return
	}

	action := render.SchemaVersionsPath(schema)
	last := 0

	if len(selected) == 1 {
		action = render.CreateVersionPath(schema, selected[0])

		if last, err = h.store.LastVersion(ctx, schema, selected[0]); err != nil {
			h.fail(w, r, err)

			return
		}

		last = max(last, 0)
	}

	page := &render.CreateVersionPage{
		Page:      render.Page{Title: "Track tables of " + schema},
		SchemaURL: render.SchemaPath(schema),
		Create:    render.NewCreateVersionForm(action, schema, selected, last, rel, h.defaultStatements),
	}

	h.write(w, r, http.StatusOK, func(buf io.Writer) error { return h.render.CreateVersion(buf, page) })
}

// createVersions starts tracking every selected table at the posted
// version. A table that fails is reported and the rest are still created.
func (h *Handler) createVersions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	schema := chi.URLParam(r, "schema")

	if err := parseForm(r); err != nil {
		h.fail(w, r, err)

		return
	}

	var page render.Page

	selected := formList(r, "selected")
	if len(selected) == 0 {
		page.Flash(render.Notice, "No tables selected.")
		h.showSchema(w, r, page)

		return
	}

	version := 1

	if raw := r.Form.Get("version"); raw != "" {
		v, err := parseVersion(raw)
		if err != nil {
			h.fail(w, r, err)

			return
		}

		version = v
	}

	created := 0

	for _, table := range selected {
		if err := h.createOne(ctx, r, schema, table, version); err != nil {
			h.logger.ErrorContext(ctx, "creating tracking version", "schema", schema, "table", table, "error", err)
			page.Flash(render.Error, fmt.Sprintf("Version %d could not be created for %s.%s.", version, schema, table))

			continue
		}

		created++
	}

	switch {
	case created == len(selected):
		page.Flash(render.Success,
			fmt.Sprintf("Version %d was created for selected tables, tracking is active for them.", version))
	case created > 0:
		page.Flash(render.Success,
			fmt.Sprintf("Version %d was created for %d of %d selected tables.", version, created, len(selected)))
	}

	h.showSchema(w, r, page)
}

// toggle flips the active flag of a table from the schema page.
func (h *Handler) toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	schema := chi.URLParam(r, "schema")

	if err := parseForm(r); err != nil {
		h.fail(w, r, err)

		return
	}

	table := r.Form.Get("table")

	version, err := parseVersion(r.Form.Get("version"))
	if err != nil {
		h.fail(w, r, err)

		return
	}

	var active bool

	switch action := r.Form.Get("action"); action {
	case "activate_now":
		active = true
	case "deactivate_now":
		active = false
	default:
		h.fail(w, r, fmt.Errorf("%w: action %q", ErrInvalidParam, action))

		return
	}

	var page render.Page

	if err := h.store.SetActive(ctx, schema, table, version, active); err != nil {
		h.flashError(ctx, &page, err)
	} else {
		page.Flash(render.Success, activationMessage(schema, table, version, active))
	}

	h.showSchema(w, r, page)
}

// query executes posted SQL through the tracker.
func (h *Handler) query(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := parseForm(r); err != nil {
		h.fail(w, r, err)

		return
	}

	page := &render.Page{Title: "SQL query"}

	res, err := h.tracker.Execute(ctx, h.userFn(r), r.Form.Get("sql_query"))

	switch {
	case errors.Is(err, tracker.ErrEmptyQuery):
		page.Flash(render.Notice, "The query is empty.")
	case err != nil:
		h.flashError(ctx, page, err)
	default:
		page.Flash(render.Success, "Your SQL query has been executed successfully.")

		if n := len(res.Recorded); n > 0 {
			page.Flash(render.Notice, strconv.Itoa(n)+" tracking log entries were written.")
		}
	}

	h.write(w, r, http.StatusOK, func(buf io.Writer) error { return h.render.Message(buf, page) })
}
