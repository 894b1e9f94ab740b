package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aqasim81/table-tracking/internal/render"
	"github.com/aqasim81/table-tracking/internal/store"
	"github.com/aqasim81/table-tracking/internal/tracking"
)

func (h *Handler) versionsPage(w http.ResponseWriter, r *http.Request) {
	h.showVersions(w, r, render.Page{})
}

// showVersions renders the versions page of the table in the URL with the
// messages already collected in base.
func (h *Handler) showVersions(w http.ResponseWriter, r *http.Request, base render.Page) {
	ctx := r.Context()
	schema, table := tableParams(r)

	versions, err := h.store.ListVersions(ctx, schema, table)
	if err != nil {
		h.fail(w, r, err)

		return
	}

	tracked, err := h.store.ListTrackedTables(ctx, schema)
	if err != nil {
		h.fail(w, r, err)

		return
	}

	rel, err := h.relationType(ctx, schema, []string{table})
	if err != nil {
		h.fail(w, r, err)

		return
	}

	last := 0
	if len(versions) > 0 {
		last = versions[0].Number
	}

	base.Title = "Tracking of " + schema + "." + table
	page := &render.VersionsPage{
		Page:       base,
		Schema:     schema,
		Table:      table,
		SchemaURL:  render.SchemaPath(schema),
		Selectable: render.NewSelectableTables(schema, tracked, table),
		Versions:   render.NewVersionsTable(schema, table, versions),
		Create: render.NewCreateVersionForm(
			render.CreateVersionPath(schema, table), schema, []string{table}, last, rel, h.defaultStatements,
		),
	}

	h.write(w, r, http.StatusOK, func(buf io.Writer) error { return h.render.Versions(buf, page) })
}

// relationType inspects the selected relations. A relation missing from
// the catalog counts as a table.
func (h *Handler) relationType(ctx context.Context, schema string, tables []string) (render.RelationType, error) {
	views := make([]bool, 0, len(tables))

	for _, t := range tables {
		isView, err := h.isView(ctx, schema, t)
		if err != nil {
			return "", err
		}

		views = append(views, isView)
	}

	return render.RelationTypeOf(views), nil
}

func (h *Handler) isView(ctx context.Context, schema, table string) (bool, error) {
	isView, err := h.store.IsView(ctx, schema, table)
	if errors.Is(err, store.ErrRelationNotFound) {
		return false, nil
	}

	return isView, err //nolint:wrapcheck // store errors carry context
}

func (h *Handler) createVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	schema, table := tableParams(r)

	if err := parseForm(r); err != nil {
		h.fail(w, r, err)

		return
	}

	var page render.Page

	version, err := h.requestedVersion(ctx, r, schema, table)
	if err == nil {
		err = h.createOne(ctx, r, schema, table, version)
	}

	if err != nil {
		h.flashError(ctx, &page, err)
	} else {
		page.Flash(render.Success,
			fmt.Sprintf("Version %d was created, tracking for %s.%s is active.", version, schema, table))
	}

	h.showVersions(w, r, page)
}

// requestedVersion returns the posted version, defaulting to the one after
// the table's last version.
func (h *Handler) requestedVersion(ctx context.Context, r *http.Request, schema, table string) (int, error) {
	if raw := r.Form.Get("version"); raw != "" {
		return parseVersion(raw)
	}

	last, err := h.store.LastVersion(ctx, schema, table)
	if err != nil {
		return 0, err //nolint:wrapcheck // store errors carry context
	}

	return max(last, 0) + 1, nil
}

func (h *Handler) createOne(ctx context.Context, r *http.Request, schema, table string, version int) error {
	isView, err := h.isView(ctx, schema, table)
	if err != nil {
		return err
	}

	//nolint:wrapcheck // store errors carry context
	return h.store.CreateVersion(ctx, store.CreateParams{
		Schema:      schema,
		Table:       table,
		Version:     version,
		TrackingSet: tracking.TrackingSet(formValues(r)),
		IsView:      isView,
		User:        h.userFn(r),
	})
}

func (h *Handler) deleteVersions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	schema, table := tableParams(r)

	if err := parseForm(r); err != nil {
		h.fail(w, r, err)

		return
	}

	var page render.Page

	selected := formList(r, "selected_versions")
	if len(selected) == 0 {
		page.Flash(render.Notice, "No versions selected.")
		h.showVersions(w, r, page)

		return
	}

	for _, raw := range selected {
		version, err := parseVersion(raw)
		if err == nil {
			err = h.store.DeleteVersion(ctx, schema, table, version)
		}

		if err != nil {
			h.flashError(ctx, &page, err)
			h.showVersions(w, r, page)

			return
		}
	}

	page.Flash(render.Success, "Tracking versions deleted successfully.")
	h.showVersions(w, r, page)
}

func (h *Handler) deleteVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	schema, table := tableParams(r)

	version, err := versionParam(r)
	if err != nil {
		h.fail(w, r, err)

		return
	}

	var page render.Page

	if err := h.store.DeleteVersion(ctx, schema, table, version); err != nil {
		h.flashError(ctx, &page, err)
	} else {
		page.Flash(render.Success, fmt.Sprintf("Version %d of %s.%s was deleted.", version, schema, table))
	}

	h.showVersions(w, r, page)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	ctx := r.Context()
	schema, table := tableParams(r)

	version, err := versionParam(r)
	if err != nil {
		h.fail(w, r, err)

		return
	}

	var page render.Page

	if err := h.store.SetActive(ctx, schema, table, version, active); err != nil {
		h.flashError(ctx, &page, err)
	} else {
		page.Flash(render.Success, activationMessage(schema, table, version, active))
	}

	h.showVersions(w, r, page)
}

func activationMessage(schema, table string, version int, active bool) string {
	state := "deactivated"
	if active {
		state = "activated"
	}

	return fmt.Sprintf("Tracking for %s.%s was %s at version %d.", schema, table, state, version)
}

func (h *Handler) deleteTracking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	schema, table := tableParams(r)

	var page render.Page

	if err := h.store.DeleteTracking(ctx, schema, table); err != nil {
		h.flashError(ctx, &page, err)
	} else {
		page.Flash(render.Success, "Tracking data deleted successfully.")
	}

	h.showSchema(w, r, page)
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	schema, table := tableParams(r)

	version, err := versionParam(r)
	if err != nil {
		h.fail(w, r, err)

		return
	}

	data, err := h.store.TrackedData(r.Context(), schema, table, version)
	if err != nil {
		h.fail(w, r, err)

		return
	}

	page := render.NewSnapshotPage(data)
	h.write(w, r, http.StatusOK, func(buf io.Writer) error { return h.render.Snapshot(buf, &page) })
}
