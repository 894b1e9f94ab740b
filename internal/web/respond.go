package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aqasim81/table-tracking/internal/render"
	"github.com/aqasim81/table-tracking/internal/store"
)

const queryError = "Query error"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// write renders into a buffer first so a template error never leaves a
// half-written page behind.
func (h *Handler) write(w http.ResponseWriter, r *http.Request, status int, fn func(io.Writer) error) {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		h.logger.ErrorContext(r.Context(), "rendering page", "path", r.URL.Path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// fail renders a message page for err with a status derived from it.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, ErrInvalidParam):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrVersionNotFound), errors.Is(err, store.ErrNotTracked):
		status = http.StatusNotFound
	}

	page := &render.Page{Title: "Error"}
	h.flashError(r.Context(), page, err)

	h.write(w, r, status, func(buf io.Writer) error { return h.render.Message(buf, page) })
}

// flashError logs err and adds the user-facing error notice to page.
func (h *Handler) flashError(ctx context.Context, page *render.Page, err error) {
	h.logger.ErrorContext(ctx, "tracking operation failed", "error", err)

	if errors.Is(err, ErrInvalidParam) {
		page.Flash(render.Error, err.Error())

		return
	}

	page.Flash(render.Error, queryError)
}

func tableParams(r *http.Request) (string, string) {
	return chi.URLParam(r, "schema"), chi.URLParam(r, "table")
}

func versionParam(r *http.Request) (int, error) {
	return parseVersion(chi.URLParam(r, "version"))
}

func parseVersion(raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: version %q", ErrInvalidParam, raw)
	}

	return v, nil
}

// formValues flattens a parsed form to its first value per key.
func formValues(r *http.Request) map[string]string {
	values := make(map[string]string, len(r.Form))

	for k, v := range r.Form {
		if len(v) > 0 {
			values[k] = v[0]
		}
	}

	return values
}

// formList returns the values posted under name, with or without the
// trailing brackets used by HTML forms.
func formList(r *http.Request, name string) []string {
	out := append([]string{}, r.Form[name]...)

	return append(out, r.Form[name+"[]"]...)
}

func parseForm(r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParam, err)
	}

	return nil
}
