package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/aqasim81/table-tracking/internal/analyzer"
	"github.com/aqasim81/table-tracking/internal/render"
	"github.com/aqasim81/table-tracking/internal/tracking"
)

// report shows the tracking report of a version. The same endpoint deletes
// single log rows and exports the filtered statements.
func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	schema, table := tableParams(r)

	version, err := versionParam(r)
	if err == nil {
		err = parseForm(r)
	}

	if err != nil {
		h.fail(w, r, err)

		return
	}

	var page render.Page

	for _, kind := range []tracking.LogKind{tracking.DDL, tracking.DML} {
		if raw := r.Form.Get(kind.Param()); raw != "" {
			h.deleteLogRow(ctx, &page, schema, table, version, kind, raw)
		}
	}

	data, err := h.store.TrackedData(ctx, schema, table, version)
	if err != nil {
		h.fail(w, r, err)

		return
	}

	params, filter := h.reportFilter(r, &page, data)

	if r.Form.Get("report_export") != "" {
		entries := tracking.Entries(data, params.LogType, filter)

		switch r.Form.Get("export_type") {
		case render.ExportFile:
			h.downloadDump(w, r, table, entries)

			return
		case render.ExportDump:
			dump := render.NewDumpPage(schema, table, tracking.SQLDump(entries))
			h.write(w, r, http.StatusOK, func(buf io.Writer) error { return h.render.Dump(buf, &dump) })

			return
		case render.ExportExecution:
			h.execute(ctx, &page, entries, r.Form.Get("force") != "")
		default:
			h.flashError(ctx, &page, fmt.Errorf("%w: export_type %q", ErrInvalidParam, r.Form.Get("export_type")))
		}
	}

	report := render.NewReportPage(render.ReportInput{
		Data:        data,
		Params:      params,
		Filter:      filter,
		DDLFindings: h.analyze(data.DDLog),
		DMLFindings: h.analyze(data.DMLog),
	})
	report.Messages = page.Messages

	h.write(w, r, http.StatusOK, func(buf io.Writer) error { return h.render.Report(buf, &report) })
}

// reportFilter reads the filter parameters. Invalid values fall back to
// their defaults with an error notice; empty dates show the defaults that
// were applied.
func (h *Handler) reportFilter(
	r *http.Request, page *render.Page, data *tracking.Data,
) (render.ReportParams, tracking.Filter) {
	now := h.now()

	logType, err := tracking.ParseLogType(r.Form.Get("logtype"))
	if err != nil {
		h.flashError(r.Context(), page, fmt.Errorf("%w: %w", ErrInvalidParam, err))

		logType = tracking.LogSchemaAndData
	}

	params := render.ReportParams{
		LogType:  logType,
		DateFrom: r.Form.Get("date_from"),
		DateTo:   r.Form.Get("date_to"),
		Users:    r.Form.Get("users"),
	}

	filter, err := tracking.ParseFilter(params.DateFrom, params.DateTo, params.Users, data.CreatedAt, now)
	if err != nil {
		h.flashError(r.Context(), page, fmt.Errorf("%w: %w", ErrInvalidParam, err))

		params.DateFrom, params.DateTo = "", ""
		filter, _ = tracking.ParseFilter("", "", params.Users, data.CreatedAt, now)
	}

	if params.DateFrom == "" {
		params.DateFrom = filter.From.Format(tracking.DateLayout)
	}

	if params.DateTo == "" {
		params.DateTo = filter.To.Format(tracking.DateLayout)
	}

	return params, filter
}

func (h *Handler) deleteLogRow(
	ctx context.Context, page *render.Page, schema, table string, version int, kind tracking.LogKind, raw string,
) {
	data, err := h.store.TrackedData(ctx, schema, table, version)
	if err != nil {
		h.flashError(ctx, page, err)

		return
	}

	id, err := strconv.Atoi(raw)
	if err != nil {
		h.flashError(ctx, page, fmt.Errorf("%w: %s %q", ErrInvalidParam, kind.Param(), raw))

		return
	}

	entries, err := tracking.DeleteLogEntry(data.Log(kind), id)
	if err == nil {
		err = h.store.ChangeTrackingData(ctx, schema, table, version, kind, entries)
	}

	if err != nil {
		h.flashError(ctx, page, err)

		return
	}

	if kind == tracking.DML {
		page.Flash(render.Success, "Tracking data manipulation successfully deleted")
	} else {
		page.Flash(render.Success, "Tracking data definition successfully deleted")
	}
}

// downloadDump sends the filtered statements as an SQL file.
func (h *Handler) downloadDump(w http.ResponseWriter, r *http.Request, table string, entries []tracking.FilteredEntry) {
	dump := tracking.FileDump(table, entries, h.now())

	w.Header().Set("Content-Type", "text/x-sql")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", tracking.DumpFilename(table)))
	w.Header().Set("Content-Length", strconv.Itoa(len(dump)))
	w.WriteHeader(http.StatusOK)

	if _, err := io.WriteString(w, dump); err != nil {
		h.logger.WarnContext(r.Context(), "writing dump", "table", table, "error", err)
	}
}

// execute replays the filtered statements unless the analyzer flags some
// of them and the export is not forced.
func (h *Handler) execute(ctx context.Context, page *render.Page, entries []tracking.FilteredEntry, force bool) {
	if res := h.analyzer.Analyze(tracking.Statements(entries)); res.HasHighOrCritical() && !force {
		h.logger.WarnContext(ctx, "execution export blocked", "error", ErrDangerousStatements)
		page.Flash(render.Error,
			"Dangerous statements found, tick the box to execute anyway:\n"+res.Summary())

		return
	}

	n, err := h.replayer.Replay(ctx, entries)
	if err != nil {
		h.flashError(ctx, page, err)

		return
	}

	page.Flash(render.Success, fmt.Sprintf("SQL statements executed. %d statements were run.", n))
}

func (h *Handler) analyze(log []tracking.Entry) *analyzer.Result {
	statements := make([]string, len(log))
	for i := range log {
		statements[i] = log[i].Statement
	}

	return h.analyzer.Analyze(statements)
}
