// Package web serves the tracking pages over HTTP.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aqasim81/table-tracking/internal/analyzer"
	"github.com/aqasim81/table-tracking/internal/config"
	"github.com/aqasim81/table-tracking/internal/render"
	"github.com/aqasim81/table-tracking/internal/store"
	"github.com/aqasim81/table-tracking/internal/tracker"
	"github.com/aqasim81/table-tracking/internal/tracking"
)

const maxFormBytes = 8 << 20

// Store is the tracking store the handlers read and mutate.
type Store interface {
	ListVersions(ctx context.Context, schema, table string) ([]tracking.Version, error)
	ListTrackedTables(ctx context.Context, schema string) ([]tracking.Version, error)
	UntrackedTables(ctx context.Context, schema string) ([]store.Relation, error)
	LastVersion(ctx context.Context, schema, table string) (int, error)
	IsView(ctx context.Context, schema, table string) (bool, error)
	CreateVersion(ctx context.Context, p store.CreateParams) error
	SetActive(ctx context.Context, schema, table string, version int, active bool) error
	DeleteVersion(ctx context.Context, schema, table string, version int) error
	DeleteTracking(ctx context.Context, schema, table string) error
	TrackedData(ctx context.Context, schema, table string, version int) (*tracking.Data, error)
	ChangeTrackingData(
		ctx context.Context, schema, table string, version int, kind tracking.LogKind, entries []tracking.Entry,
	) error
}

// Tracker executes SQL and logs it against tracked tables.
type Tracker interface {
	Execute(ctx context.Context, user, sql string) (*tracker.Result, error)
}

// Replayer executes exported statements.
type Replayer interface {
	Replay(ctx context.Context, entries []tracking.FilteredEntry) (int, error)
}

// Analyzer flags dangerous statements.
type Analyzer interface {
	Analyze(statements []string) *analyzer.Result
}

// Option configures a Handler.
type Option func(*Handler)

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	store    Store
	tracker  Tracker
	replayer Replayer
	analyzer Analyzer
	render   *render.Renderer
	logger   *slog.Logger

	defaultSchema     string
	defaultStatements string
	userFn            func(*http.Request) string
	now               func() time.Time
}

// WithLogger sets the logger used for request and error logging.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithDefaultSchema sets the schema the root path redirects to.
func WithDefaultSchema(schema string) Option {
	return func(h *Handler) { h.defaultSchema = schema }
}

// WithDefaultStatements sets the statement kinds pre-checked on the
// create-version form.
func WithDefaultStatements(s string) Option {
	return func(h *Handler) { h.defaultStatements = s }
}

// WithUser sets how the logged user name is taken from a request. An
// empty name logs as the database role.
func WithUser(fn func(*http.Request) string) Option {
	return func(h *Handler) { h.userFn = fn }
}

// WithClock overrides the time source (useful for testing).
func WithClock(fn func() time.Time) Option {
	return func(h *Handler) { h.now = fn }
}

// New creates a Handler. The analyzer decides whether an execution export
// needs to be forced.
func New(st Store, tr Tracker, rep Replayer, an Analyzer, opts ...Option) *Handler {
	h := &Handler{
		store:             st,
		tracker:           tr,
		replayer:          rep,
		analyzer:          an,
		render:            render.New(),
		logger:            slog.Default(),
		defaultSchema:     config.DefaultSchema,
		defaultStatements: config.DefaultStatements,
		userFn:            func(*http.Request) string { return "" },
		now:               time.Now,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Routes returns the router serving every tracking page.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(maxFormBody(maxFormBytes))

	r.Get("/healthz", h.health)
	r.Get("/", h.root)

	r.Route("/schemas/{schema}", func(r chi.Router) {
		r.Get("/tracking", h.schemaPage)
		r.Get("/tracking/select", h.selectTable)
		r.Get("/tracking/versions/new", h.newVersionsForm)
		r.Post("/tracking/versions", h.createVersions)
		r.Post("/tracking/toggle", h.toggle)
		r.Post("/tracking/query", h.query)

		r.Route("/tables/{table}/tracking", func(r chi.Router) {
			r.Get("/", h.versionsPage)
			r.Post("/delete", h.deleteTracking)
			r.Post("/versions", h.createVersion)
			r.Post("/versions/delete", h.deleteVersions)

			r.Route("/versions/{version}", func(r chi.Router) {
				r.Post("/delete", h.deleteVersion)
				r.Post("/activate", h.activate)
				r.Post("/deactivate", h.deactivate)
				r.Get("/report", h.report)
				r.Post("/report", h.report)
				r.Get("/snapshot", h.snapshot)
			})
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, render.SchemaPath(h.defaultSchema), http.StatusFound)
}
