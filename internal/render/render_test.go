package render_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/table-tracking/internal/render"
	"github.com/aqasim81/table-tracking/internal/tracking"
)

func TestRenderer_Versions(t *testing.T) {
	t.Parallel()

	versions := []tracking.Version{{Schema: "public", Table: "users", Number: 1, Active: true, CreatedAt: day}}
	page := &render.VersionsPage{
		Page:       render.Page{Title: "Tracking of public.users"},
		Schema:     "public",
		Table:      "users",
		SchemaURL:  render.SchemaPath("public"),
		Selectable: render.NewSelectableTables("public", versions, "users"),
		Versions:   render.NewVersionsTable("public", "users", versions),
		Create: render.NewCreateVersionForm(
			render.CreateVersionPath("public", "users"), "public", []string{"users"}, 1, render.RelTable, "INSERT",
		),
	}
	page.Flash(render.Success, "Version 1 was created, tracking for public.users is active.")

	var buf bytes.Buffer
	require.NoError(t, render.New().Versions(&buf, page))

	out := buf.String()
	assert.Contains(t, out, "<title>Tracking of public.users</title>")
	assert.Contains(t, out, `<div class="success">Version 1 was created, tracking for public.users is active.</div>`)
	assert.Contains(t, out, "<legend>Create version 2 of public.users</legend>")
	assert.Contains(t, out, `<input type="checkbox" name="insert" value="true" checked> INSERT`)
	assert.Contains(t, out, `<input type="checkbox" name="update" value="true"> UPDATE`)
	assert.Contains(t, out, "Deactivate tracking for public.users")
	assert.Contains(t, out, `<option value="users" selected>public . users (active)</option>`)
	assert.Contains(t, out, `name="selected_versions[]" value="1"`)
}

func TestRenderer_Report_escapesStatements(t *testing.T) {
	t.Parallel()

	d := sampleData()
	d.DMLog = []tracking.Entry{
		{Date: at(5), Username: "<b>eve</b>", Statement: "INSERT INTO users (name) VALUES ('<script>alert(1)</script>');"},
	}

	page := render.NewReportPage(render.ReportInput{
		Data:   d,
		Params: render.ReportParams{LogType: tracking.LogSchemaAndData},
		Filter: everything(),
	})

	var buf bytes.Buffer
	require.NoError(t, render.New().Report(&buf, &page))

	out := buf.String()
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "<b>eve</b>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "Tracking report for table `users`")
	assert.Contains(t, out, "<td>3</td>")
	assert.Contains(t, out, "Structure and data")
	assert.Contains(t, out, `<option value="sqldumpfile">SQL dump (file download)</option>`)
	assert.NotContains(t, out, "No data")
}

func TestRenderer_Report_noData(t *testing.T) {
	t.Parallel()

	d := sampleData()
	d.DDLog = nil
	d.DMLog = nil

	page := render.NewReportPage(render.ReportInput{
		Data:   d,
		Params: render.ReportParams{LogType: tracking.LogSchemaAndData},
		Filter: everything(),
	})

	var buf bytes.Buffer
	require.NoError(t, render.New().Report(&buf, &page))

	assert.Contains(t, buf.String(), `<div class="notice">No data</div>`)
}

func TestRenderer_Snapshot(t *testing.T) {
	t.Parallel()

	d := sampleData()
	d.Snapshot = tracking.Snapshot{
		Columns: []tracking.Column{{Name: "id", Type: "integer"}},
		Indexes: []tracking.Index{{Name: "users_pkey", Primary: true, Unique: true, Columns: []string{"id"}}},
	}

	page := render.NewSnapshotPage(d)

	var buf bytes.Buffer
	require.NoError(t, render.New().Snapshot(&buf, &page))

	out := buf.String()
	assert.Contains(t, out, `<span class="primary">id</span>`)
	assert.Contains(t, out, "<td>users_pkey</td>")
	assert.Contains(t, out, "DROP TABLE IF EXISTS &#34;public&#34;.&#34;users&#34;;")
}

func TestRenderer_Snapshot_noIndexes(t *testing.T) {
	t.Parallel()

	d := sampleData()
	d.Snapshot = tracking.Snapshot{Columns: []tracking.Column{{Name: "id", Type: "integer"}}}

	page := render.NewSnapshotPage(d)

	var buf bytes.Buffer
	require.NoError(t, render.New().Snapshot(&buf, &page))

	assert.NotContains(t, buf.String(), `id="indexes"`)
}

func TestRenderer_Schema(t *testing.T) {
	t.Parallel()

	page := render.NewSchemaPage("public",
		[]tracking.Version{{Schema: "public", Table: "users", Number: 2, Active: false}},
		[]render.UntrackedRelation{{Name: "orders"}},
	)

	var buf bytes.Buffer
	require.NoError(t, render.New().Schema(&buf, &page))

	out := buf.String()
	assert.Contains(t, out, `<input type="hidden" name="action" value="activate_now">`)
	assert.Contains(t, out, "<button type=\"submit\">not active</button>")
	assert.Contains(t, out, `<input type="checkbox" name="selected" value="orders">`)
}

func TestRenderer_Dump(t *testing.T) {
	t.Parallel()

	page := render.NewDumpPage("public", "users", "INSERT INTO t VALUES ('a&b');\n")

	var buf bytes.Buffer
	require.NoError(t, render.New().Dump(&buf, &page))

	out := buf.String()
	assert.Contains(t, out, "SQL statements exported. Please copy the dump or execute it.")
	assert.Contains(t, out, "INSERT INTO t VALUES (&#39;a&amp;b&#39;);")
	assert.Contains(t, out, `action="/schemas/public/tracking/query"`)
}

func TestRenderer_Fragment(t *testing.T) {
	t.Parallel()

	form := render.NewActivationForm("public", "users", 4, false)

	var buf bytes.Buffer
	require.NoError(t, render.New().Fragment(&buf, "activation", form))

	assert.Contains(t, buf.String(), `action="/schemas/public/tables/users/tracking/versions/4/activate"`)
	assert.Contains(t, buf.String(), `value="Activate now"`)
}

func TestRenderer_Fragment_unknownName(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := render.New().Fragment(&buf, "missing", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rendering missing")
}
