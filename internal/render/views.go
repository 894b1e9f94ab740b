package render

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aqasim81/table-tracking/internal/analyzer"
	"github.com/aqasim81/table-tracking/internal/tracking"
)

// MessageKind selects the styling of a Message.
type MessageKind string

// Message kinds.
const (
	Success MessageKind = "success"
	Error   MessageKind = "error"
	Notice  MessageKind = "notice"
)

// Message is a notice shown above page content.
type Message struct {
	Kind MessageKind
	Text string
}

// Page carries what every page shares.
type Page struct {
	Title    string
	Messages []Message
}

// Flash appends a message to the page.
func (p *Page) Flash(kind MessageKind, text string) {
	p.Messages = append(p.Messages, Message{Kind: kind, Text: text})
}

// RelationType tells the create-version form which statement groups apply.
type RelationType string

// Relation types.
const (
	RelTable RelationType = "table"
	RelView  RelationType = "view"
	RelBoth  RelationType = "both"
)

// RelationTypeOf maps the view flags of the selected relations to a type.
func RelationTypeOf(views []bool) RelationType {
	var tables, viewsSeen bool

	for _, v := range views {
		if v {
			viewsSeen = true
		} else {
			tables = true
		}
	}

	switch {
	case tables && viewsSeen:
		return RelBoth
	case viewsSeen:
		return RelView
	default:
		return RelTable
	}
}

// Checkbox is one statement kind on the create-version form.
type Checkbox struct {
	Name    string
	Label   string
	Checked bool
}

// CreateVersionForm is the form that starts a new tracking version.
type CreateVersionForm struct {
	Action   string
	Legend   string
	Version  int
	Selected []string
	DDL      []Checkbox
	DML      []Checkbox
}

// NewCreateVersionForm builds the form for the next version after
// lastVersion. With one table the legend names it; with several the
// table names travel as hidden fields.
func NewCreateVersionForm(
	action, schema string, tables []string, lastVersion int, rel RelationType, defaults string,
) CreateVersionForm {
	version := lastVersion + 1

	f := CreateVersionForm{Action: action, Version: version}
	if len(tables) == 1 {
		f.Legend = "Create version " + strconv.Itoa(version) + " of " + schema + "." + tables[0]
	} else {
		f.Legend = "Create version " + strconv.Itoa(version)
		f.Selected = tables
	}

	var ddl []tracking.Kind
	if rel == RelTable || rel == RelBoth {
		ddl = append(ddl, tracking.TableKinds...)
	}

	if rel == RelView || rel == RelBoth {
		ddl = append(ddl, tracking.ViewKinds...)
	}

	ddl = append(ddl, tracking.IndexKinds...)

	f.DDL = checkboxes(ddl, defaults)
	f.DML = checkboxes(tracking.DMLKinds, defaults)

	return f
}

func checkboxes(kinds []tracking.Kind, defaults string) []Checkbox {
	out := make([]Checkbox, len(kinds))
	for i, k := range kinds {
		out[i] = Checkbox{Name: k.FormName(), Label: string(k), Checked: tracking.DefaultChecked(defaults, k)}
	}

	return out
}

// ActivationForm turns tracking of a version on or off.
type ActivationForm struct {
	Action string
	Legend string
	Button string
}

// NewActivationForm offers deactivation for an active version and
// activation otherwise.
func NewActivationForm(schema, table string, version int, active bool) ActivationForm {
	name := schema + "." + table

	if active {
		return ActivationForm{
			Action: ActivationPath(schema, table, version, "deactivate"),
			Legend: "Deactivate tracking for " + name,
			Button: "Deactivate now",
		}
	}

	return ActivationForm{
		Action: ActivationPath(schema, table, version, "activate"),
		Legend: "Activate tracking for " + name,
		Button: "Activate now",
	}
}

// VersionRow is one line of the versions table.
type VersionRow struct {
	Version     int
	Created     string
	Updated     string
	Status      string
	DeleteURL   string
	ReportURL   string
	SnapshotURL string
}

// VersionsTable lists the versions of a table, newest first.
type VersionsTable struct {
	Name         string
	Rows         []VersionRow
	DeleteAction string
	Activation   *ActivationForm
}

// NewVersionsTable builds the table from versions ordered newest first.
// The activation form follows the state of the newest version.
func NewVersionsTable(schema, table string, versions []tracking.Version) VersionsTable {
	t := VersionsTable{
		Name:         schema + "." + table,
		DeleteAction: DeleteVersionsPath(schema, table),
		Rows:         make([]VersionRow, len(versions)),
	}

	for i := range versions {
		v := &versions[i]
		t.Rows[i] = VersionRow{
			Version:     v.Number,
			Created:     formatTime(v.CreatedAt),
			Updated:     formatTime(v.UpdatedAt),
			Status:      v.Status(),
			DeleteURL:   DeleteVersionPath(schema, table, v.Number),
			ReportURL:   ReportPath(schema, table, v.Number),
			SnapshotURL: SnapshotPath(schema, table, v.Number),
		}
	}

	if len(versions) > 0 {
		last := &versions[0]
		form := NewActivationForm(schema, table, last.Number, last.Active)
		t.Activation = &form
	}

	return t
}

// Option is one entry of a select element.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// SelectableTables is the dropdown that jumps between tracked tables.
type SelectableTables struct {
	Action  string
	Options []Option
}

// NewSelectableTables lists the tracked tables of a schema and preselects
// current.
func NewSelectableTables(schema string, tracked []tracking.Version, current string) SelectableTables {
	s := SelectableTables{Action: SelectTablePath(schema), Options: make([]Option, len(tracked))}

	for i := range tracked {
		v := &tracked[i]
		s.Options[i] = Option{
			Value:    v.Table,
			Label:    v.Schema + " . " + v.Table + " (" + v.Status() + ")",
			Selected: v.Table == current,
		}
	}

	return s
}

// VersionsPage is the tracking page of one table.
type VersionsPage struct {
	Page
	Schema     string
	Table      string
	SchemaURL  string
	Selectable SelectableTables
	Versions   VersionsTable
	Create     CreateVersionForm
}

// CreateVersionPage shows the create-version form on its own.
type CreateVersionPage struct {
	Page
	SchemaURL string
	Create    CreateVersionForm
}

// TrackedRow is one tracked table on the schema page.
type TrackedRow struct {
	Table        string
	Version      int
	Created      string
	Updated      string
	Status       string
	Active       bool
	ToggleAction string
	DeleteAction string
	VersionsURL  string
	ReportURL    string
	SnapshotURL  string
}

// UntrackedRow is one table or view without tracking.
type UntrackedRow struct {
	Name     string
	IsView   bool
	TrackURL string
}

// SchemaPage lists tracked and untracked relations of a schema.
type SchemaPage struct {
	Page
	Schema      string
	Tracked     []TrackedRow
	Untracked   []UntrackedRow
	TrackAction string
}

// NewSchemaPage builds the schema overview from the latest version of
// every tracked table and the untracked relations.
func NewSchemaPage(schema string, tracked []tracking.Version, untracked []UntrackedRelation) SchemaPage {
	p := SchemaPage{
		Page:        Page{Title: "Tracked tables of " + schema},
		Schema:      schema,
		TrackAction: NewVersionsPath(schema),
	}

	for i := range tracked {
		v := &tracked[i]
		p.Tracked = append(p.Tracked, TrackedRow{
			Table:        v.Table,
			Version:      v.Number,
			Created:      formatTime(v.CreatedAt),
			Updated:      formatTime(v.UpdatedAt),
			Status:       v.Status(),
			Active:       v.Active,
			ToggleAction: TogglePath(schema),
			DeleteAction: DeleteTrackingPath(schema, v.Table),
			VersionsURL:  TablePath(schema, v.Table),
			ReportURL:    ReportPath(schema, v.Table, v.Number),
			SnapshotURL:  SnapshotPath(schema, v.Table, v.Number),
		})
	}

	for _, r := range untracked {
		p.Untracked = append(p.Untracked, UntrackedRow{
			Name:     r.Name,
			IsView:   r.IsView,
			TrackURL: withQuery(NewVersionsPath(schema), url.Values{"selected": {r.Name}}),
		})
	}

	return p
}

// UntrackedRelation is a table or view that can be put under tracking.
type UntrackedRelation struct {
	Name   string
	IsView bool
}

// ReportParams are the raw filter values of a report request.
type ReportParams struct {
	LogType  tracking.LogType
	DateFrom string
	DateTo   string
	Users    string
}

func (p ReportParams) values() url.Values {
	return url.Values{
		"logtype":   {string(p.LogType)},
		"date_from": {p.DateFrom},
		"date_to":   {p.DateTo},
		"users":     {p.Users},
	}
}

// ReportRow is one logged statement in a report table.
type ReportRow struct {
	Line      int
	Date      string
	Username  string
	Statement string
	DeleteURL string
	Flag      string
	FlagClass string
}

// LogTable is the report table of one log.
type LogTable struct {
	Title string
	Rows  []ReportRow
}

// FilterForm narrows the report by log type, dates and users.
type FilterForm struct {
	Action   string
	LogTypes []Option
	DateFrom string
	DateTo   string
	Users    string
}

// ExportForm exports the filtered report.
type ExportForm struct {
	Action  string
	Params  ReportParams
	Options []Option
}

// Export types.
const (
	ExportFile      = "sqldumpfile"
	ExportDump      = "sqldump"
	ExportExecution = "execution"
)

// ReportPage is the tracking report of one version.
type ReportPage struct {
	Page
	Heading     string
	CloseURL    string
	TrackingSet string
	Empty       bool
	Filter      FilterForm
	DDL         *LogTable
	DML         *LogTable
	Export      ExportForm
}

// ReportInput is everything a report is built from. Findings flag
// statements by their position in the corresponding log.
type ReportInput struct {
	Data        *tracking.Data
	Params      ReportParams
	Filter      tracking.Filter
	DDLFindings *analyzer.Result
	DMLFindings *analyzer.Result
}

// NewReportPage builds the report. Line numbers count every logged
// statement; only rows passing the filter are listed. Data manipulation
// lines continue after the data definition lines when both are shown.
func NewReportPage(in ReportInput) ReportPage {
	d := in.Data
	action := ReportPath(d.Schema, d.Table, d.Number)

	p := ReportPage{
		Page:        Page{Title: "Tracking report"},
		Heading:     "Tracking report for table `" + d.Table + "`",
		CloseURL:    TablePath(d.Schema, d.Table),
		TrackingSet: d.TrackingSet,
		Empty:       d.Empty(),
		Filter: FilterForm{
			Action:   action,
			LogTypes: logTypeOptions(in.Params.LogType),
			DateFrom: in.Params.DateFrom,
			DateTo:   in.Params.DateTo,
			Users:    in.Params.Users,
		},
		Export: ExportForm{
			Action:  action,
			Params:  in.Params,
			Options: exportOptions(),
		},
	}

	offset := 1

	if in.Params.LogType.IncludesSchema() && (in.Params.LogType == tracking.LogSchema || len(d.DDLog) > 0) {
		p.DDL = logTable(
			"Data definition statement", d.DDLog, tracking.DDL, offset, in.Filter, in.DDLFindings, action, in.Params,
		)
		offset += len(d.DDLog)
	}

	if in.Params.LogType.IncludesData() && len(d.DMLog) > 0 {
		p.DML = logTable(
			"Data manipulation statement", d.DMLog, tracking.DML, offset, in.Filter, in.DMLFindings, action, in.Params,
		)
	}

	return p
}

func logTable(
	title string, log []tracking.Entry, kind tracking.LogKind, offset int, f tracking.Filter,
	findings *analyzer.Result, action string, params ReportParams,
) *LogTable {
	t := &LogTable{Title: title}

	for id := range log {
		e := &log[id]
		if !f.Matches(e) {
			continue
		}

		q := params.values()
		q.Set(kind.Param(), strconv.Itoa(id))

		row := ReportRow{
			Line:      offset + id,
			Date:      e.DateString(),
			Username:  e.Username,
			Statement: e.Statement,
			DeleteURL: withQuery(action, q),
		}

		if sev := findings.SeverityOf(id); sev > analyzer.Safe {
			row.Flag = sev.String()
			row.FlagClass = sev.Class()
		}

		t.Rows = append(t.Rows, row)
	}

	return t
}

func logTypeOptions(current tracking.LogType) []Option {
	return []Option{
		{Value: string(tracking.LogSchema), Label: "Structure only", Selected: current == tracking.LogSchema},
		{Value: string(tracking.LogData), Label: "Data only", Selected: current == tracking.LogData},
		{
			Value:    string(tracking.LogSchemaAndData),
			Label:    "Structure and data",
			Selected: current == tracking.LogSchemaAndData,
		},
	}
}

func exportOptions() []Option {
	return []Option{
		{Value: ExportFile, Label: "SQL dump (file download)"},
		{Value: ExportDump, Label: "SQL dump"},
		{Value: ExportExecution, Label: "SQL execution"},
	}
}

// ColumnRow is one column of a structure snapshot.
type ColumnRow struct {
	Name      string
	Type      string
	Collation string
	Nullable  string
	Default   string
	Comment   string
	Primary   bool
}

// IndexRow is one index of a structure snapshot.
type IndexRow struct {
	Name       string
	Unique     string
	Primary    string
	Columns    string
	Definition string
}

// SnapshotPage shows the structure a version started from.
type SnapshotPage struct {
	Page
	Heading  string
	CloseURL string
	SQL      string
	Columns  []ColumnRow
	Indexes  []IndexRow
}

// NewSnapshotPage builds the structure snapshot of a version.
func NewSnapshotPage(d *tracking.Data) SnapshotPage {
	p := SnapshotPage{
		Page:     Page{Title: "Structure snapshot"},
		Heading:  "Structure snapshot of " + d.QualifiedName() + " version " + strconv.Itoa(d.Number),
		CloseURL: TablePath(d.Schema, d.Table),
		SQL:      tracking.SnapshotSQL(d.DDLog),
	}

	primary := make(map[string]bool)

	for _, idx := range d.Snapshot.Indexes {
		if !idx.Primary {
			continue
		}

		for _, c := range idx.Columns {
			primary[c] = true
		}
	}

	for _, c := range d.Snapshot.Columns {
		row := ColumnRow{
			Name:      c.Name,
			Type:      c.Type,
			Collation: c.Collation,
			Nullable:  yesNo(c.Nullable),
			Comment:   c.Comment,
			Primary:   primary[c.Name],
		}

		switch {
		case c.Default != nil:
			row.Default = *c.Default
		case c.Nullable:
			row.Default = "NULL"
		}

		p.Columns = append(p.Columns, row)
	}

	for _, idx := range d.Snapshot.Indexes {
		p.Indexes = append(p.Indexes, IndexRow{
			Name:       idx.Name,
			Unique:     yesNo(idx.Unique),
			Primary:    yesNo(idx.Primary),
			Columns:    strings.Join(idx.Columns, ", "),
			Definition: idx.Definition,
		})
	}

	return p
}

// DumpPage shows an SQL dump for copying or execution.
type DumpPage struct {
	Page
	Action   string
	CloseURL string
	Dump     string
}

// NewDumpPage builds the dump page of a table.
func NewDumpPage(schema, table, dump string) DumpPage {
	p := DumpPage{
		Page:     Page{Title: "SQL dump"},
		Action:   QueryPath(schema),
		CloseURL: TablePath(schema, table),
		Dump:     dump,
	}
	p.Flash(Success, "SQL statements exported. Please copy the dump or execute it.")

	return p
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Format(tracking.DateLayout)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}

	return "No"
}
