package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/aqasim81/table-tracking/internal/analyzer"
	"github.com/aqasim81/table-tracking/internal/store"
	"github.com/aqasim81/table-tracking/internal/tracking"
)

const statementWidth = 60

type versionJSON struct {
	Schema      string `json:"schema"`
	Table       string `json:"table"`
	Version     int    `json:"version"`
	Created     string `json:"created"`
	Updated     string `json:"updated"`
	Status      string `json:"status"`
	TrackingSet string `json:"tracking_set"`
}

type entryJSON struct {
	Log       tracking.LogKind `json:"log"`
	ID        int              `json:"id"`
	Date      string           `json:"date"`
	Username  string           `json:"username"`
	Statement string           `json:"statement"`
	Severity  string           `json:"severity,omitempty"`
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	t.SetAutoFormatHeaders(false)

	return t
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}

	return nil
}

func printVersions(w io.Writer, format string, versions []tracking.Version) error {
	if format == "json" {
		out := make([]versionJSON, len(versions))
		for i := range versions {
			v := &versions[i]
			out[i] = versionJSON{
				Schema:      v.Schema,
				Table:       v.Table,
				Version:     v.Number,
				Created:     v.CreatedAt.Format(tracking.DateLayout),
				Updated:     v.UpdatedAt.Format(tracking.DateLayout),
				Status:      v.Status(),
				TrackingSet: v.TrackingSet,
			}
		}

		return writeJSON(w, out)
	}

	if len(versions) == 0 {
		fmt.Fprintln(w, "No tracking versions.")

		return nil
	}

	t := newTable(w, "Table", "Version", "Created", "Updated", "Status", "Tracking set")
	for i := range versions {
		v := &versions[i]
		t.Append([]string{
			v.QualifiedName(),
			strconv.Itoa(v.Number),
			v.CreatedAt.Format(tracking.DateLayout),
			v.UpdatedAt.Format(tracking.DateLayout),
			v.Status(),
			v.TrackingSet,
		})
	}

	t.Render()

	return nil
}

func printTables(w io.Writer, format string, tracked []tracking.Version, untracked []store.Relation) error {
	if format == "json" {
		names := make([]string, len(untracked))
		for i, rel := range untracked {
			names[i] = rel.Name
		}

		out := struct {
			Tracked   []versionJSON `json:"tracked"`
			Untracked []string      `json:"untracked"`
		}{Untracked: names}

		for i := range tracked {
			v := &tracked[i]
			out.Tracked = append(out.Tracked, versionJSON{
				Schema:      v.Schema,
				Table:       v.Table,
				Version:     v.Number,
				Created:     v.CreatedAt.Format(tracking.DateLayout),
				Updated:     v.UpdatedAt.Format(tracking.DateLayout),
				Status:      v.Status(),
				TrackingSet: v.TrackingSet,
			})
		}

		return writeJSON(w, out)
	}

	fmt.Fprintln(w, "Tracked tables")

	if err := printVersions(w, format, tracked); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nUntracked tables")

	if len(untracked) == 0 {
		fmt.Fprintln(w, "None.")

		return nil
	}

	t := newTable(w, "Name", "Kind")
	for _, rel := range untracked {
		kind := "table"
		if rel.IsView {
			kind = "view"
		}

		t.Append([]string{rel.Name, kind})
	}

	t.Render()

	return nil
}

// logSection is one log of a report after filtering.
type logSection struct {
	Kind     tracking.LogKind
	Entries  []tracking.FilteredEntry
	Findings *analyzer.Result
}

func printReport(w io.Writer, format string, data *tracking.Data, sections []logSection) error {
	if format == "json" {
		out := []entryJSON{}

		for _, s := range sections {
			for _, e := range s.Entries {
				out = append(out, entryJSON{
					Log:       s.Kind,
					ID:        e.ID,
					Date:      e.Timestamp.Format(tracking.DateLayout),
					Username:  e.Username,
					Statement: e.Statement,
					Severity:  flag(s.Findings, e.ID),
				})
			}
		}

		return writeJSON(w, out)
	}

	fmt.Fprintf(w, "Tracking report for table `%s` version %d\n", data.Table, data.Number)
	fmt.Fprintf(w, "Tracking statements: %s\n", data.TrackingSet)

	if data.Empty() {
		fmt.Fprintln(w, "No data")

		return nil
	}

	for _, s := range sections {
		title := "Data definition statement"
		if s.Kind == tracking.DML {
			title = "Data manipulation statement"
		}

		fmt.Fprintf(w, "\n%s log\n", title)

		t := newTable(w, "ID", "Date", "Username", title, "Flag")
		for _, e := range s.Entries {
			t.Append([]string{
				strconv.Itoa(e.ID),
				e.Timestamp.Format(tracking.DateLayout),
				e.Username,
				analyzer.TruncateSQL(e.Statement, statementWidth),
				flag(s.Findings, e.ID),
			})
		}

		t.Render()
	}

	return nil
}

func flag(res *analyzer.Result, id int) string {
	if sev := res.SeverityOf(id); sev > analyzer.Safe {
		return sev.String()
	}

	return ""
}

func printSnapshot(w io.Writer, format string, data *tracking.Data) error {
	if format == "json" {
		return writeJSON(w, data.Snapshot)
	}

	fmt.Fprintf(w, "Structure snapshot of %s version %d\n\n", data.QualifiedName(), data.Number)

	if sql := tracking.SnapshotSQL(data.DDLog); sql != "" {
		fmt.Fprintln(w, sql)
	}

	t := newTable(w, "Column", "Type", "Collation", "Nullable", "Default", "Comment")
	for _, c := range data.Snapshot.Columns {
		def := ""
		if c.Default != nil {
			def = *c.Default
		} else if c.Nullable {
			def = "NULL"
		}

		t.Append([]string{c.Name, c.Type, c.Collation, yesNo(c.Nullable), def, c.Comment})
	}

	t.Render()

	if len(data.Snapshot.Indexes) == 0 {
		return nil
	}

	t = newTable(w, "Index", "Unique", "Primary", "Columns")
	for _, idx := range data.Snapshot.Indexes {
		t.Append([]string{idx.Name, yesNo(idx.Unique), yesNo(idx.Primary), fmt.Sprint(idx.Columns)})
	}

	t.Render()

	return nil
}

// printFindings writes the analyzer findings and reports whether any is
// high or critical.
func printFindings(w io.Writer, res *analyzer.Result, color bool) bool {
	if len(res.Findings) == 0 {
		fmt.Fprintln(w, "No dangerous statements detected.")

		return false
	}

	for _, f := range res.Findings {
		label := "[" + f.Severity.String() + "]"
		if color {
			label = f.Severity.Color() + label + "\033[0m"
		}

		fmt.Fprintf(w, "  %s %s\n", label, f.Message)
		fmt.Fprintf(w, "    Table: %s\n", f.Table)
		fmt.Fprintf(w, "    Rule:  %s\n", f.Rule)

		if f.Statement != "" {
			fmt.Fprintf(w, "    SQL:   %s\n", f.Statement)
		}

		fmt.Fprintf(w, "    Fix:   %s\n\n", f.Suggestion)
	}

	fmt.Fprintf(w, "Found %d finding(s).\n", len(res.Findings))

	return res.HasHighOrCritical()
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}

	return "No"
}
