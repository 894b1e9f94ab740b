package render

import (
	"net/url"
	"strconv"
)

// SchemaPath is the tracking overview of a schema.
func SchemaPath(schema string) string {
	return "/schemas/" + url.PathEscape(schema) + "/tracking"
}

// SelectTablePath is the target of the tracked-table dropdown.
func SelectTablePath(schema string) string {
	return SchemaPath(schema) + "/select"
}

// NewVersionsPath shows the create-version form for several tables.
func NewVersionsPath(schema string) string {
	return SchemaPath(schema) + "/versions/new"
}

// SchemaVersionsPath creates versions for the tables selected on the
// schema page.
func SchemaVersionsPath(schema string) string {
	return SchemaPath(schema) + "/versions"
}

// TogglePath flips the active flag of a table from the schema page.
func TogglePath(schema string) string {
	return SchemaPath(schema) + "/toggle"
}

// QueryPath executes SQL through the tracker.
func QueryPath(schema string) string {
	return SchemaPath(schema) + "/query"
}

// TablePath is the versions page of a table.
func TablePath(schema, table string) string {
	return "/schemas/" + url.PathEscape(schema) + "/tables/" + url.PathEscape(table) + "/tracking"
}

// DeleteTrackingPath removes every version of a table.
func DeleteTrackingPath(schema, table string) string {
	return TablePath(schema, table) + "/delete"
}

// CreateVersionPath creates the next version of a table.
func CreateVersionPath(schema, table string) string {
	return TablePath(schema, table) + "/versions"
}

// DeleteVersionsPath deletes the versions selected on the versions page.
func DeleteVersionsPath(schema, table string) string {
	return TablePath(schema, table) + "/versions/delete"
}

// VersionPath addresses one version of a table.
func VersionPath(schema, table string, version int) string {
	return TablePath(schema, table) + "/versions/" + strconv.Itoa(version)
}

// DeleteVersionPath deletes one version.
func DeleteVersionPath(schema, table string, version int) string {
	return VersionPath(schema, table, version) + "/delete"
}

// ActivationPath activates or deactivates a version. action is
// "activate" or "deactivate".
func ActivationPath(schema, table string, version int, action string) string {
	return VersionPath(schema, table, version) + "/" + action
}

// ReportPath is the tracking report of a version.
func ReportPath(schema, table string, version int) string {
	return VersionPath(schema, table, version) + "/report"
}

// SnapshotPath is the structure snapshot of a version.
func SnapshotPath(schema, table string, version int) string {
	return VersionPath(schema, table, version) + "/snapshot"
}

// withQuery appends encoded parameters to path.
func withQuery(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}

	return path + "?" + params.Encode()
}
