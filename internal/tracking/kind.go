package tracking

import "strings"

// Kind is a trackable statement type such as "ALTER TABLE" or "INSERT".
type Kind string

// Trackable statement kinds, in the order they appear in a tracking set.
const (
	AlterTable  Kind = "ALTER TABLE"
	RenameTable Kind = "RENAME TABLE"
	CreateTable Kind = "CREATE TABLE"
	DropTable   Kind = "DROP TABLE"
	AlterView   Kind = "ALTER VIEW"
	CreateView  Kind = "CREATE VIEW"
	DropView    Kind = "DROP VIEW"
	CreateIndex Kind = "CREATE INDEX"
	DropIndex   Kind = "DROP INDEX"
	Insert      Kind = "INSERT"
	Update      Kind = "UPDATE"
	Delete      Kind = "DELETE"
	Truncate    Kind = "TRUNCATE"
)

// AllKinds lists every trackable kind in canonical order.
var AllKinds = []Kind{ //nolint:gochecknoglobals // read-only lookup table
	AlterTable, RenameTable, CreateTable, DropTable,
	AlterView, CreateView, DropView,
	CreateIndex, DropIndex,
	Insert, Update, Delete, Truncate,
}

// Kind groups used by the create-version form.
var (
	TableKinds = []Kind{AlterTable, RenameTable, CreateTable, DropTable} //nolint:gochecknoglobals // lookup table
	ViewKinds  = []Kind{AlterView, CreateView, DropView}                 //nolint:gochecknoglobals // lookup table
	IndexKinds = []Kind{CreateIndex, DropIndex}                          //nolint:gochecknoglobals // lookup table
	DMLKinds   = []Kind{Insert, Update, Delete, Truncate}                //nolint:gochecknoglobals // lookup table
)

// FormName returns the request parameter used for the kind's checkbox,
// e.g. "alter_table" for ALTER TABLE.
func (k Kind) FormName() string {
	return strings.ReplaceAll(strings.ToLower(string(k)), " ", "_")
}

// IsDML reports whether statements of this kind are logged to the data
// manipulation log. Everything else goes to the data definition log.
func (k Kind) IsDML() bool {
	switch k {
	case Insert, Update, Delete, Truncate:
		return true
	default:
		return false
	}
}

// LogKind returns the log that statements of this kind are appended to.
func (k Kind) LogKind() LogKind {
	if k.IsDML() {
		return DML
	}

	return DDL
}

// TrackingSet builds the comma-separated tracking set from submitted form
// values. A kind is included only when its form key is present and truthy.
func TrackingSet(values map[string]string) string {
	var kinds []string

	for _, k := range AllKinds {
		if isTruthy(values[k.FormName()]) {
			kinds = append(kinds, string(k))
		}
	}

	return strings.Join(kinds, ",")
}

// ParseTrackingSet splits a stored tracking set into kinds, ignoring blanks.
func ParseTrackingSet(set string) []Kind {
	var kinds []Kind

	for _, part := range strings.Split(set, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part == "" {
			continue
		}

		kinds = append(kinds, Kind(part))
	}

	return kinds
}

// SetContains reports whether the tracking set includes the kind.
func SetContains(set string, k Kind) bool {
	for _, got := range ParseTrackingSet(set) {
		if got == k {
			return true
		}
	}

	return false
}

// DefaultChecked reports whether the kind appears in the configured default
// statements. Matching is a case-insensitive substring test.
func DefaultChecked(defaults string, k Kind) bool {
	return strings.Contains(strings.ToUpper(defaults), string(k))
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "off", "no":
		return false
	default:
		return true
	}
}
