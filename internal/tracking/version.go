package tracking

import "time"

// LogKind names one of the two logs kept per version.
type LogKind string

// Log kinds.
const (
	DDL LogKind = "DDL"
	DML LogKind = "DML"
)

// Param returns the report parameter that deletes a row from this log.
func (l LogKind) Param() string {
	if l == DML {
		return "delete_dmlog"
	}

	return "delete_ddlog"
}

// Version is one tracking version of a table as stored by the tracking store.
type Version struct {
	Schema      string
	Table       string
	Number      int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Active      bool
	TrackingSet string
}

// QualifiedName returns "schema.table".
func (v *Version) QualifiedName() string {
	return v.Schema + "." + v.Table
}

// Status returns the human-readable activation state.
func (v *Version) Status() string {
	return VersionStatus(v.Active)
}

// VersionStatus maps an active flag to "active" or "not active".
func VersionStatus(active bool) string {
	if active {
		return "active"
	}

	return "not active"
}

// Data is the full tracked content of one version.
type Data struct {
	Version
	DDLog    []Entry
	DMLog    []Entry
	Snapshot Snapshot
}

// Log returns the entries of the requested log.
func (d *Data) Log(kind LogKind) []Entry {
	if kind == DML {
		return d.DMLog
	}

	return d.DDLog
}

// Empty reports whether neither log holds any entry.
func (d *Data) Empty() bool {
	return len(d.DDLog) == 0 && len(d.DMLog) == 0
}

// Snapshot is the table structure captured when a version is created.
type Snapshot struct {
	Columns []Column `json:"columns"`
	Indexes []Index  `json:"indexes"`
}

// Column describes one column of a snapshot.
type Column struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Collation string  `json:"collation,omitempty"`
	Nullable  bool    `json:"nullable"`
	Default   *string `json:"default,omitempty"`
	Comment   string  `json:"comment,omitempty"`
}

// Index describes one index of a snapshot.
type Index struct {
	Name       string   `json:"name"`
	Unique     bool     `json:"unique"`
	Primary    bool     `json:"primary"`
	Columns    []string `json:"columns"`
	Definition string   `json:"definition"`
}

// TableRef identifies a table inside a schema.
type TableRef struct {
	Schema string
	Table  string
}

// String returns "schema.table", or just the table when no schema is set.
func (r TableRef) String() string {
	if r.Schema == "" {
		return r.Table
	}

	return r.Schema + "." + r.Table
}
