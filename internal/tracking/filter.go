package tracking

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
)

// Wildcard in a user filter matches every user.
const Wildcard = "*"

// LogType selects which logs a report or export covers.
type LogType string

// Report log types.
const (
	LogSchema        LogType = "schema"
	LogData          LogType = "data"
	LogSchemaAndData LogType = "schema_and_data"
)

// ParseLogType validates a log type, defaulting to schema_and_data when empty.
func ParseLogType(s string) (LogType, error) {
	switch LogType(s) {
	case "":
		return LogSchemaAndData, nil
	case LogSchema, LogData, LogSchemaAndData:
		return LogType(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidLogType, s)
	}
}

// IncludesSchema reports whether the data definition log is covered.
func (t LogType) IncludesSchema() bool {
	return t == LogSchema || t == LogSchemaAndData
}

// IncludesData reports whether the data manipulation log is covered.
func (t LogType) IncludesData() bool {
	return t == LogData || t == LogSchemaAndData
}

// Filter restricts report entries to a time window and a set of users.
type Filter struct {
	From  time.Time
	To    time.Time
	Users []string
}

// Matches reports whether e falls inside [From, To] and was logged by an
// allowed user.
func (f *Filter) Matches(e *Entry) bool {
	if e.Date.Before(f.From) || e.Date.After(f.To) {
		return false
	}

	return slices.Contains(f.Users, Wildcard) || slices.Contains(f.Users, e.Username)
}

// ParseUsers splits a comma-separated users field. An empty field means
// every user.
func ParseUsers(raw string) []string {
	var users []string

	for _, u := range strings.Split(raw, ",") {
		if u = strings.TrimSpace(u); u != "" {
			users = append(users, u)
		}
	}

	if len(users) == 0 {
		return []string{Wildcard}
	}

	return users
}

// ParseFilter builds a Filter from raw report parameters. An empty from
// defaults to the version creation time and an empty to defaults to now.
// Both defaults are truncated to whole seconds, the precision of log dates.
func ParseFilter(dateFrom, dateTo, users string, created, now time.Time) (Filter, error) {
	f := Filter{
		From:  created.Truncate(time.Second),
		To:    now.Truncate(time.Second),
		Users: ParseUsers(users),
	}

	if dateFrom = strings.TrimSpace(dateFrom); dateFrom != "" {
		t, err := time.ParseInLocation(DateLayout, dateFrom, time.Local)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: date_from %q", ErrInvalidDate, dateFrom)
		}

		f.From = t
	}

	if dateTo = strings.TrimSpace(dateTo); dateTo != "" {
		t, err := time.ParseInLocation(DateLayout, dateTo, time.Local)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: date_to %q", ErrInvalidDate, dateTo)
		}

		f.To = t
	}

	return f, nil
}

// FilteredEntry is an entry that passed a Filter. ID is the entry's position
// in its source log.
type FilteredEntry struct {
	ID        int
	Timestamp time.Time
	Username  string
	Statement string
}

// FilterTracking keeps the entries matching f. IDs count every input entry,
// including the ones that were filtered out.
func FilterTracking(entries []Entry, f Filter) []FilteredEntry {
	var out []FilteredEntry

	for id := range entries {
		e := &entries[id]
		if !f.Matches(e) {
			continue
		}

		out = append(out, FilteredEntry{
			ID:        id,
			Timestamp: e.Date,
			Username:  e.Username,
			Statement: e.Statement,
		})
	}

	return out
}

// Entries collects the filtered entries of the logs selected by logType
// and sorts them by timestamp, id, username, then statement.
func Entries(data *Data, logType LogType, f Filter) []FilteredEntry {
	var entries []FilteredEntry

	if logType.IncludesSchema() {
		entries = append(entries, FilterTracking(data.DDLog, f)...)
	}

	if logType.IncludesData() {
		entries = append(entries, FilterTracking(data.DMLog, f)...)
	}

	SortEntries(entries)

	return entries
}

// SortEntries sorts in place by timestamp, id, username, then statement.
// The sort is stable so fully equal entries keep their input order.
func SortEntries(entries []FilteredEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]

		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}

		if a.ID != b.ID {
			return a.ID < b.ID
		}

		if a.Username != b.Username {
			return a.Username < b.Username
		}

		return a.Statement < b.Statement
	})
}
