package tracking

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the timestamp format used in stored logs and report filters.
const DateLayout = "2006-01-02 15:04:05"

// logMarker starts every entry of a stored log.
const logMarker = "# log "

// Entry is one logged statement.
type Entry struct {
	Date      time.Time
	Username  string
	Statement string
}

// DateString formats the entry date the way it is stored.
func (e *Entry) DateString() string {
	if e.Date.IsZero() {
		return ""
	}

	return e.Date.Format(DateLayout)
}

// FormatLog serializes entries into the stored log format:
//
//	# log 2024-01-02 15:04:05 alice
//	ALTER TABLE users ADD COLUMN age int;
func FormatLog(entries []Entry) string {
	var b strings.Builder

	for i := range entries {
		b.WriteString(FormatEntry(&entries[i]))
	}

	return b.String()
}

// FormatEntry serializes one entry, terminated by a newline. Statement
// lines starting with '#' get a second '#' so no statement line can be
// read back as an entry header.
func FormatEntry(e *Entry) string {
	var b strings.Builder

	b.WriteString(logMarker + e.Date.Format(DateLayout) + " " + e.Username + "\n")

	for _, line := range strings.Split(strings.TrimSuffix(e.Statement, "\n"), "\n") {
		if strings.HasPrefix(line, "#") {
			b.WriteByte('#')
		}

		b.WriteString(line)
		b.WriteByte('\n')
	}

	return b.String()
}

// ParseLog splits a stored log into entries. Only a line starting with the
// marker opens an entry; text before the first one is ignored. A header
// whose date cannot be parsed yields a zero Date.
func ParseLog(raw string) []Entry {
	var (
		entries []Entry
		header  string
		body    []string
		open    bool
	)

	flush := func() {
		if open {
			entries = append(entries, parseEntry(header, strings.Join(body, "\n")))
		}
	}

	for _, line := range strings.Split(raw, "\n") {
		if rest, ok := strings.CutPrefix(line, logMarker); ok {
			flush()

			header, body, open = rest, nil, true

			continue
		}

		if open {
			if strings.HasPrefix(line, "##") {
				line = line[1:]
			}

			body = append(body, line)
		}
	}

	flush()

	return entries
}

func parseEntry(header, statement string) Entry {
	header = strings.TrimSpace(header)

	var (
		date time.Time
		user string
	)

	// Header is "<date> <time> <user>"; the user part may be empty.
	if len(header) >= len(DateLayout) {
		if t, err := time.ParseInLocation(DateLayout, header[:len(DateLayout)], time.Local); err == nil {
			date = t
			user = strings.TrimSpace(header[len(DateLayout):])
		}
	}

	if date.IsZero() {
		user = header
		if i := strings.LastIndex(header, " "); i >= 0 {
			user = header[i+1:]
		}
	}

	return Entry{
		Date:      date,
		Username:  user,
		Statement: strings.TrimRight(statement, "\n"),
	}
}

// DeleteLogEntry returns a copy of entries without the entry at id.
func DeleteLogEntry(entries []Entry, id int) ([]Entry, error) {
	if id < 0 || id >= len(entries) {
		return entries, fmt.Errorf("%w: %d", ErrInvalidEntryID, id)
	}

	out := make([]Entry, 0, len(entries)-1)
	out = append(out, entries[:id]...)
	out = append(out, entries[id+1:]...)

	return out, nil
}
