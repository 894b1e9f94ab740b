package tracking_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aqasim81/table-tracking/internal/tracking"
)

func TestTrackingSet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values map[string]string
		want   string
	}{
		{name: "nothing selected", values: map[string]string{}, want: ""},
		{
			name:   "canonical order regardless of input",
			values: map[string]string{"truncate": "true", "alter_table": "true", "insert": "1"},
			want:   "ALTER TABLE,INSERT,TRUNCATE",
		},
		{
			name:   "false values are skipped",
			values: map[string]string{"drop_view": "false", "create_index": "0", "drop_index": "true"},
			want:   "DROP INDEX",
		},
		{
			name: "every kind",
			values: map[string]string{
				"alter_table": "true", "rename_table": "true", "create_table": "true", "drop_table": "true",
				"alter_view": "true", "create_view": "true", "drop_view": "true",
				"create_index": "true", "drop_index": "true",
				"insert": "true", "update": "true", "delete": "true", "truncate": "true",
			},
			want: "ALTER TABLE,RENAME TABLE,CREATE TABLE,DROP TABLE,ALTER VIEW,CREATE VIEW,DROP VIEW," +
				"CREATE INDEX,DROP INDEX,INSERT,UPDATE,DELETE,TRUNCATE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tracking.TrackingSet(tt.values))
		})
	}
}

func TestKind_FormNameAndLog(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "rename_table", tracking.RenameTable.FormName())
	assert.Equal(t, "insert", tracking.Insert.FormName())
	assert.Equal(t, tracking.DML, tracking.Truncate.LogKind())
	assert.Equal(t, tracking.DDL, tracking.CreateIndex.LogKind())
}

func TestSetContains(t *testing.T) {
	t.Parallel()

	set := "ALTER TABLE, insert ,DELETE"

	assert.True(t, tracking.SetContains(set, tracking.AlterTable))
	assert.True(t, tracking.SetContains(set, tracking.Insert))
	assert.False(t, tracking.SetContains(set, tracking.Update))
	assert.False(t, tracking.SetContains("", tracking.Update))
}

func TestDefaultChecked(t *testing.T) {
	t.Parallel()

	defaults := "create table,update,DELETE"

	assert.True(t, tracking.DefaultChecked(defaults, tracking.CreateTable))
	assert.True(t, tracking.DefaultChecked(defaults, tracking.Update))
	assert.False(t, tracking.DefaultChecked(defaults, tracking.Insert))
}

func TestVersionStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "active", tracking.VersionStatus(true))
	assert.Equal(t, "not active", tracking.VersionStatus(false))
}
