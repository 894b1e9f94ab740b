package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aqasim81/table-tracking/internal/tracking"
)

func TestLogColumn(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "schema_sql", logColumn(tracking.DDL))
	assert.Equal(t, "data_sql", logColumn(tracking.DML))
}

func TestCreateSchemaSQL_namesTrackingTable(t *testing.T) {
	t.Parallel()

	assert.Contains(t, createSchemaSQL, "CREATE TABLE IF NOT EXISTS "+TableName)
	assert.Contains(t, createSchemaSQL, "PRIMARY KEY (schema_name, table_name, version)")
}

func TestTrackable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		relkind string
		want    bool
	}{
		{relkind: "r", want: true},
		{relkind: "p", want: true},
		{relkind: "v", want: true},
		{relkind: "m", want: false},
		{relkind: "f", want: false},
		{relkind: "S", want: false},
		{relkind: "i", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.relkind, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, trackable(tt.relkind))
		})
	}
}
