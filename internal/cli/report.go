package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aqasim81/table-tracking/internal/tracking"
)

var reportCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "report <schema> <table> [version]",
	Short: "Show the tracking report of a version",
	Long: `Show the data definition and data manipulation logs of a tracking
version, filtered by log type, date range and users. Without a version the
latest one is shown. Statements the analyzer considers dangerous are flagged.`,
	Args: cobra.RangeArgs(2, 3), //nolint:mnd // schema, table, optional version
	RunE: runReport,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	addFilterFlags(reportCmd)
	reportCmd.Flags().Int("delete-ddl", -1, "delete the data definition log entry with this id first")
	reportCmd.Flags().Int("delete-dml", -1, "delete the data manipulation log entry with this id first")
	rootCmd.AddCommand(reportCmd)
}

// addFilterFlags registers the report filter shared by report, export and
// analyze.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("logtype", string(tracking.LogSchemaAndData), "logs to include (schema, data, schema_and_data)")
	cmd.Flags().String("from", "", "earliest entry date, YYYY-MM-DD HH:MM:SS (default: version creation)")
	cmd.Flags().String("to", "", "latest entry date, YYYY-MM-DD HH:MM:SS (default: now)")
	cmd.Flags().String("users", "", "comma-separated users, * for everyone (default: everyone)")
}

// readFilter parses the filter flags against the version being reported.
func readFilter(cmd *cobra.Command, data *tracking.Data, now time.Time) (tracking.LogType, tracking.Filter, error) {
	rawType, _ := cmd.Flags().GetString("logtype")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	users, _ := cmd.Flags().GetString("users")

	logType, err := tracking.ParseLogType(rawType)
	if err != nil {
		return "", tracking.Filter{}, fmt.Errorf("%w: %w", errInvalidArg, err)
	}

	filter, err := tracking.ParseFilter(from, to, users, data.CreatedAt, now)
	if err != nil {
		return "", tracking.Filter{}, fmt.Errorf("%w: %w", errInvalidArg, err)
	}

	return logType, filter, nil
}

// versionArg returns the optional version argument at position i, or -1
// for the latest version.
func versionArg(args []string, i int) (int, error) {
	if len(args) <= i {
		return -1, nil
	}

	return parseVersionArg(args[i])
}

// reportSections filters the logs selected by logType. Findings are
// computed over each whole log so they line up with entry ids.
func reportSections(data *tracking.Data, logType tracking.LogType, filter tracking.Filter) []logSection {
	a := newAnalyzer()

	var sections []logSection

	for _, kind := range []tracking.LogKind{tracking.DDL, tracking.DML} {
		if (kind == tracking.DDL && !logType.IncludesSchema()) || (kind == tracking.DML && !logType.IncludesData()) {
			continue
		}

		log := data.Log(kind)
		statements := make([]string, len(log))

		for i := range log {
			statements[i] = log[i].Statement
		}

		sections = append(sections, logSection{
			Kind:     kind,
			Entries:  tracking.FilterTracking(log, filter),
			Findings: a.Analyze(statements),
		})
	}

	return sections
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	schema, table := args[0], args[1]

	version, err := versionArg(args, 2) //nolint:mnd // third positional argument
	if err != nil {
		return err
	}

	pool, st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer pool.Close()

	data, err := st.TrackedData(ctx, schema, table, version)
	if err != nil {
		return fmt.Errorf("reading tracking data: %w", err)
	}

	for _, kind := range []tracking.LogKind{tracking.DDL, tracking.DML} {
		name := "delete-ddl"
		if kind == tracking.DML {
			name = "delete-dml"
		}

		id, _ := cmd.Flags().GetInt(name)
		if !cmd.Flags().Changed(name) {
			continue
		}

		entries, err := tracking.DeleteLogEntry(data.Log(kind), id)
		if err != nil {
			return fmt.Errorf("deleting %s entry: %w", kind, err)
		}

		if err := st.ChangeTrackingData(ctx, schema, table, data.Number, kind, entries); err != nil {
			return fmt.Errorf("deleting %s entry: %w", kind, err)
		}

		if kind == tracking.DML {
			data.DMLog = entries
		} else {
			data.DDLog = entries
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "Deleted %s entry %d.\n", kind, id)
	}

	logType, filter, err := readFilter(cmd, data, time.Now())
	if err != nil {
		return err
	}

	return printReport(cmd.OutOrStdout(), AppConfig.Format, data, reportSections(data, logType, filter))
}
