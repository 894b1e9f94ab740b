package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aqasim81/table-tracking/internal/analyzer"
	"github.com/aqasim81/table-tracking/internal/config"
	"github.com/aqasim81/table-tracking/internal/executor"
	"github.com/aqasim81/table-tracking/internal/tracking"
)

// Export types.
const (
	exportFile      = "sqldumpfile"
	exportDump      = "sqldump"
	exportExecution = "execution"
)

// errDangerousStatements is returned when an execution export is blocked
// by high or critical findings.
var errDangerousStatements = errors.New("execution aborted: dangerous statements detected (use --force to override)")

var exportCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "export <schema> <table> [version]",
	Short: "Export the statements of a tracking report",
	Long: `Export the filtered statements of a tracking version in entry order:

  sqldumpfile  write log_<table>.sql (or --output) with a report header
  sqldump      print a dump that replays into a temporary schema
  execution    replay the statements against the database

Execution is refused when the analyzer finds high or critical statements
unless --force is given.`,
	Args: cobra.RangeArgs(2, 3), //nolint:mnd // schema, table, optional version
	RunE: runExport,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	addFilterFlags(exportCmd)
	exportCmd.Flags().String("type", exportFile, "export type (sqldumpfile, sqldump, execution)")
	exportCmd.Flags().String("output", "", "file written by sqldumpfile, - for stdout (default: log_<table>.sql)")
	exportCmd.Flags().Bool("force", false, "execute even if dangerous statements are found")
	exportCmd.Flags().Bool("dry-run", false, "show what execution would run without executing")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	schema, table := args[0], args[1]

	exportType, _ := cmd.Flags().GetString("type")
	if exportType != exportFile && exportType != exportDump && exportType != exportExecution {
		return fmt.Errorf("%w: export type %q", errInvalidArg, exportType)
	}

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

	now := time.Now()

	logType, filter, err := readFilter(cmd, data, now)
	if err != nil {
		return err
	}

	entries := tracking.Entries(data, logType, filter)
	out := cmd.OutOrStdout()

	switch exportType {
	case exportDump:
		_, err = io.WriteString(out, tracking.SQLDump(entries))

		return err //nolint:wrapcheck // stdout write
	case exportExecution:
		force, _ := cmd.Flags().GetBool("force")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		return executeExport(ctx, out, pool, entries, AppConfig, replayOpts{force: force, dryRun: dryRun})
	default:
		output, _ := cmd.Flags().GetString("output")

		return writeFileDump(out, output, table, entries, now)
	}
}

// writeFileDump writes the downloadable dump to path, defaulting to the
// dump filename of the table.
func writeFileDump(out io.Writer, path, table string, entries []tracking.FilteredEntry, now time.Time) error {
	dump := tracking.FileDump(table, entries, now)

	if path == "-" {
		_, err := io.WriteString(out, dump)

		return err //nolint:wrapcheck // stdout write
	}

	if path == "" {
		path = tracking.DumpFilename(table)
	}

	if err := os.WriteFile(path, []byte(dump), 0o600); err != nil { //nolint:mnd // owner read/write
		return fmt.Errorf("writing dump: %w", err)
	}

	fmt.Fprintf(out, "Wrote %d statement(s) to %s\n", len(entries), path)

	return nil
}

type replayOpts struct {
	force  bool
	dryRun bool
}

// checkDangerousStatements runs the analyzer over the export and reports
// whether it must be blocked.
func checkDangerousStatements(out io.Writer, entries []tracking.FilteredEntry) bool {
	a := newAnalyzer()
	res := a.Analyze(tracking.Statements(entries))

	return printFindings(out, res, isTerminal(out))
}

func executeExport(
	ctx context.Context,
	out io.Writer,
	pool *pgxpool.Pool,
	entries []tracking.FilteredEntry,
	cfg *config.Config,
	opts replayOpts,
) error {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No statements to execute.")

		return nil
	}

	if !opts.force && !opts.dryRun && checkDangerousStatements(out, entries) {
		return errDangerousStatements
	}

	exec := executor.New(pool,
		executor.WithLockTimeout(cfg.LockTimeout),
		executor.WithStatementTimeout(cfg.StatementTimeout),
		executor.WithDryRun(opts.dryRun),
		executor.WithProgressCallback(progressPrinter(out)),
	)

	if opts.dryRun {
		fmt.Fprintln(out, "\n--- DRY RUN (no changes will be made) ---")
	}

	n, err := exec.Replay(ctx, entries)
	if err != nil {
		return fmt.Errorf("executing statements: %w", err)
	}

	if opts.dryRun {
		fmt.Fprintf(out, "\nDry run complete: %d statement(s) would be executed.\n", len(entries))
	} else {
		fmt.Fprintf(out, "\nSQL statements executed. %d statements were run.\n", n)
	}

	return nil
}

func progressPrinter(out io.Writer) func(executor.ProgressEvent) {
	return func(event executor.ProgressEvent) {
		switch event.Status {
		case executor.StatusStarting:
			fmt.Fprintf(out, "  [%d] %s ... ", event.Index+1, displayStatement(event.Statement))
		case executor.StatusCompleted:
			fmt.Fprintf(out, "done (%s)\n", event.Duration.Truncate(time.Millisecond))
		case executor.StatusSkipped:
			fmt.Fprintf(out, "  [%d] %s (dry run)\n", event.Index+1, displayStatement(event.Statement))
		case executor.StatusFailed:
			fmt.Fprintln(out, "FAILED")
			fmt.Fprintf(out, "    Error: %v\n", event.Error)
		}
	}
}

// displayStatement strips the no-track marker added for replay.
func displayStatement(stmt string) string {
	return analyzer.TruncateSQL(strings.TrimPrefix(stmt, tracking.NoTrackMarker+"\n"), statementWidth)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && term.IsTerminal(int(f.Fd()))
}
