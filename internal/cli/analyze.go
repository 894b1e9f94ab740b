package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/aqasim81/table-tracking/internal/analyzer"
	"github.com/aqasim81/table-tracking/internal/analyzer/rules"
	"github.com/aqasim81/table-tracking/internal/tracking"
)

var analyzeCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "analyze <schema> <table> [version]",
	Short: "Analyze tracked statements for dangerous operations",
	Long: `Analyze the statements of a tracking report for operations that would
destroy data or lock tables if the report were replayed: dropped or
truncated tables, renames, column type changes, blocking index builds and
unfiltered UPDATE or DELETE. Reports findings with severity levels and
suggests safe alternatives.`,
	Args: cobra.RangeArgs(2, 3), //nolint:mnd // schema, table, optional version
	RunE: runAnalyze,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	addFilterFlags(analyzeCmd)
	analyzeCmd.Flags().String("fail-on", "", "exit with non-zero code when a finding reaches this severity (low, medium, high, critical)")
	rootCmd.AddCommand(analyzeCmd)
}

// newAnalyzer builds the replay safety analyzer, leaving out the rules
// disabled in the configuration.
func newAnalyzer() *analyzer.Analyzer {
	var disabled []string
	if AppConfig != nil {
		disabled = AppConfig.DisabledRules
	}

	return analyzer.New(analyzer.WithRegistry(rules.NewDefaultRegistry(disabled...)))
}

// errSeverityThreshold is returned when a finding reaches the --fail-on severity.
var errSeverityThreshold = errors.New("findings at or above the failure severity detected")

// failOnFlag parses --fail-on. A zero threshold disables the check.
func failOnFlag(cmd *cobra.Command) (analyzer.Severity, error) {
	raw, _ := cmd.Flags().GetString("fail-on")
	if raw == "" {
		return analyzer.Safe, nil
	}

	sev, err := analyzer.ParseSeverity(raw)
	if err != nil {
		return analyzer.Safe, fmt.Errorf("%w: --fail-on: %w", errInvalidArg, err)
	}

	return sev, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	version, err := versionArg(args, 2) //nolint:mnd // third positional argument
	if err != nil {
		return err
	}

	failOn, err := failOnFlag(cmd)
	if err != nil {
		return err
	}

	pool, st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer pool.Close()

	data, err := st.TrackedData(commandContext(cmd), args[0], args[1], version)
	if err != nil {
		return fmt.Errorf("reading tracking data: %w", err)
	}

	logType, filter, err := readFilter(cmd, data, time.Now())
	if err != nil {
		return err
	}

	return analyzeEntries(cmd.OutOrStdout(), tracking.Entries(data, logType, filter), failOn)
}

func analyzeEntries(out io.Writer, entries []tracking.FilteredEntry, failOn analyzer.Severity) error {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No tracked statements found.")

		return nil
	}

	a := newAnalyzer()
	res := a.Analyze(tracking.Statements(entries))

	if len(res.Unparsed) > 0 {
		fmt.Fprintf(out, "Skipped %d statement(s) the parser could not read.\n", len(res.Unparsed))
	}

	printFindings(out, res, isTerminal(out))

	if failOn > analyzer.Safe && res.MaxSeverity >= failOn {
		return fmt.Errorf("%w: %s", errSeverityThreshold, res.MaxSeverity)
	}

	return nil
}
