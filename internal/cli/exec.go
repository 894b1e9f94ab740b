package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aqasim81/table-tracking/internal/tracker"
)

var execCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "exec [sql]",
	Short: "Execute SQL and log it against tracked tables",
	Long: `Execute SQL statements in order on one connection and append every
trackable statement to the active version of each tracked table it touches.
Statements prefixed with /*NOTRACK*/ run without being logged. The SQL is
read from the argument, from --file, or from standard input.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExec,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	execCmd.Flags().StringP("file", "f", "", "read SQL from this file, - for stdin")
	execCmd.Flags().String("user", "", "user name written to the logs (default: database role)")
	rootCmd.AddCommand(execCmd)
}

// readSQL returns the SQL to execute from the argument, the file flag or
// in.
func readSQL(args []string, file string, in io.Reader) (string, error) {
	switch {
	case len(args) > 0:
		return args[0], nil
	case file != "" && file != "-":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", file, err)
		}

		return string(b), nil
	default:
		b, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}

		return string(b), nil
	}
}

func runExec(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	user, _ := cmd.Flags().GetString("user")

	sql, err := readSQL(args, file, cmd.InOrStdin())
	if err != nil {
		return err
	}

	if strings.TrimSpace(sql) == "" {
		return tracker.ErrEmptyQuery
	}

	pool, st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer pool.Close()

	t := tracker.New(tracker.PoolSessions(pool), st, newLogger(cmd))

	res, err := t.Execute(commandContext(cmd), user, sql)
	if res != nil {
		printExecResult(cmd.OutOrStdout(), res)
	}

	if err != nil {
		return fmt.Errorf("executing query: %w", err)
	}

	return nil
}

func printExecResult(out io.Writer, res *tracker.Result) {
	fmt.Fprintf(out, "%d statement(s) executed.\n", res.Statements)

	for _, r := range res.Recorded {
		fmt.Fprintf(out, "  logged %s on %s\n", r.Kind, r.Table)
	}
}
