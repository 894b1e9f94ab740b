package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aqasim81/table-tracking/internal/store"
	"github.com/aqasim81/table-tracking/internal/tracking"
)

var tablesCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "tables [schema]",
	Short: "List tracked and untracked tables of a schema",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTables,
}

var versionsCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "versions <schema> <table>",
	Short: "List the tracking versions of a table",
	Args:  cobra.ExactArgs(2), //nolint:mnd // schema, table
	RunE:  runVersions,
}

var createCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "create <schema> <table>...",
	Short: "Create a tracking version and activate it",
	Long: `Create a new tracking version for each table. The version snapshots the
table structure and starts logging the selected statement kinds. Without
--version each table gets the version after its last one.`,
	Args: cobra.MinimumNArgs(2), //nolint:mnd // schema and at least one table
	RunE: runCreate,
}

var activateCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "activate <schema> <table> [version]",
	Short: "Activate tracking at a version (default: latest)",
	Args:  cobra.RangeArgs(2, 3), //nolint:mnd // schema, table, optional version
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetActive(cmd, args, true)
	},
}

var deactivateCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "deactivate <schema> <table> [version]",
	Short: "Deactivate tracking at a version (default: latest)",
	Args:  cobra.RangeArgs(2, 3), //nolint:mnd // schema, table, optional version
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetActive(cmd, args, false)
	},
}

var deleteCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "delete <schema> <table> [version]...",
	Short: "Delete tracking versions",
	Long: `Delete the given tracking versions of a table. Without versions every
version is deleted and the table is no longer tracked.`,
	Args: cobra.MinimumNArgs(2), //nolint:mnd // schema, table
	RunE: runDelete,
}

var snapshotCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "snapshot <schema> <table> [version]",
	Short: "Show the structure snapshot of a version",
	Args:  cobra.RangeArgs(2, 3), //nolint:mnd // schema, table, optional version
	RunE:  runSnapshot,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	createCmd.Flags().Int("version", 0, "version number (default: last version + 1)")
	createCmd.Flags().String("statements", "",
		"comma-separated statement kinds to track, from "+kindNames()+" (default: default_statements)")
	createCmd.Flags().String("user", "", "user logged for the initial statements (default: database role)")

	rootCmd.AddCommand(tablesCmd, versionsCmd, createCmd, activateCmd, deactivateCmd, deleteCmd, snapshotCmd)
}

func runTables(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	schema := AppConfig.DefaultSchema
	if len(args) > 0 {
		schema = args[0]
	}

	pool, st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer pool.Close()

	tracked, err := st.ListTrackedTables(ctx, schema)
	if err != nil {
		return fmt.Errorf("listing tracked tables: %w", err)
	}

	untracked, err := st.UntrackedTables(ctx, schema)
	if err != nil {
		return fmt.Errorf("listing untracked tables: %w", err)
	}

	return printTables(cmd.OutOrStdout(), AppConfig.Format, tracked, untracked)
}

func runVersions(cmd *cobra.Command, args []string) error {
	pool, st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer pool.Close()

	versions, err := st.ListVersions(commandContext(cmd), args[0], args[1])
	if err != nil {
		return fmt.Errorf("listing versions: %w", err)
	}

	return printVersions(cmd.OutOrStdout(), AppConfig.Format, versions)
}

// trackingSetOf normalizes a comma-separated list of statement kinds into
// a tracking set in canonical order. Unknown kinds are rejected.
func trackingSetOf(statements string) (string, error) {
	selected := make(map[string]string)

	for _, k := range tracking.ParseTrackingSet(statements) {
		if !isKind(k) {
			return "", fmt.Errorf("%w: statement kind %q", errInvalidArg, string(k))
		}

		selected[k.FormName()] = "true"
	}

	return tracking.TrackingSet(selected), nil
}

func isKind(k tracking.Kind) bool {
	for _, known := range tracking.AllKinds {
		if k == known {
			return true
		}
	}

	return false
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	schema, tables := args[0], args[1:]

	statements := AppConfig.DefaultStatements
	if cmd.Flags().Changed("statements") {
		statements, _ = cmd.Flags().GetString("statements")
	}

	set, err := trackingSetOf(statements)
	if err != nil {
		return err
	}

	requested, _ := cmd.Flags().GetInt("version")
	user, _ := cmd.Flags().GetString("user")

	pool, st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer pool.Close()

	out := cmd.OutOrStdout()

	for _, table := range tables {
		version := requested
		if !cmd.Flags().Changed("version") {
			last, err := st.LastVersion(ctx, schema, table)
			if err != nil {
				return fmt.Errorf("reading last version: %w", err)
			}

			version = max(last, 0) + 1
		}

		isView, err := st.IsView(ctx, schema, table)
		if err != nil {
			return fmt.Errorf("inspecting %s.%s: %w", schema, table, err)
		}

		err = st.CreateVersion(ctx, store.CreateParams{
			Schema:      schema,
			Table:       table,
			Version:     version,
			TrackingSet: set,
			IsView:      isView,
			User:        user,
		})
		if err != nil {
			return fmt.Errorf("creating version: %w", err)
		}

		fmt.Fprintf(out, "Version %d was created, tracking for %s.%s is active.\n", version, schema, table)
	}

	return nil
}

func runSetActive(cmd *cobra.Command, args []string, active bool) error {
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

	if version < 0 {
		if version, err = st.LastVersion(ctx, schema, table); err != nil {
			return fmt.Errorf("reading last version: %w", err)
		}

		if version < 0 {
			return fmt.Errorf("%s.%s: %w", schema, table, store.ErrNotTracked)
		}
	}

	if err := st.SetActive(ctx, schema, table, version, active); err != nil {
		return fmt.Errorf("changing activation: %w", err)
	}

	state := "deactivated"
	if active {
		state = "activated"
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Tracking for %s.%s was %s at version %d.\n", schema, table, state, version)

	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	schema, table := args[0], args[1]

	versions := make([]int, 0, len(args)-2) //nolint:mnd // after schema and table
	for _, raw := range args[2:] {
		v, err := parseVersionArg(raw)
		if err != nil {
			return err
		}

		versions = append(versions, v)
	}

	pool, st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer pool.Close()

	out := cmd.OutOrStdout()

	if len(versions) == 0 {
		if err := st.DeleteTracking(ctx, schema, table); err != nil {
			return fmt.Errorf("deleting tracking: %w", err)
		}

		fmt.Fprintln(out, "Tracking data deleted successfully.")

		return nil
	}

	var errs []error

	for _, v := range versions {
		if err := st.DeleteVersion(ctx, schema, table, v); err != nil {
			errs = append(errs, err)

			continue
		}

		fmt.Fprintf(out, "Version %d of %s.%s was deleted.\n", v, schema, table)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("deleting versions: %w", err)
	}

	return nil
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	version, err := versionArg(args, 2) //nolint:mnd // third positional argument
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

	return printSnapshot(cmd.OutOrStdout(), AppConfig.Format, data)
}

// kindNames lists the statement kinds for help output.
func kindNames() string {
	names := make([]string, len(tracking.AllKinds))
	for i, k := range tracking.AllKinds {
		names[i] = string(k)
	}

	return strings.Join(names, ", ")
}
