// Package cli implements the dbengine command-line interface.
// Built with cobra: a silent root command, persistent global flags,
// and one package-level *cobra.Command var per subcommand.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags.
	verbose    bool
	configPath string
)

// rootCmd is the base command for dbengine.
var rootCmd = &cobra.Command{
	Use:   "dbengine",
	Short: "Embedded row-storage engine control plane",
	Long: `dbengine drives the row-storage engine directly: create a table,
compile and reuse statements, insert and delete rows, and inspect
catalog/cache state — with no SQL parser standing between the command
line and the engine's own operations.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug-level) logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML engine config (defaults built in if omitted)")

	rootCmd.AddCommand(createTableCmd)
	rootCmd.AddCommand(createPersistentTableCmd)
	rootCmd.AddCommand(addForeignKeyCmd)
	rootCmd.AddCommand(insertCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(snapshotCmd)
}

var createPersistentTableCmd = &cobra.Command{
	Use:   "create-persistent-table <name> <col:type[:pk|:identity|:notnull]>...",
	Short: "Register a new table backed by a disk-cached, allocator-assigned row store",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunCreatePersistentTable(args[0], args[1:])
	},
}

var addForeignKeyCmd = &cobra.Command{
	Use:   "add-fk <name> <owner-table> <owner-col[,owner-col...]> <ref-table> <ref-col[,ref-col...]> <cascade|set-null|set-default|restrict>",
	Short: "Declare a foreign key, enforced with the given ON DELETE action",
	Args:  cobra.ExactArgs(6),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunAddForeignKey(args[0], args[1], args[2], args[3], args[4], args[5])
	},
}

var createTableCmd = &cobra.Command{
	Use:   "create-table <name> <col:type[:pk|:identity|:notnull]>...",
	Short: "Register a new table in the in-process catalog",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunCreateTable(args[0], args[1:])
	},
}

var insertCmd = &cobra.Command{
	Use:   "insert <table> <json-array-of-values>",
	Short: "Insert one row",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunInsert(args[0], args[1])
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <table> <primary-key-json-array>",
	Short: "Delete the row matching the given primary key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunDelete(args[0], args[1])
	},
}

var compileCmd = &cobra.Command{
	Use:   "compile <sql-text>",
	Short: "Compile (or reuse a cached compile of) a statement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunCompile(args[0])
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog tables, row counts, and statement-cache residency",
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunStats()
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <table>",
	Short: "Write the table's encrypted catalog snapshot, per the configured snapshot path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunSnapshot(args[0])
	},
}
