// Package commands implements the CLI commands for cldcli.
package commands

import (
	"os"
	"strings"

	"github.com/cldc-go/cldc/cmd/cldcli/cmdutil"
	"github.com/cldc-go/cldc/internal/logger"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "cldcli",
	Short: "CLDC command-line client",
	Long: `cldcli is the command-line client for a CLD coordination service
cluster: it logs in, reports session status, lists directory contents, and
manages advisory locks over the same reliable-datagram RPC protocol cldc
applications use.

Use "cldcli [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		serverList, _ := cmd.Flags().GetString("server")
		if serverList != "" {
			cmdutil.Flags.ServerList = splitCommaList(serverList)
		}
		cmdutil.Flags.User, _ = cmd.Flags().GetString("user")
		cmdutil.Flags.Output, _ = cmd.Flags().GetString("output")
		cmdutil.Flags.NoColor, _ = cmd.Flags().GetBool("no-color")
		cmdutil.Flags.Verbose, _ = cmd.Flags().GetBool("verbose")

		level := "WARN"
		if cmdutil.Flags.Verbose {
			level = "DEBUG"
		}
		_ = logger.Init(logger.Config{Level: level, Format: "text", Output: "stderr"})
	},
}

func splitCommaList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().String("server", "", "Comma-separated server list (overrides stored credential)")
	rootCmd.PersistentFlags().String("user", "", "CLD user name (overrides stored credential)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(locksCmd)
	rootCmd.AddCommand(serveDebugCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	PrintErr(format, args...)
	os.Exit(1)
}
