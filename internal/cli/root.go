package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/atlasos/atlas/internal/cli.version=1.2.3"
	version = "1.4.0"
	logo    = "\n" +
		"     _   _   _\n" +
		"    / \\ | |_| | __ _ ___\n" +
		"   / _ \\| __| |/ _` / __|\n" +
		"  / ___ \\ |_| | (_| \\__ \\\n" +
		" /_/   \\_\\__|_|\\__,_|___/\n"
)

var rootCmd = &cobra.Command{
	Use:   "atlas",
	Short: "Atlas OS - AI-powered dashboard backend",
	Long:  color.CyanString(logo) + "\nDashboards, AI task routing, and widget evolution in one binary.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(doctorCmd)
}
