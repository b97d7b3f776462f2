package cli

import (
	"fmt"
	"os"

	"github.com/atlasos/atlas/internal/config"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("🏷️ Atlas Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("📊 Atlas Status")
		fmt.Printf("Version: %s\n", version)

		configPath, _ := config.ConfigPath()
		if _, err := os.Stat(configPath); err == nil {
			fmt.Println("Config:  ✓ Found (" + configPath + ")")
		} else {
			fmt.Println("Config:  ✗ Not found (defaults in effect)")
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Println("API Key: ? Unable to load config")
			return
		}
		if hasProviderKey(cfg) {
			fmt.Println("API Key: ✓ Found")
		} else {
			fmt.Println("API Key: ✗ Not found")
		}

		fmt.Printf("Store:   %s", cfg.Store.Driver)
		if cfg.Store.Driver == "sqlite" {
			if _, err := os.Stat(cfg.Store.Path); err == nil {
				fmt.Printf(" (✓ %s)", cfg.Store.Path)
			} else {
				fmt.Printf(" (✗ %s not created yet)", cfg.Store.Path)
			}
		}
		fmt.Println()

		if cfg.Group.Enabled {
			fmt.Printf("Group:   ✓ Enabled (%s via %s)\n", cfg.Group.GroupName, cfg.Group.KafkaBrokers)
		} else {
			fmt.Println("Group:   ✗ Disabled")
		}
		if cfg.Scheduler.Enabled {
			fmt.Println("Jobs:    ✓ Scheduler enabled")
		} else {
			fmt.Println("Jobs:    ✗ Scheduler disabled")
		}
	},
}

func hasProviderKey(cfg *config.Config) bool {
	return cfg.Providers.OpenAI.APIKey != "" ||
		cfg.Providers.OpenRouter.APIKey != "" ||
		cfg.Providers.Anthropic.APIKey != "" ||
		cfg.Providers.Groq.APIKey != ""
}
