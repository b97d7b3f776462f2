package cli

import (
	"encoding/json"
	"fmt"

	"github.com/atlasos/atlas/internal/config"
	"github.com/spf13/cobra"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (secrets masked)",
		RunE:  runConfigShow,
	}

	configPathCmd = &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
)

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	masked := *cfg
	masked.Providers.OpenAI.APIKey = maskSecret(cfg.Providers.OpenAI.APIKey)
	masked.Providers.OpenRouter.APIKey = maskSecret(cfg.Providers.OpenRouter.APIKey)
	masked.Providers.Anthropic.APIKey = maskSecret(cfg.Providers.Anthropic.APIKey)
	masked.Providers.Groq.APIKey = maskSecret(cfg.Providers.Groq.APIKey)
	masked.Gateway.AuthToken = maskSecret(cfg.Gateway.AuthToken)
	masked.Notify.SigningSecret = maskSecret(cfg.Notify.SigningSecret)
	masked.Notify.Slack.BotToken = maskSecret(cfg.Notify.Slack.BotToken)
	masked.Store.DSN = maskSecret(cfg.Store.DSN)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(&masked)
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
