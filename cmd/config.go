package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	cfgpkg "github.com/Saai416/CSV-Insights-dashboard/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set CSV Insights configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		fmt.Printf("api_key: %s\n", mask(cfg.APIKey))
		fmt.Printf("model: %s\n", cfg.Model)
		fmt.Printf("base_url: %s\n", cfg.BaseURL)
		fmt.Printf("max_tokens: %d\n", cfg.MaxTokens)
		fmt.Printf("temperature: %.3f\n", cfg.Temperature)
		fmt.Printf("max_upload_mb: %d\n", cfg.MaxUploadMB)
		fmt.Printf("max_stored_reports: %d\n", cfg.MaxStoredReports)
		fmt.Printf("digest_budget_bytes: %d\n", cfg.DigestBudgetBytes)
		fmt.Printf("context_token_budget: %d\n", cfg.ContextTokenBudget)
		fmt.Printf("listen_addr: %s\n", cfg.ListenAddr)
		if cfg.DatabaseURL != "" {
			fmt.Println("database_url: (set)")
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "api_key":
			cfg.APIKey = val
		case "model":
			cfg.Model = val
		case "base_url":
			cfg.BaseURL = val
		case "listen_addr":
			cfg.ListenAddr = val
		case "database_url":
			cfg.DatabaseURL = val
		case "log_level":
			cfg.LogLevel = val
		case "log_format":
			cfg.LogFormat = val
		case "max_tokens", "max_upload_mb", "max_stored_reports", "sample_rows",
			"top_values", "digest_budget_bytes", "max_digest_columns", "context_token_budget":
			n, err := strconv.Atoi(val)
			if err != nil || n <= 0 {
				return fmt.Errorf("%s must be a positive integer", key)
			}
			switch key {
			case "max_tokens":
				cfg.MaxTokens = n
			case "max_upload_mb":
				cfg.MaxUploadMB = n
			case "max_stored_reports":
				cfg.MaxStoredReports = n
			case "sample_rows":
				cfg.SampleRows = n
			case "top_values":
				cfg.TopValues = n
			case "digest_budget_bytes":
				cfg.DigestBudgetBytes = n
			case "max_digest_columns":
				cfg.MaxDigestColumns = n
			case "context_token_budget":
				cfg.ContextTokenBudget = n
			}
		case "temperature":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil || f < 0 || f > 2 {
				return fmt.Errorf("temperature must be a number between 0 and 2")
			}
			cfg.Temperature = f
		default:
			return fmt.Errorf("unknown config key: %s", key)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Printf("✓ Saved %s\n", key)
		return nil
	},
}

func mask(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
