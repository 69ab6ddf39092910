package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sagyolink/leadscout/internal/config"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config.yaml with the default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		const path = "config.yaml"

		if !configInitForce {
			if _, err := os.Stat(path); err == nil {
				return eris.Errorf("%s already exists (use --force to overwrite)", path)
			}
		}

		starter := config.Config{
			Store: config.StoreConfig{
				Driver:      "sqlite",
				DatabaseURL: "leadscout.db",
			},
			Places: config.PlacesConfig{
				Language:     "ja",
				RateLimitRPS: 10,
			},
			Anthropic: config.AnthropicConfig{
				HaikuModel:  "claude-haiku-4-5-20251001",
				SonnetModel: "claude-sonnet-4-5-20250929",
			},
			Scrape: config.ScrapeConfig{
				MaxPages:          5,
				MaxContentChars:   10000,
				SearchTimeoutSecs: 15,
				SearchRetries:     1,
			},
			Batch: config.BatchConfig{
				MaxConcurrentCompanies: 5,
			},
			Server: config.ServerConfig{
				Port: 8080,
			},
			Log: config.LogConfig{
				Level:  "info",
				Format: "json",
			},
		}

		data, err := yaml.Marshal(starter)
		if err != nil {
			return eris.Wrap(err, "marshal starter config")
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return eris.Wrap(err, "write config file")
		}

		zap.L().Info("starter config written", zap.String("path", path))
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config.yaml")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
