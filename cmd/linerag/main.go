package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/memohai/linerag/internal/config"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "linerag",
	Short: "LINE assistant answering questions from uploaded documents",
	Long: `linerag runs a LINE Messaging API webhook that indexes uploaded documents
into per-conversation Gemini File Search stores, answers questions grounded
in them, and describes images.

Configuration is read from config.toml (or $CONFIG_PATH), then .env, then
the environment.

Examples:
  linerag serve
  linerag kb upload ./documents
  linerag stores list`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(kbCmd)
	rootCmd.AddCommand(storesCmd)

	rootCmd.PersistentFlags().String("env-file", ".env", "Dotenv file loaded before the environment")
}

// loadConfig reads the dotenv file, then the TOML file and environment, and
// validates the result, skipping the rules of the fields in except.
func loadConfig(cmd *cobra.Command, except ...string) (config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return config.Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateExcept(except...); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
