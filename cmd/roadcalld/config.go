package main

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/openroad/roadcall/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or validate the engine configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as TOML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		out, err := toml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration without starting the engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		fmt.Println("Configuration is valid")
		return nil
	},
}

// resolveConfig loads the file named by --config (or found by the upward
// search), falling back to defaults plus environment overrides when no file
// exists yet.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	configFlag, _ := cmd.Flags().GetString("config")
	path := config.ResolvePath(configFlag)
	if _, err := os.Stat(path); err == nil {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}
