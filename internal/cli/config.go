package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goMarble/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or generate node configuration",
}

var configExampleCmd = &cobra.Command{
	Use:   "example <file>",
	Short: "Write an example configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SaveExampleConfig(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote example configuration to %s\n", args[0])
		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Load and validate the configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		source := cfg.GetConfigPath()
		if source == "" {
			source = "defaults"
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "configuration OK (%s)\n", source)
		fmt.Fprintf(out, "  database: %s at %s\n", cfg.Database.Backend, cfg.Database.Path)
		fmt.Fprintf(out, "  collections at genesis: %d\n", len(cfg.Genesis.Collections))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configExampleCmd, configCheckCmd)
	rootCmd.AddCommand(configCmd)
}
