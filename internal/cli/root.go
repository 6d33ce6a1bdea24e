package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goMarble/internal/config"
)

var (
	// Global flags
	configFile string
	debug      bool
	quiet      bool
)

// Version is set at build time with -ldflags "-X".
var Version = "0.1.0-dev"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "marbled",
	Short: "marbled - NFT marketplace node",
	Long: `marbled runs the Marble NFT marketplace contracts on a single-node
deterministic chain. It serves JSON-RPC and websocket endpoints for submitting
signed transactions, querying collections and following settled sales.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "", "configuration file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable normally suppressed debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output to console after startup")
}

// loadConfig reads --conf when given. Without it only defaults and the
// environment apply.
func loadConfig() (*config.Config, error) {
	paths := config.ConfigPaths{}
	if configFile != "" {
		paths.Main = configFile
	} else if def := config.DefaultConfigPaths(); fileExists(def.Main) {
		paths = def
	}
	cfg, err := config.LoadConfig(paths)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
