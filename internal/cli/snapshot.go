package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goMarble/internal/storage/snapshot"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Export or restore the contract state store",
	Long: `Export the contract state store to a compressed snapshot file, or restore
a snapshot into an empty store. The node must not be running.`,
}

var snapshotExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write every state entry to a snapshot file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, closeDB, err := openStateDB(cfg.Database)
		if err != nil {
			return err
		}
		defer closeDB()

		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		info, err := snapshot.Export(cmd.Context(), db, f)
		if err != nil {
			f.Close()
			return fmt.Errorf("export snapshot: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		printSnapshotInfo(cmd, "exported", args[0], info)
		return nil
	},
}

var snapshotImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Restore a snapshot file into an empty state store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, closeDB, err := openStateDB(cfg.Database)
		if err != nil {
			return err
		}
		defer closeDB()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		info, err := snapshot.Import(cmd.Context(), db, f)
		if err != nil {
			return fmt.Errorf("import snapshot: %w", err)
		}
		printSnapshotInfo(cmd, "imported", args[0], info)
		return nil
	},
}

func printSnapshotInfo(cmd *cobra.Command, verb, path string, info *snapshot.Info) {
	if quiet {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d entries (%s)\n", verb, info.Entries, path)
	fmt.Fprintf(cmd.OutOrStdout(), "  version:      %d\n", info.Version)
	fmt.Fprintf(cmd.OutOrStdout(), "  raw size:     %d\n", info.RawSize)
	fmt.Fprintf(cmd.OutOrStdout(), "  payload size: %d\n", info.PayloadSize)
	fmt.Fprintf(cmd.OutOrStdout(), "  compressed:   %t\n", info.Compressed)
}

func init() {
	snapshotCmd.AddCommand(snapshotExportCmd, snapshotImportCmd)
	rootCmd.AddCommand(snapshotCmd)
}
