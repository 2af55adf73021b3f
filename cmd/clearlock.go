package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"periodic-backup-sync/internal/config"
	"periodic-backup-sync/internal/engine"
)

// createClearLockCommand creates the clear-lock subcommand. The lock is
// released automatically on normal exit and on SIGINT/SIGTERM; this command
// covers the remaining case of a hard crash or power loss.
func createClearLockCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-lock",
		Short: "Remove a stale run lock from the backup root",
		Long: `Remove the lock marker a crashed run left in LOCAL_BACKUP_DIR.

Only use this after confirming no backup run is actually in progress:
removing a live lock lets two runs mutate the same staging directories.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if cfg.LocalBackupDir == "" {
				return fmt.Errorf("LOCAL_BACKUP_DIR is required")
			}

			removed, err := engine.ClearLock(cfg.LocalBackupDir)
			if err != nil {
				return err
			}
			if removed {
				fmt.Printf("removed %s\n", engine.LockPath(cfg.LocalBackupDir))
			} else {
				fmt.Println("no lock present")
			}
			return nil
		},
	}
}
