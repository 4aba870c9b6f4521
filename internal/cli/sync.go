package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sadopc/studytrack/internal/cloudsync"
)

func newSyncCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run the sign-in merge once and exit",
		Long: `Merge this device with the signed-in account the way the UI does on start:
the account's data replaces local data when the account has any, otherwise
local data is uploaded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, closer, err := o.logger()
			if err != nil {
				return err
			}
			defer closer.Close()

			rt, err := openRuntime(o.cfg, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := cmd.Context()
			if err := rt.start(ctx); err != nil {
				return err
			}
			if err := rt.awaitReady(ctx); err != nil {
				return fmt.Errorf("wait for sync: %w", err)
			}
			if err := rt.flush(ctx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			res, ok := rt.coord.LastMerge()
			switch {
			case ok && res.Err != nil:
				return fmt.Errorf("merge failed: %w", res.Err)
			case rt.coord.State() == cloudsync.Synced && ok:
				success(out, "Synced %s (%s, %d records)", res.UID, res.Direction, res.Keys)
			case rt.provider.Current().Principal.UID == "":
				warn(out, "Not signed in; nothing to sync")
			default:
				warn(out, "Sync did not finish in time (%s)", rt.coord.State())
			}
			return nil
		},
	}
}
