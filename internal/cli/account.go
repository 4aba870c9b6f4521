package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sadopc/studytrack/internal/cloudsync"
)

func newLoginCmd(o *options) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "login EMAIL",
		Short: "Sign in and sync this device with your account",
		Long: `Sign in as EMAIL. If the account already holds data it replaces the data
on this device; otherwise this device's data is uploaded to the account.`,
		Args: cobra.ExactArgs(1),
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
			p, err := rt.account.Login(ctx, args[0], name)
			if err != nil {
				return fmt.Errorf("sign in: %w", err)
			}
			if err := rt.flush(ctx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			success(out, "Signed in as %s", p.Email)
			switch rt.coord.State() {
			case cloudsync.Synced:
				res, ok := rt.coord.LastMerge()
				switch {
				case ok && res.Err != nil:
					warn(out, "Merge failed; this device keeps its local data (%v)", res.Err)
				case ok:
					field(out, "Merge", fmt.Sprintf("%s, %d records", res.Direction, res.Keys))
				}
			default:
				warn(out, "Remote unavailable; this device keeps its local data (%s)", rt.coord.State())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")
	return cmd
}

func newLogoutCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out; data stays on this device",
		Args:  cobra.NoArgs,
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

			if !rt.account.Profile().LoggedIn && rt.provider.Current().Principal.UID == "" {
				warn(cmd.OutOrStdout(), "Not signed in")
				return nil
			}
			if err := rt.start(cmd.Context()); err != nil {
				return err
			}
			if err := rt.account.Logout(cmd.Context()); err != nil {
				return fmt.Errorf("sign out: %w", err)
			}
			success(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}
