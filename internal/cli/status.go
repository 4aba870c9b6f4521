package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/studytrack/internal/config"
	"github.com/sadopc/studytrack/internal/identity"
	"github.com/sadopc/studytrack/internal/remote"
	"github.com/sadopc/studytrack/internal/tracker"
)

func newStatusCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the account, remote and a summary of the local data",
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

			doc, err := rt.store.Document()
			if err != nil {
				return fmt.Errorf("read local data: %w", err)
			}
			now := time.Now()
			out := cmd.OutOrStdout()

			field(out, "Data", o.cfg.DataDir)
			field(out, "Remote", describeRemote(cmd.Context(), o.cfg.Remote, rt.remote))

			ev := rt.provider.Current()
			if ev.Kind == identity.SignedIn {
				field(out, "Account", fmt.Sprintf("%s (%s)", ev.Principal.Email, ev.Principal.UID))
			} else {
				field(out, "Account", "signed out")
			}

			study, brk := tracker.TodayTotals(doc.TimeSessions, now)
			open, done := tracker.CountTodos(doc.Todos)
			current, longest := tracker.Streaks(tracker.Activity(doc.TimeSessions, now.Location()), now)
			field(out, "Today", fmt.Sprintf("%s study, %s break", tracker.FormatShort(study), tracker.FormatShort(brk)))
			field(out, "Sessions", fmt.Sprintf("%d", len(doc.TimeSessions)))
			field(out, "To-dos", fmt.Sprintf("%d open, %d done", open, done))
			field(out, "Streak", fmt.Sprintf("%d days (longest %d)", current, longest))
			if doc.TimerState.IsRunning || doc.TimerState.Seconds > 0 {
				field(out, "Timer", tracker.FormatClock(tracker.Elapsed(doc.TimerState, now)))
			}
			return nil
		},
	}
}

func describeRemote(ctx context.Context, cfg config.Remote, r remote.Replica) string {
	switch cfg.Backend {
	case config.BackendRedis:
		desc := "redis " + cfg.Redis.Addr
		if rr, ok := r.(*remote.Redis); ok {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			if err := rr.Ping(ctx); err != nil {
				return desc + " (unreachable)"
			}
		}
		return desc
	case config.BackendHTTP:
		return "http " + cfg.HTTP.BaseURL
	default:
		return "none (local only)"
	}
}
