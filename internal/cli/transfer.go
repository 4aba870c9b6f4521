package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/studytrack/internal/export"
	"github.com/sadopc/studytrack/internal/schema"
)

const (
	formatCSV  = "csv"
	formatJSON = "json"
)

// importKeys are the records a backup restores. Profile records belong to
// the sign-in and are left alone.
var importKeys = []schema.Key{
	schema.KeyTodos,
	schema.KeyRoutine,
	schema.KeyTimeSessions,
	schema.KeyTimerState,
	schema.KeyCurrentStatsPeriod,
	schema.KeyTheme,
}

func newExportCmd(o *options) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export study sessions as CSV or every record as a JSON backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatCSV && format != formatJSON {
				return fmt.Errorf("unknown format %q (want csv or json)", format)
			}
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

			path := output
			if path == "" {
				path, err = defaultExportPath(format, time.Now())
				if err != nil {
					return err
				}
			}

			if format == formatCSV {
				err = export.ToCSV(doc.TimeSessions, path)
			} else {
				err = export.ToJSON(doc, path)
			}
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Exported to %s", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatCSV, "csv (sessions) or json (full backup)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default in your home directory)")
	return cmd
}

func defaultExportPath(format string, now time.Time) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	date := now.Format("2006-01-02")
	if format == formatCSV {
		return filepath.Join(home, fmt.Sprintf("studytrack-sessions-%s.csv", date)), nil
	}
	return filepath.Join(home, fmt.Sprintf("studytrack-backup-%s.json", date)), nil
}

func newImportCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Restore a JSON backup made by export",
		Long: `Replace the to-dos, routine, sessions, timer and preferences with those in
FILE. When signed in the restored records are written to the account too.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := export.ReadJSON(args[0])
			if err != nil {
				return err
			}
			for name := range raw {
				if _, ok := schema.ParseKey(name); !ok {
					warn(cmd.OutOrStdout(), "Skipping unknown record %q", name)
				}
			}
			doc := schema.Normalize(raw)

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

			h := rt.coord.Storage()
			n := 0
			for _, k := range importKeys {
				if _, ok := raw[k.String()]; !ok {
					continue
				}
				v, _ := doc.Value(k)
				h.Set(k, v)
				n++
			}
			if err := rt.flush(ctx); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Imported %d records (%d sessions)", n, len(doc.TimeSessions))
			return nil
		},
	}
}
