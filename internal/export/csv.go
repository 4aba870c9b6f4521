package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/studytrack/internal/schema"
	"github.com/sadopc/studytrack/internal/tracker"
)

// ToCSV writes one row per recorded session, in the order given.
func ToCSV(sessions []schema.Session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"Date", "Type", "Subject", "Duration (s)", "Duration"}); err != nil {
		return err
	}

	for _, s := range sessions {
		subject := ""
		if s.Type == schema.SessionStudy {
			subject = s.Task
			if subject == "" {
				subject = tracker.UntaggedSubject
			}
		}
		row := []string{
			s.Date.Local().Format(time.RFC3339),
			string(s.Type),
			subject,
			fmt.Sprintf("%d", s.Duration),
			formatDuration(s.Duration),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatDuration(secs int64) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
