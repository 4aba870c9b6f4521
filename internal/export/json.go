package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/studytrack/internal/schema"
)

const backupVersion = 1

type jsonBackup struct {
	ExportedAt string         `json:"exported_at"`
	Version    int            `json:"version"`
	Sessions   int            `json:"session_count"`
	Data       map[string]any `json:"data"`
}

// ToJSON writes every record of doc as a pretty-printed backup.
func ToJSON(doc schema.Document, path string) error {
	backup := jsonBackup{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    backupVersion,
		Sessions:   len(doc.TimeSessions),
		Data:       make(map[string]any, len(schema.Keys)),
	}
	for k, v := range doc.Fields() {
		backup.Data[k.String()] = v
	}

	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

// ReadJSON loads the raw record map of a backup written by ToJSON. Values
// are returned undecoded so the caller can normalize them.
func ReadJSON(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read json file: %w", err)
	}
	var backup jsonBackup
	if err := json.Unmarshal(data, &backup); err != nil {
		return nil, fmt.Errorf("decode backup: %w", err)
	}
	if backup.Version > backupVersion {
		return nil, fmt.Errorf("backup version %d is newer than supported version %d", backup.Version, backupVersion)
	}
	if backup.Data == nil {
		return nil, fmt.Errorf("backup has no data")
	}
	return backup.Data, nil
}
