package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Snapshot is the JSON-serializable dump/restore counterpart to
// config.DeviceConfig: a convenience on top of GetStatus/ApplyConfig
// for round-tripping a full device's status to disk, grounded on
// pkg/config/storage.go's SaveToFile/LoadFromFile.
type Snapshot struct {
	Product   string    `json:"product"`
	HwID      uint8     `json:"hw_id"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
}

// Snapshot captures the session's current product identity and status.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	d, _, err := s.requireOpen()
	if err != nil {
		return Snapshot{}, err
	}
	status, err := s.GetStatus(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Product: d.Name, HwID: d.HwID, Timestamp: time.Now(), Status: status}, nil
}

// SaveSnapshot writes snap to path as indented JSON, creating parent
// directories as needed.
func SaveSnapshot(snap Snapshot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("session: create snapshot directory: %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("session: marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("session: write snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a Snapshot previously written by SaveSnapshot. It
// does not apply the snapshot to any device; pair with ApplyConfig to
// restore.
func LoadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("session: read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("session: unmarshal snapshot: %w", err)
	}
	return snap, nil
}
