package snapshot

import (
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

// Encode serializes the snapshot with its schema version.
func (s *Snapshot) Encode() ([]byte, error) {
	return msgpack.Marshal(s)
}

// Decode deserializes a snapshot, rejecting unknown schema versions so a
// stale reader fails loudly instead of misinterpreting the payload.
func Decode(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Schema != snapshotSchemaVersion {
		return Snapshot{}, fmt.Errorf("unsupported snapshot schema %d (want %d)", snap.Schema, snapshotSchemaVersion)
	}
	return snap, nil
}

// WriteFile serializes the snapshot to path.
func (s *Snapshot) WriteFile(path string) error {
	data, err := s.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// ReadFile loads a snapshot from path.
func ReadFile(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return Decode(data)
}
