package index

import (
	"encoding/json"
	"fmt"

	"github.com/harborlane/retaildex/internal/domain"
)

// snapshotVersion is bumped on incompatible snapshot layout changes.
const snapshotVersion = 1

// snapshot is the serialized form of one account's index. The store treats
// the encoded bytes as opaque; only this package reads or writes the layout.
type snapshot struct {
	Version   int                     `json:"version"`
	Dims      int                     `json:"dims"`
	Documents []domain.SearchDocument `json:"documents"`
}

func encodeSnapshot(s snapshot) ([]byte, error) {
	blob, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return blob, nil
}

func decodeSnapshot(blob []byte) (snapshot, error) {
	var s snapshot
	if err := json.Unmarshal(blob, &s); err != nil {
		return snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if s.Version != snapshotVersion {
		return snapshot{}, fmt.Errorf("unsupported snapshot version %d", s.Version)
	}
	return s, nil
}
