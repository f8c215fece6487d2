package database

import (
	"encoding/json"
	"fmt"

	"github.com/jgoulah/eco2mix/pkg/models"
)

// envelope is the versioned form a snapshot is stored in, whatever the backend
type envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

func encodeEnvelope(snapshot *models.Snapshot) (envelope, error) {
	if snapshot == nil {
		return envelope{}, fmt.Errorf("encoding snapshot: nil snapshot")
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return envelope{}, fmt.Errorf("encoding snapshot: %w", err)
	}
	return envelope{Version: StorageVersion, Data: data}, nil
}

// decodeEnvelope returns nil for entries written under another storage version
func decodeEnvelope(env envelope) (*models.Snapshot, error) {
	if env.Version != StorageVersion {
		return nil, nil
	}

	var snapshot models.Snapshot
	if err := json.Unmarshal(env.Data, &snapshot); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snapshot, nil
}
