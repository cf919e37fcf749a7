// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package status publishes enforcer snapshots to places operators can read
// without talking to the daemon: a JSON file and a Redis key.
package status

import (
	"encoding/json"
	"fmt"

	"github.com/ManuGH/iptranscoder/internal/enforcer"
)

func encode(snap enforcer.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}
