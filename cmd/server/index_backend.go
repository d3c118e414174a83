package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"onistone.build/internal/persistence/indexdb"
)

// openIndex opens the read-model index. A nil index with a nil error means
// indexing is disabled.
func openIndex(dataDir string, disable bool) (*indexdb.SQLiteIndex, error) {
	if disable {
		return nil, nil
	}
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("ONISTONE_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}
	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(dataDir, "index", "operations.sqlite"))
	default:
		return nil, fmt.Errorf("unsupported ONISTONE_INDEX_BACKEND: %s", backend)
	}
}
