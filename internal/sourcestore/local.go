package sourcestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type localConfig struct {
	Dir string `json:"dir"`
}

type localStore struct {
	dir string
}

func init() {
	Register("local", createLocalStore)
}

func createLocalStore(args interface{}) (Store, error) {
	cfg := &localConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("local store dir is required")
	}
	return &localStore{dir: cfg.Dir}, nil
}

// Open resolves key below the configured dir. Keys may name sub directories
// but never escape the root.
func (s *localStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	_ = ctx
	clean := filepath.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	if clean == "/" {
		return nil, fmt.Errorf("invalid source key")
	}
	return os.Open(filepath.Join(s.dir, clean))
}
