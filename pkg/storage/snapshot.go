package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stratoscan/stratoscan/pkg/inventory"
)

// Snapshot encodings.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

const snapshotPrefix = "inventories"

// SnapshotStore reads and writes inventory snapshots on a blob backend.
// Keys are inventories/<accountID>/<timestamp>-<sessionID>.<format>, so a
// lexicographic sort of keys is a chronological sort of snapshots.
type SnapshotStore struct {
	Backend BlobStore
	Format  string
}

func NewSnapshotStore(backend BlobStore, format string) *SnapshotStore {
	if format == "" {
		format = FormatJSON
	}
	return &SnapshotStore{Backend: backend, Format: format}
}

// Save persists the inventory and returns its key.
func (s *SnapshotStore) Save(ctx context.Context, inv *inventory.InfrastructureInventory) (string, error) {
	if inv == nil {
		return "", fmt.Errorf("no inventory to save")
	}

	var (
		data []byte
		err  error
	)
	switch s.Format {
	case FormatYAML:
		data, err = yaml.Marshal(inv)
	case FormatJSON:
		data, err = json.MarshalIndent(inv, "", "  ")
	default:
		return "", fmt.Errorf("unsupported snapshot format %q", s.Format)
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode inventory: %w", err)
	}

	key := s.key(inv)
	if err := s.Backend.Put(ctx, key, data); err != nil {
		return "", err
	}
	return key, nil
}

// Load reads one snapshot back by key.
func (s *SnapshotStore) Load(ctx context.Context, key string) (*inventory.InfrastructureInventory, error) {
	data, err := s.Backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var inv inventory.InfrastructureInventory
	switch {
	case strings.HasSuffix(key, "."+FormatYAML):
		err = yaml.Unmarshal(data, &inv)
	default:
		err = json.Unmarshal(data, &inv)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", key, err)
	}
	return &inv, nil
}

// List returns snapshot keys for an account, oldest first. An empty
// accountID lists every account.
func (s *SnapshotStore) List(ctx context.Context, accountID string) ([]string, error) {
	prefix := snapshotPrefix
	if accountID != "" {
		prefix = path.Join(snapshotPrefix, accountID)
	}
	keys, err := s.Backend.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Latest loads the most recent snapshot for an account.
func (s *SnapshotStore) Latest(ctx context.Context, accountID string) (*inventory.InfrastructureInventory, error) {
	keys, err := s.List(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no snapshots for account %q", accountID)
	}
	return s.Load(ctx, keys[len(keys)-1])
}

func (s *SnapshotStore) key(inv *inventory.InfrastructureInventory) string {
	account := inv.AccountID
	if account == "" {
		account = "unknown"
	}
	stamp := inv.Timestamp.UTC().Format("20060102T150405Z")
	return path.Join(snapshotPrefix, account, fmt.Sprintf("%s-%s.%s", stamp, inv.ID, s.Format))
}
