package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratoscan/stratoscan/pkg/inventory"
)

func sampleInventory() *inventory.InfrastructureInventory {
	return &inventory.InfrastructureInventory{
		ID:        "sess-123",
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Provider:  "aws",
		AccountID: "123456789012",
		Regions:   []string{"us-east-1"},
		Summary: inventory.InventorySummary{
			TotalResources:     1,
			ResourcesByService: map[string]int{"ec2": 1},
			ResourcesByRegion:  map[string]int{"us-east-1": 1},
			ResourcesByType:    map[string]int{"aws_instance": 1},
		},
		Resources: []inventory.DiscoveredResource{
			{
				ID:      "i-abc",
				Type:    "aws_instance",
				Service: "ec2",
				Region:  "us-east-1",
			},
		},
	}
}

func TestSaveInventoryLocal(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{OutputDir: dir, Format: "json"}

	path, err := saveInventory(context.Background(), cfg, nil, sampleInventory())
	require.NoError(t, err)
	assert.Contains(t, path, dir)
	assert.Contains(t, path, "sess-123.json")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded inventory.InfrastructureInventory
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "sess-123", decoded.ID)
	assert.Equal(t, 1, decoded.Summary.TotalResources)
}

func TestSaveInventoryRejectsUnknownFormat(t *testing.T) {
	cfg := Config{OutputDir: t.TempDir(), Format: "xml"}

	_, err := saveInventory(context.Background(), cfg, nil, sampleInventory())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported snapshot format")
}

func TestApplyRequestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "request.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
accountId: "123456789012"
regions: [us-east-1, eu-west-1]
services: [ec2, s3]
maxConcurrent: 4
timeout: 10m
`), 0o644))

	cfg := Config{Regions: []string{"ap-south-1"}}
	require.NoError(t, cfg.ApplyRequestFile(path))

	// Flag-set values win; everything else comes from the file.
	assert.Equal(t, []string{"ap-south-1"}, cfg.Regions)
	assert.Equal(t, "123456789012", cfg.AccountID)
	assert.Equal(t, []string{"ec2", "s3"}, cfg.Services)
	assert.Equal(t, 4, cfg.MaxConcurrent)
	assert.Equal(t, 10*time.Minute, cfg.Timeout)
}

func TestApplyRequestFileMissing(t *testing.T) {
	var cfg Config
	require.Error(t, cfg.ApplyRequestFile(filepath.Join(t.TempDir(), "absent.yaml")))
}

func TestLoggerRedactsSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, false, true)

	logger.Info("assumed role", "access_key", "AKIAEXAMPLE", "region", "us-east-1")

	out := buf.String()
	assert.Contains(t, out, "[REDACTED]")
	assert.NotContains(t, out, "AKIAEXAMPLE")
	assert.Contains(t, out, "us-east-1")
}

func TestLoggerVerboseEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, true, true)

	logger.Debug("probe")
	assert.Contains(t, buf.String(), "probe")

	buf.Reset()
	quiet := NewLogger(&buf, false, true)
	quiet.Debug("probe")
	assert.Empty(t, buf.String())
}
