// Package app wires the discovery stack together for the CLI: logging,
// telemetry, credentials, the scanner registry, and the orchestrator.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/stratoscan/stratoscan/pkg/credentials"
	"github.com/stratoscan/stratoscan/pkg/discovery"
	"github.com/stratoscan/stratoscan/pkg/inventory"
	scanneraws "github.com/stratoscan/stratoscan/pkg/scanner/aws"
	"github.com/stratoscan/stratoscan/pkg/telemetry"
	"github.com/stratoscan/stratoscan/pkg/version"
)

// DefaultOutputDir is where inventory artifacts land unless overridden.
const DefaultOutputDir = "stratoscan-out"

// Config carries everything the CLI resolves from flags, environment, and
// the config file.
type Config struct {
	Region  string
	Profile string

	AccountID       string
	Regions         []string
	ExcludeRegions  []string
	Services        []string
	ExcludeServices []string

	MaxConcurrent int
	Timeout       time.Duration

	OutputDir string
	Format    string
	S3Bucket  string

	Verbose  bool
	JSONLogs bool

	OtelEndpoint  string
	SkipTelemetry bool

	// OnProgress receives session progress snapshots; may be nil.
	OnProgress func(discovery.Progress)
}

// Run executes one discovery session end to end and writes the inventory
// artifact. It returns the inventory and the artifact path.
func Run(ctx context.Context, cfg Config) (*inventory.InfrastructureInventory, string, error) {
	logger := NewLogger(os.Stderr, cfg.Verbose, cfg.JSONLogs)

	if !cfg.SkipTelemetry {
		shutdown, err := telemetry.Init(ctx, version.AppName, version.Current, cfg.OtelEndpoint)
		if err != nil {
			logger.Warn("telemetry init failed", "error", err)
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(shutdownCtx)
			}()
		}
	}

	creds, err := credentials.NewAWSProvider(ctx, cfg.Region, cfg.Profile)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load AWS credentials: %w", err)
	}

	registry, err := scanneraws.DefaultRegistry()
	if err != nil {
		return nil, "", fmt.Errorf("failed to build scanner registry: %w", err)
	}

	orch := discovery.New(creds, registry, discovery.WithLogger(logger))

	sess, err := orch.StartDiscovery(ctx, discovery.Config{
		AccountID:       cfg.AccountID,
		Regions:         cfg.Regions,
		ExcludeRegions:  cfg.ExcludeRegions,
		Services:        cfg.Services,
		ExcludeServices: cfg.ExcludeServices,
		MaxConcurrent:   cfg.MaxConcurrent,
		Timeout:         cfg.Timeout,
		OnProgress:      cfg.OnProgress,
	})
	if err != nil {
		return nil, "", err
	}

	if err := awaitSession(ctx, sess); err != nil {
		return nil, "", err
	}

	inv, err := orch.GetInventory(sess.ID)
	if err != nil {
		return nil, "", err
	}

	location, err := saveInventory(ctx, cfg, creds, inv)
	if err != nil {
		return nil, "", err
	}

	logger.Info("inventory written",
		"path", location,
		"resources", inv.Summary.TotalResources,
		"errors", len(inv.Metadata.Errors))
	return inv, location, nil
}

// awaitSession blocks until the session terminates. Caller context
// cancellation is forwarded as a session cancel; the session itself decides
// how it ends.
func awaitSession(ctx context.Context, sess *discovery.Session) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	done := ctx.Done()
	for {
		select {
		case <-done:
			sess.Cancel()
			done = nil
		case <-ticker.C:
			if sess.Status().Terminal() {
				if err := sess.Err(); err != nil {
					return err
				}
				return nil
			}
		}
	}
}
