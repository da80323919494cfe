// Package discovery coordinates multi-region, multi-service resource
// discovery sessions: it resolves scope, drives the registered scanners,
// merges their output into a single inventory, and tracks session lifecycle.
package discovery

import (
	"fmt"
	"slices"
	"time"

	"github.com/stratoscan/stratoscan/pkg/ratelimit"
	"github.com/stratoscan/stratoscan/pkg/scanner"
)

const (
	// DefaultTimeout bounds a whole discovery session.
	DefaultTimeout = 30 * time.Minute
	// DefaultSessionTTL is how long finished sessions stay queryable.
	DefaultSessionTTL = 24 * time.Hour
)

// RegionAll requests every region enabled for the account.
const RegionAll = "all"

// Config scopes one discovery session.
type Config struct {
	// AccountID to attribute resources to; resolved from the credentials
	// when empty.
	AccountID string

	// Regions to scan. Empty or containing "all" means every enabled
	// region.
	Regions []string
	// ExcludeRegions removes regions after resolution.
	ExcludeRegions []string

	// Services to scan, by scanner name. Empty means all registered.
	Services []string
	// ExcludeServices removes services after resolution.
	ExcludeServices []string

	// MaxConcurrent caps simultaneous provider API calls.
	MaxConcurrent int

	// Timeout bounds the whole session.
	Timeout time.Duration

	// OnProgress, when set, receives progress snapshots. Invoked on the
	// session goroutine; it must not block.
	OnProgress func(Progress)
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.MaxConcurrent <= 0 {
		out.MaxConcurrent = ratelimit.DefaultMaxConcurrent
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	return out
}

// resolveServices maps the config's service selection onto the registry,
// preserving registration order. Unknown names are rejected rather than
// silently skipped.
func resolveServices(reg *scanner.Registry, cfg Config) ([]scanner.ServiceScanner, error) {
	for _, name := range cfg.Services {
		if !reg.Has(name) {
			return nil, fmt.Errorf("unknown service %q", name)
		}
	}

	var out []scanner.ServiceScanner
	for _, s := range reg.GetAll() {
		name := s.ServiceName()
		if len(cfg.Services) > 0 && !slices.Contains(cfg.Services, name) {
			continue
		}
		if slices.Contains(cfg.ExcludeServices, name) {
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("service selection resolved to nothing")
	}
	return out, nil
}

// filterRegions applies the exclusion list, preserving order.
func filterRegions(regions, exclude []string) []string {
	var out []string
	for _, r := range regions {
		if !slices.Contains(exclude, r) {
			out = append(out, r)
		}
	}
	return out
}

// wantsAllRegions reports whether the config defers region resolution to
// the provider.
func wantsAllRegions(cfg Config) bool {
	return len(cfg.Regions) == 0 || slices.Contains(cfg.Regions, RegionAll)
}
