// Package scanner defines the contract every per-service resource scanner
// implements, the registry the orchestrator resolves scanners from, and the
// shared helpers concrete scanners embed.
package scanner

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/stratoscan/stratoscan/pkg/inventory"
	"github.com/stratoscan/stratoscan/pkg/ratelimit"
)

// Context carries everything a scanner invocation needs: the target region,
// provider credentials, the session's shared rate limiter, and the resolved
// account. Scanners hold no state across invocations beyond it.
type Context struct {
	Region    string
	AccountID string
	Config    aws.Config
	Limiter   *ratelimit.Limiter
	Logger    *slog.Logger
}

// Log returns the context logger, falling back to the default.
func (c *Context) Log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// ServiceScanner enumerates the resources of one service family for one
// region. Scan never fails fatally: every failure is folded into the
// returned ScanError slice and partial results are returned alongside.
type ServiceScanner interface {
	// ServiceName is the stable identifier the registry keys on.
	ServiceName() string
	// IsGlobal reports whether the service is not region-partitioned;
	// global scanners run once per session, in the primary region.
	IsGlobal() bool
	// Scan enumerates resources for the context's region.
	Scan(ctx context.Context, sc *Context) ([]inventory.DiscoveredResource, []inventory.ScanError)
	// ResourceTypes lists the neutral types this scanner may produce.
	ResourceTypes() []string
}
