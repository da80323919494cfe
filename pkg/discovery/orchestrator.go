package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stratoscan/stratoscan/pkg/credentials"
	"github.com/stratoscan/stratoscan/pkg/inventory"
	"github.com/stratoscan/stratoscan/pkg/ratelimit"
	"github.com/stratoscan/stratoscan/pkg/scanner"
)

var (
	// ErrSessionNotFound is returned for lookups of unknown or expired
	// session IDs.
	ErrSessionNotFound = errors.New("discovery session not found")
	// ErrInvalidCredentials is returned when the provider rejects the
	// configured credentials up front.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoRegions is returned when region resolution and exclusion leave
	// nothing to scan.
	ErrNoRegions = errors.New("region selection resolved to nothing")
	// ErrCancelled terminates sessions aborted via CancelDiscovery.
	ErrCancelled = errors.New("discovery session cancelled")
)

// Orchestrator runs discovery sessions: it validates credentials, resolves
// the region and service scope, walks the region x service matrix, and
// merges scanner output into a final inventory. Sessions run asynchronously
// and stay queryable until the TTL sweep removes them.
type Orchestrator struct {
	creds          credentials.Provider
	registry       *scanner.Registry
	logger         *slog.Logger
	tracer         trace.Tracer
	sessionTTL     time.Duration
	resolveRegions regionResolver

	mu       sync.Mutex
	sessions map[string]*Session
}

// Option is a functional configuration override.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSessionTTL overrides how long finished sessions stay queryable.
func WithSessionTTL(ttl time.Duration) Option {
	return func(o *Orchestrator) {
		if ttl > 0 {
			o.sessionTTL = ttl
		}
	}
}

func withRegionResolver(r regionResolver) Option {
	return func(o *Orchestrator) {
		o.resolveRegions = r
	}
}

// New creates an orchestrator over a credential provider and a scanner
// registry.
func New(creds credentials.Provider, registry *scanner.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		creds:      creds,
		registry:   registry,
		logger:     slog.Default(),
		tracer:     otel.Tracer("stratoscan/discovery"),
		sessionTTL: DefaultSessionTTL,
		sessions:   make(map[string]*Session),
	}
	o.resolveRegions = ec2RegionResolver(creds.Config())
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// StartDiscovery validates scope and credentials, registers a pending
// session, and launches it. The returned session is live immediately;
// callers poll it (or use Config.OnProgress) for updates.
func (o *Orchestrator) StartDiscovery(ctx context.Context, cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()

	validation := o.creds.Validate(ctx)
	if !validation.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, validation.Error)
	}
	if cfg.AccountID == "" {
		cfg.AccountID = validation.AccountID
	}

	scanners, err := resolveServices(o.registry, cfg)
	if err != nil {
		return nil, err
	}

	regions := cfg.Regions
	var warnings []inventory.ScanWarning
	if wantsAllRegions(cfg) {
		regions, warnings, err = o.resolveRegions(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve regions: %w", err)
		}
	}
	regions = filterRegions(regions, cfg.ExcludeRegions)
	if len(regions) == 0 {
		return nil, ErrNoRegions
	}

	// The session must outlive the caller's request context.
	sessionCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Timeout)

	sess := newSession(uuid.NewString(), cfg, cancel)
	sess.progress.TotalUnits = countUnits(scanners, regions)

	o.mu.Lock()
	o.sessions[sess.ID] = sess
	o.mu.Unlock()

	o.logger.Info("discovery session started",
		"session", sess.ID,
		"account", cfg.AccountID,
		"regions", len(regions),
		"services", len(scanners))

	go o.run(sessionCtx, sess, scanners, regions, warnings)
	return sess, nil
}

// countUnits sizes the scan matrix: regional scanners run per region,
// global scanners once.
func countUnits(scanners []scanner.ServiceScanner, regions []string) int {
	units := 0
	for _, s := range scanners {
		if s.IsGlobal() {
			units++
		} else {
			units += len(regions)
		}
	}
	return units
}

func (o *Orchestrator) run(ctx context.Context, sess *Session, scanners []scanner.ServiceScanner, regions []string, warnings []inventory.ScanWarning) {
	cfg := sess.Config
	ctx, span := o.tracer.Start(ctx, "discovery.Session",
		trace.WithAttributes(
			attribute.String("session.id", sess.ID),
			attribute.String("account.id", cfg.AccountID),
			attribute.Int("scope.regions", len(regions)),
			attribute.Int("scope.services", len(scanners)),
		))
	defer span.End()

	started := time.Now().UTC()
	limiter := ratelimit.New(cfg.MaxConcurrent)

	sess.update(func(s *Session) {
		s.status = StatusInProgress
		s.progress.StartedAt = started
		s.progress.TotalRegions = len(regions)
		s.progress.TotalServices = len(scanners)
	})

	var (
		resources []inventory.DiscoveredResource
		scanErrs  []inventory.ScanError
	)

	primary := regions[0]
	for _, region := range regions {
		sess.update(func(s *Session) {
			s.progress.ServicesScanned = 0
		})
		for _, svc := range scanners {
			if svc.IsGlobal() && region != primary {
				continue
			}
			if err := ctx.Err(); err != nil {
				o.finishAborted(sess, span, err, cfg.Timeout, started)
				return
			}

			displayRegion := region
			if svc.IsGlobal() {
				displayRegion = inventory.RegionGlobal
			}
			sess.update(func(s *Session) {
				s.progress.CurrentRegion = displayRegion
				s.progress.CurrentService = svc.ServiceName()
			})

			res, errs := o.scanOne(ctx, svc, region, cfg.AccountID, limiter)
			resources = append(resources, res...)
			scanErrs = append(scanErrs, errs...)

			sess.update(func(s *Session) {
				s.progress.CompletedUnits++
				s.progress.ServicesScanned++
				s.progress.ResourceCount = len(resources)
				s.progress.Errors = append([]inventory.ScanError(nil), scanErrs...)
			})
		}
		sess.update(func(s *Session) {
			s.progress.RegionsScanned++
		})
	}

	if err := ctx.Err(); err != nil {
		o.finishAborted(sess, span, err, cfg.Timeout, started)
		return
	}

	completed := time.Now().UTC()
	deduped := inventory.Dedupe(resources)
	stats := limiter.GetStats()

	inv := &inventory.InfrastructureInventory{
		ID:        sess.ID,
		Timestamp: completed,
		Provider:  "aws",
		AccountID: cfg.AccountID,
		Regions:   regions,
		Summary:   inventory.BuildSummary(deduped),
		Resources: deduped,
		Metadata: inventory.InventoryMetadata{
			ScanDuration: completed.Sub(started),
			APICallCount: stats.TotalRequests,
			StartedAt:    started,
			CompletedAt:  completed,
			Errors:       scanErrs,
			Warnings:     warnings,
		},
	}

	span.SetAttributes(
		attribute.Int("discovery.resources", len(deduped)),
		attribute.Int("discovery.errors", len(scanErrs)),
		attribute.Int64("discovery.api_calls", stats.TotalRequests),
	)

	sess.update(func(s *Session) {
		s.status = StatusCompleted
		s.inv = inv
		s.completedAt = completed
		s.progress.CurrentRegion = ""
		s.progress.CurrentService = ""
		s.progress.ResourceCount = len(deduped)
	})

	o.logger.Info("discovery session completed",
		"session", sess.ID,
		"resources", len(deduped),
		"errors", len(scanErrs),
		"duration", completed.Sub(started).Round(time.Millisecond))
}

// scanOne runs a single (service, region) unit with a panic guard; a
// scanner crash becomes a ScanError rather than taking the session down.
func (o *Orchestrator) scanOne(ctx context.Context, svc scanner.ServiceScanner, region, accountID string, limiter *ratelimit.Limiter) (res []inventory.DiscoveredResource, errs []inventory.ScanError) {
	ctx, span := o.tracer.Start(ctx, "discovery.Scan",
		trace.WithAttributes(
			attribute.String("scan.service", svc.ServiceName()),
			attribute.String("scan.region", region),
		))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("scanner panic: %v", r)
			span.RecordError(err, trace.WithStackTrace(true))
			span.SetStatus(codes.Error, "scanner panic")
			o.logger.Error("scanner panicked",
				"service", svc.ServiceName(),
				"region", region,
				"error", r,
				"stack", string(debug.Stack()))
			errs = append(errs, inventory.ScanError{
				Service:   svc.ServiceName(),
				Region:    region,
				Operation: "scan",
				Message:   err.Error(),
				Timestamp: time.Now().UTC(),
			})
		}
	}()

	sc := &scanner.Context{
		Region:    region,
		AccountID: accountID,
		Config:    o.creds.ConfigForRegion(region),
		Limiter:   limiter,
		Logger:    o.logger.With("service", svc.ServiceName(), "region", region),
	}

	res, errs = svc.Scan(ctx, sc)
	if len(errs) > 0 {
		span.SetAttributes(attribute.Int("scan.errors", len(errs)))
	}
	return res, errs
}

// finishAborted marks the session failed after cancellation or timeout.
func (o *Orchestrator) finishAborted(sess *Session, span trace.Span, cause error, timeout time.Duration, started time.Time) {
	var failure error
	operation := "cancel"
	if errors.Is(cause, context.DeadlineExceeded) {
		failure = fmt.Errorf("discovery session timed out after %s: %w", timeout, context.DeadlineExceeded)
		operation = "timeout"
	} else {
		failure = ErrCancelled
	}

	span.RecordError(failure)
	span.SetStatus(codes.Error, failure.Error())

	now := time.Now().UTC()
	sess.update(func(s *Session) {
		s.status = StatusFailed
		s.failure = failure
		s.completedAt = now
		s.progress.Message = failure.Error()
		s.progress.Errors = append(s.progress.Errors, inventory.ScanError{
			Service:   "discovery",
			Region:    s.progress.CurrentRegion,
			Operation: operation,
			Message:   failure.Error(),
			Timestamp: now,
		})
	})

	o.logger.Warn("discovery session aborted",
		"session", sess.ID,
		"reason", failure.Error(),
		"elapsed", now.Sub(started).Round(time.Millisecond))
}

// GetSession returns a session by ID.
func (o *Orchestrator) GetSession(id string) (*Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	sess, ok := o.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// GetProgress returns a progress snapshot for a session.
func (o *Orchestrator) GetProgress(id string) (Progress, error) {
	sess, err := o.GetSession(id)
	if err != nil {
		return Progress{}, err
	}
	return sess.Progress(), nil
}

// GetInventory returns the final inventory for a completed session.
func (o *Orchestrator) GetInventory(id string) (*inventory.InfrastructureInventory, error) {
	sess, err := o.GetSession(id)
	if err != nil {
		return nil, err
	}
	inv := sess.Inventory()
	if inv == nil {
		return nil, fmt.Errorf("session %s has no inventory (status %s)", id, sess.Status())
	}
	return inv, nil
}

// CancelDiscovery aborts a running session. Cancelling a terminal session
// is a no-op.
func (o *Orchestrator) CancelDiscovery(id string) error {
	sess, err := o.GetSession(id)
	if err != nil {
		return err
	}
	if sess.Status().Terminal() {
		return nil
	}
	sess.Cancel()
	return nil
}

// CleanupSessions drops terminal sessions older than the TTL and returns
// how many were removed.
func (o *Orchestrator) CleanupSessions() int {
	now := time.Now().UTC()
	o.mu.Lock()
	defer o.mu.Unlock()

	removed := 0
	for id, sess := range o.sessions {
		if sess.expired(o.sessionTTL, now) {
			delete(o.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		o.logger.Debug("expired discovery sessions removed", "count", removed)
	}
	return removed
}
