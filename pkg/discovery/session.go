package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/stratoscan/stratoscan/pkg/inventory"
)

// Status is the lifecycle state of a discovery session.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the session has stopped moving.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Progress is an immutable snapshot of a running session.
type Progress struct {
	SessionID      string `json:"sessionId"`
	Status         Status `json:"status"`
	TotalUnits     int    `json:"totalUnits"`
	CompletedUnits int    `json:"completedUnits"`
	TotalRegions   int    `json:"totalRegions"`
	RegionsScanned int    `json:"regionsScanned"`
	TotalServices  int    `json:"totalServices"`
	// ServicesScanned counts units finished in the current region; it
	// resets when the next region starts.
	ServicesScanned int                   `json:"servicesScanned"`
	CurrentRegion   string                `json:"currentRegion,omitempty"`
	CurrentService  string                `json:"currentService,omitempty"`
	ResourceCount   int                   `json:"resourceCount"`
	Errors          []inventory.ScanError `json:"errors,omitempty"`
	StartedAt       time.Time             `json:"startedAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
	CompletedAt     *time.Time            `json:"completedAt,omitempty"`
	Message         string                `json:"message,omitempty"`
}

// Session tracks one discovery run from submission to expiry. All state
// behind the mutex; reads hand out copies.
type Session struct {
	ID     string
	Config Config

	mu          sync.Mutex
	status      Status
	progress    Progress
	inv         *inventory.InfrastructureInventory
	failure     error
	cancel      context.CancelFunc
	createdAt   time.Time
	completedAt time.Time
}

func newSession(id string, cfg Config, cancel context.CancelFunc) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:     id,
		Config: cfg,
		status: StatusPending,
		progress: Progress{
			SessionID: id,
			Status:    StatusPending,
			StartedAt: now,
		},
		cancel:    cancel,
		createdAt: now,
	}
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Progress returns a snapshot of the session's progress.
func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Inventory returns the final inventory, or nil until the session
// completes.
func (s *Session) Inventory() *inventory.InfrastructureInventory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inv
}

// Err returns the failure that terminated the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// Cancel aborts the running session. Safe to call at any point; a no-op
// after termination.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Session) snapshotLocked() Progress {
	p := s.progress
	p.Status = s.status
	p.Errors = append([]inventory.ScanError(nil), s.progress.Errors...)
	if !s.completedAt.IsZero() {
		t := s.completedAt
		p.CompletedAt = &t
	}
	return p
}

// update mutates session state under the lock, bumps the progress clock,
// and emits a snapshot to the config callback.
func (s *Session) update(fn func(*Session)) {
	s.mu.Lock()
	fn(s)
	s.progress.UpdatedAt = time.Now().UTC()
	snapshot := s.snapshotLocked()
	onProgress := s.Config.OnProgress
	s.mu.Unlock()

	if onProgress != nil {
		onProgress(snapshot)
	}
}

// expired reports whether a terminal session is older than the TTL. Age is
// measured from session creation, not completion; running sessions are
// never swept since their goroutine still owns them.
func (s *Session) expired(ttl time.Duration, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.status.Terminal() {
		return false
	}
	return now.Sub(s.createdAt) > ttl
}
