package discovery

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratoscan/stratoscan/pkg/credentials"
	"github.com/stratoscan/stratoscan/pkg/inventory"
	"github.com/stratoscan/stratoscan/pkg/scanner"
)

type fakeCreds struct {
	accountID string
	invalid   bool
}

func (f *fakeCreds) Config() aws.Config                       { return aws.Config{} }
func (f *fakeCreds) ConfigForRegion(region string) aws.Config { return aws.Config{Region: region} }

func (f *fakeCreds) Validate(ctx context.Context) credentials.Validation {
	if f.invalid {
		return credentials.Validation{Valid: false, Error: "token expired"}
	}
	return credentials.Validation{Valid: true, AccountID: f.accountID}
}

func (f *fakeCreds) DefaultAccountID(ctx context.Context) (string, error) {
	return f.accountID, nil
}

type fakeScanner struct {
	name   string
	global bool
	scanFn func(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError)

	mu      sync.Mutex
	regions []string
}

func (f *fakeScanner) ServiceName() string     { return f.name }
func (f *fakeScanner) IsGlobal() bool          { return f.global }
func (f *fakeScanner) ResourceTypes() []string { return nil }

func (f *fakeScanner) Scan(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
	f.mu.Lock()
	f.regions = append(f.regions, sc.Region)
	f.mu.Unlock()
	if f.scanFn != nil {
		return f.scanFn(ctx, sc)
	}
	return nil, nil
}

func (f *fakeScanner) scannedRegions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.regions...)
}

func resourceFixture(service, region, id string) inventory.DiscoveredResource {
	return inventory.DiscoveredResource{
		ID:      id,
		ARN:     fmt.Sprintf("arn:aws:%s:%s:123456789012:thing/%s", service, region, id),
		Type:    "aws_" + service + "_thing",
		Service: service,
		Region:  region,
		Tags:    map[string]string{},
	}
}

func staticRegions(regions ...string) Option {
	return withRegionResolver(func(ctx context.Context) ([]string, []inventory.ScanWarning, error) {
		return regions, nil, nil
	})
}

func newTestOrchestrator(t *testing.T, scanners []scanner.ServiceScanner, opts ...Option) *Orchestrator {
	t.Helper()
	reg := scanner.NewRegistry()
	for _, s := range scanners {
		require.NoError(t, reg.Register(s))
	}
	return New(&fakeCreds{accountID: "123456789012"}, reg, opts...)
}

func waitTerminal(t *testing.T, sess *Session) {
	t.Helper()
	require.Eventually(t, func() bool {
		return sess.Status().Terminal()
	}, 5*time.Second, 5*time.Millisecond, "session never reached a terminal status")
}

func TestDiscoveryMultiRegion(t *testing.T) {
	ec2 := &fakeScanner{
		name: "ec2",
		scanFn: func(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
			return []inventory.DiscoveredResource{
				resourceFixture("ec2", sc.Region, "i-"+sc.Region),
			}, nil
		},
	}
	iam := &fakeScanner{
		name:   "iam",
		global: true,
		scanFn: func(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
			res := resourceFixture("iam", inventory.RegionGlobal, "role-admin")
			return []inventory.DiscoveredResource{res}, nil
		},
	}

	o := newTestOrchestrator(t, []scanner.ServiceScanner{ec2, iam})

	sess, err := o.StartDiscovery(context.Background(), Config{
		Regions: []string{"us-east-1", "eu-west-1"},
	})
	require.NoError(t, err)
	waitTerminal(t, sess)

	require.Equal(t, StatusCompleted, sess.Status())
	require.NoError(t, sess.Err())

	// Regional scanner covers each region; the global one runs exactly once,
	// in the primary region.
	assert.ElementsMatch(t, []string{"us-east-1", "eu-west-1"}, ec2.scannedRegions())
	assert.Equal(t, []string{"us-east-1"}, iam.scannedRegions())

	inv, err := o.GetInventory(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "123456789012", inv.AccountID)
	assert.Equal(t, "aws", inv.Provider)
	require.Len(t, inv.Resources, 3)
	assert.Equal(t, 3, inv.Summary.TotalResources)
	assert.Equal(t, 1, inv.Summary.ResourcesByRegion[inventory.RegionGlobal])
	assert.Equal(t, 1, inv.Summary.ResourcesByRegion["us-east-1"])
	assert.Equal(t, 2, inv.Summary.ResourcesByService["ec2"])
	assert.Empty(t, inv.Metadata.Errors)

	progress, err := o.GetProgress(sess.ID)
	require.NoError(t, err)
	// 2 regions x 1 regional scanner + 1 global unit.
	assert.Equal(t, 3, progress.TotalUnits)
	assert.Equal(t, 3, progress.CompletedUnits)
	assert.Equal(t, 2, progress.TotalRegions)
	assert.Equal(t, 2, progress.RegionsScanned)
	assert.Equal(t, 2, progress.TotalServices)
	assert.False(t, progress.UpdatedAt.IsZero())
	require.NotNil(t, progress.CompletedAt)
}

func TestDiscoveryServiceFilter(t *testing.T) {
	ec2 := &fakeScanner{name: "ec2"}
	rds := &fakeScanner{name: "rds"}

	o := newTestOrchestrator(t, []scanner.ServiceScanner{ec2, rds})

	sess, err := o.StartDiscovery(context.Background(), Config{
		Regions:  []string{"us-east-1"},
		Services: []string{"ec2"},
	})
	require.NoError(t, err)
	waitTerminal(t, sess)

	assert.Equal(t, []string{"us-east-1"}, ec2.scannedRegions())
	assert.Empty(t, rds.scannedRegions())
}

func TestDiscoveryUnknownServiceRejected(t *testing.T) {
	o := newTestOrchestrator(t, []scanner.ServiceScanner{&fakeScanner{name: "ec2"}})

	_, err := o.StartDiscovery(context.Background(), Config{
		Regions:  []string{"us-east-1"},
		Services: []string{"nope"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown service "nope"`)
}

func TestDiscoveryRegionResolutionAndExcludes(t *testing.T) {
	ec2 := &fakeScanner{name: "ec2"}
	o := newTestOrchestrator(t, []scanner.ServiceScanner{ec2},
		staticRegions("us-east-1", "us-west-2", "eu-west-1"))

	sess, err := o.StartDiscovery(context.Background(), Config{
		ExcludeRegions: []string{"us-west-2"},
	})
	require.NoError(t, err)
	waitTerminal(t, sess)

	assert.ElementsMatch(t, []string{"us-east-1", "eu-west-1"}, ec2.scannedRegions())
}

func TestDiscoveryInvalidCredentials(t *testing.T) {
	reg := scanner.NewRegistry()
	require.NoError(t, reg.Register(&fakeScanner{name: "ec2"}))
	o := New(&fakeCreds{invalid: true}, reg)

	_, err := o.StartDiscovery(context.Background(), Config{Regions: []string{"us-east-1"}})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "token expired")
}

// Duplicate ARNs across scanners collapse to one resource; the record from
// the later-registered scanner wins conflicting fields.
func TestDiscoveryMergesDuplicateResources(t *testing.T) {
	arn := "arn:aws:ec2:us-east-1:123456789012:instance/i-shared"

	sweep := &fakeScanner{
		name: "tagging",
		scanFn: func(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
			return []inventory.DiscoveredResource{{
				ID: "i-shared", ARN: arn, Type: "aws_instance",
				Service: "ec2", Region: "us-east-1",
				Tags:       map[string]string{"team": "data"},
				Properties: map[string]any{"discoveredVia": "tagging-api"},
			}}, nil
		},
	}
	rich := &fakeScanner{
		name: "ec2",
		scanFn: func(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
			return []inventory.DiscoveredResource{{
				ID: "i-shared", ARN: arn, Type: "aws_instance",
				Service: "ec2", Region: "us-east-1", Name: "web-1",
				Tags:       map[string]string{"Name": "web-1"},
				Properties: map[string]any{"instanceType": "t3.micro"},
				Status:     "running",
			}}, nil
		},
	}

	o := newTestOrchestrator(t, []scanner.ServiceScanner{sweep, rich})

	sess, err := o.StartDiscovery(context.Background(), Config{Regions: []string{"us-east-1"}})
	require.NoError(t, err)
	waitTerminal(t, sess)

	inv, err := o.GetInventory(sess.ID)
	require.NoError(t, err)
	require.Len(t, inv.Resources, 1)

	res := inv.Resources[0]
	assert.Equal(t, "web-1", res.Name)
	assert.Equal(t, "running", res.Status)
	// Union of both views.
	assert.Equal(t, "data", res.Tags["team"])
	assert.Equal(t, "web-1", res.Tags["Name"])
	assert.Equal(t, "tagging-api", res.Properties["discoveredVia"])
	assert.Equal(t, "t3.micro", res.Properties["instanceType"])
}

func TestDiscoveryScannerErrorsAreCollected(t *testing.T) {
	flaky := &fakeScanner{
		name: "rds",
		scanFn: func(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
			return nil, []inventory.ScanError{{
				Service: "rds", Region: sc.Region,
				Operation: "DescribeDBInstances", Message: "denied",
				Code: "AccessDenied", Timestamp: time.Now().UTC(),
			}}
		},
	}
	healthy := &fakeScanner{
		name: "ec2",
		scanFn: func(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
			return []inventory.DiscoveredResource{resourceFixture("ec2", sc.Region, "i-1")}, nil
		},
	}

	o := newTestOrchestrator(t, []scanner.ServiceScanner{flaky, healthy})

	sess, err := o.StartDiscovery(context.Background(), Config{Regions: []string{"us-east-1"}})
	require.NoError(t, err)
	waitTerminal(t, sess)

	// Partial failure still completes.
	assert.Equal(t, StatusCompleted, sess.Status())

	inv, err := o.GetInventory(sess.ID)
	require.NoError(t, err)
	assert.Len(t, inv.Resources, 1)
	require.Len(t, inv.Metadata.Errors, 1)
	assert.Equal(t, "AccessDenied", inv.Metadata.Errors[0].Code)
}

func TestDiscoveryScannerPanicBecomesScanError(t *testing.T) {
	crasher := &fakeScanner{
		name: "ec2",
		scanFn: func(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
			panic("nil map write")
		},
	}

	o := newTestOrchestrator(t, []scanner.ServiceScanner{crasher})

	sess, err := o.StartDiscovery(context.Background(), Config{Regions: []string{"us-east-1"}})
	require.NoError(t, err)
	waitTerminal(t, sess)

	assert.Equal(t, StatusCompleted, sess.Status())

	inv, err := o.GetInventory(sess.ID)
	require.NoError(t, err)
	require.Len(t, inv.Metadata.Errors, 1)
	assert.Equal(t, "scan", inv.Metadata.Errors[0].Operation)
	assert.Contains(t, inv.Metadata.Errors[0].Message, "nil map write")
}

func TestDiscoveryCancellation(t *testing.T) {
	started := make(chan struct{})
	blocking := &fakeScanner{
		name: "ec2",
		scanFn: func(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
			// First region completes; the second hangs until cancelled.
			if sc.Region == "eu-west-1" {
				close(started)
				<-ctx.Done()
			}
			return nil, nil
		},
	}
	after := &fakeScanner{name: "rds"}

	o := newTestOrchestrator(t, []scanner.ServiceScanner{blocking, after})

	sess, err := o.StartDiscovery(context.Background(), Config{
		Regions: []string{"us-east-1", "eu-west-1"},
	})
	require.NoError(t, err)

	<-started
	require.NoError(t, o.CancelDiscovery(sess.ID))
	waitTerminal(t, sess)

	assert.Equal(t, StatusFailed, sess.Status())
	require.ErrorIs(t, sess.Err(), ErrCancelled)

	progress, err := o.GetProgress(sess.ID)
	require.NoError(t, err)
	var cancelErr *inventory.ScanError
	for i := range progress.Errors {
		if progress.Errors[i].Operation == "cancel" {
			cancelErr = &progress.Errors[i]
		}
	}
	require.NotNil(t, cancelErr, "expected a cancel ScanError")
	// Only the first region finished before the abort.
	assert.Equal(t, 2, progress.TotalRegions)
	assert.Equal(t, 1, progress.RegionsScanned)

	// No inventory for a failed session.
	_, err = o.GetInventory(sess.ID)
	assert.Error(t, err)

	// Cancelling again is a no-op.
	assert.NoError(t, o.CancelDiscovery(sess.ID))
}

func TestDiscoveryTimeout(t *testing.T) {
	slow := &fakeScanner{
		name: "ec2",
		scanFn: func(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
			<-ctx.Done()
			return nil, nil
		},
	}

	o := newTestOrchestrator(t, []scanner.ServiceScanner{slow})

	sess, err := o.StartDiscovery(context.Background(), Config{
		Regions: []string{"us-east-1", "eu-west-1"},
		Timeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	waitTerminal(t, sess)

	assert.Equal(t, StatusFailed, sess.Status())
	require.ErrorIs(t, sess.Err(), context.DeadlineExceeded)
	assert.Contains(t, sess.Err().Error(), "timed out")
}

func TestDiscoveryProgressCallback(t *testing.T) {
	var (
		mu       sync.Mutex
		statuses []Status
	)

	ec2 := &fakeScanner{
		name: "ec2",
		scanFn: func(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
			return []inventory.DiscoveredResource{resourceFixture("ec2", sc.Region, "i-1")}, nil
		},
	}

	o := newTestOrchestrator(t, []scanner.ServiceScanner{ec2})

	sess, err := o.StartDiscovery(context.Background(), Config{
		Regions: []string{"us-east-1"},
		OnProgress: func(p Progress) {
			mu.Lock()
			statuses = append(statuses, p.Status)
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	waitTerminal(t, sess)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, statuses)
	assert.Equal(t, StatusInProgress, statuses[0])
	assert.Equal(t, StatusCompleted, statuses[len(statuses)-1])
}

func TestSessionCleanup(t *testing.T) {
	ec2 := &fakeScanner{name: "ec2"}
	o := newTestOrchestrator(t, []scanner.ServiceScanner{ec2},
		WithSessionTTL(30*time.Second))

	sess, err := o.StartDiscovery(context.Background(), Config{Regions: []string{"us-east-1"}})
	require.NoError(t, err)
	waitTerminal(t, sess)

	// Still inside the TTL, measured from session start.
	assert.Equal(t, 0, o.CleanupSessions())

	o.sessionTTL = time.Nanosecond
	assert.Equal(t, 1, o.CleanupSessions())

	_, err = o.GetSession(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestGetSessionUnknownID(t *testing.T) {
	o := newTestOrchestrator(t, []scanner.ServiceScanner{&fakeScanner{name: "ec2"}})

	_, err := o.GetSession("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = o.GetProgress("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, o.CancelDiscovery("missing"), ErrSessionNotFound)
}
