package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/stratoscan/stratoscan/pkg/arn"
	"github.com/stratoscan/stratoscan/pkg/inventory"
	"github.com/stratoscan/stratoscan/pkg/ratelimit"
	"github.com/stratoscan/stratoscan/pkg/typemap"
)

// Base is the shared plumbing concrete scanners embed: error accumulation,
// rate-limited invocation, and resource construction. The error buffer is
// per-scan; Scan implementations call ClearErrors first and drain with
// Errors on return.
type Base struct {
	Service string

	mu   sync.Mutex
	errs []inventory.ScanError
}

// RecordError appends a ScanError to the per-scan buffer. The only
// sanctioned error channel inside a scan.
func (b *Base) RecordError(operation, message, region, code string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errs = append(b.errs, inventory.ScanError{
		Service:   b.Service,
		Region:    region,
		Operation: operation,
		Message:   message,
		Code:      code,
		Timestamp: time.Now().UTC(),
	})
}

// RecordAPIError records a provider API failure, extracting the native
// error code when present.
func (b *Base) RecordAPIError(operation, region string, err error) {
	b.RecordError(operation, err.Error(), region, ratelimit.ErrorCode(err))
}

// ClearErrors resets the buffer at the start of a scan invocation.
func (b *Base) ClearErrors() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errs = nil
}

// Errors returns a copy of the accumulated errors.
func (b *Base) Errors() []inventory.ScanError {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]inventory.ScanError, len(b.errs))
	copy(out, b.errs)
	return out
}

// WithRateLimit funnels an API call through the context's limiter.
func (b *Base) WithRateLimit(ctx context.Context, sc *Context, op func(ctx context.Context) error) error {
	return sc.Limiter.WithBackoff(ctx, op)
}

// ResourceParams is the input to CreateResource.
type ResourceParams struct {
	ID         string
	ARN        string
	NativeType string
	Service    string
	Region     string
	Name       string
	Tags       map[string]string
	Properties map[string]any
	CreatedAt  *time.Time
	Status     string
}

// CreateResource builds a DiscoveredResource: the neutral type is derived
// from the native type, absent tags become an empty map, and properties
// pass through redaction.
func CreateResource(p ResourceParams) inventory.DiscoveredResource {
	tags := p.Tags
	if tags == nil {
		tags = map[string]string{}
	}
	return inventory.DiscoveredResource{
		ID:         p.ID,
		ARN:        p.ARN,
		Type:       typemap.NativeToNeutral(p.NativeType),
		AWSType:    p.NativeType,
		Service:    p.Service,
		Region:     p.Region,
		Name:       p.Name,
		Tags:       tags,
		Properties: inventory.RedactProperties(p.Properties),
		CreatedAt:  p.CreatedAt,
		Status:     p.Status,
	}
}

// TagPair is the normalized shape of one provider tag. Adapters in the
// provider packages convert SDK tag types ({Key,Value} or {key,value}) into
// it.
type TagPair struct {
	Key   *string
	Value *string
}

// TagsToRecord normalizes native tag lists into the canonical mapping.
// Entries without a key are dropped; absent values become "".
func TagsToRecord(pairs []TagPair) map[string]string {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		if p.Key == nil || *p.Key == "" {
			continue
		}
		if p.Value == nil {
			out[*p.Key] = ""
			continue
		}
		out[*p.Key] = *p.Value
	}
	return out
}

// TagsFromMap normalizes map-shaped native tags (Lambda, CloudWatch Logs).
func TagsFromMap(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// GetNameFromTags returns the Name tag value or the fallback.
func GetNameFromTags(tags map[string]string, fallback string) string {
	if name, ok := tags["Name"]; ok && name != "" {
		return name
	}
	return fallback
}

// BuildARN constructs a deterministic ARN for resources whose API exposes
// only an ID.
func BuildARN(p arn.BuildParams) string {
	return arn.Build(p)
}
