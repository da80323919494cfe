// Package arn builds and parses Amazon Resource Names.
package arn

import (
	"fmt"
	"strings"
)

// DefaultPartition is used when BuildParams.Partition is empty.
const DefaultPartition = "aws"

// BuildParams describes the components of an ARN.
type BuildParams struct {
	Partition    string // defaults to "aws"
	Service      string
	Region       string
	AccountID    string
	ResourceType string // optional; joined with "/" when present
	Resource     string
}

// Parts is the decomposition of a parsed ARN.
type Parts struct {
	Partition    string
	Service      string
	Region       string
	AccountID    string
	ResourceType string
	ResourceID   string
}

// ErrMalformed is returned by Parse for strings that are not valid ARNs.
type ErrMalformed struct {
	Input string
}

func (e *ErrMalformed) Error() string {
	return fmt.Sprintf("malformed ARN: %q", e.Input)
}

// Build constructs a deterministic ARN following
// arn:{partition}:{service}:{region}:{account}:{resourceType/}resource.
func Build(p BuildParams) string {
	partition := p.Partition
	if partition == "" {
		partition = DefaultPartition
	}
	resource := p.Resource
	if p.ResourceType != "" {
		resource = p.ResourceType + "/" + p.Resource
	}
	return fmt.Sprintf("arn:%s:%s:%s:%s:%s", partition, p.Service, p.Region, p.AccountID, resource)
}

// Parse splits an ARN into its components. The resource segment may carry
// embedded colons ("type:id") or slashes ("type/id"); both forms are
// recognized. ARNs with fewer than six segments are rejected.
func Parse(s string) (Parts, error) {
	if !strings.HasPrefix(s, "arn:") {
		return Parts{}, &ErrMalformed{Input: s}
	}

	// SplitN keeps colons inside the resource segment intact.
	segments := strings.SplitN(s, ":", 6)
	if len(segments) < 6 {
		return Parts{}, &ErrMalformed{Input: s}
	}

	parts := Parts{
		Partition: segments[1],
		Service:   segments[2],
		Region:    segments[3],
		AccountID: segments[4],
	}
	if parts.Partition == "" || parts.Service == "" {
		return Parts{}, &ErrMalformed{Input: s}
	}

	// Whichever separator comes first wins, so colon-form IDs that contain
	// slashes (log groups, task definitions) keep their full ID intact.
	resource := segments[5]
	slash := strings.Index(resource, "/")
	colon := strings.Index(resource, ":")
	switch {
	case slash >= 0 && (colon < 0 || slash < colon):
		parts.ResourceType = resource[:slash]
		parts.ResourceID = resource[slash+1:]
	case colon >= 0:
		parts.ResourceType = resource[:colon]
		parts.ResourceID = resource[colon+1:]
	default:
		parts.ResourceID = resource
	}

	return parts, nil
}

// ServicePrefix returns "service:resourceType" for an ARN, the key used by
// the tagging scanner to resolve native types. The second return is false
// for malformed input.
func ServicePrefix(s string) (string, bool) {
	parts, err := Parse(s)
	if err != nil {
		return "", false
	}
	if parts.ResourceType == "" {
		return parts.Service, true
	}
	return parts.Service + ":" + parts.ResourceType, true
}
