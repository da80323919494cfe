// Package inventory defines the provider-neutral resource model produced by
// discovery: resources, relationship edges, scan errors, and the aggregate
// inventory shape handed to consumers.
package inventory

import "time"

// RegionGlobal is the region sentinel for resources owned by global
// (non-region-partitioned) services.
const RegionGlobal = "global"

// RelationshipType classifies a directed edge between resources.
type RelationshipType string

const (
	RelationshipContains   RelationshipType = "contains"
	RelationshipReferences RelationshipType = "references"
	RelationshipAttachedTo RelationshipType = "attached_to"
	RelationshipDependsOn  RelationshipType = "depends_on"
)

// ResourceRelationship is a directed edge from the containing resource.
// The target may not be present in the inventory; dangling edges are valid.
type ResourceRelationship struct {
	Type       RelationshipType `json:"type"`
	TargetARN  string           `json:"targetArn"`
	TargetType string           `json:"targetType,omitempty"`
}

// DiscoveredResource is the canonical unit of the inventory. The ARN (or
// resource ID for providers without ARNs) uniquely identifies a resource;
// dedup and merge key on it.
type DiscoveredResource struct {
	ID            string                 `json:"id"`
	ARN           string                 `json:"arn"`
	Type          string                 `json:"type"`
	AWSType       string                 `json:"awsType,omitempty"`
	AzureType     string                 `json:"azureType,omitempty"`
	Service       string                 `json:"service"`
	Region        string                 `json:"region"`
	Name          string                 `json:"name,omitempty"`
	Tags          map[string]string      `json:"tags"`
	Properties    map[string]any         `json:"properties,omitempty"`
	Relationships []ResourceRelationship `json:"relationships,omitempty"`
	CreatedAt     *time.Time             `json:"createdAt,omitempty"`
	Status        string                 `json:"status,omitempty"`
	ResourceGroup string                 `json:"resourceGroup,omitempty"`
}

// NativeType returns whichever provider-native type name is set.
func (r *DiscoveredResource) NativeType() string {
	if r.AWSType != "" {
		return r.AWSType
	}
	return r.AzureType
}

// AddRelationship appends an edge, dropping self-references and duplicate
// (type, targetArn) pairs.
func (r *DiscoveredResource) AddRelationship(rel ResourceRelationship) {
	if rel.TargetARN == "" || rel.TargetARN == r.ARN {
		return
	}
	for _, existing := range r.Relationships {
		if existing.Type == rel.Type && existing.TargetARN == rel.TargetARN {
			return
		}
	}
	r.Relationships = append(r.Relationships, rel)
}

// ScanError records a non-fatal failure inside a scanner run.
type ScanError struct {
	Service   string    `json:"service"`
	Region    string    `json:"region"`
	Operation string    `json:"operation"`
	Message   string    `json:"message"`
	Code      string    `json:"code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ScanWarning records a non-fatal deviation, e.g. a degraded fetch path.
type ScanWarning struct {
	Service   string    `json:"service"`
	Region    string    `json:"region"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// InventorySummary carries derived counts, rebuilt after dedup and never
// stored independently of the resource list.
type InventorySummary struct {
	TotalResources     int            `json:"totalResources"`
	ResourcesByService map[string]int `json:"resourcesByService"`
	ResourcesByRegion  map[string]int `json:"resourcesByRegion"`
	ResourcesByType    map[string]int `json:"resourcesByType"`
}

// InventoryMetadata describes the scan run that produced an inventory.
type InventoryMetadata struct {
	ScanDuration time.Duration `json:"scanDuration"`
	APICallCount int64         `json:"apiCallCount"`
	StartedAt    time.Time     `json:"startedAt"`
	CompletedAt  time.Time     `json:"completedAt"`
	Errors       []ScanError   `json:"errors"`
	Warnings     []ScanWarning `json:"warnings"`
}

// InfrastructureInventory is the immutable result of a completed discovery
// session. Consumers must not mutate it.
type InfrastructureInventory struct {
	ID        string               `json:"id"`
	Timestamp time.Time            `json:"timestamp"`
	Provider  string               `json:"provider"`
	AccountID string               `json:"accountId"`
	Regions   []string             `json:"regions"`
	Summary   InventorySummary     `json:"summary"`
	Resources []DiscoveredResource `json:"resources"`
	Metadata  InventoryMetadata    `json:"metadata"`
}
