package inventory

// BuildSummary derives the counts for a deduplicated resource list. Global
// resources count under the distinct "global" region bucket.
func BuildSummary(resources []DiscoveredResource) InventorySummary {
	summary := InventorySummary{
		TotalResources:     len(resources),
		ResourcesByService: make(map[string]int),
		ResourcesByRegion:  make(map[string]int),
		ResourcesByType:    make(map[string]int),
	}

	for _, res := range resources {
		summary.ResourcesByService[res.Service]++
		summary.ResourcesByRegion[res.Region]++
		summary.ResourcesByType[res.Type]++
	}

	return summary
}
