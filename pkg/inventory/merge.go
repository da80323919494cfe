package inventory

// Dedupe collapses resources sharing an ARN into one record. Input order is
// significant: when two scanners overlap (the tagging scanner's thin view vs
// a service scanner's rich view), the later resource wins on scalar fields,
// tags and properties are unioned with later-wins on key collision, and
// relationships are unioned with (type, targetArn) dedup. Output preserves
// first-appearance order.
func Dedupe(resources []DiscoveredResource) []DiscoveredResource {
	if len(resources) == 0 {
		return nil
	}

	index := make(map[string]int, len(resources))
	out := make([]DiscoveredResource, 0, len(resources))

	for _, res := range resources {
		key := res.ARN
		if key == "" {
			key = res.ID
		}
		if key == "" {
			continue
		}

		pos, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, cloneResource(res))
			continue
		}
		out[pos] = mergeResource(out[pos], res)
	}

	return out
}

// mergeResource folds later into earlier, later winning on scalars.
func mergeResource(earlier, later DiscoveredResource) DiscoveredResource {
	merged := earlier

	if later.ID != "" {
		merged.ID = later.ID
	}
	if later.Type != "" {
		merged.Type = later.Type
	}
	if later.AWSType != "" {
		merged.AWSType = later.AWSType
	}
	if later.AzureType != "" {
		merged.AzureType = later.AzureType
	}
	if later.Service != "" {
		merged.Service = later.Service
	}
	if later.Region != "" {
		merged.Region = later.Region
	}
	if later.Name != "" {
		merged.Name = later.Name
	}
	if later.Status != "" {
		merged.Status = later.Status
	}
	if later.ResourceGroup != "" {
		merged.ResourceGroup = later.ResourceGroup
	}
	if later.CreatedAt != nil {
		t := *later.CreatedAt
		merged.CreatedAt = &t
	}

	for k, v := range later.Tags {
		merged.Tags[k] = v
	}
	if len(later.Properties) > 0 && merged.Properties == nil {
		merged.Properties = make(map[string]any, len(later.Properties))
	}
	for k, v := range later.Properties {
		merged.Properties[k] = v
	}
	for _, rel := range later.Relationships {
		merged.AddRelationship(rel)
	}

	return merged
}

// cloneResource copies the maps and slice so merges never alias scanner
// output.
func cloneResource(res DiscoveredResource) DiscoveredResource {
	out := res

	out.Tags = make(map[string]string, len(res.Tags))
	for k, v := range res.Tags {
		out.Tags[k] = v
	}

	if res.Properties != nil {
		out.Properties = make(map[string]any, len(res.Properties))
		for k, v := range res.Properties {
			out.Properties[k] = v
		}
	}

	if res.Relationships != nil {
		out.Relationships = make([]ResourceRelationship, len(res.Relationships))
		copy(out.Relationships, res.Relationships)
	}

	if res.CreatedAt != nil {
		t := *res.CreatedAt
		out.CreatedAt = &t
	}

	return out
}
