package aws

import (
	"github.com/stratoscan/stratoscan/pkg/arn"
	"github.com/stratoscan/stratoscan/pkg/scanner"
)

// arnFor builds ARN parameters for a resource in the scan context's region
// and account.
func arnFor(sc *scanner.Context, service, resourceType, id string) arn.BuildParams {
	return arn.BuildParams{
		Service:      service,
		Region:       sc.Region,
		AccountID:    sc.AccountID,
		ResourceType: resourceType,
		Resource:     id,
	}
}

// chunk splits items into batches of at most size, for describe calls with
// hard input caps.
func chunk[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
