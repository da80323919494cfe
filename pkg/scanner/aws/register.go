package aws

import "github.com/stratoscan/stratoscan/pkg/scanner"

// DefaultRegistry returns the stock AWS scanner set. The tagging sweep is
// registered first: scan output keeps registry order, so when a resource is
// seen by both the sweep and a dedicated scanner, the dedicated scanner's
// richer record lands later and wins the merge.
func DefaultRegistry() (*scanner.Registry, error) {
	r := scanner.NewRegistry()

	scanners := []scanner.ServiceScanner{
		NewTaggingScanner(),
		NewEC2Scanner(),
		NewS3Scanner(),
		NewRDSScanner(),
		NewLambdaScanner(),
		NewDynamoDBScanner(),
		NewECSScanner(),
		NewEKSScanner(),
		NewELBV2Scanner(),
		NewElastiCacheScanner(),
		NewRedshiftScanner(),
		NewECRScanner(),
		NewCloudWatchScanner(),
		NewLogsScanner(),
		NewCloudTrailScanner(),
		NewIAMScanner(),
		NewRoute53Scanner(),
	}

	for _, s := range scanners {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}
