package discovery

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/stratoscan/stratoscan/pkg/inventory"
)

// fallbackRegions is used when the account's enabled regions cannot be
// listed, typically because ec2:DescribeRegions is denied. Opt-in regions
// are intentionally absent.
var fallbackRegions = []string{
	"us-east-1", "us-east-2", "us-west-1", "us-west-2",
	"ca-central-1",
	"eu-west-1", "eu-west-2", "eu-west-3", "eu-central-1", "eu-north-1",
	"ap-northeast-1", "ap-northeast-2", "ap-northeast-3",
	"ap-southeast-1", "ap-southeast-2", "ap-south-1",
	"sa-east-1",
}

type RegionsAPI interface {
	DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
}

// enabledRegions lists the regions enabled for the account.
func enabledRegions(ctx context.Context, client RegionsAPI) ([]string, error) {
	out, err := client.DescribeRegions(ctx, &ec2.DescribeRegionsInput{
		AllRegions: aws.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	regions := make([]string, 0, len(out.Regions))
	for _, r := range out.Regions {
		regions = append(regions, aws.ToString(r.RegionName))
	}
	return regions, nil
}

// regionResolver yields the regions a session should cover. A non-empty
// warning list signals a degraded resolution path.
type regionResolver func(ctx context.Context) ([]string, []inventory.ScanWarning, error)

// ec2RegionResolver resolves regions via the EC2 API, degrading to the
// static fallback list with a warning.
func ec2RegionResolver(cfg aws.Config) regionResolver {
	return func(ctx context.Context) ([]string, []inventory.ScanWarning, error) {
		regions, err := enabledRegions(ctx, ec2.NewFromConfig(cfg))
		if err == nil {
			return regions, nil, nil
		}
		warning := inventory.ScanWarning{
			Service:   "ec2",
			Message:   "DescribeRegions failed, using static region list: " + err.Error(),
			Timestamp: time.Now().UTC(),
		}
		return append([]string(nil), fallbackRegions...), []inventory.ScanWarning{warning}, nil
	}
}
