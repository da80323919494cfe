package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"

	"github.com/stratoscan/stratoscan/pkg/inventory"
	"github.com/stratoscan/stratoscan/pkg/scanner"
	"github.com/stratoscan/stratoscan/pkg/typemap"
)

type CloudTrailClient interface {
	DescribeTrails(ctx context.Context, params *cloudtrail.DescribeTrailsInput, optFns ...func(*cloudtrail.Options)) (*cloudtrail.DescribeTrailsOutput, error)
}

// CloudTrailScanner enumerates trails homed in the scan region. Multi-region
// trails surface in every region's describe output, so shadow copies are
// skipped and the home region's pass owns them.
type CloudTrailScanner struct {
	scanner.Base
	NewClient func(cfg aws.Config) CloudTrailClient
}

func NewCloudTrailScanner() *CloudTrailScanner {
	return &CloudTrailScanner{
		Base:      scanner.Base{Service: "cloudtrail"},
		NewClient: func(cfg aws.Config) CloudTrailClient { return cloudtrail.NewFromConfig(cfg) },
	}
}

func (s *CloudTrailScanner) ServiceName() string     { return "cloudtrail" }
func (s *CloudTrailScanner) IsGlobal() bool          { return false }
func (s *CloudTrailScanner) ResourceTypes() []string { return []string{"aws_cloudtrail"} }

func (s *CloudTrailScanner) Scan(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
	s.ClearErrors()
	client := s.NewClient(sc.Config)

	var described *cloudtrail.DescribeTrailsOutput
	err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
		var err error
		described, err = client.DescribeTrails(ctx, &cloudtrail.DescribeTrailsInput{})
		return err
	})
	if err != nil {
		s.RecordAPIError("DescribeTrails", sc.Region, err)
		return nil, s.Errors()
	}

	var out []inventory.DiscoveredResource
	for _, trail := range described.TrailList {
		if aws.ToString(trail.HomeRegion) != sc.Region {
			continue
		}
		name := aws.ToString(trail.Name)

		res := scanner.CreateResource(scanner.ResourceParams{
			ID:         name,
			ARN:        aws.ToString(trail.TrailARN),
			NativeType: typemap.AWSCloudTrailTrail,
			Service:    "cloudtrail",
			Region:     sc.Region,
			Name:       name,
			Properties: map[string]any{
				"isMultiRegion":  aws.ToBool(trail.IsMultiRegionTrail),
				"isOrganization": aws.ToBool(trail.IsOrganizationTrail),
			},
		})

		if trail.S3BucketName != nil {
			res.AddRelationship(inventory.ResourceRelationship{
				Type:       inventory.RelationshipReferences,
				TargetARN:  "arn:aws:s3:::" + aws.ToString(trail.S3BucketName),
				TargetType: "aws_s3_bucket",
			})
		}

		out = append(out, res)
	}

	return out, s.Errors()
}
