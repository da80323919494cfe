package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/redshift"
	redshifttypes "github.com/aws/aws-sdk-go-v2/service/redshift/types"

	"github.com/stratoscan/stratoscan/pkg/inventory"
	"github.com/stratoscan/stratoscan/pkg/scanner"
	"github.com/stratoscan/stratoscan/pkg/typemap"
)

type RedshiftClient interface {
	DescribeClusters(ctx context.Context, params *redshift.DescribeClustersInput, optFns ...func(*redshift.Options)) (*redshift.DescribeClustersOutput, error)
}

type RedshiftScanner struct {
	scanner.Base
	NewClient func(cfg aws.Config) RedshiftClient
}

func NewRedshiftScanner() *RedshiftScanner {
	return &RedshiftScanner{
		Base:      scanner.Base{Service: "redshift"},
		NewClient: func(cfg aws.Config) RedshiftClient { return redshift.NewFromConfig(cfg) },
	}
}

func (s *RedshiftScanner) ServiceName() string     { return "redshift" }
func (s *RedshiftScanner) IsGlobal() bool          { return false }
func (s *RedshiftScanner) ResourceTypes() []string { return []string{"aws_redshift_cluster"} }

func (s *RedshiftScanner) Scan(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
	s.ClearErrors()
	client := s.NewClient(sc.Config)

	var out []inventory.DiscoveredResource
	paginator := redshift.NewDescribeClustersPaginator(client, &redshift.DescribeClustersInput{})

	for paginator.HasMorePages() {
		var page *redshift.DescribeClustersOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			s.RecordAPIError("DescribeClusters", sc.Region, err)
			return out, s.Errors()
		}

		for _, cluster := range page.Clusters {
			id := aws.ToString(cluster.ClusterIdentifier)

			out = append(out, scanner.CreateResource(scanner.ResourceParams{
				ID:         id,
				ARN:        scanner.BuildARN(arnFor(sc, "redshift", "cluster", id)),
				NativeType: typemap.AWSRedshiftCluster,
				Service:    "redshift",
				Region:     sc.Region,
				Name:       id,
				Tags:       redshiftTags(cluster.Tags),
				Properties: map[string]any{
					"nodeType": aws.ToString(cluster.NodeType),
					"numNodes": int(aws.ToInt32(cluster.NumberOfNodes)),
					"dbName":   aws.ToString(cluster.DBName),
				},
				CreatedAt: cluster.ClusterCreateTime,
				Status:    aws.ToString(cluster.ClusterStatus),
			}))
		}
	}

	return out, s.Errors()
}

func redshiftTags(tags []redshifttypes.Tag) map[string]string {
	pairs := make([]scanner.TagPair, len(tags))
	for i, t := range tags {
		pairs[i] = scanner.TagPair{Key: t.Key, Value: t.Value}
	}
	return scanner.TagsToRecord(pairs)
}
