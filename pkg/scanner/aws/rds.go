package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"

	"github.com/stratoscan/stratoscan/pkg/inventory"
	"github.com/stratoscan/stratoscan/pkg/scanner"
	"github.com/stratoscan/stratoscan/pkg/typemap"
)

type RDSClient interface {
	DescribeDBInstances(ctx context.Context, params *rds.DescribeDBInstancesInput, optFns ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error)
	DescribeDBClusters(ctx context.Context, params *rds.DescribeDBClustersInput, optFns ...func(*rds.Options)) (*rds.DescribeDBClustersOutput, error)
}

// RDSScanner enumerates DB instances and Aurora clusters.
type RDSScanner struct {
	scanner.Base
	NewClient func(cfg aws.Config) RDSClient
}

func NewRDSScanner() *RDSScanner {
	return &RDSScanner{
		Base:      scanner.Base{Service: "rds"},
		NewClient: func(cfg aws.Config) RDSClient { return rds.NewFromConfig(cfg) },
	}
}

func (s *RDSScanner) ServiceName() string { return "rds" }
func (s *RDSScanner) IsGlobal() bool      { return false }

func (s *RDSScanner) ResourceTypes() []string {
	return []string{"aws_db_instance", "aws_rds_cluster"}
}

func (s *RDSScanner) Scan(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
	s.ClearErrors()
	client := s.NewClient(sc.Config)

	out := s.scanInstances(ctx, sc, client)
	out = append(out, s.scanClusters(ctx, sc, client)...)
	return out, s.Errors()
}

func (s *RDSScanner) scanInstances(ctx context.Context, sc *scanner.Context, client RDSClient) []inventory.DiscoveredResource {
	var out []inventory.DiscoveredResource
	paginator := rds.NewDescribeDBInstancesPaginator(client, &rds.DescribeDBInstancesInput{})

	for paginator.HasMorePages() {
		var page *rds.DescribeDBInstancesOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			s.RecordAPIError("DescribeDBInstances", sc.Region, err)
			return out
		}

		for _, db := range page.DBInstances {
			id := aws.ToString(db.DBInstanceIdentifier)

			props := map[string]any{
				"engine":        aws.ToString(db.Engine),
				"engineVersion": aws.ToString(db.EngineVersion),
				"instanceClass": aws.ToString(db.DBInstanceClass),
				"multiAZ":       aws.ToBool(db.MultiAZ),
			}
			if db.AllocatedStorage != nil {
				props["allocatedStorageGiB"] = int(aws.ToInt32(db.AllocatedStorage))
			}

			res := scanner.CreateResource(scanner.ResourceParams{
				ID:         id,
				ARN:        aws.ToString(db.DBInstanceArn),
				NativeType: typemap.AWSRDSInstance,
				Service:    "rds",
				Region:     sc.Region,
				Name:       id,
				Tags:       rdsTags(db.TagList),
				Properties: props,
				CreatedAt:  db.InstanceCreateTime,
				Status:     aws.ToString(db.DBInstanceStatus),
			})

			if db.DBClusterIdentifier != nil {
				res.AddRelationship(inventory.ResourceRelationship{
					Type: inventory.RelationshipAttachedTo,
					TargetARN: scanner.BuildARN(arnFor(sc, "rds", "cluster",
						aws.ToString(db.DBClusterIdentifier))),
					TargetType: "aws_rds_cluster",
				})
			}

			out = append(out, res)
		}
	}
	return out
}

func (s *RDSScanner) scanClusters(ctx context.Context, sc *scanner.Context, client RDSClient) []inventory.DiscoveredResource {
	var out []inventory.DiscoveredResource
	paginator := rds.NewDescribeDBClustersPaginator(client, &rds.DescribeDBClustersInput{})

	for paginator.HasMorePages() {
		var page *rds.DescribeDBClustersOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			s.RecordAPIError("DescribeDBClusters", sc.Region, err)
			return out
		}

		for _, cluster := range page.DBClusters {
			id := aws.ToString(cluster.DBClusterIdentifier)

			res := scanner.CreateResource(scanner.ResourceParams{
				ID:         id,
				ARN:        aws.ToString(cluster.DBClusterArn),
				NativeType: typemap.AWSRDSCluster,
				Service:    "rds",
				Region:     sc.Region,
				Name:       id,
				Tags:       rdsTags(cluster.TagList),
				Properties: map[string]any{
					"engine":        aws.ToString(cluster.Engine),
					"engineVersion": aws.ToString(cluster.EngineVersion),
					"members":       len(cluster.DBClusterMembers),
				},
				CreatedAt: cluster.ClusterCreateTime,
				Status:    aws.ToString(cluster.Status),
			})

			for _, member := range cluster.DBClusterMembers {
				res.AddRelationship(inventory.ResourceRelationship{
					Type: inventory.RelationshipContains,
					TargetARN: scanner.BuildARN(arnFor(sc, "rds", "db",
						aws.ToString(member.DBInstanceIdentifier))),
					TargetType: "aws_db_instance",
				})
			}

			out = append(out, res)
		}
	}
	return out
}

func rdsTags(tags []rdstypes.Tag) map[string]string {
	pairs := make([]scanner.TagPair, len(tags))
	for i, t := range tags {
		pairs[i] = scanner.TagPair{Key: t.Key, Value: t.Value}
	}
	return scanner.TagsToRecord(pairs)
}
