package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/stratoscan/stratoscan/pkg/inventory"
	"github.com/stratoscan/stratoscan/pkg/scanner"
	"github.com/stratoscan/stratoscan/pkg/typemap"
)

// DescribeClusters accepts at most 100 ARNs, DescribeServices at most 10.
const (
	ecsClusterChunk = 100
	ecsServiceChunk = 10
)

type ECSClient interface {
	ListClusters(ctx context.Context, params *ecs.ListClustersInput, optFns ...func(*ecs.Options)) (*ecs.ListClustersOutput, error)
	DescribeClusters(ctx context.Context, params *ecs.DescribeClustersInput, optFns ...func(*ecs.Options)) (*ecs.DescribeClustersOutput, error)
	ListServices(ctx context.Context, params *ecs.ListServicesInput, optFns ...func(*ecs.Options)) (*ecs.ListServicesOutput, error)
	DescribeServices(ctx context.Context, params *ecs.DescribeServicesInput, optFns ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error)
}

// ECSScanner enumerates clusters and the services inside them.
type ECSScanner struct {
	scanner.Base
	NewClient func(cfg aws.Config) ECSClient
}

func NewECSScanner() *ECSScanner {
	return &ECSScanner{
		Base:      scanner.Base{Service: "ecs"},
		NewClient: func(cfg aws.Config) ECSClient { return ecs.NewFromConfig(cfg) },
	}
}

func (s *ECSScanner) ServiceName() string { return "ecs" }
func (s *ECSScanner) IsGlobal() bool      { return false }

func (s *ECSScanner) ResourceTypes() []string {
	return []string{"aws_ecs_cluster", "aws_ecs_service"}
}

func (s *ECSScanner) Scan(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
	s.ClearErrors()
	client := s.NewClient(sc.Config)

	clusterARNs := s.listClusters(ctx, sc, client)
	if len(clusterARNs) == 0 {
		return nil, s.Errors()
	}

	var out []inventory.DiscoveredResource
	for _, batch := range chunk(clusterARNs, ecsClusterChunk) {
		var described *ecs.DescribeClustersOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			described, err = client.DescribeClusters(ctx, &ecs.DescribeClustersInput{
				Clusters: batch,
				Include:  []ecstypes.ClusterField{ecstypes.ClusterFieldTags},
			})
			return err
		})
		if err != nil {
			s.RecordAPIError("DescribeClusters", sc.Region, err)
			continue
		}

		for _, cluster := range described.Clusters {
			res := s.clusterResource(sc, cluster)
			services := s.scanServices(ctx, sc, client, aws.ToString(cluster.ClusterArn))
			for _, svc := range services {
				res.AddRelationship(inventory.ResourceRelationship{
					Type:       inventory.RelationshipContains,
					TargetARN:  svc.ARN,
					TargetType: "aws_ecs_service",
				})
			}
			out = append(out, res)
			out = append(out, services...)
		}
	}

	return out, s.Errors()
}

func (s *ECSScanner) listClusters(ctx context.Context, sc *scanner.Context, client ECSClient) []string {
	var arns []string
	paginator := ecs.NewListClustersPaginator(client, &ecs.ListClustersInput{})
	for paginator.HasMorePages() {
		var page *ecs.ListClustersOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			s.RecordAPIError("ListClusters", sc.Region, err)
			return arns
		}
		arns = append(arns, page.ClusterArns...)
	}
	return arns
}

func (s *ECSScanner) clusterResource(sc *scanner.Context, cluster ecstypes.Cluster) inventory.DiscoveredResource {
	name := aws.ToString(cluster.ClusterName)
	return scanner.CreateResource(scanner.ResourceParams{
		ID:         name,
		ARN:        aws.ToString(cluster.ClusterArn),
		NativeType: typemap.AWSECSCluster,
		Service:    "ecs",
		Region:     sc.Region,
		Name:       name,
		Tags:       ecsTags(cluster.Tags),
		Properties: map[string]any{
			"activeServices":     int(cluster.ActiveServicesCount),
			"runningTasks":       int(cluster.RunningTasksCount),
			"pendingTasks":       int(cluster.PendingTasksCount),
			"containerInstances": int(cluster.RegisteredContainerInstancesCount),
		},
		Status: aws.ToString(cluster.Status),
	})
}

func (s *ECSScanner) scanServices(ctx context.Context, sc *scanner.Context, client ECSClient, clusterARN string) []inventory.DiscoveredResource {
	var serviceARNs []string
	paginator := ecs.NewListServicesPaginator(client, &ecs.ListServicesInput{
		Cluster: aws.String(clusterARN),
	})
	for paginator.HasMorePages() {
		var page *ecs.ListServicesOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			s.RecordAPIError("ListServices", sc.Region, err)
			break
		}
		serviceARNs = append(serviceARNs, page.ServiceArns...)
	}

	var out []inventory.DiscoveredResource
	for _, batch := range chunk(serviceARNs, ecsServiceChunk) {
		var described *ecs.DescribeServicesOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			described, err = client.DescribeServices(ctx, &ecs.DescribeServicesInput{
				Cluster:  aws.String(clusterARN),
				Services: batch,
				Include:  []ecstypes.ServiceField{ecstypes.ServiceFieldTags},
			})
			return err
		})
		if err != nil {
			s.RecordAPIError("DescribeServices", sc.Region, err)
			continue
		}

		for _, service := range described.Services {
			name := aws.ToString(service.ServiceName)
			res := scanner.CreateResource(scanner.ResourceParams{
				ID:         name,
				ARN:        aws.ToString(service.ServiceArn),
				NativeType: typemap.AWSECSService,
				Service:    "ecs",
				Region:     sc.Region,
				Name:       name,
				Tags:       ecsTags(service.Tags),
				Properties: map[string]any{
					"desiredCount":   int(service.DesiredCount),
					"runningCount":   int(service.RunningCount),
					"pendingCount":   int(service.PendingCount),
					"launchType":     string(service.LaunchType),
					"taskDefinition": aws.ToString(service.TaskDefinition),
				},
				CreatedAt: service.CreatedAt,
				Status:    aws.ToString(service.Status),
			})

			res.AddRelationship(inventory.ResourceRelationship{
				Type:       inventory.RelationshipAttachedTo,
				TargetARN:  clusterARN,
				TargetType: "aws_ecs_cluster",
			})

			out = append(out, res)
		}
	}
	return out
}

func ecsTags(tags []ecstypes.Tag) map[string]string {
	pairs := make([]scanner.TagPair, len(tags))
	for i, t := range tags {
		pairs[i] = scanner.TagPair{Key: t.Key, Value: t.Value}
	}
	return scanner.TagsToRecord(pairs)
}
