package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eks"

	"github.com/stratoscan/stratoscan/pkg/inventory"
	"github.com/stratoscan/stratoscan/pkg/scanner"
	"github.com/stratoscan/stratoscan/pkg/typemap"
)

type EKSClient interface {
	ListClusters(ctx context.Context, params *eks.ListClustersInput, optFns ...func(*eks.Options)) (*eks.ListClustersOutput, error)
	DescribeCluster(ctx context.Context, params *eks.DescribeClusterInput, optFns ...func(*eks.Options)) (*eks.DescribeClusterOutput, error)
	ListNodegroups(ctx context.Context, params *eks.ListNodegroupsInput, optFns ...func(*eks.Options)) (*eks.ListNodegroupsOutput, error)
	DescribeNodegroup(ctx context.Context, params *eks.DescribeNodegroupInput, optFns ...func(*eks.Options)) (*eks.DescribeNodegroupOutput, error)
}

// EKSScanner enumerates clusters and their managed node groups.
type EKSScanner struct {
	scanner.Base
	NewClient func(cfg aws.Config) EKSClient
}

func NewEKSScanner() *EKSScanner {
	return &EKSScanner{
		Base:      scanner.Base{Service: "eks"},
		NewClient: func(cfg aws.Config) EKSClient { return eks.NewFromConfig(cfg) },
	}
}

func (s *EKSScanner) ServiceName() string { return "eks" }
func (s *EKSScanner) IsGlobal() bool      { return false }

func (s *EKSScanner) ResourceTypes() []string {
	return []string{"aws_eks_cluster", "aws_eks_node_group"}
}

func (s *EKSScanner) Scan(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
	s.ClearErrors()
	client := s.NewClient(sc.Config)

	var out []inventory.DiscoveredResource
	paginator := eks.NewListClustersPaginator(client, &eks.ListClustersInput{})

	for paginator.HasMorePages() {
		var page *eks.ListClustersOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			s.RecordAPIError("ListClusters", sc.Region, err)
			return out, s.Errors()
		}

		for _, name := range page.Clusters {
			cluster, ok := s.describeCluster(ctx, sc, client, name)
			if !ok {
				continue
			}
			nodegroups := s.scanNodegroups(ctx, sc, client, name, cluster.ARN)
			for _, ng := range nodegroups {
				cluster.AddRelationship(inventory.ResourceRelationship{
					Type:       inventory.RelationshipContains,
					TargetARN:  ng.ARN,
					TargetType: "aws_eks_node_group",
				})
			}
			out = append(out, cluster)
			out = append(out, nodegroups...)
		}
	}

	return out, s.Errors()
}

func (s *EKSScanner) describeCluster(ctx context.Context, sc *scanner.Context, client EKSClient, name string) (inventory.DiscoveredResource, bool) {
	var described *eks.DescribeClusterOutput
	err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
		var err error
		described, err = client.DescribeCluster(ctx, &eks.DescribeClusterInput{Name: aws.String(name)})
		return err
	})
	if err != nil {
		s.RecordAPIError("DescribeCluster", sc.Region, err)
		return inventory.DiscoveredResource{}, false
	}

	cluster := described.Cluster
	if cluster == nil {
		return inventory.DiscoveredResource{}, false
	}
	props := map[string]any{
		"version":  aws.ToString(cluster.Version),
		"endpoint": aws.ToString(cluster.Endpoint),
	}
	if cluster.ResourcesVpcConfig != nil {
		props["endpointPublicAccess"] = cluster.ResourcesVpcConfig.EndpointPublicAccess
	}

	res := scanner.CreateResource(scanner.ResourceParams{
		ID:         name,
		ARN:        aws.ToString(cluster.Arn),
		NativeType: typemap.AWSEKSCluster,
		Service:    "eks",
		Region:     sc.Region,
		Name:       name,
		Tags:       scanner.TagsFromMap(cluster.Tags),
		Properties: props,
		CreatedAt:  cluster.CreatedAt,
		Status:     string(cluster.Status),
	})

	if cluster.RoleArn != nil {
		res.AddRelationship(inventory.ResourceRelationship{
			Type:       inventory.RelationshipReferences,
			TargetARN:  aws.ToString(cluster.RoleArn),
			TargetType: "aws_iam_role",
		})
	}
	return res, true
}

func (s *EKSScanner) scanNodegroups(ctx context.Context, sc *scanner.Context, client EKSClient, clusterName, clusterARN string) []inventory.DiscoveredResource {
	var out []inventory.DiscoveredResource
	paginator := eks.NewListNodegroupsPaginator(client, &eks.ListNodegroupsInput{
		ClusterName: aws.String(clusterName),
	})

	for paginator.HasMorePages() {
		var page *eks.ListNodegroupsOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			s.RecordAPIError("ListNodegroups", sc.Region, err)
			return out
		}

		for _, ngName := range page.Nodegroups {
			var described *eks.DescribeNodegroupOutput
			err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
				var err error
				described, err = client.DescribeNodegroup(ctx, &eks.DescribeNodegroupInput{
					ClusterName:   aws.String(clusterName),
					NodegroupName: aws.String(ngName),
				})
				return err
			})
			if err != nil {
				s.RecordAPIError("DescribeNodegroup", sc.Region, err)
				continue
			}

			ng := described.Nodegroup
			if ng == nil {
				continue
			}
			props := map[string]any{
				"instanceTypes": ng.InstanceTypes,
				"amiType":       string(ng.AmiType),
				"capacityType":  string(ng.CapacityType),
			}
			if ng.ScalingConfig != nil {
				props["desiredSize"] = int(aws.ToInt32(ng.ScalingConfig.DesiredSize))
			}

			res := scanner.CreateResource(scanner.ResourceParams{
				ID:         ngName,
				ARN:        aws.ToString(ng.NodegroupArn),
				NativeType: typemap.AWSEKSNodegroup,
				Service:    "eks",
				Region:     sc.Region,
				Name:       ngName,
				Tags:       scanner.TagsFromMap(ng.Tags),
				Properties: props,
				CreatedAt:  ng.CreatedAt,
				Status:     string(ng.Status),
			})

			res.AddRelationship(inventory.ResourceRelationship{
				Type:       inventory.RelationshipAttachedTo,
				TargetARN:  clusterARN,
				TargetType: "aws_eks_cluster",
			})

			out = append(out, res)
		}
	}
	return out
}
