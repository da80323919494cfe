package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticache"

	"github.com/stratoscan/stratoscan/pkg/inventory"
	"github.com/stratoscan/stratoscan/pkg/scanner"
	"github.com/stratoscan/stratoscan/pkg/typemap"
)

type ElastiCacheClient interface {
	DescribeCacheClusters(ctx context.Context, params *elasticache.DescribeCacheClustersInput, optFns ...func(*elasticache.Options)) (*elasticache.DescribeCacheClustersOutput, error)
}

type ElastiCacheScanner struct {
	scanner.Base
	NewClient func(cfg aws.Config) ElastiCacheClient
}

func NewElastiCacheScanner() *ElastiCacheScanner {
	return &ElastiCacheScanner{
		Base:      scanner.Base{Service: "elasticache"},
		NewClient: func(cfg aws.Config) ElastiCacheClient { return elasticache.NewFromConfig(cfg) },
	}
}

func (s *ElastiCacheScanner) ServiceName() string     { return "elasticache" }
func (s *ElastiCacheScanner) IsGlobal() bool          { return false }
func (s *ElastiCacheScanner) ResourceTypes() []string { return []string{"aws_elasticache_cluster"} }

func (s *ElastiCacheScanner) Scan(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
	s.ClearErrors()
	client := s.NewClient(sc.Config)

	var out []inventory.DiscoveredResource
	paginator := elasticache.NewDescribeCacheClustersPaginator(client, &elasticache.DescribeCacheClustersInput{
		ShowCacheNodeInfo: aws.Bool(true),
	})

	for paginator.HasMorePages() {
		var page *elasticache.DescribeCacheClustersOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			s.RecordAPIError("DescribeCacheClusters", sc.Region, err)
			return out, s.Errors()
		}

		for _, cluster := range page.CacheClusters {
			id := aws.ToString(cluster.CacheClusterId)

			out = append(out, scanner.CreateResource(scanner.ResourceParams{
				ID:         id,
				ARN:        aws.ToString(cluster.ARN),
				NativeType: typemap.AWSElastiCacheCluster,
				Service:    "elasticache",
				Region:     sc.Region,
				Name:       id,
				Properties: map[string]any{
					"engine":        aws.ToString(cluster.Engine),
					"engineVersion": aws.ToString(cluster.EngineVersion),
					"nodeType":      aws.ToString(cluster.CacheNodeType),
					"numNodes":      int(aws.ToInt32(cluster.NumCacheNodes)),
				},
				CreatedAt: cluster.CacheClusterCreateTime,
				Status:    aws.ToString(cluster.CacheClusterStatus),
			}))
		}
	}

	return out, s.Errors()
}
