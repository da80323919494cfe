package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"

	"github.com/stratoscan/stratoscan/pkg/inventory"
	"github.com/stratoscan/stratoscan/pkg/scanner"
	"github.com/stratoscan/stratoscan/pkg/typemap"
)

type ECRClient interface {
	DescribeRepositories(ctx context.Context, params *ecr.DescribeRepositoriesInput, optFns ...func(*ecr.Options)) (*ecr.DescribeRepositoriesOutput, error)
}

type ECRScanner struct {
	scanner.Base
	NewClient func(cfg aws.Config) ECRClient
}

func NewECRScanner() *ECRScanner {
	return &ECRScanner{
		Base:      scanner.Base{Service: "ecr"},
		NewClient: func(cfg aws.Config) ECRClient { return ecr.NewFromConfig(cfg) },
	}
}

func (s *ECRScanner) ServiceName() string     { return "ecr" }
func (s *ECRScanner) IsGlobal() bool          { return false }
func (s *ECRScanner) ResourceTypes() []string { return []string{"aws_ecr_repository"} }

func (s *ECRScanner) Scan(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
	s.ClearErrors()
	client := s.NewClient(sc.Config)

	var out []inventory.DiscoveredResource
	paginator := ecr.NewDescribeRepositoriesPaginator(client, &ecr.DescribeRepositoriesInput{})

	for paginator.HasMorePages() {
		var page *ecr.DescribeRepositoriesOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			s.RecordAPIError("DescribeRepositories", sc.Region, err)
			return out, s.Errors()
		}

		for _, repo := range page.Repositories {
			name := aws.ToString(repo.RepositoryName)

			props := map[string]any{
				"uri":                aws.ToString(repo.RepositoryUri),
				"imageTagMutability": string(repo.ImageTagMutability),
			}
			if repo.ImageScanningConfiguration != nil {
				props["scanOnPush"] = repo.ImageScanningConfiguration.ScanOnPush
			}

			out = append(out, scanner.CreateResource(scanner.ResourceParams{
				ID:         name,
				ARN:        aws.ToString(repo.RepositoryArn),
				NativeType: typemap.AWSECRRepository,
				Service:    "ecr",
				Region:     sc.Region,
				Name:       name,
				Properties: props,
				CreatedAt:  repo.CreatedAt,
			}))
		}
	}

	return out, s.Errors()
}
