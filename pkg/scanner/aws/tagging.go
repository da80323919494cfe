package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	tagging "github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"

	"github.com/stratoscan/stratoscan/pkg/arn"
	"github.com/stratoscan/stratoscan/pkg/inventory"
	"github.com/stratoscan/stratoscan/pkg/scanner"
	"github.com/stratoscan/stratoscan/pkg/typemap"
)

// DiscoveredViaTaggingAPI marks resources surfaced only through the tagging
// sweep. Service scanners emit richer records for the same ARNs; the merge
// pass folds the two together.
const DiscoveredViaTaggingAPI = "tagging-api"

type TaggingClient interface {
	GetResources(ctx context.Context, params *tagging.GetResourcesInput, optFns ...func(*tagging.Options)) (*tagging.GetResourcesOutput, error)
}

// TaggingScanner sweeps the Resource Groups Tagging API, catching tagged
// resources of services without a dedicated scanner. Rows expose only an ARN
// and tags; native types are inferred from the ARN's service prefix, and
// malformed ARNs are dropped without error.
type TaggingScanner struct {
	scanner.Base
	NewClient func(cfg aws.Config) TaggingClient
}

func NewTaggingScanner() *TaggingScanner {
	return &TaggingScanner{
		Base:      scanner.Base{Service: "tagging"},
		NewClient: func(cfg aws.Config) TaggingClient { return tagging.NewFromConfig(cfg) },
	}
}

func (s *TaggingScanner) ServiceName() string { return "tagging" }
func (s *TaggingScanner) IsGlobal() bool      { return false }

// ResourceTypes is open-ended for the sweep; it reports none.
func (s *TaggingScanner) ResourceTypes() []string { return nil }

func (s *TaggingScanner) Scan(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
	s.ClearErrors()
	client := s.NewClient(sc.Config)

	var out []inventory.DiscoveredResource
	paginator := tagging.NewGetResourcesPaginator(client, &tagging.GetResourcesInput{})

	for paginator.HasMorePages() {
		var page *tagging.GetResourcesOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			s.RecordAPIError("GetResources", sc.Region, err)
			return out, s.Errors()
		}

		for _, mapping := range page.ResourceTagMappingList {
			rawARN := aws.ToString(mapping.ResourceARN)

			parts, err := arn.Parse(rawARN)
			if err != nil {
				continue
			}

			prefix, _ := arn.ServicePrefix(rawARN)
			nativeType, known := typemap.NativeTypeForARNPrefix(prefix)
			if !known {
				// Keep unknown families visible under a synthesized type.
				nativeType = "AWS::" + parts.Service
				if parts.ResourceType != "" {
					nativeType += "::" + parts.ResourceType
				}
			}

			pairs := make([]scanner.TagPair, len(mapping.Tags))
			for i, t := range mapping.Tags {
				pairs[i] = scanner.TagPair{Key: t.Key, Value: t.Value}
			}
			tags := scanner.TagsToRecord(pairs)

			region := parts.Region
			if region == "" {
				region = sc.Region
			}

			res := scanner.CreateResource(scanner.ResourceParams{
				ID:         parts.ResourceID,
				ARN:        rawARN,
				NativeType: nativeType,
				Service:    parts.Service,
				Region:     region,
				Name:       scanner.GetNameFromTags(tags, parts.ResourceID),
				Tags:       tags,
				Properties: map[string]any{
					"discoveredVia": DiscoveredViaTaggingAPI,
				},
			})
			out = append(out, res)
		}
	}

	return out, s.Errors()
}
