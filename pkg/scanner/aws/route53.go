package aws

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"

	"github.com/stratoscan/stratoscan/pkg/arn"
	"github.com/stratoscan/stratoscan/pkg/inventory"
	"github.com/stratoscan/stratoscan/pkg/scanner"
	"github.com/stratoscan/stratoscan/pkg/typemap"
)

type Route53Client interface {
	ListHostedZones(ctx context.Context, params *route53.ListHostedZonesInput, optFns ...func(*route53.Options)) (*route53.ListHostedZonesOutput, error)
}

// Route53Scanner enumerates hosted zones. Route 53 is a global service.
type Route53Scanner struct {
	scanner.Base
	NewClient func(cfg aws.Config) Route53Client
}

func NewRoute53Scanner() *Route53Scanner {
	return &Route53Scanner{
		Base:      scanner.Base{Service: "route53"},
		NewClient: func(cfg aws.Config) Route53Client { return route53.NewFromConfig(cfg) },
	}
}

func (s *Route53Scanner) ServiceName() string     { return "route53" }
func (s *Route53Scanner) IsGlobal() bool          { return true }
func (s *Route53Scanner) ResourceTypes() []string { return []string{"aws_route53_zone"} }

func (s *Route53Scanner) Scan(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
	s.ClearErrors()
	client := s.NewClient(sc.Config)

	var out []inventory.DiscoveredResource
	paginator := route53.NewListHostedZonesPaginator(client, &route53.ListHostedZonesInput{})

	for paginator.HasMorePages() {
		var page *route53.ListHostedZonesOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			s.RecordAPIError("ListHostedZones", inventory.RegionGlobal, err)
			return out, s.Errors()
		}

		for _, zone := range page.HostedZones {
			// Zone IDs come prefixed as /hostedzone/Z123.
			id := strings.TrimPrefix(aws.ToString(zone.Id), "/hostedzone/")

			props := map[string]any{
				"recordSetCount": aws.ToInt64(zone.ResourceRecordSetCount),
			}
			if zone.Config != nil {
				props["private"] = zone.Config.PrivateZone
			}

			out = append(out, scanner.CreateResource(scanner.ResourceParams{
				ID: id,
				ARN: scanner.BuildARN(arn.BuildParams{
					Service:      "route53",
					ResourceType: "hostedzone",
					Resource:     id,
				}),
				NativeType: typemap.AWSRoute53HostedZone,
				Service:    "route53",
				Region:     inventory.RegionGlobal,
				Name:       strings.TrimSuffix(aws.ToString(zone.Name), "."),
				Properties: props,
			}))
		}
	}

	return out, s.Errors()
}
