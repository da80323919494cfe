package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbv2types "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/stratoscan/stratoscan/pkg/inventory"
	"github.com/stratoscan/stratoscan/pkg/scanner"
	"github.com/stratoscan/stratoscan/pkg/typemap"
)

// DescribeTags accepts at most 20 resource ARNs per call.
const elbTagChunk = 20

type ELBV2Client interface {
	DescribeLoadBalancers(ctx context.Context, params *elbv2.DescribeLoadBalancersInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeLoadBalancersOutput, error)
	DescribeTargetGroups(ctx context.Context, params *elbv2.DescribeTargetGroupsInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTargetGroupsOutput, error)
	DescribeTags(ctx context.Context, params *elbv2.DescribeTagsInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTagsOutput, error)
}

// ELBV2Scanner enumerates v2 load balancers and target groups.
type ELBV2Scanner struct {
	scanner.Base
	NewClient func(cfg aws.Config) ELBV2Client
}

func NewELBV2Scanner() *ELBV2Scanner {
	return &ELBV2Scanner{
		Base:      scanner.Base{Service: "elbv2"},
		NewClient: func(cfg aws.Config) ELBV2Client { return elbv2.NewFromConfig(cfg) },
	}
}

func (s *ELBV2Scanner) ServiceName() string { return "elbv2" }
func (s *ELBV2Scanner) IsGlobal() bool      { return false }

func (s *ELBV2Scanner) ResourceTypes() []string {
	return []string{"aws_lb", "aws_lb_target_group"}
}

func (s *ELBV2Scanner) Scan(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
	s.ClearErrors()
	client := s.NewClient(sc.Config)

	out := s.scanLoadBalancers(ctx, sc, client)
	out = append(out, s.scanTargetGroups(ctx, sc, client)...)
	return out, s.Errors()
}

func (s *ELBV2Scanner) scanLoadBalancers(ctx context.Context, sc *scanner.Context, client ELBV2Client) []inventory.DiscoveredResource {
	var out []inventory.DiscoveredResource
	var arns []string
	paginator := elbv2.NewDescribeLoadBalancersPaginator(client, &elbv2.DescribeLoadBalancersInput{})

	for paginator.HasMorePages() {
		var page *elbv2.DescribeLoadBalancersOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			s.RecordAPIError("DescribeLoadBalancers", sc.Region, err)
			return out
		}

		for _, lb := range page.LoadBalancers {
			lbARN := aws.ToString(lb.LoadBalancerArn)
			arns = append(arns, lbARN)

			res := scanner.CreateResource(scanner.ResourceParams{
				ID:         aws.ToString(lb.LoadBalancerName),
				ARN:        lbARN,
				NativeType: typemap.AWSELBV2LoadBalancer,
				Service:    "elbv2",
				Region:     sc.Region,
				Name:       aws.ToString(lb.LoadBalancerName),
				Properties: map[string]any{
					"type":    string(lb.Type),
					"scheme":  string(lb.Scheme),
					"dnsName": aws.ToString(lb.DNSName),
				},
				CreatedAt: lb.CreatedTime,
				Status:    lbState(lb.State),
			})

			if lb.VpcId != nil {
				res.AddRelationship(inventory.ResourceRelationship{
					Type:       inventory.RelationshipReferences,
					TargetARN:  scanner.BuildARN(arnFor(sc, "ec2", "vpc", aws.ToString(lb.VpcId))),
					TargetType: "aws_vpc",
				})
			}

			out = append(out, res)
		}
	}

	s.applyTags(ctx, sc, client, arns, out)
	return out
}

func (s *ELBV2Scanner) scanTargetGroups(ctx context.Context, sc *scanner.Context, client ELBV2Client) []inventory.DiscoveredResource {
	var out []inventory.DiscoveredResource
	var arns []string
	paginator := elbv2.NewDescribeTargetGroupsPaginator(client, &elbv2.DescribeTargetGroupsInput{})

	for paginator.HasMorePages() {
		var page *elbv2.DescribeTargetGroupsOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			s.RecordAPIError("DescribeTargetGroups", sc.Region, err)
			return out
		}

		for _, tg := range page.TargetGroups {
			tgARN := aws.ToString(tg.TargetGroupArn)
			arns = append(arns, tgARN)

			res := scanner.CreateResource(scanner.ResourceParams{
				ID:         aws.ToString(tg.TargetGroupName),
				ARN:        tgARN,
				NativeType: typemap.AWSELBV2TargetGroup,
				Service:    "elbv2",
				Region:     sc.Region,
				Name:       aws.ToString(tg.TargetGroupName),
				Properties: map[string]any{
					"protocol":   string(tg.Protocol),
					"port":       int(aws.ToInt32(tg.Port)),
					"targetType": string(tg.TargetType),
				},
			})

			for _, lbARN := range tg.LoadBalancerArns {
				res.AddRelationship(inventory.ResourceRelationship{
					Type:       inventory.RelationshipAttachedTo,
					TargetARN:  lbARN,
					TargetType: "aws_lb",
				})
			}

			out = append(out, res)
		}
	}

	s.applyTags(ctx, sc, client, arns, out)
	return out
}

// applyTags backfills tags onto already-built resources; the describe calls
// do not return them.
func (s *ELBV2Scanner) applyTags(ctx context.Context, sc *scanner.Context, client ELBV2Client, arns []string, resources []inventory.DiscoveredResource) {
	byARN := make(map[string]int, len(resources))
	for i, res := range resources {
		byARN[res.ARN] = i
	}

	for _, batch := range chunk(arns, elbTagChunk) {
		var described *elbv2.DescribeTagsOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			described, err = client.DescribeTags(ctx, &elbv2.DescribeTagsInput{ResourceArns: batch})
			return err
		})
		if err != nil {
			s.RecordAPIError("DescribeTags", sc.Region, err)
			continue
		}

		for _, desc := range described.TagDescriptions {
			idx, ok := byARN[aws.ToString(desc.ResourceArn)]
			if !ok {
				continue
			}
			pairs := make([]scanner.TagPair, len(desc.Tags))
			for i, t := range desc.Tags {
				pairs[i] = scanner.TagPair{Key: t.Key, Value: t.Value}
			}
			resources[idx].Tags = scanner.TagsToRecord(pairs)
		}
	}
}

func lbState(state *elbv2types.LoadBalancerState) string {
	if state == nil {
		return ""
	}
	return string(state.Code)
}
