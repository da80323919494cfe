package aws

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"

	"github.com/stratoscan/stratoscan/pkg/inventory"
	"github.com/stratoscan/stratoscan/pkg/scanner"
	"github.com/stratoscan/stratoscan/pkg/typemap"
)

type LogsClient interface {
	DescribeLogGroups(ctx context.Context, params *cloudwatchlogs.DescribeLogGroupsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error)
}

// LogsScanner enumerates CloudWatch log groups.
type LogsScanner struct {
	scanner.Base
	NewClient func(cfg aws.Config) LogsClient
}

func NewLogsScanner() *LogsScanner {
	return &LogsScanner{
		Base:      scanner.Base{Service: "logs"},
		NewClient: func(cfg aws.Config) LogsClient { return cloudwatchlogs.NewFromConfig(cfg) },
	}
}

func (s *LogsScanner) ServiceName() string     { return "logs" }
func (s *LogsScanner) IsGlobal() bool          { return false }
func (s *LogsScanner) ResourceTypes() []string { return []string{"aws_cloudwatch_log_group"} }

func (s *LogsScanner) Scan(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
	s.ClearErrors()
	client := s.NewClient(sc.Config)

	var out []inventory.DiscoveredResource
	paginator := cloudwatchlogs.NewDescribeLogGroupsPaginator(client, &cloudwatchlogs.DescribeLogGroupsInput{})

	for paginator.HasMorePages() {
		var page *cloudwatchlogs.DescribeLogGroupsOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			s.RecordAPIError("DescribeLogGroups", sc.Region, err)
			return out, s.Errors()
		}

		for _, group := range page.LogGroups {
			name := aws.ToString(group.LogGroupName)

			props := map[string]any{}
			if group.RetentionInDays != nil {
				props["retentionDays"] = int(aws.ToInt32(group.RetentionInDays))
			}
			if group.StoredBytes != nil {
				props["storedBytes"] = aws.ToInt64(group.StoredBytes)
			}

			out = append(out, scanner.CreateResource(scanner.ResourceParams{
				ID:         name,
				ARN:        aws.ToString(group.Arn),
				NativeType: typemap.AWSLogsLogGroup,
				Service:    "logs",
				Region:     sc.Region,
				Name:       name,
				Properties: props,
				CreatedAt:  epochMillis(group.CreationTime),
			}))
		}
	}

	return out, s.Errors()
}

func epochMillis(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms).UTC()
	return &t
}
