package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/stratoscan/stratoscan/pkg/inventory"
	"github.com/stratoscan/stratoscan/pkg/scanner"
	"github.com/stratoscan/stratoscan/pkg/typemap"
)

type CloudWatchClient interface {
	DescribeAlarms(ctx context.Context, params *cloudwatch.DescribeAlarmsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.DescribeAlarmsOutput, error)
}

// CloudWatchScanner enumerates metric alarms.
type CloudWatchScanner struct {
	scanner.Base
	NewClient func(cfg aws.Config) CloudWatchClient
}

func NewCloudWatchScanner() *CloudWatchScanner {
	return &CloudWatchScanner{
		Base:      scanner.Base{Service: "cloudwatch"},
		NewClient: func(cfg aws.Config) CloudWatchClient { return cloudwatch.NewFromConfig(cfg) },
	}
}

func (s *CloudWatchScanner) ServiceName() string { return "cloudwatch" }
func (s *CloudWatchScanner) IsGlobal() bool      { return false }

func (s *CloudWatchScanner) ResourceTypes() []string {
	return []string{"aws_cloudwatch_metric_alarm"}
}

func (s *CloudWatchScanner) Scan(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
	s.ClearErrors()
	client := s.NewClient(sc.Config)

	var out []inventory.DiscoveredResource
	paginator := cloudwatch.NewDescribeAlarmsPaginator(client, &cloudwatch.DescribeAlarmsInput{})

	for paginator.HasMorePages() {
		var page *cloudwatch.DescribeAlarmsOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			s.RecordAPIError("DescribeAlarms", sc.Region, err)
			return out, s.Errors()
		}

		for _, alarm := range page.MetricAlarms {
			out = append(out, s.alarmResource(sc, alarm))
		}
	}

	return out, s.Errors()
}

func (s *CloudWatchScanner) alarmResource(sc *scanner.Context, alarm cwtypes.MetricAlarm) inventory.DiscoveredResource {
	name := aws.ToString(alarm.AlarmName)

	props := map[string]any{
		"metricName":         aws.ToString(alarm.MetricName),
		"namespace":          aws.ToString(alarm.Namespace),
		"comparisonOperator": string(alarm.ComparisonOperator),
		"actionsEnabled":     aws.ToBool(alarm.ActionsEnabled),
	}
	if alarm.Threshold != nil {
		props["threshold"] = aws.ToFloat64(alarm.Threshold)
	}

	return scanner.CreateResource(scanner.ResourceParams{
		ID:         name,
		ARN:        aws.ToString(alarm.AlarmArn),
		NativeType: typemap.AWSCloudWatchAlarm,
		Service:    "cloudwatch",
		Region:     sc.Region,
		Name:       name,
		Properties: props,
		Status:     string(alarm.StateValue),
	})
}
