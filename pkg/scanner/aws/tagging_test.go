package aws

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	tagging "github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi"
	taggingtypes "github.com/aws/aws-sdk-go-v2/service/resourcegroupstaggingapi/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockTaggingClient struct {
	GetResourcesFunc func(ctx context.Context, params *tagging.GetResourcesInput, optFns ...func(*tagging.Options)) (*tagging.GetResourcesOutput, error)
}

func (m *MockTaggingClient) GetResources(ctx context.Context, params *tagging.GetResourcesInput, optFns ...func(*tagging.Options)) (*tagging.GetResourcesOutput, error) {
	if m.GetResourcesFunc != nil {
		return m.GetResourcesFunc(ctx, params, optFns...)
	}
	return &tagging.GetResourcesOutput{}, nil
}

func TestTaggingScanInfersTypesAndDropsMalformed(t *testing.T) {
	mock := &MockTaggingClient{
		GetResourcesFunc: func(ctx context.Context, params *tagging.GetResourcesInput, optFns ...func(*tagging.Options)) (*tagging.GetResourcesOutput, error) {
			return &tagging.GetResourcesOutput{
				ResourceTagMappingList: []taggingtypes.ResourceTagMapping{
					{
						ResourceARN: aws.String("arn:aws:ec2:us-east-1:123456789012:instance/i-tagged"),
						Tags: []taggingtypes.Tag{
							{Key: aws.String("Name"), Value: aws.String("tagged-host")},
						},
					},
					{
						ResourceARN: aws.String("arn:aws:s3:::tagged-bucket"),
						Tags: []taggingtypes.Tag{
							{Key: aws.String("team"), Value: aws.String("data")},
						},
					},
					{
						// Colon resource form with a slash-heavy ID.
						ResourceARN: aws.String("arn:aws:logs:us-east-1:123456789012:log-group:/aws/lambda/fn"),
					},
					{
						// Unknown service family: type is synthesized, not dropped.
						ResourceARN: aws.String("arn:aws:sqs:us-east-1:123456789012:orders-queue"),
					},
					{
						// Malformed; silently skipped.
						ResourceARN: aws.String("not-an-arn"),
					},
				},
			}, nil
		},
	}

	s := NewTaggingScanner()
	s.NewClient = func(cfg aws.Config) TaggingClient { return mock }

	resources, errs := s.Scan(context.Background(), testScanContext(aws.Config{}))
	require.Empty(t, errs)
	require.Len(t, resources, 4)

	instance := findByID(t, resources, "i-tagged")
	assert.Equal(t, "aws_instance", instance.Type)
	assert.Equal(t, "ec2", instance.Service)
	assert.Equal(t, "us-east-1", instance.Region)
	assert.Equal(t, "tagged-host", instance.Name)
	assert.Equal(t, DiscoveredViaTaggingAPI, instance.Properties["discoveredVia"])

	bucket := findByID(t, resources, "tagged-bucket")
	assert.Equal(t, "aws_s3_bucket", bucket.Type)
	// ARN carries no region for S3; the scan region is attributed.
	assert.Equal(t, "us-east-1", bucket.Region)

	logGroup := findByID(t, resources, "/aws/lambda/fn")
	assert.Equal(t, "aws_cloudwatch_log_group", logGroup.Type)
	assert.Equal(t, "logs", logGroup.Service)

	queue := findByID(t, resources, "orders-queue")
	assert.Equal(t, "sqs", queue.Service)
	assert.NotEmpty(t, queue.Type)
}

func TestTaggingScanFailureIsRecorded(t *testing.T) {
	mock := &MockTaggingClient{
		GetResourcesFunc: func(ctx context.Context, params *tagging.GetResourcesInput, optFns ...func(*tagging.Options)) (*tagging.GetResourcesOutput, error) {
			return nil, assert.AnError
		},
	}

	s := NewTaggingScanner()
	s.NewClient = func(cfg aws.Config) TaggingClient { return mock }

	resources, errs := s.Scan(context.Background(), testScanContext(aws.Config{}))
	assert.Empty(t, resources)
	require.Len(t, errs, 1)
	assert.Equal(t, "GetResources", errs[0].Operation)
}
