package scanner

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratoscan/stratoscan/pkg/inventory"
	"github.com/stratoscan/stratoscan/pkg/typemap"
)

func TestCreateResourceDefaults(t *testing.T) {
	res := CreateResource(ResourceParams{
		ID:         "i-0abc",
		ARN:        "arn:aws:ec2:us-east-1:1:instance/i-0abc",
		NativeType: typemap.AWSEC2Instance,
		Service:    "ec2",
		Region:     "us-east-1",
	})

	assert.Equal(t, "aws_instance", res.Type)
	assert.Equal(t, typemap.AWSEC2Instance, res.AWSType)
	require.NotNil(t, res.Tags, "absent tags must yield an empty mapping")
	assert.Empty(t, res.Tags)
	assert.Empty(t, res.Relationships)
}

func TestCreateResourceRedactsProperties(t *testing.T) {
	res := CreateResource(ResourceParams{
		ID:         "lb-1",
		ARN:        "arn:aws:elasticloadbalancing:us-east-1:1:loadbalancer/app/x/y",
		NativeType: typemap.AWSELBV2LoadBalancer,
		Service:    "elbv2",
		Region:     "us-east-1",
		Properties: map[string]any{
			"scheme":           "internal",
			"certificate_body": "secret-pem",
		},
	})

	assert.Equal(t, inventory.Redacted, res.Properties["certificate_body"])
	assert.Equal(t, "internal", res.Properties["scheme"])
}

func TestTagsToRecord(t *testing.T) {
	tags := TagsToRecord([]TagPair{
		{Key: aws.String("Name"), Value: aws.String("web")},
		{Key: aws.String("empty"), Value: nil},
		{Key: nil, Value: aws.String("dropped")},
		{Key: aws.String(""), Value: aws.String("dropped")},
	})

	assert.Equal(t, map[string]string{"Name": "web", "empty": ""}, tags)
}

// Output-map equality must be insensitive to input order.
func TestTagsToRecordOrderInsensitive(t *testing.T) {
	a := []TagPair{
		{Key: aws.String("a"), Value: aws.String("1")},
		{Key: aws.String("b"), Value: aws.String("2")},
	}
	b := []TagPair{a[1], a[0]}
	assert.Equal(t, TagsToRecord(a), TagsToRecord(b))
}

func TestGetNameFromTags(t *testing.T) {
	assert.Equal(t, "web", GetNameFromTags(map[string]string{"Name": "web"}, "fallback"))
	assert.Equal(t, "fallback", GetNameFromTags(map[string]string{}, "fallback"))
	assert.Equal(t, "fallback", GetNameFromTags(map[string]string{"Name": ""}, "fallback"))
}

func TestBaseErrorBuffer(t *testing.T) {
	b := &Base{Service: "ec2"}
	b.RecordError("DescribeInstances", "kaput", "us-east-1", "AccessDenied")
	b.RecordError("DescribeVolumes", "kaput", "us-east-1", "")

	errs := b.Errors()
	require.Len(t, errs, 2)
	assert.Equal(t, "ec2", errs[0].Service)
	assert.Equal(t, "AccessDenied", errs[0].Code)
	assert.False(t, errs[0].Timestamp.IsZero())

	b.ClearErrors()
	assert.Empty(t, b.Errors())
}
