package inventory

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
)

func summaryFixture() []DiscoveredResource {
	return []DiscoveredResource{
		{ARN: "arn:aws:s3:::a", Type: "aws_s3_bucket", Service: "s3", Region: "us-east-1", Tags: map[string]string{}},
		{ARN: "arn:aws:s3:::b", Type: "aws_s3_bucket", Service: "s3", Region: "us-east-1", Tags: map[string]string{}},
		{ARN: "arn:aws:iam::1:role/r", Type: "aws_iam_role", Service: "iam", Region: RegionGlobal, Tags: map[string]string{}},
		{ARN: "arn:aws:ec2:us-east-1:1:instance/i-1", Type: "aws_instance", Service: "ec2", Region: "us-east-1", Tags: map[string]string{}},
	}
}

func TestBuildSummary(t *testing.T) {
	summary := BuildSummary(summaryFixture())

	assert.Equal(t, 4, summary.TotalResources)
	assert.Equal(t, 2, summary.ResourcesByService["s3"])
	assert.Equal(t, 1, summary.ResourcesByRegion[RegionGlobal])
	assert.Equal(t, 3, summary.ResourcesByRegion["us-east-1"])

	// The per-service counts must always sum to the total.
	sum := 0
	for _, n := range summary.ResourcesByService {
		sum += n
	}
	assert.Equal(t, summary.TotalResources, sum)
}

func TestBuildSummaryEmpty(t *testing.T) {
	summary := BuildSummary(nil)
	assert.Equal(t, 0, summary.TotalResources)
	assert.NotNil(t, summary.ResourcesByService)
}

func TestSummaryGolden(t *testing.T) {
	g := goldie.New(t)
	g.AssertJson(t, "summary", BuildSummary(summaryFixture()))
}
