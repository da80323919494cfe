package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/stratoscan/stratoscan/pkg/inventory"
	"github.com/stratoscan/stratoscan/pkg/scanner"
	"github.com/stratoscan/stratoscan/pkg/typemap"
)

type DynamoDBClient interface {
	ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	ListTagsOfResource(ctx context.Context, params *dynamodb.ListTagsOfResourceInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTagsOfResourceOutput, error)
}

// DynamoDBScanner enumerates tables; list yields names only, so each table
// gets a describe and a tag fetch.
type DynamoDBScanner struct {
	scanner.Base
	NewClient func(cfg aws.Config) DynamoDBClient
}

func NewDynamoDBScanner() *DynamoDBScanner {
	return &DynamoDBScanner{
		Base:      scanner.Base{Service: "dynamodb"},
		NewClient: func(cfg aws.Config) DynamoDBClient { return dynamodb.NewFromConfig(cfg) },
	}
}

func (s *DynamoDBScanner) ServiceName() string     { return "dynamodb" }
func (s *DynamoDBScanner) IsGlobal() bool          { return false }
func (s *DynamoDBScanner) ResourceTypes() []string { return []string{"aws_dynamodb_table"} }

func (s *DynamoDBScanner) Scan(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
	s.ClearErrors()
	client := s.NewClient(sc.Config)

	var out []inventory.DiscoveredResource
	paginator := dynamodb.NewListTablesPaginator(client, &dynamodb.ListTablesInput{})

	for paginator.HasMorePages() {
		var page *dynamodb.ListTablesOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			s.RecordAPIError("ListTables", sc.Region, err)
			return out, s.Errors()
		}

		for _, name := range page.TableNames {
			if res, ok := s.describeTable(ctx, sc, client, name); ok {
				out = append(out, res)
			}
		}
	}

	return out, s.Errors()
}

func (s *DynamoDBScanner) describeTable(ctx context.Context, sc *scanner.Context, client DynamoDBClient, name string) (inventory.DiscoveredResource, bool) {
	var described *dynamodb.DescribeTableOutput
	err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
		var err error
		described, err = client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
		return err
	})
	if err != nil {
		s.RecordAPIError("DescribeTable", sc.Region, err)
		return inventory.DiscoveredResource{}, false
	}

	table := described.Table
	tableARN := aws.ToString(table.TableArn)

	props := map[string]any{
		"itemCount":    table.ItemCount,
		"sizeBytes":    table.TableSizeBytes,
		"billingMode":  billingMode(described),
		"globalTables": len(table.Replicas),
	}

	return scanner.CreateResource(scanner.ResourceParams{
		ID:         name,
		ARN:        tableARN,
		NativeType: typemap.AWSDynamoDBTable,
		Service:    "dynamodb",
		Region:     sc.Region,
		Name:       name,
		Tags:       s.tableTags(ctx, sc, client, tableARN),
		Properties: props,
		CreatedAt:  table.CreationDateTime,
		Status:     string(table.TableStatus),
	}), true
}

func (s *DynamoDBScanner) tableTags(ctx context.Context, sc *scanner.Context, client DynamoDBClient, tableARN string) map[string]string {
	var tagged *dynamodb.ListTagsOfResourceOutput
	err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
		var err error
		tagged, err = client.ListTagsOfResource(ctx, &dynamodb.ListTagsOfResourceInput{
			ResourceArn: aws.String(tableARN),
		})
		return err
	})
	if err != nil {
		s.RecordAPIError("ListTagsOfResource", sc.Region, err)
		return nil
	}

	pairs := make([]scanner.TagPair, len(tagged.Tags))
	for i, t := range tagged.Tags {
		pairs[i] = scanner.TagPair{Key: t.Key, Value: t.Value}
	}
	return scanner.TagsToRecord(pairs)
}

func billingMode(out *dynamodb.DescribeTableOutput) string {
	if out.Table.BillingModeSummary != nil {
		return string(out.Table.BillingModeSummary.BillingMode)
	}
	return "PROVISIONED"
}
