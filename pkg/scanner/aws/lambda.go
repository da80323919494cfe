package aws

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/stratoscan/stratoscan/pkg/inventory"
	"github.com/stratoscan/stratoscan/pkg/scanner"
	"github.com/stratoscan/stratoscan/pkg/typemap"
)

type LambdaClient interface {
	ListFunctions(ctx context.Context, params *lambda.ListFunctionsInput, optFns ...func(*lambda.Options)) (*lambda.ListFunctionsOutput, error)
	ListTags(ctx context.Context, params *lambda.ListTagsInput, optFns ...func(*lambda.Options)) (*lambda.ListTagsOutput, error)
}

// LambdaScanner enumerates functions with their tags.
type LambdaScanner struct {
	scanner.Base
	NewClient func(cfg aws.Config) LambdaClient
}

func NewLambdaScanner() *LambdaScanner {
	return &LambdaScanner{
		Base:      scanner.Base{Service: "lambda"},
		NewClient: func(cfg aws.Config) LambdaClient { return lambda.NewFromConfig(cfg) },
	}
}

func (s *LambdaScanner) ServiceName() string     { return "lambda" }
func (s *LambdaScanner) IsGlobal() bool          { return false }
func (s *LambdaScanner) ResourceTypes() []string { return []string{"aws_lambda_function"} }

func (s *LambdaScanner) Scan(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
	s.ClearErrors()
	client := s.NewClient(sc.Config)

	var out []inventory.DiscoveredResource
	paginator := lambda.NewListFunctionsPaginator(client, &lambda.ListFunctionsInput{})

	for paginator.HasMorePages() {
		var page *lambda.ListFunctionsOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			s.RecordAPIError("ListFunctions", sc.Region, err)
			return out, s.Errors()
		}

		for _, fn := range page.Functions {
			name := aws.ToString(fn.FunctionName)
			fnARN := aws.ToString(fn.FunctionArn)

			props := map[string]any{
				"runtime":    string(fn.Runtime),
				"handler":    aws.ToString(fn.Handler),
				"memorySize": int(aws.ToInt32(fn.MemorySize)),
				"timeout":    int(aws.ToInt32(fn.Timeout)),
			}
			if fn.CodeSize > 0 {
				props["codeSize"] = fn.CodeSize
			}

			res := scanner.CreateResource(scanner.ResourceParams{
				ID:         name,
				ARN:        fnARN,
				NativeType: typemap.AWSLambdaFunction,
				Service:    "lambda",
				Region:     sc.Region,
				Name:       name,
				Tags:       s.functionTags(ctx, sc, client, fnARN),
				Properties: props,
				CreatedAt:  parseLambdaTime(fn.LastModified),
				Status:     string(fn.State),
			})

			if fn.Role != nil {
				res.AddRelationship(inventory.ResourceRelationship{
					Type:       inventory.RelationshipReferences,
					TargetARN:  aws.ToString(fn.Role),
					TargetType: "aws_iam_role",
				})
			}

			out = append(out, res)
		}
	}

	return out, s.Errors()
}

func (s *LambdaScanner) functionTags(ctx context.Context, sc *scanner.Context, client LambdaClient, fnARN string) map[string]string {
	var tagged *lambda.ListTagsOutput
	err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
		var err error
		tagged, err = client.ListTags(ctx, &lambda.ListTagsInput{Resource: aws.String(fnARN)})
		return err
	})
	if err != nil {
		s.RecordAPIError("ListTags", sc.Region, err)
		return nil
	}
	return scanner.TagsFromMap(tagged.Tags)
}

// parseLambdaTime handles Lambda's ISO-8601 LastModified string.
func parseLambdaTime(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse("2006-01-02T15:04:05.000-0700", *s)
	if err != nil {
		return nil
	}
	return &t
}
