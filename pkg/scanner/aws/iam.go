package aws

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/stratoscan/stratoscan/pkg/inventory"
	"github.com/stratoscan/stratoscan/pkg/scanner"
	"github.com/stratoscan/stratoscan/pkg/typemap"
)

type IAMClient interface {
	ListRoles(ctx context.Context, params *iam.ListRolesInput, optFns ...func(*iam.Options)) (*iam.ListRolesOutput, error)
	ListUsers(ctx context.Context, params *iam.ListUsersInput, optFns ...func(*iam.Options)) (*iam.ListUsersOutput, error)
}

// IAMScanner enumerates roles and users. IAM is not region-partitioned; the
// orchestrator runs it once per session and its resources carry the global
// region sentinel.
type IAMScanner struct {
	scanner.Base
	NewClient func(cfg aws.Config) IAMClient
}

func NewIAMScanner() *IAMScanner {
	return &IAMScanner{
		Base:      scanner.Base{Service: "iam"},
		NewClient: func(cfg aws.Config) IAMClient { return iam.NewFromConfig(cfg) },
	}
}

func (s *IAMScanner) ServiceName() string { return "iam" }
func (s *IAMScanner) IsGlobal() bool      { return true }

func (s *IAMScanner) ResourceTypes() []string {
	return []string{"aws_iam_role", "aws_iam_user"}
}

func (s *IAMScanner) Scan(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
	s.ClearErrors()
	client := s.NewClient(sc.Config)

	out := s.scanRoles(ctx, sc, client)
	out = append(out, s.scanUsers(ctx, sc, client)...)
	return out, s.Errors()
}

func (s *IAMScanner) scanRoles(ctx context.Context, sc *scanner.Context, client IAMClient) []inventory.DiscoveredResource {
	var out []inventory.DiscoveredResource
	paginator := iam.NewListRolesPaginator(client, &iam.ListRolesInput{})

	for paginator.HasMorePages() {
		var page *iam.ListRolesOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			s.RecordAPIError("ListRoles", inventory.RegionGlobal, err)
			return out
		}

		for _, role := range page.Roles {
			name := aws.ToString(role.RoleName)

			props := map[string]any{
				"path": aws.ToString(role.Path),
			}
			if role.Description != nil {
				props["description"] = aws.ToString(role.Description)
			}
			props["serviceLinked"] = strings.HasPrefix(aws.ToString(role.Path), "/aws-service-role/")

			out = append(out, scanner.CreateResource(scanner.ResourceParams{
				ID:         name,
				ARN:        aws.ToString(role.Arn),
				NativeType: typemap.AWSIAMRole,
				Service:    "iam",
				Region:     inventory.RegionGlobal,
				Name:       name,
				Tags:       iamTags(role.Tags),
				Properties: props,
				CreatedAt:  role.CreateDate,
			}))
		}
	}
	return out
}

func (s *IAMScanner) scanUsers(ctx context.Context, sc *scanner.Context, client IAMClient) []inventory.DiscoveredResource {
	var out []inventory.DiscoveredResource
	paginator := iam.NewListUsersPaginator(client, &iam.ListUsersInput{})

	for paginator.HasMorePages() {
		var page *iam.ListUsersOutput
		err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			s.RecordAPIError("ListUsers", inventory.RegionGlobal, err)
			return out
		}

		for _, user := range page.Users {
			name := aws.ToString(user.UserName)

			props := map[string]any{
				"path": aws.ToString(user.Path),
			}
			if user.PasswordLastUsed != nil {
				props["passwordLastUsed"] = user.PasswordLastUsed.UTC()
			}

			out = append(out, scanner.CreateResource(scanner.ResourceParams{
				ID:         name,
				ARN:        aws.ToString(user.Arn),
				NativeType: typemap.AWSIAMUser,
				Service:    "iam",
				Region:     inventory.RegionGlobal,
				Name:       name,
				Tags:       iamTags(user.Tags),
				Properties: props,
				CreatedAt:  user.CreateDate,
			}))
		}
	}
	return out
}

func iamTags(tags []iamtypes.Tag) map[string]string {
	pairs := make([]scanner.TagPair, len(tags))
	for i, t := range tags {
		pairs[i] = scanner.TagPair{Key: t.Key, Value: t.Value}
	}
	return scanner.TagsToRecord(pairs)
}
