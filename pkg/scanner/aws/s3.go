package aws

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithy "github.com/aws/smithy-go"

	"github.com/stratoscan/stratoscan/pkg/arn"
	"github.com/stratoscan/stratoscan/pkg/inventory"
	"github.com/stratoscan/stratoscan/pkg/scanner"
	"github.com/stratoscan/stratoscan/pkg/typemap"
)

type S3Client interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	GetBucketLocation(ctx context.Context, params *s3.GetBucketLocationInput, optFns ...func(*s3.Options)) (*s3.GetBucketLocationOutput, error)
	GetBucketTagging(ctx context.Context, params *s3.GetBucketTaggingInput, optFns ...func(*s3.Options)) (*s3.GetBucketTaggingOutput, error)
	GetBucketVersioning(ctx context.Context, params *s3.GetBucketVersioningInput, optFns ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error)
}

// S3Scanner enumerates buckets. ListBuckets is account-wide, so the scanner
// attributes each bucket to its home region and only emits buckets that live
// in the region being scanned; buckets whose region cannot be resolved are
// attributed to the scan region so they are not lost.
type S3Scanner struct {
	scanner.Base
	NewClient func(cfg aws.Config) S3Client

	mu       sync.Mutex
	regional map[string]S3Client
}

func NewS3Scanner() *S3Scanner {
	return &S3Scanner{
		Base:      scanner.Base{Service: "s3"},
		NewClient: func(cfg aws.Config) S3Client { return s3.NewFromConfig(cfg) },
	}
}

func (s *S3Scanner) ServiceName() string     { return "s3" }
func (s *S3Scanner) IsGlobal() bool          { return false }
func (s *S3Scanner) ResourceTypes() []string { return []string{"aws_s3_bucket"} }

// regionalClient returns a client pinned to the bucket's home region;
// per-bucket reads redirect unless issued against it.
func (s *S3Scanner) regionalClient(sc *scanner.Context, region string) S3Client {
	if region == "" || region == sc.Region {
		return s.NewClient(sc.Config)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.regional == nil {
		s.regional = make(map[string]S3Client)
	}
	if client, ok := s.regional[region]; ok {
		return client
	}
	cfg := sc.Config.Copy()
	cfg.Region = region
	client := s.NewClient(cfg)
	s.regional[region] = client
	return client
}

func (s *S3Scanner) Scan(ctx context.Context, sc *scanner.Context) ([]inventory.DiscoveredResource, []inventory.ScanError) {
	s.ClearErrors()
	client := s.NewClient(sc.Config)

	var listed *s3.ListBucketsOutput
	err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
		var err error
		listed, err = client.ListBuckets(ctx, &s3.ListBucketsInput{})
		return err
	})
	if err != nil {
		s.RecordAPIError("ListBuckets", sc.Region, err)
		return nil, s.Errors()
	}

	var out []inventory.DiscoveredResource
	for _, bucket := range listed.Buckets {
		name := aws.ToString(bucket.Name)

		region := s.bucketRegion(ctx, sc, client, name)
		if region != "" && region != sc.Region {
			// Owned by another region's scan pass.
			continue
		}
		if region == "" {
			region = sc.Region
		}

		regional := s.regionalClient(sc, region)

		props := map[string]any{}
		if versioning := s.bucketVersioning(ctx, sc, regional, name); versioning != "" {
			props["versioning"] = versioning
		}

		res := scanner.CreateResource(scanner.ResourceParams{
			ID:         name,
			ARN:        scanner.BuildARN(arn.BuildParams{Service: "s3", Resource: name}),
			NativeType: typemap.AWSS3Bucket,
			Service:    "s3",
			Region:     region,
			Name:       name,
			Tags:       s.bucketTags(ctx, sc, regional, name),
			Properties: props,
			CreatedAt:  bucket.CreationDate,
		})
		out = append(out, res)
	}

	return out, s.Errors()
}

func (s *S3Scanner) bucketRegion(ctx context.Context, sc *scanner.Context, client S3Client, name string) string {
	var loc *s3.GetBucketLocationOutput
	err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
		var err error
		loc, err = client.GetBucketLocation(ctx, &s3.GetBucketLocationInput{Bucket: aws.String(name)})
		return err
	})
	if err != nil {
		s.RecordAPIError("GetBucketLocation", sc.Region, err)
		return ""
	}
	region := string(loc.LocationConstraint)
	switch region {
	case "":
		// Empty constraint is the legacy us-east-1 encoding.
		return "us-east-1"
	case "EU":
		return "eu-west-1"
	}
	return region
}

func (s *S3Scanner) bucketTags(ctx context.Context, sc *scanner.Context, client S3Client, name string) map[string]string {
	var tagging *s3.GetBucketTaggingOutput
	err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
		var err error
		tagging, err = client.GetBucketTagging(ctx, &s3.GetBucketTaggingInput{Bucket: aws.String(name)})
		return err
	})
	if err != nil {
		// Untagged buckets answer with NoSuchTagSet; that is not a failure.
		if !isNoSuchTagSet(err) {
			s.RecordAPIError("GetBucketTagging", sc.Region, err)
		}
		return nil
	}

	pairs := make([]scanner.TagPair, len(tagging.TagSet))
	for i, t := range tagging.TagSet {
		pairs[i] = scanner.TagPair{Key: t.Key, Value: t.Value}
	}
	return scanner.TagsToRecord(pairs)
}

func (s *S3Scanner) bucketVersioning(ctx context.Context, sc *scanner.Context, client S3Client, name string) string {
	var out *s3.GetBucketVersioningOutput
	err := s.WithRateLimit(ctx, sc, func(ctx context.Context) error {
		var err error
		out, err = client.GetBucketVersioning(ctx, &s3.GetBucketVersioningInput{Bucket: aws.String(name)})
		return err
	})
	if err != nil {
		s.RecordAPIError("GetBucketVersioning", sc.Region, err)
		return ""
	}
	if out.Status == "" {
		return "Disabled"
	}
	return string(out.Status)
}

func isNoSuchTagSet(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return strings.EqualFold(apiErr.ErrorCode(), "NoSuchTagSet")
	}
	return false
}
