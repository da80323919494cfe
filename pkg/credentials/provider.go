// Package credentials resolves and validates provider credentials for
// discovery sessions.
package credentials

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// Validation is the outcome of a credential check.
type Validation struct {
	Valid     bool
	AccountID string
	Error     string
}

// Provider is the narrow credential surface the orchestrator depends on.
type Provider interface {
	// Config returns the base client configuration.
	Config() aws.Config
	// ConfigForRegion returns a regional configuration copy.
	ConfigForRegion(region string) aws.Config
	// Validate checks the credentials by resolving the caller identity.
	Validate(ctx context.Context) Validation
	// DefaultAccountID returns the account the credentials belong to.
	DefaultAccountID(ctx context.Context) (string, error)
}

// AWSProvider implements Provider on top of the default AWS credential
// chain.
type AWSProvider struct {
	cfg aws.Config
	sts *sts.Client
}

// NewAWSProvider loads the default SDK configuration for a region and
// optional shared-config profile. AWS_ENDPOINT_URL overrides the endpoint
// for hermetic testing.
func NewAWSProvider(ctx context.Context, region, profile string) (*AWSProvider, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	if endpoint := os.Getenv("AWS_ENDPOINT_URL"); endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(endpoint))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	// Tag outgoing requests so API usage is attributable in CloudTrail.
	cfg.APIOptions = append(cfg.APIOptions, func(stack *middleware.Stack) error {
		return stack.Build.Add(middleware.BuildMiddlewareFunc("StratoscanUserAgent", func(ctx context.Context, input middleware.BuildInput, next middleware.BuildHandler) (
			middleware.BuildOutput, middleware.Metadata, error,
		) {
			if req, ok := input.Request.(*smithyhttp.Request); ok {
				ua := req.Header.Get("User-Agent")
				if ua == "" {
					ua = "Stratoscan"
				}
				req.Header.Set("User-Agent", ua+" (stratoscan-discovery)")
			}
			return next.HandleBuild(ctx, input)
		}), middleware.After)
	})

	return &AWSProvider{
		cfg: cfg,
		sts: sts.NewFromConfig(cfg),
	}, nil
}

// Config returns the base client configuration.
func (p *AWSProvider) Config() aws.Config {
	return p.cfg
}

// ConfigForRegion returns a copy of the configuration pinned to a region.
// Use for cross-region clients (e.g. S3 buckets homed elsewhere).
func (p *AWSProvider) ConfigForRegion(region string) aws.Config {
	cfg := p.cfg.Copy()
	cfg.Region = region
	return cfg
}

// Validate resolves the caller identity via STS.
func (p *AWSProvider) Validate(ctx context.Context) Validation {
	out, err := p.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return Validation{Valid: false, Error: err.Error()}
	}
	return Validation{Valid: true, AccountID: aws.ToString(out.Account)}
}

// DefaultAccountID returns the canonical account ID for the credentials.
func (p *AWSProvider) DefaultAccountID(ctx context.Context) (string, error) {
	out, err := p.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get caller identity: %w", err)
	}
	return aws.ToString(out.Account), nil
}
