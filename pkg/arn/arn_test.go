package arn

import (
	"testing"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name   string
		params BuildParams
		want   string
	}{
		{
			name: "with resource type",
			params: BuildParams{
				Service:      "ec2",
				Region:       "us-east-1",
				AccountID:    "123456789012",
				ResourceType: "instance",
				Resource:     "i-0abc123",
			},
			want: "arn:aws:ec2:us-east-1:123456789012:instance/i-0abc123",
		},
		{
			name: "without resource type",
			params: BuildParams{
				Service:  "s3",
				Resource: "my-bucket",
			},
			want: "arn:aws:s3:::my-bucket",
		},
		{
			name: "custom partition",
			params: BuildParams{
				Partition:    "aws-cn",
				Service:      "lambda",
				Region:       "cn-north-1",
				AccountID:    "123456789012",
				ResourceType: "function",
				Resource:     "fn",
			},
			want: "arn:aws-cn:lambda:cn-north-1:123456789012:function/fn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Build(tt.params); got != tt.want {
				t.Errorf("Build() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	parts, err := Parse("arn:aws:ec2:us-east-1:123456789012:instance/i-0abc123")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parts.Service != "ec2" || parts.Region != "us-east-1" || parts.AccountID != "123456789012" {
		t.Errorf("unexpected parts: %+v", parts)
	}
	if parts.ResourceType != "instance" || parts.ResourceID != "i-0abc123" {
		t.Errorf("unexpected resource split: %+v", parts)
	}
}

func TestParseColonResourceForm(t *testing.T) {
	parts, err := Parse("arn:aws:logs:us-east-1:123456789012:log-group:/aws/lambda/fn")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parts.ResourceType != "log-group" {
		t.Errorf("expected log-group resource type, got %q", parts.ResourceType)
	}
	if parts.ResourceID != "/aws/lambda/fn" {
		t.Errorf("unexpected resource id %q", parts.ResourceID)
	}
}

// The first separator decides the resource form: a colon before any slash
// is the colon form even when the ID itself is slash-heavy, and a slash
// before any colon is the slash form even when the ID carries colons.
func TestParseSeparatorPrecedence(t *testing.T) {
	tests := []struct {
		arn      string
		wantType string
		wantID   string
	}{
		{"arn:aws:logs:us-east-1:123456789012:log-group:/aws/lambda/fn", "log-group", "/aws/lambda/fn"},
		{"arn:aws:ecs:us-east-1:123456789012:task-definition/web:42", "task-definition", "web:42"},
		{"arn:aws:states:us-east-1:123456789012:stateMachine:order-flow", "stateMachine", "order-flow"},
	}

	for _, tt := range tests {
		parts, err := Parse(tt.arn)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", tt.arn, err)
		}
		if parts.ResourceType != tt.wantType || parts.ResourceID != tt.wantID {
			t.Errorf("Parse(%q) = type %q id %q, want type %q id %q",
				tt.arn, parts.ResourceType, parts.ResourceID, tt.wantType, tt.wantID)
		}
	}
}

func TestParseBareResource(t *testing.T) {
	parts, err := Parse("arn:aws:s3:::my-bucket")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parts.ResourceType != "" || parts.ResourceID != "my-bucket" {
		t.Errorf("unexpected parts: %+v", parts)
	}
}

func TestParseMalformed(t *testing.T) {
	for _, input := range []string{
		"arn:aws:ec2", // too short
		"not-an-arn",
		"",
		"arn::s3:::bucket", // empty partition
	} {
		if _, err := Parse(input); err == nil {
			t.Errorf("expected malformed error for %q", input)
		}
	}
}

// Parse(Build(p)) must return the original components for valid params.
func TestRoundTrip(t *testing.T) {
	params := []BuildParams{
		{Partition: "aws", Service: "ec2", Region: "eu-west-1", AccountID: "111122223333", ResourceType: "volume", Resource: "vol-123"},
		{Partition: "aws", Service: "rds", Region: "us-east-1", AccountID: "111122223333", ResourceType: "db", Resource: "prod-db"},
		{Partition: "aws-us-gov", Service: "iam", Region: "", AccountID: "111122223333", ResourceType: "role", Resource: "admin"},
	}

	for _, p := range params {
		parts, err := Parse(Build(p))
		if err != nil {
			t.Fatalf("round trip parse failed for %+v: %v", p, err)
		}
		if parts.Partition != p.Partition || parts.Service != p.Service ||
			parts.Region != p.Region || parts.AccountID != p.AccountID ||
			parts.ResourceType != p.ResourceType || parts.ResourceID != p.Resource {
			t.Errorf("round trip mismatch: built from %+v, parsed %+v", p, parts)
		}
	}
}

func TestServicePrefix(t *testing.T) {
	prefix, ok := ServicePrefix("arn:aws:ec2:us-east-1:123456789012:instance/i-0abc123")
	if !ok || prefix != "ec2:instance" {
		t.Errorf("expected ec2:instance, got %q (ok=%v)", prefix, ok)
	}

	prefix, ok = ServicePrefix("arn:aws:s3:::my-bucket")
	if !ok || prefix != "s3" {
		t.Errorf("expected s3, got %q (ok=%v)", prefix, ok)
	}

	prefix, ok = ServicePrefix("arn:aws:logs:us-east-1:123456789012:log-group:/aws/lambda/fn")
	if !ok || prefix != "logs:log-group" {
		t.Errorf("expected logs:log-group, got %q (ok=%v)", prefix, ok)
	}

	if _, ok := ServicePrefix("arn:aws:ec2"); ok {
		t.Error("expected failure for short ARN")
	}
}
