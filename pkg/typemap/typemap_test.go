package typemap

import "testing"

func TestNativeToNeutral(t *testing.T) {
	tests := []struct {
		native string
		want   string
	}{
		{AWSS3Bucket, "aws_s3_bucket"},
		{AWSEC2Instance, "aws_instance"},
		{AWSECSService, "aws_ecs_service"},
		{"Microsoft.Storage/storageAccounts", "azurerm_storage_account"},
		// Unknown types synthesize deterministically.
		{"AWS::AppStream::Fleet", "aws_appstream_fleet"},
		{"Microsoft.Maps/accounts", "azurerm_maps_accounts"},
		{"Custom/Thing", "custom_thing"},
	}

	for _, tt := range tests {
		if got := NativeToNeutral(tt.native); got != tt.want {
			t.Errorf("NativeToNeutral(%q) = %q, want %q", tt.native, got, tt.want)
		}
	}
}

func TestNativeToNeutralCaseSensitive(t *testing.T) {
	// Lowercase vendor prefixes miss both the table and the AWS:: prefix
	// strip; the whole string is flattened verbatim.
	if got := NativeToNeutral("aws::ec2::instance"); got != "aws_ec2_instance" {
		t.Errorf("expected flattened fallback aws_ec2_instance, got %q", got)
	}
}

func TestNeutralToNative(t *testing.T) {
	native, ok := NeutralToNative("aws_s3_bucket")
	if !ok || native != AWSS3Bucket {
		t.Errorf("expected %s, got %q (ok=%v)", AWSS3Bucket, native, ok)
	}

	native, ok = NeutralToNative("azurerm_storage_account")
	if !ok || native != "Microsoft.Storage/storageAccounts" {
		t.Errorf("unexpected azure reverse lookup: %q (ok=%v)", native, ok)
	}

	if _, ok := NeutralToNative("aws_nonexistent_thing"); ok {
		t.Error("expected miss for unmapped neutral type")
	}
}

// Every table entry must survive a round trip in both directions.
func TestBidirectional(t *testing.T) {
	for native, neutral := range awsToNeutral {
		if got := NativeToNeutral(native); got != neutral {
			t.Errorf("forward lookup broken for %s", native)
		}
		back, ok := NeutralToNative(neutral)
		if !ok || back != native {
			t.Errorf("reverse lookup broken for %s", neutral)
		}
	}
}

func TestNativeTypeForARNPrefix(t *testing.T) {
	native, ok := NativeTypeForARNPrefix("ec2:instance")
	if !ok || native != AWSEC2Instance {
		t.Errorf("expected %s, got %q", AWSEC2Instance, native)
	}

	native, ok = NativeTypeForARNPrefix("s3")
	if !ok || native != AWSS3Bucket {
		t.Errorf("expected %s, got %q", AWSS3Bucket, native)
	}

	if _, ok := NativeTypeForARNPrefix("gamelift:fleet"); ok {
		t.Error("expected miss for unmapped prefix")
	}
}

func TestSynthesizeDeterministic(t *testing.T) {
	a := Synthesize("AWS::Unknown::Widget")
	b := Synthesize("AWS::Unknown::Widget")
	if a != b {
		t.Error("synthesizer is not deterministic")
	}
	if a != "aws_unknown_widget" {
		t.Errorf("unexpected synthesized name %q", a)
	}
}
