// Package typemap translates provider-native resource type names into the
// neutral, provider-agnostic vocabulary used across the inventory
// (e.g. AWS::S3::Bucket -> aws_s3_bucket), and back.
package typemap

import "strings"

// NativeToNeutral resolves a provider-native type name to its neutral type.
// Lookups are case-sensitive. Unknown native types fall back to a
// deterministic synthesized name so the mapping is total.
func NativeToNeutral(native string) string {
	if neutral, ok := awsToNeutral[native]; ok {
		return neutral
	}
	if neutral, ok := azureToNeutral[native]; ok {
		return neutral
	}
	return Synthesize(native)
}

// NeutralToNative resolves a neutral type back to its provider-native name.
// Only table entries resolve; synthesized fallbacks are not reversible.
func NeutralToNative(neutral string) (string, bool) {
	if native, ok := neutralToAWS[neutral]; ok {
		return native, true
	}
	native, ok := neutralToAzure[neutral]
	return native, ok
}

// NativeTypeForARNPrefix resolves the "service:resourceType" prefix carried
// by an ARN into a native type name. Used by the tagging scanner, whose rows
// expose only ARNs.
func NativeTypeForARNPrefix(prefix string) (string, bool) {
	native, ok := arnPrefixToNative[prefix]
	return native, ok
}

// Synthesize derives a deterministic neutral type for a native name with no
// table entry: strip the vendor prefix, lowercase, and join segments with
// underscores under the provider's neutral prefix.
func Synthesize(native string) string {
	switch {
	case strings.HasPrefix(native, "AWS::"):
		return "aws_" + flatten(strings.TrimPrefix(native, "AWS::"))
	case strings.HasPrefix(native, "Microsoft."):
		return "azurerm_" + flatten(strings.TrimPrefix(native, "Microsoft."))
	default:
		return flatten(native)
	}
}

func flatten(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "::", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, ".", "_")
	return s
}

func invert(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}
