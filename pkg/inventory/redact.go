package inventory

import "strings"

// Redacted is the sentinel substituted for sensitive property values.
const Redacted = "[REDACTED]"

// sensitiveKeys mirrors the log redaction list: anything that could carry
// credential or certificate material never lands in an inventory verbatim.
var sensitiveKeys = map[string]bool{
	"password": true, "access_key": true, "secret_access_key": true,
	"token": true, "secret": true, "api_key": true, "private_key": true,
	"auth_token": true, "refresh_token": true, "certificate": true,
	"certificate_body": true, "certificate_chain": true, "signature": true,
	"credential": true, "ssh_key": true, "connection_string": true,
	"oidc_client_secret": true, "master_user_password": true,
	"header_value": true,
}

// RedactProperties returns a copy of props with sensitive values replaced by
// the redaction sentinel. Nested maps are walked; other values pass through.
func RedactProperties(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		if sensitiveKeys[strings.ToLower(k)] {
			out[k] = Redacted
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			out[k] = RedactProperties(nested)
			continue
		}
		out[k] = v
	}
	return out
}
