package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactProperties(t *testing.T) {
	props := map[string]any{
		"runtime":              "go1.x",
		"master_user_password": "hunter2",
		"tls": map[string]any{
			"certificate_body": "-----BEGIN CERTIFICATE-----",
			"minimum_version":  "TLSv1.2",
		},
	}

	out := RedactProperties(props)

	assert.Equal(t, "go1.x", out["runtime"])
	assert.Equal(t, Redacted, out["master_user_password"])

	nested := out["tls"].(map[string]any)
	assert.Equal(t, Redacted, nested["certificate_body"])
	assert.Equal(t, "TLSv1.2", nested["minimum_version"])

	// Input untouched.
	assert.Equal(t, "hunter2", props["master_user_password"])
}

func TestRedactPropertiesNil(t *testing.T) {
	assert.Nil(t, RedactProperties(nil))
}
