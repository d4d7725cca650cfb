package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskJSONOnlyMasksSensitiveKeys(t *testing.T) {
	out := MaskJSON(map[string]any{
		"name":       "Rossi srl",
		"email":      "mario@rossi.it",
		"vat_number": "IT01234567890",
		"nested":     map[string]any{"phone": "3331234567"},
		"total":      12.5,
		"":           "dropped",
	})

	assert.Equal(t, "Rossi srl", out["name"])
	assert.Equal(t, "****s.it", out["email"])
	assert.Equal(t, "****7890", out["vat_number"])
	assert.Equal(t, map[string]any{"phone": "****4567"}, out["nested"])
	assert.Equal(t, 12.5, out["total"])
	assert.NotContains(t, out, "")
}

func TestMaskSecretShortValues(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("abc"))
}
