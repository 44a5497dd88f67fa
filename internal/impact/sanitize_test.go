package impact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecobalance/impact-balance/internal/models"
)

func TestSanitize_TypedNilBecomesPlainNil(t *testing.T) {
	var p *string
	assert.Nil(t, Sanitize(p))

	var m map[string]int
	assert.Nil(t, Sanitize(m))

	var s []int
	assert.Nil(t, Sanitize(s))
}

func TestSanitize_WalksNestedStructures(t *testing.T) {
	var nilPtr *int
	in := map[string]any{
		"name":  "Expo",
		"count": 3,
		"gone":  nilPtr,
		"nested": map[string]any{
			"also_gone": nilPtr,
			"kept":      true,
		},
		"list": []any{1, nilPtr, "x"},
	}

	out, ok := Sanitize(in).(map[string]any)
	require.True(t, ok)

	assert.Equal(t, "Expo", out["name"])
	assert.Equal(t, 3, out["count"])
	assert.Nil(t, out["gone"])

	nested, ok := out["nested"].(map[string]any)
	require.True(t, ok)
	assert.Nil(t, nested["also_gone"])
	assert.Equal(t, true, nested["kept"])

	list, ok := out["list"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{1, nil, "x"}, list)
}

func TestSanitize_Idempotent(t *testing.T) {
	var nilPtr *float64
	in := map[string]any{
		"a": nilPtr,
		"b": []any{nilPtr, 2},
	}

	once := Sanitize(in)
	twice := Sanitize(once)
	assert.Equal(t, once, twice)
}

func TestSanitize_ScalarsPassThrough(t *testing.T) {
	assert.Equal(t, "text", Sanitize("text"))
	assert.Equal(t, 42, Sanitize(42))
	assert.Equal(t, 1.5, Sanitize(1.5))
	assert.Equal(t, false, Sanitize(false))
	assert.Nil(t, Sanitize(nil))
}

func TestSanitizeInput_OnlyTouchesExtra(t *testing.T) {
	var nilPtr *string
	input := models.EventFormInput{
		EventName:  "Trade Fair",
		ClientName: "Acme",
		Extra: map[string]any{
			"note": nilPtr,
			"tag":  "vip",
		},
	}

	out := SanitizeInput(input)

	assert.Equal(t, "Trade Fair", out.EventName)
	assert.Equal(t, "Acme", out.ClientName)
	require.NotNil(t, out.Extra)
	assert.Nil(t, out.Extra["note"])
	assert.Equal(t, "vip", out.Extra["tag"])
}

func TestSanitizeInput_NilExtraUnchanged(t *testing.T) {
	input := models.EventFormInput{EventName: "Gala"}
	out := SanitizeInput(input)
	assert.Nil(t, out.Extra)
}
