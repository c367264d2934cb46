package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTemplate(t *testing.T) {
	values := map[string]string{"id": "42", "name": "save"}

	out, err := formatTemplate("#row-{id} button[name={name}]", values)
	require.NoError(t, err)
	assert.Equal(t, "#row-42 button[name=save]", out)

	out, err = formatTemplate("no placeholders", values)
	require.NoError(t, err)
	assert.Equal(t, "no placeholders", out)
}

func TestFormatTemplateEscapes(t *testing.T) {
	out, err := formatTemplate("li:nth-child({{2}})", nil)
	require.NoError(t, err)
	assert.Equal(t, "li:nth-child({2})", out)

	out, err = formatTemplate("{{{id}}}", map[string]string{"id": "7"})
	require.NoError(t, err)
	assert.Equal(t, "{7}", out)
}

func TestFormatTemplateErrors(t *testing.T) {
	_, err := formatTemplate("{missing_key}", map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing_key")

	_, err = formatTemplate("{unclosed", nil)
	require.Error(t, err)

	_, err = formatTemplate("stray } here", nil)
	require.Error(t, err)

	_, err = formatTemplate("{}", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty placeholder")
}
