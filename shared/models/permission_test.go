package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilityOverrideDistinguishesUnsetFromFalse(t *testing.T) {
	var override CapabilityOverride
	require.NoError(t, json.Unmarshal([]byte(`{"view":false,"create":true}`), &override))

	require.NotNil(t, override.View)
	assert.False(t, *override.View)
	require.NotNil(t, override.Create)
	assert.True(t, *override.Create)

	// Absent keys stay nil: the role default is inherited, not revoked.
	assert.Nil(t, override.Edit)
	assert.Nil(t, override.Delete)
}

func TestNilJSONBValuesSerializeAsEmpty(t *testing.T) {
	var perms CapabilityMap
	value, err := perms.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(value.([]byte)))

	var pages StringList
	value, err = pages.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(value.([]byte)))
}

func TestJSONBScanAcceptsBytesAndString(t *testing.T) {
	var perms CapabilityMap
	require.NoError(t, perms.Scan([]byte(`{"records":{"view":true}}`)))
	assert.True(t, perms["records"].View)

	var pages StringList
	require.NoError(t, pages.Scan(`["dashboard","records"]`))
	assert.Equal(t, StringList{"dashboard", "records"}, pages)

	assert.Error(t, pages.Scan(42))
}
