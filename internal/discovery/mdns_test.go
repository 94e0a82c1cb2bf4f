package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortOf(t *testing.T) {
	port, err := PortOf(":3000")
	require.NoError(t, err)
	assert.Equal(t, 3000, port)

	port, err = PortOf("0.0.0.0:8080")
	require.NoError(t, err)
	assert.Equal(t, 8080, port)

	for _, bad := range []string{"3000", ":abc", ":0", ":70000", ""} {
		_, err := PortOf(bad)
		assert.Error(t, err, bad)
	}
}
