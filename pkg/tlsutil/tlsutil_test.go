package tlsutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEphemeralConfig_ProducesUsableCertificate(t *testing.T) {
	cfg, err := EphemeralConfig("a-fixed-test-seed")
	require.NoError(t, err)
	require.Len(t, cfg.Certificates, 1)
	assert.NotEmpty(t, cfg.Certificates[0].Certificate)
}

func TestEphemeralConfig_SameSeedIsDeterministic(t *testing.T) {
	first, err := EphemeralConfig("same-seed")
	require.NoError(t, err)
	second, err := EphemeralConfig("same-seed")
	require.NoError(t, err)

	assert.Equal(t, first.Certificates[0].Certificate, second.Certificates[0].Certificate)
}

func TestEphemeralConfig_EmptySeedDrawsFreshRandomness(t *testing.T) {
	first, err := EphemeralConfig("")
	require.NoError(t, err)
	second, err := EphemeralConfig("")
	require.NoError(t, err)

	assert.NotEqual(t, first.Certificates[0].Certificate, second.Certificates[0].Certificate)
}
