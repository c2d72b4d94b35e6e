package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigureLogging(t *testing.T) {
	require.NoError(t, ConfigureLogging("debug"))
	require.NoError(t, ConfigureLogging(""))
	// unknown levels fall back to info rather than failing start-up
	require.NoError(t, ConfigureLogging("not-a-level"))
}
