package execshell

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeEnvironmentAppendsOverridesInKeyOrder(testInstance *testing.T) {
	merged := mergeEnvironment([]string{"PATH=/usr/bin"}, map[string]string{"npm_config_yes": "true", "CI": "1"})
	require.Equal(testInstance, []string{"PATH=/usr/bin", "CI=1", "npm_config_yes=true"}, merged)
}
