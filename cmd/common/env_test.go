package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvLoader_LoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("RISK_TEST_ACCOUNT=swing\nRISK_TEST_PRESET=from_file\n"), 0600))
	t.Setenv("RISK_TEST_PRESET", "from_process")
	t.Cleanup(func() { os.Unsetenv("RISK_TEST_ACCOUNT") })

	loader := NewEnvLoader(nil)
	require.NoError(t, loader.LoadEnvFile(path))

	assert.Equal(t, "swing", os.Getenv("RISK_TEST_ACCOUNT"))
	assert.Equal(t, "from_process", os.Getenv("RISK_TEST_PRESET"), "existing variables win")
}

func TestEnvLoader_MissingFileWarns(t *testing.T) {
	var warned bool
	loader := NewEnvLoader(func(string, ...interface{}) { warned = true })

	require.NoError(t, loader.LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")))
	assert.True(t, warned)
}

func TestEnvLoader_ValidateRequired(t *testing.T) {
	t.Setenv("RISK_TEST_SET", "1")
	loader := NewEnvLoader(nil)

	assert.NoError(t, loader.ValidateRequiredEnvVars([]string{"RISK_TEST_SET"}))
	err := loader.ValidateRequiredEnvVars([]string{"RISK_TEST_SET", "RISK_TEST_UNSET_A", "RISK_TEST_UNSET_B"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RISK_TEST_UNSET_A, RISK_TEST_UNSET_B")
	assert.Equal(t, "fallback", loader.GetEnvWithDefault("RISK_TEST_UNSET_A", "fallback"))
}
