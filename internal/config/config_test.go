package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tnewman/dray/internal/handle"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DRAY_HOST", "DRAY_SSH_KEY_PATHS", "DRAY_S3_ENDPOINT_NAME",
		"DRAY_S3_ENDPOINT_REGION", "DRAY_S3_BUCKET", "DRAY_MAX_HANDLES",
		"DRAY_S3_ACCESS_KEY_ID", "DRAY_S3_SECRET_ACCESS_KEY",
	} {
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadRequiresHost(t *testing.T) {
	clearEnv(t)
	t.Setenv("DRAY_SSH_KEY_PATHS", "/etc/dray/host_key")
	t.Setenv("DRAY_S3_BUCKET", "my-bucket")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRequiresSSHKeyPaths(t *testing.T) {
	clearEnv(t)
	t.Setenv("DRAY_HOST", "0.0.0.0:2022")
	t.Setenv("DRAY_S3_BUCKET", "my-bucket")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRequiresBucket(t *testing.T) {
	clearEnv(t)
	t.Setenv("DRAY_HOST", "0.0.0.0:2022")
	t.Setenv("DRAY_SSH_KEY_PATHS", "/etc/dray/host_key")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DRAY_HOST", "0.0.0.0:2022")
	t.Setenv("DRAY_SSH_KEY_PATHS", "/etc/dray/host_key")
	t.Setenv("DRAY_S3_BUCKET", "my-bucket")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.S3.EndpointRegion)
	assert.Equal(t, handle.DefaultMaxHandles, cfg.MaxHandles)
}

func TestLoadSplitsMultipleKeyPaths(t *testing.T) {
	clearEnv(t)
	t.Setenv("DRAY_HOST", "0.0.0.0:2022")
	t.Setenv("DRAY_SSH_KEY_PATHS", "/etc/dray/key1, /etc/dray/key2")
	t.Setenv("DRAY_S3_BUCKET", "my-bucket")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"/etc/dray/key1", "/etc/dray/key2"}, cfg.SSHKeyPaths)
}

func TestLoadHonorsMaxHandlesOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("DRAY_HOST", "0.0.0.0:2022")
	t.Setenv("DRAY_SSH_KEY_PATHS", "/etc/dray/host_key")
	t.Setenv("DRAY_S3_BUCKET", "my-bucket")
	t.Setenv("DRAY_MAX_HANDLES", "10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.MaxHandles)
}
