package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c := &Config{}
	c.LoadDefaults()

	assert.Equal(t, int64(1<<20), c.MinAnonymousSize)
	assert.Equal(t, 5, c.MaxUploadBurst)
	assert.Equal(t, 45*time.Minute, c.UploadBurstDuration)
	assert.Equal(t, 15*time.Minute, c.UploadTimeout)
	assert.True(t, c.EnforceMainAnnounce)
	assert.False(t, c.UseS3)
	assert.Equal(t, 5, c.MagnetMaxTrackers)
}

func TestJSONOverlayOnlyTouchesSetFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"database_dsn": "postgres://test",
		"upload_timeout_seconds": 60,
		"raid_mode_limit_uploads": true,
		"minimum_anonymous_torrent_size": 0
	}`), 0o600))

	oldArgs := os.Args
	os.Args = []string{"kyan", "-c", path}
	defer func() { os.Args = oldArgs }()

	c := &Config{}
	c.LoadDefaults()
	parseJSON(c)

	assert.Equal(t, "postgres://test", c.DatabaseDSN)
	assert.Equal(t, time.Minute, c.UploadTimeout)
	assert.True(t, c.RaidMode)
	assert.Equal(t, int64(0), c.MinAnonymousSize)
	// Untouched fields keep their defaults.
	assert.Equal(t, 45*time.Minute, c.UploadBurstDuration)
	assert.Equal(t, "kyan", c.SiteName)
}

func TestFlagOverlay(t *testing.T) {
	oldArgs := os.Args
	os.Args = []string{"kyan", "-d", "postgres://flagged", "-k", ""}
	defer func() { os.Args = oldArgs }()

	c := &Config{}
	c.LoadDefaults()
	parseFlags(c)

	assert.Equal(t, "postgres://flagged", c.DatabaseDSN)
	assert.Equal(t, "", c.BackupDir)
}
