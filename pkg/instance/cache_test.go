package instance

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/younsl/ec2utils/internal/config"
	"github.com/younsl/ec2utils/internal/models"
)

func testCache(t *testing.T) *Cache {
	t.Helper()
	root := t.TempDir()
	return NewCache(config.CacheConfig{
		Dir:         filepath.Join(root, "tmp"),
		FallbackDir: filepath.Join(root, "home", ".ndt"),
		File:        "instance-data.json",
		TTL:         900 * time.Second,
	})
}

func sampleSnapshot() *models.InstanceSnapshot {
	pending := time.Date(2024, 5, 2, 8, 12, 45, 0, time.UTC)
	return &models.InstanceSnapshot{
		InstanceID:       "i-0123456789abcdef0",
		Region:           "eu-west-1",
		AvailabilityZone: "eu-west-1b",
		PrivateIP:        "10.0.1.25",
		PendingTime:      &pending,
		NetworkInterfaces: []models.NetworkInterface{
			{ID: "eni-a", DeviceIndex: 0},
			{ID: "eni-b", DeviceIndex: 1},
		},
		Tags: map[string]string{
			"Name":              "web-1",
			models.TagStackName: "prod-stack",
		},
		StackName:     "prod-stack",
		StackData:     map[string]string{"Env": "prod"},
		InitialStatus: "CREATE_COMPLETE",
		FullStackData: &models.StackDescription{
			StackName:    "prod-stack",
			StackStatus:  "CREATE_COMPLETE",
			CreationTime: "Tue, 02 Jan 2024 03:04:05 +0000",
			Parameters:   map[string]string{"Env": "prod"},
		},
	}
}

func TestCache_StoreLoadRoundTrip(t *testing.T) {
	c := testCache(t)
	want := sampleSnapshot()

	path, err := c.Store(want)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(c.dir, "instance-data.json"), path)

	got, ok := c.Load()
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestCache_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	c := testCache(t)

	path, err := c.Store(sampleSnapshot())
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0660), info.Mode().Perm())

	dirInfo, err := os.Stat(c.dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0770), dirInfo.Mode().Perm())
}

func TestCache_Miss(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, c *Cache)
	}{
		{
			name:    "absent",
			prepare: func(*testing.T, *Cache) {},
		},
		{
			name: "stale",
			prepare: func(t *testing.T, c *Cache) {
				path, err := c.Store(sampleSnapshot())
				require.NoError(t, err)
				old := time.Now().Add(-901 * time.Second)
				require.NoError(t, os.Chtimes(path, old, old))
			},
		},
		{
			name: "corrupt",
			prepare: func(t *testing.T, c *Cache) {
				require.NoError(t, os.MkdirAll(c.dir, 0o755))
				require.NoError(t, os.WriteFile(filepath.Join(c.dir, c.file), []byte("{not json"), 0o600))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testCache(t)
			tt.prepare(t, c)

			got, ok := c.Load()
			assert.False(t, ok)
			assert.Nil(t, got)
		})
	}
}

func TestCache_FreshnessUsesModTime(t *testing.T) {
	c := testCache(t)
	_, err := c.Store(sampleSnapshot())
	require.NoError(t, err)

	c.now = func() time.Time { return time.Now().Add(899 * time.Second) }
	_, ok := c.Load()
	assert.True(t, ok)

	c.now = func() time.Time { return time.Now().Add(901 * time.Second) }
	_, ok = c.Load()
	assert.False(t, ok)
}

func TestCache_FallbackDir(t *testing.T) {
	c := testCache(t)
	// A regular file where the primary directory should be
	require.NoError(t, os.WriteFile(c.dir, []byte("x"), 0o600))

	path, err := c.Store(sampleSnapshot())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(c.fallbackDir, "instance-data.json"), path)

	got, ok := c.Load()
	require.True(t, ok)
	assert.Equal(t, "i-0123456789abcdef0", got.InstanceID)
}

func TestCache_Clear(t *testing.T) {
	c := testCache(t)
	path, err := c.Store(sampleSnapshot())
	require.NoError(t, err)

	require.NoError(t, c.Clear())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Clearing twice is fine
	assert.NoError(t, c.Clear())
}
