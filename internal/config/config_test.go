package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsDeterministicByDefault(t *testing.T) {
	c := Default()
	assert.True(t, c.Deterministic)
	assert.Equal(t, 4, c.SystemGeneCount)
}

func TestNewAppliesOptionsInOrder(t *testing.T) {
	c := New(WithSeeds(1, 2), WithMetrics(10, 50))
	assert.Equal(t, uint64(1), c.Seed0)
	assert.Equal(t, uint64(2), c.Seed1)
	assert.True(t, c.MetricsEnabled)
	assert.Equal(t, 10, c.MetricsCollectionInterval)
	assert.Equal(t, 50, c.MetricsRingCapacity)
}

func TestLoadMissingDefaultPathReturnsDefault(t *testing.T) {
	// A nonexistent explicit path is a hard error, but the implicit
	// default path is allowed to be absent.
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().SystemGeneCount, c.SystemGeneCount)
}

func TestLoadExplicitFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "seed0 = 99\nseed1 = 100\nsystem_gene_count = 7\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(99), c.Seed0)
	assert.Equal(t, uint64(100), c.Seed1)
	assert.Equal(t, 7, c.SystemGeneCount)
	// Unset fields fall back to Default()'s values.
	assert.Equal(t, Default().DefaultDecayRate, c.DefaultDecayRate)
}

func TestLoadExplicitMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
