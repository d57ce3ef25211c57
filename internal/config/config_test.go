package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"gidterm/internal/config"
	"gidterm/internal/history"
	"gidterm/internal/ports"
)

func TestLoad_DefaultsWithNoFile(t *testing.T) {
	cfg, _, err := config.Load(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 3000, cfg.PortRangeMin)
	require.Equal(t, 3999, cfg.PortRangeMax)
	require.Equal(t, 500, cfg.HistoryCap)
	require.Equal(t, 20, cfg.ParserWindow)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "auto", cfg.LogFormat)
}

// A configured history_cap actually changes how many snapshots a History
// built from it retains, not just the struct field.
func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gidterm.yaml"), []byte("history_cap: 3\nlog_level: debug\n"), 0o644))

	cfg, _, err := config.Load(dir)
	require.NoError(t, err)
	require.Equal(t, 3, cfg.HistoryCap)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 3000, cfg.PortRangeMin)

	h := history.NewWithCap(cfg.HistoryCap)
	for i := 0; i < 10; i++ {
		h.Record(float64(i)/10, nil)
	}
	require.LessOrEqual(t, h.Len(), 3)
}

// A configured port range actually constrains a Registry built from it.
func TestLoad_PortRangeConstrainsRegistry(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gidterm.yaml"), []byte("port_range_min: 4000\nport_range_max: 4001\n"), 0o644))

	cfg, _, err := config.Load(dir)
	require.NoError(t, err)
	require.Equal(t, 4000, cfg.PortRangeMin)
	require.Equal(t, 4001, cfg.PortRangeMax)

	reg, err := ports.Load(filepath.Join(t.TempDir(), "ports.json"), cfg.PortRangeMin, cfg.PortRangeMax)
	require.NoError(t, err)
	for _, proj := range []string{"a", "b"} {
		p, err := reg.GetOrAllocate(proj, nil)
		require.NoError(t, err)
		require.GreaterOrEqual(t, p, 4000)
		require.LessOrEqual(t, p, 4001)
	}
	_, err = reg.GetOrAllocate("c", nil)
	require.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gidterm.yaml"), []byte("log_level: debug\n"), 0o644))
	t.Setenv("GIDTERM_LOG_LEVEL", "trace")

	cfg, _, err := config.Load(dir)
	require.NoError(t, err)
	require.Equal(t, "trace", cfg.LogLevel)
}
