package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestParseOverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
tickRate: 10ms
ticks: 50
log:
  level: debug
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, 10*time.Millisecond, cfg.TickRate)
	assert.Equal(t, 50, cfg.Ticks)
	assert.Equal(t, Default().MaxHops, cfg.MaxHops)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Realtime)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"negative ticks", "ticks: -1", "ticks must not be negative"},
		{"zero hops", "maxHops: 0", "maxHops must be positive"},
		{"unbounded", "ticks: 0", "ticks is required"},
		{"format", "log: {format: xml}", `unknown log format "xml"`},
		{"syntax", "ticks: [", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRealtimeMayRunUnbounded(t *testing.T) {
	cfg, err := Parse([]byte("realtime: true\nticks: 0\nlisten: \":9090\"\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Realtime)
	assert.Equal(t, ":9090", cfg.Listen)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hfsm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ticks: 5\nlayout: creature.yaml\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Ticks)
	assert.Equal(t, "creature.yaml", cfg.Layout)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
