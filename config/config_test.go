package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesFixedParameters(t *testing.T) {
	cfg := Default()
	assert.Equal(t, []uint32{32000, 44100, 48000, 88200, 96000, 176400, 192000}, cfg.Rates)
	assert.Equal(t, 48, cfg.QueueLength)
	assert.Equal(t, 2, cfg.PCMChannels)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "amdtp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pcm_channels: 8\nmidi_ports: 2\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.PCMChannels)
	assert.Equal(t, 2, cfg.MIDIPorts)
	assert.Equal(t, 48, cfg.QueueLength, "unset fields should keep their defaults")
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pcm_channels: [this is not an int"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestBindFlagsOverridesConfig(t *testing.T) {
	cfg := Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--pcm-channels=4"}))
	assert.Equal(t, 4, cfg.PCMChannels)
}
